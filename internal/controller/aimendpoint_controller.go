/*
MIT License

Copyright (c) 2025 Advanced Micro Devices, Inc.

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

// Package controller implements the declarative reconciliation loop: for
// each AIMEndpoint, converge the running instance set on Spec.Replicas by
// driving the same Catalog/Resolver/Cache/Supervisor/Probe core subsystems
// the one-shot cmd/aimdeploy binary drives directly.
package controller

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"golang.org/x/sync/errgroup"

	aimv1alpha1 "github.com/amd-enterprise-ai/aim-runtime/api/v1alpha1"
	"github.com/amd-enterprise-ai/aim-runtime/internal/catalog"
	"github.com/amd-enterprise-ai/aim-runtime/internal/constants"
	controllerutils "github.com/amd-enterprise-ai/aim-runtime/internal/controller/utils"
	"github.com/amd-enterprise-ai/aim-runtime/internal/coreerr"
	"github.com/amd-enterprise-ai/aim-runtime/internal/endpointprobe"
	"github.com/amd-enterprise-ai/aim-runtime/internal/launchconfig"
	"github.com/amd-enterprise-ai/aim-runtime/internal/modelcache"
	"github.com/amd-enterprise-ai/aim-runtime/internal/resolver"
	"github.com/amd-enterprise-ai/aim-runtime/internal/supervisor"
)

// ProcessSupervisor is the subset of *supervisor.Supervisor the Reconciler
// depends on, so tests can supply a fake without spawning real processes.
type ProcessSupervisor interface {
	Launch(spec launchconfig.LaunchSpec) (supervisor.EndpointInstance, error)
	Stop(identity string, gracePeriod time.Duration) error
	Status(identity string) (supervisor.EndpointInstance, bool)
	Died(identity string) bool
	List() []supervisor.EndpointInstance
	MarkReady(identity string)
	MarkFailed(identity string)
}

// ReadinessProber is the subset of *endpointprobe.Prober the Reconciler
// depends on.
type ReadinessProber interface {
	WaitReady(ctx context.Context, url string, timeout time.Duration, died endpointprobe.DiedFunc) endpointprobe.Outcome
}

// CacheStore is the subset of *modelcache.Store the Reconciler depends on.
type CacheStore interface {
	Ensure(ctx context.Context, modelID string, fetch modelcache.FetchFunc) (string, error)
	CacheEnv(modelID string) map[string]string
	CacheMounts(modelID string) []modelcache.Mount
}

// AIMEndpointReconciler drives one AIMEndpoint's instance set toward its
// spec via a seven-step reconcile loop. It never touches the catalog,
// cache, or supervisor directly except through the injected dependencies
// below, so the loop itself is fully unit-testable against fakes.
type AIMEndpointReconciler struct {
	client.Client
	Scheme   *runtime.Scheme
	Recorder record.EventRecorder

	Catalog    resolver.CatalogReader
	Resolver   *resolver.Resolver
	Cache      CacheStore
	FetchFor   func(modelID string) modelcache.FetchFunc
	Supervisor ProcessSupervisor
	Probe      ReadinessProber

	GracePeriod time.Duration

	mu      sync.Mutex
	backoff map[types.NamespacedName]time.Duration
}

// +kubebuilder:rbac:groups=aim.eai.amd.com,resources=aimendpoints,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=aim.eai.amd.com,resources=aimendpoints/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=aim.eai.amd.com,resources=aimendpoints/finalizers,verbs=update
// +kubebuilder:rbac:groups=core,resources=events,verbs=create;patch

// Reconcile is the controller-runtime entry point. It is the sole
// translator from typed core errors to status conditions: no other package
// sets a condition or computes a requeue delay.
func (r *AIMEndpointReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	log := logf.FromContext(ctx)

	var ep aimv1alpha1.AIMEndpoint
	if err := r.Get(ctx, req.NamespacedName, &ep); err != nil {
		if apierrors.IsNotFound(err) {
			r.resetBackoff(req.NamespacedName)
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, err
	}

	original := ep.DeepCopy()

	cm := controllerutils.NewConditionManager(ep.Status.Conditions)
	sh := controllerutils.NewStatusHelper(&ep.Status, cm)

	result := r.reconcileSpec(ctx, &ep, cm, sh, req.NamespacedName)

	ep.Status.Conditions = cm.Conditions()
	ep.Status.ObservedGeneration = ep.Generation

	if equalStatus(original.Status, ep.Status) {
		return result, nil
	}

	transitions := controllerutils.DiffConditionTransitions(original.Status.Conditions, ep.Status.Conditions)
	controllerutils.EmitConditionTransitions(r.Recorder, &ep, transitions, cm)

	if err := r.Status().Update(ctx, &ep); err != nil {
		if apierrors.IsConflict(err) {
			log.V(1).Info("status update conflict, requeueing immediately", "endpoint", req.NamespacedName)
			return ctrl.Result{Requeue: true}, nil
		}
		return ctrl.Result{}, err
	}

	return result, nil
}

// reconcileSpec implements the reconcile loop body. Every failure path goes
// through failWithCoreErr, which sets conditions and computes backoff
// itself; reconcileSpec's return value is always a usable ctrl.Result, never
// an error, because errors are a caller-facing condition, not a Go error.
func (r *AIMEndpointReconciler) reconcileSpec(
	ctx context.Context,
	ep *aimv1alpha1.AIMEndpoint,
	cm *controllerutils.ConditionManager,
	sh *controllerutils.StatusHelper,
	key types.NamespacedName,
) ctrl.Result {
	log := logf.FromContext(ctx)

	port := constants.DefaultPort
	if ep.Spec.Port != nil {
		port = int(*ep.Spec.Port)
	}

	useCache := ep.Spec.CachePolicy.Enabled

	launchReq := resolver.Request{
		ModelID:          ep.Spec.ModelID,
		Backend:          "vllm",
		Port:             port,
		UseCache:         useCache,
		ReadinessTimeout: constants.DefaultReadinessTimeoutSeconds,
	}
	if ep.Spec.RecipeSelector.GPUCount != nil {
		n := int(*ep.Spec.RecipeSelector.GPUCount)
		launchReq.GPUCount = &n
	}
	if ep.Spec.RecipeSelector.Precision != nil {
		p := catalog.Precision(*ep.Spec.RecipeSelector.Precision)
		launchReq.Precision = &p
	}

	// Resolving ahead of reading ready_replicas is deliberate: the real
	// Identity derivation needs a resolved plan, and the net per-tick
	// behavior is unchanged either way.
	plan, err := r.Resolver.Resolve(ctx, launchReq)
	if err != nil {
		return r.failWithCoreErr(ctx, ep, sh, key, err)
	}
	ep.Status.ResolvedRecipeID = &plan.RecipeID

	recipe, ok := recipeByID(r.Catalog.RecipesFor(ep.Spec.ModelID), plan.RecipeID)
	if !ok {
		return r.failWithCoreErr(ctx, ep, sh, key, coreerr.NewNotFound("resolved recipe %q vanished from catalog", plan.RecipeID))
	}

	if useCache {
		sh.Starting(constants.ReasonCaching, fmt.Sprintf("ensuring model %s is cached", ep.Spec.ModelID))
		if _, err := r.Cache.Ensure(ctx, ep.Spec.ModelID, r.FetchFor(ep.Spec.ModelID)); err != nil {
			cm.Set(constants.ConditionCache, metav1.ConditionFalse, constants.ReasonCacheIOError, err.Error(), controllerutils.LevelWarning)
			return r.failWithCoreErr(ctx, ep, sh, key, err)
		}
		cm.Set(constants.ConditionCache, metav1.ConditionTrue, constants.ReasonReady, "model cached", controllerutils.LevelNone)
	}

	spec := launchconfig.Materialize(plan, launchReq, recipe, r.Cache)
	baseIdentity := spec.Identity

	instances := instancesFor(r.Supervisor.List(), baseIdentity)
	desired := int(ep.Spec.Replicas)

	ready := filterPhase(instances, constants.PhaseReady)
	starting := filterPhase(instances, constants.PhaseStarting)
	live := len(ready) + len(starting)

	switch {
	case live < desired:
		ordinal := nextOrdinal(instances)
		instSpec := spec
		instSpec.Identity = replicaIdentity(baseIdentity, ordinal)
		for i := range instSpec.PortBindings {
			instSpec.PortBindings[i].HostPort += ordinal
		}
		sh.Starting(constants.ReasonLaunching, fmt.Sprintf("launching replica %d of %d", ordinal, desired))
		if _, err := r.Supervisor.Launch(instSpec); err != nil {
			return r.failWithCoreErr(ctx, ep, sh, key, err)
		}
		starting = append(starting, supervisor.EndpointInstance{Identity: instSpec.Identity, Phase: constants.PhaseStarting})

	case live > desired:
		excess := live - desired
		victims := sortNewestFirst(append(append([]supervisor.EndpointInstance{}, ready...), starting...))
		for i := 0; i < excess && i < len(victims); i++ {
			if err := r.Supervisor.Stop(victims[i].Identity, r.gracePeriod()); err != nil {
				log.Error(err, "failed to stop excess instance", "identity", victims[i].Identity)
			}
		}
	}

	// Step 6 — concurrent wait_ready across every Starting instance.
	g, gctx := errgroup.WithContext(ctx)
	for _, inst := range starting {
		inst := inst
		g.Go(func() error {
			url := instanceHealthURL(inst.Identity, port)
			outcome := r.Probe.WaitReady(gctx, url, readinessTimeout(), func() bool { return r.Supervisor.Died(inst.Identity) })
			switch outcome {
			case endpointprobe.OutcomeReady:
				r.Supervisor.MarkReady(inst.Identity)
				return nil
			case endpointprobe.OutcomeInstanceDied:
				r.Supervisor.MarkFailed(inst.Identity)
				return coreerr.NewInstanceDied("instance %q died before becoming ready", inst.Identity)
			case endpointprobe.OutcomeCancelled:
				return nil
			default:
				r.Supervisor.MarkFailed(inst.Identity)
				_ = r.Supervisor.Stop(inst.Identity, r.gracePeriod())
				return coreerr.NewReadinessTimeout("instance %q did not become ready in time", inst.Identity)
			}
		})
	}
	if err := g.Wait(); err != nil {
		return r.failWithCoreErr(ctx, ep, sh, key, err)
	}

	// Step 7 — recompute status from the current instance set.
	final := instancesFor(r.Supervisor.List(), baseIdentity)
	readyNow := filterPhase(final, constants.PhaseReady)
	ep.Status.ReadyReplicas = int32(len(readyNow))
	ep.Status.EndpointURLs = urlsFor(readyNow, port)

	switch {
	case desired == 0:
		sh.Terminated(constants.ReasonTerminated, "no replicas requested")
	case len(readyNow) >= desired:
		sh.Ready(constants.ReasonReady, fmt.Sprintf("%d/%d replicas ready", len(readyNow), desired))
	default:
		sh.Pending(constants.ReasonProbing, fmt.Sprintf("%d/%d replicas ready", len(readyNow), desired))
	}

	r.resetBackoff(key)
	return ctrl.Result{RequeueAfter: constants.ProbeInterval}
}

func (r *AIMEndpointReconciler) gracePeriod() time.Duration {
	if r.GracePeriod > 0 {
		return r.GracePeriod
	}
	return time.Duration(constants.DefaultGracePeriodSeconds) * time.Second
}

func readinessTimeout() time.Duration {
	return time.Duration(constants.DefaultReadinessTimeoutSeconds) * time.Second
}

// failWithCoreErr classifies err, marks the endpoint Failed/Degraded with
// the matching reason, and returns a result requeueing after the current
// backoff (doubling on every call), except for StatusConflict which the
// caller handles separately with an immediate requeue.
func (r *AIMEndpointReconciler) failWithCoreErr(
	ctx context.Context,
	ep *aimv1alpha1.AIMEndpoint,
	sh *controllerutils.StatusHelper,
	key types.NamespacedName,
	err error,
) ctrl.Result {
	log := logf.FromContext(ctx)
	kind := coreerr.Classify(err)
	reason := reasonFor(kind)
	sh.Failed(reason, err.Error())
	log.Error(err, "reconcile failed", "endpoint", ep.Name, "kind", kind.String())

	backoff := r.nextBackoff(key)
	return ctrl.Result{RequeueAfter: backoff}
}

func reasonFor(k coreerr.Kind) string {
	switch k {
	case coreerr.KindMalformedCatalog:
		return constants.ReasonMalformedCatalog
	case coreerr.KindNotFound, coreerr.KindNoRecipe:
		return constants.ReasonNoRecipe
	case coreerr.KindNoAccelerator:
		return constants.ReasonNoAccelerator
	case coreerr.KindFetchFailed:
		return constants.ReasonFetchFailed
	case coreerr.KindIOError:
		return constants.ReasonCacheIOError
	case coreerr.KindLaunchError, coreerr.KindAlreadyExists:
		return constants.ReasonLaunchFailed
	case coreerr.KindReadinessTimeout:
		return constants.ReasonReadinessTimeout
	case coreerr.KindInstanceDied:
		return constants.ReasonInstanceDied
	case coreerr.KindStatusConflict:
		return constants.ReasonStatusConflict
	default:
		return "Unknown"
	}
}

func (r *AIMEndpointReconciler) nextBackoff(key types.NamespacedName) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.backoff == nil {
		r.backoff = map[types.NamespacedName]time.Duration{}
	}
	current, ok := r.backoff[key]
	if !ok || current == 0 {
		current = constants.RequeueBackoffFloor
	} else {
		current *= 2
		if current > constants.RequeueBackoffCeiling {
			current = constants.RequeueBackoffCeiling
		}
	}
	r.backoff[key] = current
	return current
}

func (r *AIMEndpointReconciler) resetBackoff(key types.NamespacedName) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.backoff, key)
}

func recipeByID(recipes []catalog.Recipe, id string) (catalog.Recipe, bool) {
	for _, rec := range recipes {
		if rec.RecipeID == id {
			return rec, true
		}
	}
	return catalog.Recipe{}, false
}

// replicaIdentity derives a per-instance identity from Materialize's
// single, replica-agnostic base identity (launchconfig.Identity never
// changes meaning: it names a (model, gpu, precision, backend) tuple, not
// an instance). The Reconciler layers replica ordinals on top of it here so
// Spec.Replicas > 1 can coexist with that contract.
func replicaIdentity(base string, ordinal int) string {
	return fmt.Sprintf("%s-%d", base, ordinal)
}

func instancesFor(all []supervisor.EndpointInstance, baseIdentity string) []supervisor.EndpointInstance {
	prefix := baseIdentity + "-"
	var out []supervisor.EndpointInstance
	for _, inst := range all {
		if len(inst.Identity) > len(prefix) && inst.Identity[:len(prefix)] == prefix {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return ordinalOf(out[i].Identity, prefix) < ordinalOf(out[j].Identity, prefix) })
	return out
}

func ordinalOf(identity, prefix string) int {
	var n int
	_, _ = fmt.Sscanf(identity[len(prefix):], "%d", &n)
	return n
}

func nextOrdinal(existing []supervisor.EndpointInstance) int {
	used := map[int]bool{}
	for _, inst := range existing {
		used[ordinalOfIdentity(inst.Identity)] = true
	}
	for i := 0; ; i++ {
		if !used[i] {
			return i
		}
	}
}

func ordinalOfIdentity(identity string) int {
	idx := lastDash(identity)
	if idx == -1 {
		return 0
	}
	var n int
	_, _ = fmt.Sscanf(identity[idx+1:], "%d", &n)
	return n
}

func lastDash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '-' {
			return i
		}
	}
	return -1
}

func filterPhase(instances []supervisor.EndpointInstance, phase constants.EndpointPhase) []supervisor.EndpointInstance {
	var out []supervisor.EndpointInstance
	for _, inst := range instances {
		if inst.Phase == phase {
			out = append(out, inst)
		}
	}
	return out
}

// sortNewestFirst orders instances by StartedAt descending, so scale-down
// stops the newest replicas first and leaves the longest-lived ones in
// place.
func sortNewestFirst(instances []supervisor.EndpointInstance) []supervisor.EndpointInstance {
	out := append([]supervisor.EndpointInstance{}, instances...)
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

// instancePort returns the host port a given replica listens on: the
// endpoint's base container port offset by the replica's ordinal, mirroring
// the same offset Launch applies to the instance's LaunchSpec.
func instancePort(identity string, basePort int) int {
	return basePort + ordinalOfIdentity(identity)
}

func instanceHealthURL(identity string, basePort int) string {
	return fmt.Sprintf("http://127.0.0.1:%d%s", instancePort(identity, basePort), constants.DefaultHealthPath)
}

func urlsFor(instances []supervisor.EndpointInstance, basePort int) []string {
	urls := make([]string, 0, len(instances))
	for _, inst := range instances {
		urls = append(urls, fmt.Sprintf("http://127.0.0.1:%d", instancePort(inst.Identity, basePort)))
	}
	return urls
}

func equalStatus(a, b aimv1alpha1.AIMEndpointStatus) bool {
	return reflect.DeepEqual(a, b)
}

// SetupWithManager wires the Reconciler to watch AIMEndpoint objects.
func (r *AIMEndpointReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&aimv1alpha1.AIMEndpoint{}).
		Named("aimendpoint").
		Complete(r)
}
