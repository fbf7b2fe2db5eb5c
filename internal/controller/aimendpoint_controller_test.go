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

package controller

import (
	"context"
	"sync"
	"testing"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	aimv1alpha1 "github.com/amd-enterprise-ai/aim-runtime/api/v1alpha1"
	"github.com/amd-enterprise-ai/aim-runtime/internal/catalog"
	"github.com/amd-enterprise-ai/aim-runtime/internal/constants"
	"github.com/amd-enterprise-ai/aim-runtime/internal/coreerr"
	"github.com/amd-enterprise-ai/aim-runtime/internal/endpointprobe"
	"github.com/amd-enterprise-ai/aim-runtime/internal/gpuprobe"
	"github.com/amd-enterprise-ai/aim-runtime/internal/launchconfig"
	"github.com/amd-enterprise-ai/aim-runtime/internal/modelcache"
	"github.com/amd-enterprise-ai/aim-runtime/internal/resolver"
	"github.com/amd-enterprise-ai/aim-runtime/internal/supervisor"
)

func testScheme(t *testing.T) *runtime.Scheme {
	t.Helper()
	scheme := runtime.NewScheme()
	if err := clientgoscheme.AddToScheme(scheme); err != nil {
		t.Fatalf("clientgoscheme.AddToScheme: %v", err)
	}
	if err := aimv1alpha1.AddToScheme(scheme); err != nil {
		t.Fatalf("aimv1alpha1.AddToScheme: %v", err)
	}
	return scheme
}

type fakeProber struct{ counts gpuprobe.Counts }

func (f fakeProber) Probe(ctx context.Context) gpuprobe.Counts { return f.counts }

type fakeCache struct{ ensureErr error }

func (f *fakeCache) Ensure(ctx context.Context, modelID string, fetch modelcache.FetchFunc) (string, error) {
	if f.ensureErr != nil {
		return "", f.ensureErr
	}
	return "/cache/" + modelID, nil
}
func (f *fakeCache) CacheEnv(modelID string) map[string]string   { return map[string]string{} }
func (f *fakeCache) CacheMounts(modelID string) []modelcache.Mount { return nil }

type fakeSupervisor struct {
	mu        sync.Mutex
	instances map[string]supervisor.EndpointInstance
	launchErr error
}

func newFakeSupervisor() *fakeSupervisor {
	return &fakeSupervisor{instances: map[string]supervisor.EndpointInstance{}}
}

func (f *fakeSupervisor) Launch(spec launchconfig.LaunchSpec) (supervisor.EndpointInstance, error) {
	if f.launchErr != nil {
		return supervisor.EndpointInstance{}, f.launchErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	inst := supervisor.EndpointInstance{Identity: spec.Identity, Phase: constants.PhaseStarting, StartedAt: time.Now()}
	f.instances[spec.Identity] = inst
	return inst, nil
}

func (f *fakeSupervisor) Stop(identity string, gracePeriod time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if inst, ok := f.instances[identity]; ok {
		inst.Phase = constants.PhaseTerminated
		f.instances[identity] = inst
	}
	return nil
}

func (f *fakeSupervisor) Status(identity string) (supervisor.EndpointInstance, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst, ok := f.instances[identity]
	return inst, ok
}

func (f *fakeSupervisor) Died(identity string) bool {
	inst, ok := f.Status(identity)
	if !ok {
		return true
	}
	return inst.Phase == constants.PhaseFailed || inst.Phase == constants.PhaseTerminated
}

func (f *fakeSupervisor) List() []supervisor.EndpointInstance {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]supervisor.EndpointInstance, 0, len(f.instances))
	for _, inst := range f.instances {
		out = append(out, inst)
	}
	return out
}

func (f *fakeSupervisor) MarkReady(identity string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if inst, ok := f.instances[identity]; ok {
		inst.Phase = constants.PhaseReady
		f.instances[identity] = inst
	}
}

func (f *fakeSupervisor) MarkFailed(identity string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if inst, ok := f.instances[identity]; ok {
		inst.Phase = constants.PhaseFailed
		f.instances[identity] = inst
	}
}

type fakeProbe struct{ outcome endpointprobe.Outcome }

func (f fakeProbe) WaitReady(ctx context.Context, url string, timeout time.Duration, died endpointprobe.DiedFunc) endpointprobe.Outcome {
	return f.outcome
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	models := []catalog.ModelDescriptor{
		{ModelID: "test/model", SizeClass: "7B", Family: "test", ReadinessLevel: catalog.ReadinessProductionReady},
	}
	recipes := []catalog.Recipe{
		{
			RecipeID:       "r1",
			ModelID:        "test/model",
			HardwareTag:    "mi300x",
			Precision:      catalog.PrecisionFP16,
			ReadinessLevel: catalog.ReadinessProductionReady,
			Backends: map[string]map[string]catalog.BackendConfig{
				"vllm": {
					"1_gpu": {Enabled: true, Args: []catalog.KV{{Key: "--tensor-parallel-size", Value: "1"}}},
				},
			},
		},
	}
	cat, err := catalog.New(models, recipes)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return cat
}

func newTestEndpoint(name string, replicas int32) *aimv1alpha1.AIMEndpoint {
	return &aimv1alpha1.AIMEndpoint{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "default"},
		Spec: aimv1alpha1.AIMEndpointSpec{
			Name:           name,
			ModelID:        "test/model",
			Replicas:       replicas,
			RecipeSelector: aimv1alpha1.AIMEndpointRecipeSelector{AutoSelect: true},
			CachePolicy:    aimv1alpha1.AIMEndpointCachePolicy{Enabled: false},
		},
	}
}

func TestReconcileMissingObjectIsNoop(t *testing.T) {
	scheme := testScheme(t)
	cl := fake.NewClientBuilder().WithScheme(scheme).Build()

	r := &AIMEndpointReconciler{
		Client:     cl,
		Scheme:     scheme,
		Recorder:   record.NewFakeRecorder(10),
		Catalog:    testCatalog(t),
		Resolver:   resolver.New(testCatalog(t), fakeProber{counts: gpuprobe.Counts{RuntimeVisible: 1}}),
		Cache:      &fakeCache{},
		FetchFor:   func(string) modelcache.FetchFunc { return nil },
		Supervisor: newFakeSupervisor(),
		Probe:      fakeProbe{outcome: endpointprobe.OutcomeReady},
	}

	res, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Name: "missing", Namespace: "default"}})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if res.Requeue || res.RequeueAfter != 0 {
		t.Errorf("Reconcile() result = %+v, want empty", res)
	}
}

func TestReconcileNoAcceleratorSetsFailedAndBackoff(t *testing.T) {
	scheme := testScheme(t)
	ep := newTestEndpoint("ep-no-accel", 1)
	cl := fake.NewClientBuilder().WithScheme(scheme).WithObjects(ep).WithStatusSubresource(ep).Build()

	cat := testCatalog(t)
	r := &AIMEndpointReconciler{
		Client:     cl,
		Scheme:     scheme,
		Recorder:   record.NewFakeRecorder(10),
		Catalog:    cat,
		Resolver:   resolver.New(cat, fakeProber{counts: gpuprobe.Counts{RuntimeVisible: 0}}),
		Cache:      &fakeCache{},
		FetchFor:   func(string) modelcache.FetchFunc { return nil },
		Supervisor: newFakeSupervisor(),
		Probe:      fakeProbe{outcome: endpointprobe.OutcomeReady},
	}

	key := types.NamespacedName{Name: "ep-no-accel", Namespace: "default"}
	res, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: key})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if res.RequeueAfter != constants.RequeueBackoffFloor {
		t.Errorf("RequeueAfter = %v, want %v", res.RequeueAfter, constants.RequeueBackoffFloor)
	}

	var got aimv1alpha1.AIMEndpoint
	if err := cl.Get(context.Background(), key, &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status.Phase != constants.PhaseFailed {
		t.Errorf("Phase = %q, want Failed", got.Status.Phase)
	}

	// A second failure should double the backoff.
	res2, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: key})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if res2.RequeueAfter != 2*constants.RequeueBackoffFloor {
		t.Errorf("RequeueAfter on second failure = %v, want %v", res2.RequeueAfter, 2*constants.RequeueBackoffFloor)
	}
}

func TestReconcileLaunchesAndConvergesToReady(t *testing.T) {
	scheme := testScheme(t)
	ep := newTestEndpoint("ep-ready", 1)
	cl := fake.NewClientBuilder().WithScheme(scheme).WithObjects(ep).WithStatusSubresource(ep).Build()

	cat := testCatalog(t)
	sup := newFakeSupervisor()
	r := &AIMEndpointReconciler{
		Client:     cl,
		Scheme:     scheme,
		Recorder:   record.NewFakeRecorder(10),
		Catalog:    cat,
		Resolver:   resolver.New(cat, fakeProber{counts: gpuprobe.Counts{RuntimeVisible: 1}}),
		Cache:      &fakeCache{},
		FetchFor:   func(string) modelcache.FetchFunc { return nil },
		Supervisor: sup,
		Probe:      fakeProbe{outcome: endpointprobe.OutcomeReady},
	}

	key := types.NamespacedName{Name: "ep-ready", Namespace: "default"}
	res, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: key})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if res.RequeueAfter != constants.ProbeInterval {
		t.Errorf("RequeueAfter = %v, want %v", res.RequeueAfter, constants.ProbeInterval)
	}

	var got aimv1alpha1.AIMEndpoint
	if err := cl.Get(context.Background(), key, &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status.Phase != constants.PhaseReady {
		t.Errorf("Phase = %q, want Ready", got.Status.Phase)
	}
	if got.Status.ReadyReplicas != 1 {
		t.Errorf("ReadyReplicas = %d, want 1", got.Status.ReadyReplicas)
	}
	if len(got.Status.EndpointURLs) != 1 {
		t.Errorf("EndpointURLs = %v, want one entry", got.Status.EndpointURLs)
	}
	if len(sup.List()) != 1 {
		t.Errorf("supervisor has %d instances, want 1", len(sup.List()))
	}
}

func TestReconcileScalesDownExcessReplicas(t *testing.T) {
	scheme := testScheme(t)
	ep := newTestEndpoint("ep-scale-down", 0)
	cl := fake.NewClientBuilder().WithScheme(scheme).WithObjects(ep).WithStatusSubresource(ep).Build()

	cat := testCatalog(t)
	sup := newFakeSupervisor()
	baseIdentity := "aim-test-model-1gpu-fp16-vllm"
	sup.instances[replicaIdentity(baseIdentity, 0)] = supervisor.EndpointInstance{
		Identity: replicaIdentity(baseIdentity, 0), Phase: constants.PhaseReady, StartedAt: time.Now(),
	}

	r := &AIMEndpointReconciler{
		Client:     cl,
		Scheme:     scheme,
		Recorder:   record.NewFakeRecorder(10),
		Catalog:    cat,
		Resolver:   resolver.New(cat, fakeProber{counts: gpuprobe.Counts{RuntimeVisible: 1}}),
		Cache:      &fakeCache{},
		FetchFor:   func(string) modelcache.FetchFunc { return nil },
		Supervisor: sup,
		Probe:      fakeProbe{outcome: endpointprobe.OutcomeReady},
	}

	key := types.NamespacedName{Name: "ep-scale-down", Namespace: "default"}
	if _, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: key}); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	inst, ok := sup.Status(replicaIdentity(baseIdentity, 0))
	if !ok || inst.Phase != constants.PhaseTerminated {
		t.Errorf("instance phase = %+v, want Terminated", inst)
	}

	var got aimv1alpha1.AIMEndpoint
	if err := cl.Get(context.Background(), key, &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status.Phase != constants.PhaseTerminated {
		t.Errorf("Phase = %q, want Terminated", got.Status.Phase)
	}
}

func TestReconcileCacheFailureSetsFailed(t *testing.T) {
	scheme := testScheme(t)
	ep := newTestEndpoint("ep-cache-fail", 1)
	ep.Spec.CachePolicy.Enabled = true
	cl := fake.NewClientBuilder().WithScheme(scheme).WithObjects(ep).WithStatusSubresource(ep).Build()

	cat := testCatalog(t)
	r := &AIMEndpointReconciler{
		Client:     cl,
		Scheme:     scheme,
		Recorder:   record.NewFakeRecorder(10),
		Catalog:    cat,
		Resolver:   resolver.New(cat, fakeProber{counts: gpuprobe.Counts{RuntimeVisible: 1}}),
		Cache:      &fakeCache{ensureErr: coreerr.NewFetchFailed(nil, "simulated fetch failure")},
		FetchFor:   func(string) modelcache.FetchFunc { return nil },
		Supervisor: newFakeSupervisor(),
		Probe:      fakeProbe{outcome: endpointprobe.OutcomeReady},
	}

	key := types.NamespacedName{Name: "ep-cache-fail", Namespace: "default"}
	if _, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: key}); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	var got aimv1alpha1.AIMEndpoint
	if err := cl.Get(context.Background(), key, &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status.Phase != constants.PhaseFailed {
		t.Errorf("Phase = %q, want Failed", got.Status.Phase)
	}
}

func TestReplicaIdentityHelpers(t *testing.T) {
	base := "aim-foo-1gpu-fp16-vllm"
	if got := replicaIdentity(base, 2); got != "aim-foo-1gpu-fp16-vllm-2" {
		t.Errorf("replicaIdentity = %q", got)
	}

	all := []supervisor.EndpointInstance{
		{Identity: replicaIdentity(base, 0), Phase: constants.PhaseReady},
		{Identity: replicaIdentity(base, 1), Phase: constants.PhaseStarting},
		{Identity: "unrelated-identity", Phase: constants.PhaseReady},
	}
	instances := instancesFor(all, base)
	if len(instances) != 2 {
		t.Fatalf("instancesFor() = %d instances, want 2", len(instances))
	}
	if nextOrdinal(instances) != 2 {
		t.Errorf("nextOrdinal() = %d, want 2", nextOrdinal(instances))
	}
	if got := filterPhase(instances, constants.PhaseReady); len(got) != 1 {
		t.Errorf("filterPhase(Ready) = %d, want 1", len(got))
	}
}
