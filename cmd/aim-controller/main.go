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

// Command aim-controller runs the declarative deployment mode: a
// controller-runtime manager that reconciles AIMEndpoint objects against the
// same core subsystems cmd/aimdeploy drives directly.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	aimv1alpha1 "github.com/amd-enterprise-ai/aim-runtime/api/v1alpha1"
	"github.com/amd-enterprise-ai/aim-runtime/internal/catalogio"
	"github.com/amd-enterprise-ai/aim-runtime/internal/constants"
	"github.com/amd-enterprise-ai/aim-runtime/internal/controller"
	"github.com/amd-enterprise-ai/aim-runtime/internal/endpointprobe"
	"github.com/amd-enterprise-ai/aim-runtime/internal/gpuprobe"
	"github.com/amd-enterprise-ai/aim-runtime/internal/modelcache"
	"github.com/amd-enterprise-ai/aim-runtime/internal/modelfetch"
	"github.com/amd-enterprise-ai/aim-runtime/internal/obslog"
	"github.com/amd-enterprise-ai/aim-runtime/internal/resolver"
	"github.com/amd-enterprise-ai/aim-runtime/internal/supervisor"
)

var scheme = runtime.NewScheme()

func init() {
	utilruntimeMust(clientgoscheme.AddToScheme(scheme))
	utilruntimeMust(aimv1alpha1.AddToScheme(scheme))
}

func utilruntimeMust(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	var (
		modelsDir      = flag.String("models-dir", "", "directory of catalog model files (required)")
		recipesDir     = flag.String("recipes-dir", "", "directory of catalog recipe files (required)")
		cacheRoot      = flag.String("cache-root", constants.DefaultCacheRoot, "model cache root directory")
		hfToken        = flag.String("hf-token", os.Getenv("HF_TOKEN"), "Hugging Face token for gated/private models")
		metricsAddr    = flag.String("metrics-bind-address", ":8443", "metrics endpoint bind address")
		probeAddr      = flag.String("health-probe-bind-address", ":8081", "health probe endpoint bind address")
		sweepInterval  = flag.Duration("cache-sweep-interval", 0, "cache sweep interval (0 disables the sweeper)")
		sweepMaxAge    = flag.Duration("cache-max-age", 7*24*time.Hour, "maximum age of a cache entry before the sweeper evicts it")
		debug          = flag.Bool("debug", false, "enable verbose development logging")
	)
	flag.Parse()

	log, sync, err := obslog.New(*debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = sync() }()
	ctrl.SetLogger(log)

	if *modelsDir == "" || *recipesDir == "" {
		log.Error(fmt.Errorf("missing required flag"), "--models-dir and --recipes-dir are required")
		os.Exit(1)
	}

	cat, err := catalogio.Load(*modelsDir, *recipesDir)
	if err != nil {
		log.Error(err, "failed to load catalog")
		os.Exit(1)
	}

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
		Scheme:                 scheme,
		Metrics:                metricsserver.Options{BindAddress: *metricsAddr},
		HealthProbeBindAddress: *probeAddr,
	})
	if err != nil {
		log.Error(err, "unable to start manager")
		os.Exit(1)
	}

	cache, err := modelcache.Open(*cacheRoot, log)
	if err != nil {
		log.Error(err, "unable to open cache store")
		os.Exit(1)
	}

	prober := gpuprobe.NewDefault(log)
	fetcher := modelfetch.HuggingFaceFetcher{Token: *hfToken}

	reconciler := &controller.AIMEndpointReconciler{
		Client:      mgr.GetClient(),
		Scheme:      mgr.GetScheme(),
		Recorder:    mgr.GetEventRecorderFor("aim-controller"),
		Catalog:     cat,
		Resolver:    resolver.New(cat, prober),
		Cache:       cache,
		FetchFor:    fetcher.Fetch,
		Supervisor:  supervisor.New(log),
		Probe:       endpointprobe.New(),
		GracePeriod: time.Duration(constants.DefaultGracePeriodSeconds) * time.Second,
	}

	if err := reconciler.SetupWithManager(mgr); err != nil {
		log.Error(err, "unable to create controller", "controller", "AIMEndpoint")
		os.Exit(1)
	}

	if *sweepInterval > 0 {
		sweeper := modelcache.NewSweeper(cache, *sweepInterval, *sweepMaxAge, log)
		if err := mgr.Add(managerRunnable{sweeper}); err != nil {
			log.Error(err, "unable to register cache sweeper")
			os.Exit(1)
		}
	}

	log.Info("starting manager")
	if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
		log.Error(err, "problem running manager")
		os.Exit(1)
	}
}

// managerRunnable adapts *modelcache.Sweeper to manager.Runnable so its
// lifetime is tied to the manager's own start/stop signal handling.
type managerRunnable struct {
	sweeper *modelcache.Sweeper
}

func (r managerRunnable) Start(ctx context.Context) error {
	r.sweeper.Run(ctx)
	return nil
}
