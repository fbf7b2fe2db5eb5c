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

// Command aimdeploy is the one-shot deployment mode: resolve a single model
// against the catalog, ensure it's cached, launch it, wait for readiness,
// then exit with a code identifying what happened.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amd-enterprise-ai/aim-runtime/internal/catalog"
	"github.com/amd-enterprise-ai/aim-runtime/internal/catalogio"
	"github.com/amd-enterprise-ai/aim-runtime/internal/constants"
	"github.com/amd-enterprise-ai/aim-runtime/internal/coreerr"
	"github.com/amd-enterprise-ai/aim-runtime/internal/endpointprobe"
	"github.com/amd-enterprise-ai/aim-runtime/internal/gpuprobe"
	"github.com/amd-enterprise-ai/aim-runtime/internal/launchconfig"
	"github.com/amd-enterprise-ai/aim-runtime/internal/modelcache"
	"github.com/amd-enterprise-ai/aim-runtime/internal/modelfetch"
	"github.com/amd-enterprise-ai/aim-runtime/internal/obslog"
	"github.com/amd-enterprise-ai/aim-runtime/internal/resolver"
	"github.com/amd-enterprise-ai/aim-runtime/internal/supervisor"
)

func main() {
	var (
		modelID      = flag.String("model-id", "", "model to deploy (required)")
		modelsDir    = flag.String("models-dir", "", "directory of catalog model files (required)")
		recipesDir   = flag.String("recipes-dir", "", "directory of catalog recipe files (required)")
		gpuCount     = flag.Int("gpu-count", 0, "override the resolver's chosen gpu_count (0 = auto)")
		precision    = flag.String("precision", "", "override the resolver's chosen precision (empty = auto)")
		backend      = flag.String("backend", "vllm", "serving backend")
		port         = flag.Int("port", constants.DefaultPort, "container-side port the runtime listens on")
		useCache     = flag.Bool("use-cache", true, "populate and reuse the model cache")
		cacheRoot    = flag.String("cache-root", constants.DefaultCacheRoot, "model cache root directory")
		readiness    = flag.Int("readiness-timeout", constants.DefaultReadinessTimeoutSeconds, "readiness timeout in seconds")
		gracePeriod  = flag.Int("grace-period", constants.DefaultGracePeriodSeconds, "SIGTERM-to-SIGKILL grace period in seconds")
		hfToken      = flag.String("hf-token", os.Getenv("HF_TOKEN"), "Hugging Face token for gated/private models")
		debug        = flag.Bool("debug", false, "enable verbose development logging")
	)
	flag.Parse()

	log, sync, err := obslog.New(*debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = sync() }()

	if *modelID == "" || *modelsDir == "" || *recipesDir == "" {
		log.Error(fmt.Errorf("missing required flag"), "--model-id, --models-dir, and --recipes-dir are required")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cat, err := catalogio.Load(*modelsDir, *recipesDir)
	if err != nil {
		log.Error(err, "failed to load catalog")
		os.Exit(exitCodeFor(err))
	}

	prober := gpuprobe.NewDefault(log)
	res := resolver.New(cat, prober)

	req := resolver.Request{
		ModelID:          *modelID,
		Backend:          *backend,
		Port:             *port,
		UseCache:         *useCache,
		ReadinessTimeout: *readiness,
	}
	if *gpuCount > 0 {
		req.GPUCount = gpuCount
	}
	if *precision != "" {
		p := catalog.Precision(*precision)
		req.Precision = &p
	}

	plan, err := res.Resolve(ctx, req)
	if err != nil {
		log.Error(err, "resolve failed")
		os.Exit(exitCodeFor(err))
	}
	log.Info("resolved recipe", "recipe_id", plan.RecipeID, "gpu_count", plan.GPUCount, "precision", plan.Precision)

	recipe, ok := recipeByID(cat.RecipesFor(*modelID), plan.RecipeID)
	if !ok {
		log.Error(fmt.Errorf("recipe vanished"), "resolved recipe no longer present in catalog", "recipe_id", plan.RecipeID)
		os.Exit(exitCodeFor(coreerr.NewNotFound("recipe %q vanished", plan.RecipeID)))
	}

	var cache *modelcache.Store
	if *useCache {
		cache, err = modelcache.Open(*cacheRoot, log)
		if err != nil {
			log.Error(err, "failed to open cache store")
			os.Exit(exitCodeFor(err))
		}
		fetcher := modelfetch.HuggingFaceFetcher{Token: *hfToken}
		if _, err := cache.Ensure(ctx, *modelID, fetcher.Fetch(*modelID)); err != nil {
			log.Error(err, "cache ensure failed")
			os.Exit(exitCodeFor(err))
		}
	}

	var spec launchconfig.LaunchSpec
	if cache != nil {
		spec = launchconfig.Materialize(plan, req, recipe, cache)
	} else {
		spec = launchconfig.Materialize(plan, req, recipe, nil)
	}

	sup := supervisor.New(log)
	inst, err := sup.Launch(spec)
	if err != nil {
		log.Error(err, "launch failed")
		os.Exit(exitCodeFor(err))
	}
	log.Info("launched instance", "identity", inst.Identity, "pid", inst.PID)

	url := fmt.Sprintf("http://127.0.0.1:%d%s", *port, constants.DefaultHealthPath)
	prober2 := endpointprobe.New()
	outcome := prober2.WaitReady(ctx, url, time.Duration(*readiness)*time.Second, func() bool { return sup.Died(inst.Identity) })

	switch outcome {
	case endpointprobe.OutcomeReady:
		sup.MarkReady(inst.Identity)
		log.Info("instance ready", "identity", inst.Identity)
		os.Exit(0)
	case endpointprobe.OutcomeInstanceDied:
		sup.MarkFailed(inst.Identity)
		log.Error(coreerr.NewInstanceDied("instance died before becoming ready"), "instance died")
		os.Exit(exitCodeFor(coreerr.NewInstanceDied("instance died before becoming ready")))
	case endpointprobe.OutcomeCancelled:
		_ = sup.Stop(inst.Identity, time.Duration(*gracePeriod)*time.Second)
		os.Exit(1)
	default:
		sup.MarkFailed(inst.Identity)
		_ = sup.Stop(inst.Identity, time.Duration(*gracePeriod)*time.Second)
		log.Error(coreerr.NewReadinessTimeout("instance did not become ready in time"), "readiness timeout")
		os.Exit(exitCodeFor(coreerr.NewReadinessTimeout("instance did not become ready in time")))
	}
}

func recipeByID(recipes []catalog.Recipe, id string) (catalog.Recipe, bool) {
	for _, rec := range recipes {
		if rec.RecipeID == id {
			return rec, true
		}
	}
	return catalog.Recipe{}, false
}

// exitCodeFor maps a classified error to the process exit code identifying
// the failure kind to callers and scripts.
func exitCodeFor(err error) int {
	switch coreerr.Classify(err) {
	case coreerr.KindNoAccelerator:
		return 2
	case coreerr.KindNoRecipe, coreerr.KindNotFound, coreerr.KindMalformedCatalog:
		return 3
	case coreerr.KindFetchFailed, coreerr.KindIOError:
		return 4
	case coreerr.KindLaunchError, coreerr.KindAlreadyExists:
		return 5
	case coreerr.KindReadinessTimeout, coreerr.KindInstanceDied:
		return 6
	default:
		return 1
	}
}
