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

// Package launchconfig turns a ResolvedPlan and the Request that produced it
// into a LaunchSpec: the fully materialized command, environment, mounts,
// and identity the Process Supervisor launches opaquely. Materialize is a
// pure function: the same plan, request, and cache state always produce
// byte-identical output.
package launchconfig

import (
	"fmt"
	"strconv"
	"strings"

	"dario.cat/mergo"

	"github.com/amd-enterprise-ai/aim-runtime/internal/catalog"
	"github.com/amd-enterprise-ai/aim-runtime/internal/modelcache"
	"github.com/amd-enterprise-ai/aim-runtime/internal/resolver"
)

// portArgKeys are the catalog arg keys that name a port; request.port
// always takes precedence over whatever the recipe's args carry for these.
var portArgKeys = map[string]bool{
	"--port":            true,
	"--api-server-port": true,
}

// runtimeEntrypoint is the fixed command prefix per backend: for vllm, an
// OpenAI-compatible API-server invocation.
var runtimeEntrypoint = map[string][]string{
	"vllm":   {"vllm", "serve"},
	"sglang": {"python3", "-m", "sglang.launch_server"},
}

// PortBinding is a single host/container port pair.
type PortBinding struct {
	HostPort      int
	ContainerPort int
}

// LaunchSpec is the fully materialized description of a runnable serving
// process, opaque to everything downstream except the Process Supervisor.
type LaunchSpec struct {
	Command           []string
	Environment       map[string]string
	Mounts            []modelcache.Mount
	PortBindings      []PortBinding
	DeviceAssignments []int
	Identity          string
}

// CacheEnvMounts is the subset of *modelcache.Store Materialize depends on.
type CacheEnvMounts interface {
	CacheEnv(modelID string) map[string]string
	CacheMounts(modelID string) []modelcache.Mount
}

// Materialize builds a LaunchSpec from plan and the request that produced
// it, plus the owning recipe so its explicit Env participates in the
// environment merge's third tier. cache may be nil when request.UseCache is
// false, in which case no cache-derived environment or mounts are included.
func Materialize(plan resolver.ResolvedPlan, req resolver.Request, recipe catalog.Recipe, cache CacheEnvMounts) LaunchSpec {
	return LaunchSpec{
		Command:           renderCommand(plan, req),
		Environment:       renderEnvironment(plan, req, recipe, cache),
		Mounts:            renderMounts(plan, req, cache),
		PortBindings:      []PortBinding{{HostPort: req.Port, ContainerPort: req.Port}},
		DeviceAssignments: deviceAssignments(plan.GPUCount),
		Identity:          Identity(plan),
	}
}

// renderCommand walks backend_config.args in catalog insertion order,
// substituting request.port for any port-shaped key so the same tokens
// render identically run after run.
func renderCommand(plan resolver.ResolvedPlan, req resolver.Request) []string {
	entry, ok := runtimeEntrypoint[plan.Backend]
	if !ok {
		entry = []string{plan.Backend, "serve"}
	}
	cmd := append([]string{}, entry...)
	for _, kv := range plan.BackendConfig.Args {
		value := kv.Value
		if portArgKeys[kv.Key] {
			value = strconv.Itoa(req.Port)
		}
		cmd = append(cmd, kv.Key, value)
	}
	return cmd
}

// renderEnvironment merges, in increasing precedence order, hardware
// defaults, cache environment, then the recipe's own explicit env.
// mergo.WithOverride gives the "later overrides earlier" rule for free
// without hand-rolled map-copy loops.
func renderEnvironment(plan resolver.ResolvedPlan, req resolver.Request, recipe catalog.Recipe, cache CacheEnvMounts) map[string]string {
	env := hardwareDefaults(plan)

	if req.UseCache && cache != nil {
		_ = mergo.Merge(&env, cache.CacheEnv(plan.ModelID), mergo.WithOverride)
	}

	if len(recipe.Env) > 0 {
		recipeEnv := make(map[string]string, len(recipe.Env))
		for _, kv := range recipe.Env {
			recipeEnv[kv.Key] = kv.Value
		}
		_ = mergo.Merge(&env, recipeEnv, mergo.WithOverride)
	}

	return env
}

// hardwareDefaults renders the architecture-naming env, runtime-enable
// flag, and visible-device list covering indices [0, gpu_count).
func hardwareDefaults(plan resolver.ResolvedPlan) map[string]string {
	indices := make([]string, plan.GPUCount)
	for i := 0; i < plan.GPUCount; i++ {
		indices[i] = strconv.Itoa(i)
	}
	return map[string]string{
		"HIP_VISIBLE_DEVICES":  strings.Join(indices, ","),
		"ROCR_VISIBLE_DEVICES": strings.Join(indices, ","),
		"AMD_SERIALIZE_KERNEL": "0",
		"PYTORCH_ROCM_ARCH":    "gfx942",
	}
}

func renderMounts(plan resolver.ResolvedPlan, req resolver.Request, cache CacheEnvMounts) []modelcache.Mount {
	if !req.UseCache || cache == nil {
		return nil
	}
	return cache.CacheMounts(plan.ModelID)
}

func deviceAssignments(gpuCount int) []int {
	devices := make([]int, gpuCount)
	for i := range devices {
		devices[i] = i
	}
	return devices
}

// Identity renders the stable identity string:
// aim-{slug(model_id)}-{gpu_count}gpu-{precision}-{backend}.
func Identity(plan resolver.ResolvedPlan) string {
	return fmt.Sprintf("aim-%s-%dgpu-%s-%s", slug(plan.ModelID), plan.GPUCount, plan.Precision, plan.Backend)
}

func slug(modelID string) string {
	return strings.ToLower(strings.ReplaceAll(modelID, "/", "-"))
}
