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

package modelcache

// Environment variable names that are part of the external process
// contract: every LaunchSpec's environment points the inference runtime
// and downstream libraries (HuggingFace hub, vLLM) at the store root.
const (
	EnvHFHome               = "HF_HOME"
	EnvTransformersCache    = "TRANSFORMERS_CACHE"
	EnvHFDatasetsCache      = "HF_DATASETS_CACHE"
	EnvVLLMCacheDir         = "VLLM_CACHE_DIR"
	EnvHFHubDisableTelem    = "HF_HUB_DISABLE_TELEMETRY"
	EnvModelCachePath       = "MODEL_CACHE_PATH"
	containerModelCacheRoot = "/workspace/model-cache"
)

// CacheEnv returns the environment variables that point the runtime and its
// libraries at the store root, plus MODEL_CACHE_PATH when modelID itself is
// already cached.
func (s *Store) CacheEnv(modelID string) map[string]string {
	env := map[string]string{
		EnvHFHome:            s.Root,
		EnvTransformersCache: s.Root,
		EnvHFDatasetsCache:   s.Root,
		EnvVLLMCacheDir:      s.Root,
		EnvHFHubDisableTelem: "1",
	}
	if s.IsCached(modelID) {
		env[EnvModelCachePath] = containerModelCachePath(modelID)
	}
	return env
}

// CacheMounts returns a read-only mount of the store root plus, when modelID
// is cached, an additional read-only mount aliasing its directory under a
// canonical per-model container path.
func (s *Store) CacheMounts(modelID string) []Mount {
	mounts := []Mount{
		{HostPath: s.Root, ContainerPath: containerModelCacheRoot, ReadOnly: true},
	}
	if s.IsCached(modelID) {
		mounts = append(mounts, Mount{
			HostPath:      s.PathOf(modelID),
			ContainerPath: containerModelCachePath(modelID),
			ReadOnly:      true,
		})
	}
	return mounts
}

func containerModelCachePath(modelID string) string {
	return containerModelCacheRoot + "/" + Slug(modelID)
}
