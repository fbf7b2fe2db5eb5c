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

package resolver

import "fmt"

// GPUCountKeyFunc renders a gpu count into the key a catalog recipe's
// Backends map uses for that backend, so additional backends with
// non-standard key schemes can register without touching Resolver itself.
type GPUCountKeyFunc func(gpuCount int) string

// DefaultGPUCountKey renders "N_gpu", matching the key scheme every recipe
// in the reference catalog format uses (catalog.Recipe.BackendConfigFor).
func DefaultGPUCountKey(gpuCount int) string {
	return fmt.Sprintf("%d_gpu", gpuCount)
}

// BackendRegistry maps backend names to their gpu-count key scheme.
// Backends not explicitly registered fall back to DefaultGPUCountKey.
type BackendRegistry struct {
	keyFuncs map[string]GPUCountKeyFunc
}

// NewBackendRegistry returns an empty registry; every backend name will use
// DefaultGPUCountKey until RegisterBackend is called for it.
func NewBackendRegistry() *BackendRegistry {
	return &BackendRegistry{keyFuncs: map[string]GPUCountKeyFunc{}}
}

// DefaultBackendRegistry registers the two backends supported out of the
// box (vllm, sglang), both using the standard "N_gpu" key scheme.
func DefaultBackendRegistry() *BackendRegistry {
	reg := NewBackendRegistry()
	reg.RegisterBackend("vllm", DefaultGPUCountKey)
	reg.RegisterBackend("sglang", DefaultGPUCountKey)
	return reg
}

// RegisterBackend associates backend with keyFunc, overwriting any prior
// registration for the same name.
func (b *BackendRegistry) RegisterBackend(backend string, keyFunc GPUCountKeyFunc) {
	b.keyFuncs[backend] = keyFunc
}

// Key renders the gpu-count key for backend, falling back to
// DefaultGPUCountKey when backend was never registered.
func (b *BackendRegistry) Key(backend string, gpuCount int) string {
	if keyFunc, ok := b.keyFuncs[backend]; ok {
		return keyFunc(gpuCount)
	}
	return DefaultGPUCountKey(gpuCount)
}
