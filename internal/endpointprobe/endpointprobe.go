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

// Package endpointprobe decides whether a deployed HTTP inference endpoint
// is serving. It never mutates Supervisor state itself; the caller supplies
// a died callback and reacts to the returned Outcome.
package endpointprobe

import (
	"context"
	"net/http"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/amd-enterprise-ai/aim-runtime/internal/constants"
)

// Outcome is the terminal result of WaitReady.
type Outcome string

const (
	OutcomeReady        Outcome = "Ready"
	OutcomeTimeout      Outcome = "Timeout"
	OutcomeInstanceDied Outcome = "InstanceDied"
	OutcomeCancelled    Outcome = "Cancelled"
)

// Health is the result of a single-shot Check.
type Health struct {
	Healthy bool
	Reason  string
}

// Prober polls readiness and health endpoints over HTTP.
type Prober struct {
	Client *http.Client
}

// New returns a Prober whose per-poll HTTP timeout is bounded by
// constants.ProbeTimeout.
func New() *Prober {
	return &Prober{Client: &http.Client{Timeout: constants.ProbeTimeout}}
}

// DiedFunc reports whether the instance backing url has already exited;
// the caller wires this to Supervisor.Died for a given identity.
type DiedFunc func() bool

// WaitReady polls url's health path at constants.ProbeInterval until a 2xx
// response, timeout elapses, ctx is cancelled, or died reports the backing
// instance has exited (checked once per iteration).
func (p *Prober) WaitReady(ctx context.Context, url string, timeout time.Duration, died DiedFunc) Outcome {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := wait.PollUntilContextCancel(waitCtx, constants.ProbeInterval, true, func(pollCtx context.Context) (bool, error) {
		if died != nil && died() {
			return false, errInstanceDied
		}
		health := p.Check(pollCtx, url)
		return health.Healthy, nil
	})

	switch {
	case err == nil:
		return OutcomeReady
	case err == errInstanceDied:
		return OutcomeInstanceDied
	case ctx.Err() != nil:
		return OutcomeCancelled
	default:
		return OutcomeTimeout
	}
}

var errInstanceDied = instanceDiedError{}

type instanceDiedError struct{}

func (instanceDiedError) Error() string { return "instance died before becoming ready" }

// Check performs a single-shot health probe against url's health path.
func (p *Prober) Check(ctx context.Context, url string) Health {
	pollCtx, cancel := context.WithTimeout(ctx, constants.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(pollCtx, http.MethodGet, url, nil)
	if err != nil {
		return Health{Healthy: false, Reason: err.Error()}
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return Health{Healthy: false, Reason: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Health{Healthy: false, Reason: resp.Status}
	}
	return Health{Healthy: true}
}

// CheckModelsEnumerated performs the same single-shot 2xx check as Check
// against url, which the caller points at the model-enumeration path. The
// response body is not inspected.
func (p *Prober) CheckModelsEnumerated(ctx context.Context, url string) Health {
	return p.Check(ctx, url)
}
