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

// Package gpuprobe reports integer GPU counts at three abstraction levels
// (runtime-visible, container-visible, host-visible) by racing an ordered
// list of detection strategies per level. Every strategy failure collapses
// to a silent miss: the package never returns an error to its caller, only
// zeros when nothing succeeded.
package gpuprobe

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/amd-enterprise-ai/aim-runtime/internal/utils"
)

// Level is one of the three abstraction levels the probe reports at.
type Level string

const (
	LevelRuntime   Level = "runtime"
	LevelContainer Level = "container"
	LevelHost      Level = "host"
)

// StrategyTimeout bounds each individual strategy invocation.
const StrategyTimeout = 10 * time.Second

// Strategy is one way of discovering a GPU count. Detect must not block past
// ctx's deadline; a non-nil error or any other failure is treated by the
// Prober as a silent miss, never surfaced to the caller.
type Strategy interface {
	Name() string
	Detect(ctx context.Context) (int, error)
}

// Counts is the result of a single Probe call.
type Counts struct {
	RuntimeVisible   int
	ContainerVisible int
	HostVisible      int
}

// Prober runs an ordered []Strategy per Level and reports the first success,
// per level, independently. Probe is idempotent and side-effect free.
type Prober struct {
	Logger     logr.Logger
	strategies map[Level][]Strategy
}

// NewProber builds a Prober with an explicit strategy list per level, for
// tests and callers that want full control. Use NewDefault for the
// out-of-the-box strategy set.
func NewProber(logger logr.Logger, strategies map[Level][]Strategy) *Prober {
	return &Prober{Logger: logger, strategies: strategies}
}

// NewDefault wires the default strategy set: a vendor-tool query (rocm-smi)
// first at every level. The runtime level then falls back to the
// comma-separated device-index environment variables; the container level
// tries those variables and then a /dev/dri node count; the host level tries
// the /dev/dri node count before the environment variables.
func NewDefault(logger logr.Logger) *Prober {
	vendor := NewVendorToolStrategy("rocm-smi", "--showid", "--csv")
	env := NewEnvStrategy("ROCR_VISIBLE_DEVICES", "HIP_VISIBLE_DEVICES", "CUDA_VISIBLE_DEVICES")
	cgroup := NewCgroupStrategy("/dev/dri")

	return NewProber(logger, map[Level][]Strategy{
		LevelRuntime:   {vendor, env},
		LevelContainer: {vendor, env, cgroup},
		LevelHost:      {vendor, cgroup, env},
	})
}

// Probe runs every configured strategy, per level, and returns the first
// success in strategy order. A level with no successful strategy reports 0.
// Probe never returns an error: probe failures collapse to zero counts.
func (p *Prober) Probe(ctx context.Context) Counts {
	return Counts{
		RuntimeVisible:   p.probeLevel(ctx, LevelRuntime),
		ContainerVisible: p.probeLevel(ctx, LevelContainer),
		HostVisible:      p.probeLevel(ctx, LevelHost),
	}
}

func (p *Prober) probeLevel(ctx context.Context, level Level) int {
	strategies := p.strategies[level]
	if len(strategies) == 0 {
		return 0
	}

	results := make([]int, len(strategies))
	oks := make([]bool, len(strategies))

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range strategies {
		i, s := i, s
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(gctx, StrategyTimeout)
			defer cancel()
			n, err := s.Detect(sctx)
			if err != nil {
				utils.Debug(p.Logger, "gpu probe strategy missed", "level", level, "strategy", s.Name(), "error", err)
				return nil
			}
			results[i] = n
			oks[i] = true
			return nil
		})
	}
	// errgroup.Wait never returns an error here: every Go func above always
	// returns nil, turning per-strategy failures into a miss rather than
	// aborting the sibling strategies.
	_ = g.Wait()

	for i := range strategies {
		if oks[i] {
			return results[i]
		}
	}
	return 0
}
