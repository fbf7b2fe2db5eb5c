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

package supervisor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type supervisorMetrics struct {
	launchesTotal   prometheus.Counter
	launchFailures  prometheus.Counter
	activeInstances prometheus.Gauge
}

// Registered once at package scope: see internal/modelcache/metrics.go for
// why per-instance promauto registration panics the moment a process opens
// more than one Supervisor.
var (
	supervisorLaunchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aim_supervisor_launches_total",
		Help: "Total number of launch attempts that started a child process.",
	})
	supervisorLaunchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aim_supervisor_launch_failures_total",
		Help: "Total number of launch attempts that failed before a process started.",
	})
	supervisorActiveInstances = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aim_supervisor_active_instances",
		Help: "Number of instances currently tracked in a non-terminated phase.",
	})
)

func newSupervisorMetrics() *supervisorMetrics {
	return &supervisorMetrics{
		launchesTotal:   supervisorLaunchesTotal,
		launchFailures:  supervisorLaunchFailures,
		activeInstances: supervisorActiveInstances,
	}
}
