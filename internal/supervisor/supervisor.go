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

// Package supervisor launches, tracks, and stops the runtime processes a
// LaunchSpec describes. It knows nothing about recipes or models; it
// consumes a LaunchSpec opaquely and reports phase transitions.
package supervisor

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/go-logr/logr"

	"github.com/amd-enterprise-ai/aim-runtime/internal/constants"
	"github.com/amd-enterprise-ai/aim-runtime/internal/coreerr"
	"github.com/amd-enterprise-ai/aim-runtime/internal/launchconfig"
	"github.com/amd-enterprise-ai/aim-runtime/internal/utils"
)

// EndpointInstance is a single tracked runtime process.
type EndpointInstance struct {
	Identity   string
	PID        int
	Generation uint64
	Phase      constants.EndpointPhase
	StartedAt  time.Time
	ExitErr    error
}

// instance is the internal, mutable record backing an EndpointInstance
// snapshot; cmd and waitDone are never copied out to callers.
type instance struct {
	EndpointInstance
	cmd      *exec.Cmd
	waitDone chan struct{}
}

// Supervisor is the in-memory registry of tracked instances, guarded by a
// single mutex for identity insertion and phase transitions. Read paths
// (Status, List) copy snapshots while holding that same mutex.
type Supervisor struct {
	Logger logr.Logger

	mu        sync.Mutex
	instances map[string]*instance
	nextGen   uint64

	metrics *supervisorMetrics
}

// New returns a Supervisor with an empty registry.
func New(logger logr.Logger) *Supervisor {
	return &Supervisor{
		Logger:    logger,
		instances: make(map[string]*instance),
		metrics:   newSupervisorMetrics(),
	}
}

// Launch starts spec's command as a new process group and records it as
// Starting. It rejects with AlreadyExists if a non-terminal instance with
// the same identity already exists.
func (s *Supervisor) Launch(spec launchconfig.LaunchSpec) (EndpointInstance, error) {
	s.mu.Lock()
	if existing, ok := s.instances[spec.Identity]; ok && existing.Phase != constants.PhaseTerminated {
		s.mu.Unlock()
		return EndpointInstance{}, coreerr.NewAlreadyExists("instance %q is already %s", spec.Identity, existing.Phase)
	}
	s.nextGen++
	gen := s.nextGen
	s.mu.Unlock()

	if len(spec.Command) == 0 {
		return EndpointInstance{}, coreerr.NewLaunchError(nil, "launch spec %q has an empty command", spec.Identity)
	}

	cmd := exec.Command(spec.Command[0], spec.Command[1:]...)
	cmd.Env = append(os.Environ(), renderEnv(spec.Environment)...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		s.metrics.launchFailures.Inc()
		return EndpointInstance{}, coreerr.NewLaunchError(err, "failed to start %q", spec.Identity)
	}

	inst := &instance{
		EndpointInstance: EndpointInstance{
			Identity:   spec.Identity,
			PID:        cmd.Process.Pid,
			Generation: gen,
			Phase:      constants.PhaseStarting,
			StartedAt:  time.Now(),
		},
		cmd:      cmd,
		waitDone: make(chan struct{}),
	}

	s.mu.Lock()
	s.instances[spec.Identity] = inst
	s.mu.Unlock()

	go s.reap(inst)

	s.metrics.launchesTotal.Inc()
	s.metrics.activeInstances.Inc()
	utils.Debug(s.Logger, "launched instance", "identity", spec.Identity, "pid", inst.PID)
	return inst.snapshot(), nil
}

// reap blocks on the child's exit and records the outcome. A process that
// exits before MarkReady was ever called transitions to Failed; one that
// exits after MarkReady also transitions to Failed, unless a Stop already
// moved it to Terminating, in which case it becomes Terminated.
func (s *Supervisor) reap(inst *instance) {
	err := inst.cmd.Wait()
	close(inst.waitDone)

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.instances[inst.Identity]
	if !ok || current != inst {
		return
	}
	current.ExitErr = err
	if current.Phase == constants.PhaseTerminating {
		current.Phase = constants.PhaseTerminated
	} else {
		current.Phase = constants.PhaseFailed
	}
	s.metrics.activeInstances.Dec()
}

// MarkReady transitions a Starting instance to Ready, called by whatever
// drives the Endpoint Probe once wait_ready succeeds.
func (s *Supervisor) MarkReady(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inst, ok := s.instances[identity]; ok && inst.Phase == constants.PhaseStarting {
		inst.Phase = constants.PhaseReady
	}
}

// MarkFailed transitions a Starting or Ready instance to Failed, called on
// ReadinessTimeout or a health check failure.
func (s *Supervisor) MarkFailed(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inst, ok := s.instances[identity]; ok {
		inst.Phase = constants.PhaseFailed
	}
}

// Stop sends SIGTERM to identity's process group, waits up to gracePeriod,
// then SIGKILLs. After Stop returns, the child is reaped and identity is
// reusable for a future Launch.
func (s *Supervisor) Stop(identity string, gracePeriod time.Duration) error {
	s.mu.Lock()
	inst, ok := s.instances[identity]
	if !ok {
		s.mu.Unlock()
		return coreerr.NewNotFound("no instance %q to stop", identity)
	}
	if inst.Phase == constants.PhaseTerminated {
		s.mu.Unlock()
		return nil
	}
	select {
	case <-inst.waitDone:
		// Already exited and recorded as Failed by reap: nothing is left to
		// signal, so the instance moves straight to Terminated.
		if inst.Phase == constants.PhaseFailed {
			inst.Phase = constants.PhaseTerminated
			s.mu.Unlock()
			return nil
		}
	default:
	}
	inst.Phase = constants.PhaseTerminating
	pid := inst.PID
	done := inst.waitDone
	s.mu.Unlock()

	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil && err != syscall.ESRCH {
		return coreerr.NewIOError(err, "SIGTERM to process group %d", pid)
	}

	select {
	case <-done:
		return nil
	case <-time.After(gracePeriod):
	}

	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && err != syscall.ESRCH {
		return coreerr.NewIOError(err, "SIGKILL to process group %d", pid)
	}
	<-done
	return nil
}

// Status returns the last observed phase for identity.
func (s *Supervisor) Status(identity string) (EndpointInstance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[identity]
	if !ok {
		return EndpointInstance{}, false
	}
	return inst.snapshot(), true
}

// Died reports whether identity's process has exited, for the Endpoint
// Probe's per-iteration InstanceDied check.
func (s *Supervisor) Died(identity string) bool {
	inst, ok := s.Status(identity)
	if !ok {
		return true
	}
	return inst.Phase == constants.PhaseFailed || inst.Phase == constants.PhaseTerminated
}

// List returns a snapshot of every tracked instance.
func (s *Supervisor) List() []EndpointInstance {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EndpointInstance, 0, len(s.instances))
	for _, inst := range s.instances {
		out = append(out, inst.snapshot())
	}
	return out
}

func (i *instance) snapshot() EndpointInstance {
	return i.EndpointInstance
}

func renderEnv(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}
