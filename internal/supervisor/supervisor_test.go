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
	"testing"
	"time"

	"github.com/go-logr/logr"

	"github.com/amd-enterprise-ai/aim-runtime/internal/constants"
	"github.com/amd-enterprise-ai/aim-runtime/internal/coreerr"
	"github.com/amd-enterprise-ai/aim-runtime/internal/launchconfig"
)

// sleepSpec builds a LaunchSpec that runs `sleep duration` (e.g. "0",
// "0.2", "10"), letting each test control how quickly the child exits.
func sleepSpec(identity, duration string) launchconfig.LaunchSpec {
	return launchconfig.LaunchSpec{
		Identity: identity,
		Command:  []string{"sh", "-c", "sleep " + duration},
	}
}

func trapIgnoreSpec(identity string) launchconfig.LaunchSpec {
	return launchconfig.LaunchSpec{
		Identity: identity,
		Command:  []string{"sh", "-c", "trap '' TERM; sleep 5"},
	}
}

func waitForPhase(t *testing.T, s *Supervisor, identity string, phase constants.EndpointPhase, timeout time.Duration) EndpointInstance {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		inst, ok := s.Status(identity)
		if ok && inst.Phase == phase {
			return inst
		}
		if time.Now().After(deadline) {
			t.Fatalf("identity %q did not reach phase %s within %s (last=%+v)", identity, phase, timeout, inst)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestLaunch_StartsProcessInStartingPhase(t *testing.T) {
	s := New(logr.Discard())
	inst, err := s.Launch(sleepSpec("test-starting", "2"))
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if inst.Phase != constants.PhaseStarting {
		t.Fatalf("Phase = %s, want Starting", inst.Phase)
	}
	if inst.PID == 0 {
		t.Fatal("PID should be nonzero")
	}
	_ = s.Stop(inst.Identity, time.Second)
}

func TestLaunch_DuplicateNonTerminalIdentityIsAlreadyExists(t *testing.T) {
	s := New(logr.Discard())
	spec := sleepSpec("test-dup", "2")
	if _, err := s.Launch(spec); err != nil {
		t.Fatalf("first Launch() error = %v", err)
	}

	_, err := s.Launch(spec)
	if coreerr.Classify(err) != coreerr.KindAlreadyExists {
		t.Fatalf("Classify() = %v, want KindAlreadyExists", coreerr.Classify(err))
	}
	_ = s.Stop(spec.Identity, time.Second)
}

func TestLaunch_EmptyCommandIsLaunchError(t *testing.T) {
	s := New(logr.Discard())
	_, err := s.Launch(launchconfig.LaunchSpec{Identity: "test-empty"})
	if coreerr.Classify(err) != coreerr.KindLaunchError {
		t.Fatalf("Classify() = %v, want KindLaunchError", coreerr.Classify(err))
	}
}

func TestReap_ProcessExitingBeforeReadyBecomesFailed(t *testing.T) {
	s := New(logr.Discard())
	inst, err := s.Launch(sleepSpec("test-exit-before-ready", "0"))
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	waitForPhase(t, s, inst.Identity, constants.PhaseFailed, 2*time.Second)
}

func TestReap_ProcessExitingAfterReadyBecomesFailed(t *testing.T) {
	s := New(logr.Discard())
	inst, err := s.Launch(sleepSpec("test-exit-after-ready", "0"))
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	s.MarkReady(inst.Identity)
	got, ok := s.Status(inst.Identity)
	if !ok || got.Phase != constants.PhaseReady {
		t.Fatalf("Status() = %+v, want Ready", got)
	}
	waitForPhase(t, s, inst.Identity, constants.PhaseFailed, 2*time.Second)
}

func TestStop_GracefulSIGTERMReachesTerminated(t *testing.T) {
	s := New(logr.Discard())
	inst, err := s.Launch(sleepSpec("test-stop-graceful", "10"))
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if err := s.Stop(inst.Identity, 2*time.Second); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	got, ok := s.Status(inst.Identity)
	if !ok || got.Phase != constants.PhaseTerminated {
		t.Fatalf("Status() = %+v, want Terminated", got)
	}
}

func TestStop_ForceKillAfterGraceExpires(t *testing.T) {
	s := New(logr.Discard())
	inst, err := s.Launch(trapIgnoreSpec("test-stop-forcekill"))
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	start := time.Now()
	if err := s.Stop(inst.Identity, 200*time.Millisecond); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Fatalf("Stop() took too long; SIGKILL escalation likely did not fire")
	}
	got, ok := s.Status(inst.Identity)
	if !ok || got.Phase != constants.PhaseTerminated {
		t.Fatalf("Status() = %+v, want Terminated", got)
	}
}

func TestDied_TrueForUnknownIdentity(t *testing.T) {
	s := New(logr.Discard())
	if !s.Died("nobody-home") {
		t.Fatal("Died() should be true for an identity never launched")
	}
}

func TestLaunch_AfterTerminatedReusesIdentityWithNewGeneration(t *testing.T) {
	s := New(logr.Discard())
	spec := sleepSpec("test-regen", "0")

	first, err := s.Launch(spec)
	if err != nil {
		t.Fatalf("first Launch() error = %v", err)
	}
	waitForPhase(t, s, spec.Identity, constants.PhaseFailed, 2*time.Second)
	_ = s.Stop(spec.Identity, time.Second)

	second, err := s.Launch(sleepSpec("test-regen", "2"))
	if err != nil {
		t.Fatalf("second Launch() error = %v", err)
	}
	defer func() { _ = s.Stop(spec.Identity, time.Second) }()

	if second.Generation <= first.Generation {
		t.Fatalf("Generation = %d, want > %d", second.Generation, first.Generation)
	}
}

func TestList_ReturnsAllTrackedInstances(t *testing.T) {
	s := New(logr.Discard())
	a, _ := s.Launch(sleepSpec("test-list-a", "2"))
	b, _ := s.Launch(sleepSpec("test-list-b", "2"))
	defer func() {
		_ = s.Stop(a.Identity, time.Second)
		_ = s.Stop(b.Identity, time.Second)
	}()

	all := s.List()
	if len(all) != 2 {
		t.Fatalf("len(List()) = %d, want 2", len(all))
	}
}
