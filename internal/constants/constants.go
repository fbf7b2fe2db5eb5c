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

package constants

import "time"

const (
	// AimLabelDomain is the base domain used for AIM-specific labels.
	AimLabelDomain = "aim.eai.amd.com"

	// DefaultCacheRoot is used by cmd/aimdeploy and cmd/aim-controller when no
	// --cache-root flag is given.
	DefaultCacheRoot = "/var/lib/aim/models"

	// DefaultHealthPath and DefaultModelsPath are the runtime HTTP endpoints
	// the endpoint probe polls.
	DefaultHealthPath = "/health"
	DefaultModelsPath = "/v1/models"

	// DefaultPort is used when a Request/EndpointSpec omits port.
	DefaultPort = 8000

	// DefaultReadinessTimeoutSeconds is used when a Request/EndpointSpec
	// omits readiness_timeout.
	DefaultReadinessTimeoutSeconds = 600

	// DefaultGracePeriodSeconds bounds the SIGTERM-to-SIGKILL window of
	// Supervisor.Stop when the caller doesn't specify one.
	DefaultGracePeriodSeconds = 30

	// ProbeInterval and ProbeTimeout govern Endpoint Probe polling.
	ProbeInterval = 5 * time.Second
	ProbeTimeout  = 10 * time.Second

	// RequeueBackoffFloor and RequeueBackoffCeiling bound the Reconciler's
	// doubling requeue backoff.
	RequeueBackoffFloor   = 10 * time.Second
	RequeueBackoffCeiling = 300 * time.Second
)

// EndpointPhase mirrors EndpointInstance.phase / EndpointStatus.phase: the
// lifecycle of a single deployed endpoint, from admission through teardown.
type EndpointPhase string

const (
	PhasePending     EndpointPhase = "Pending"
	PhaseStarting    EndpointPhase = "Starting"
	PhaseReady       EndpointPhase = "Ready"
	PhaseFailed      EndpointPhase = "Failed"
	PhaseTerminating EndpointPhase = "Terminating"
	PhaseTerminated  EndpointPhase = "Terminated"
)

// PhasePriority orders phases by how close they are to steady-state Ready,
// used to pick a representative phase when aggregating multiple instances.
var PhasePriority = map[EndpointPhase]int{
	PhaseReady:       5,
	PhaseStarting:    4,
	PhasePending:     3,
	PhaseTerminating: 2,
	PhaseTerminated:  1,
	PhaseFailed:      0,
}

// ComparePhase reports whether a represents a more advanced lifecycle state
// than b (1), or not (-1). Ties resolve to -1.
func ComparePhase(a, b EndpointPhase) int {
	if PhasePriority[a] > PhasePriority[b] {
		return 1
	}
	return -1
}

// Condition types set on AIMEndpoint.Status.Conditions.
const (
	ConditionReady       = "Ready"
	ConditionProgressing = "Progressing"
	ConditionDegraded    = "Degraded"
	ConditionCache       = "CacheReady"
	ConditionModels      = "ModelEnumerated"
)

// Condition/event reason codes, one per internal/coreerr taxonomy entry plus
// the generic lifecycle transitions.
const (
	ReasonNoAccelerator    = "NoAccelerator"
	ReasonNoRecipe         = "NoRecipe"
	ReasonMalformedCatalog = "MalformedCatalog"
	ReasonFetchFailed      = "FetchFailed"
	ReasonCacheIOError     = "CacheIOError"
	ReasonLaunchFailed     = "LaunchFailed"
	ReasonReadinessTimeout = "ReadinessTimeout"
	ReasonInstanceDied     = "InstanceDied"
	ReasonStatusConflict   = "StatusConflict"
	ReasonResolving        = "Resolving"
	ReasonCaching          = "Caching"
	ReasonLaunching        = "Launching"
	ReasonProbing          = "Probing"
	ReasonReady            = "Ready"
	ReasonTerminating      = "Terminating"
	ReasonTerminated       = "Terminated"
)
