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

package v1alpha1

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/amd-enterprise-ai/aim-runtime/internal/constants"
)

// AIMEndpointRecipeSelector narrows the Resolver's search. The Reconciler
// passes GPUCount and Precision (if set) to the Resolver as customer
// overrides it may still clamp or fall back from. AutoSelect and RecipeID
// are stored on the resource but the Reconciler does not read them.
type AIMEndpointRecipeSelector struct {
	// AutoSelect records whether the Resolver may pick gpu_count/precision
	// from the model's size class. The Reconciler does not read it: an
	// unset GPUCount or Precision is always derived by the Resolver.
	// +kubebuilder:default=true
	AutoSelect bool `json:"autoSelect,omitempty"`

	// GPUCount overrides the Resolver's ideal gpu_count for this model's
	// size class. The Resolver clamps this to the runtime-visible GPU
	// count if it exceeds it.
	// +optional
	// +kubebuilder:validation:Enum=1;2;4;8
	GPUCount *int32 `json:"gpuCount,omitempty"`

	// Precision overrides the Resolver's default precision for this
	// model's size class.
	// +optional
	// +kubebuilder:validation:Enum=fp16;bf16;fp8;int8;int4
	Precision *string `json:"precision,omitempty"`

	// RecipeID names one catalog recipe by ID. The Reconciler does not read
	// it; resolution always goes through gpu_count/precision selection.
	// +optional
	RecipeID *string `json:"recipeId,omitempty"`
}

// AIMEndpointCachePolicy controls whether the Model Cache is consulted and
// populated for this endpoint's model.
type AIMEndpointCachePolicy struct {
	// Enabled turns on cache-backed model artifact reuse across instances
	// sharing a cache root.
	// +kubebuilder:default=true
	Enabled bool `json:"enabled,omitempty"`
}

// AIMEndpointSpec defines the desired state of an AIMEndpoint.
//
// One AIMEndpointSpec resolves to one recipe and, once resolved, to
// Replicas independent EndpointInstances sharing that recipe's LaunchSpec
// (apart from per-instance port assignment).
type AIMEndpointSpec struct {
	// Name is the caller-chosen identifier surfaced in status and logs,
	// independent of the Kubernetes object name.
	Name string `json:"name"`

	// ModelID selects the model to deploy, in `org/name` form.
	ModelID string `json:"modelId"`

	// RecipeSelector narrows the Resolver's search across the catalog's
	// recipes for ModelID.
	RecipeSelector AIMEndpointRecipeSelector `json:"recipeSelector,omitempty"`

	// Replicas is the desired instance count. The Reconciler launches or
	// stops instances to converge on this value.
	// +kubebuilder:validation:Minimum=0
	// +kubebuilder:default=1
	Replicas int32 `json:"replicas"`

	// Port is the container-side port each instance's runtime listens on.
	// Defaults to constants.DefaultPort when unset.
	// +optional
	Port *int32 `json:"port,omitempty"`

	// ResourceOverrides holds resource requirements for instances launched
	// under this endpoint. The Reconciler does not read it, so it has no
	// effect on launched instances.
	// +optional
	ResourceOverrides *corev1.ResourceRequirements `json:"resourceOverrides,omitempty"`

	// CachePolicy controls Model Cache participation for ModelID.
	CachePolicy AIMEndpointCachePolicy `json:"cachePolicy,omitempty"`
}

// AIMEndpointStatus is the Reconciler's report of observed state.
type AIMEndpointStatus struct {
	// ObservedGeneration is the most recent Spec generation the
	// Reconciler has acted on.
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`

	// Phase summarizes the endpoint's aggregate lifecycle state, rolled
	// up across its instances.
	// +kubebuilder:default=Pending
	Phase constants.EndpointPhase `json:"phase,omitempty"`

	// ResolvedRecipeID is the recipe_id the Resolver matched for this
	// endpoint's ModelID and RecipeSelector, once resolution succeeds.
	// +optional
	ResolvedRecipeID *string `json:"resolvedRecipeId,omitempty"`

	// ReadyReplicas counts instances currently in the Ready phase.
	ReadyReplicas int32 `json:"readyReplicas"`

	// Conditions carries the typed, timestamped predicates the
	// Reconciler maintains (Ready/Progressing/Degraded/CacheReady — see
	// internal/constants's Condition* names; ConditionModels is defined
	// there but the Reconciler never sets it).
	// +listType=map
	// +listMapKey=type
	Conditions []metav1.Condition `json:"conditions,omitempty"`

	// EndpointURLs lists the reachable URL for every Ready instance.
	// +optional
	EndpointURLs []string `json:"endpointUrls,omitempty"`
}

func (s *AIMEndpointStatus) GetConditions() []metav1.Condition {
	return s.Conditions
}

func (s *AIMEndpointStatus) SetConditions(conditions []metav1.Condition) {
	s.Conditions = conditions
}

func (s *AIMEndpointStatus) SetStatus(phase string) {
	s.Phase = constants.EndpointPhase(phase)
}

// AIMEndpoint is the schema for the aimendpoints API, the declarative
// surface a caller manages to request a deployed model endpoint.
// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:shortName=aimep,categories=aim;all
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="Model",type=string,JSONPath=`.spec.modelId`
// +kubebuilder:printcolumn:name="Recipe",type=string,JSONPath=`.status.resolvedRecipeId`
// +kubebuilder:printcolumn:name="Ready",type=integer,JSONPath=`.status.readyReplicas`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`
type AIMEndpoint struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   AIMEndpointSpec   `json:"spec,omitempty"`
	Status AIMEndpointStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true
// AIMEndpointList contains a list of AIMEndpoint.
type AIMEndpointList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []AIMEndpoint `json:"items"`
}

// GetStatus returns a pointer to the AIMEndpoint's status, for callers that
// need to mutate it through a common interface.
func (e *AIMEndpoint) GetStatus() *AIMEndpointStatus {
	return &e.Status
}

func init() {
	SchemeBuilder.Register(&AIMEndpoint{}, &AIMEndpointList{})
}
