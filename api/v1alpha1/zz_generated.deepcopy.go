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

// Code generated by hand to stand in for controller-gen object:headerFile
// output (no codegen tooling available in this environment). Keep in sync
// with aimendpoint_types.go by hand until controller-gen can be run.

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

// DeepCopyInto is a deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *AIMEndpointRecipeSelector) DeepCopyInto(out *AIMEndpointRecipeSelector) {
	*out = *in
	if in.GPUCount != nil {
		out.GPUCount = new(int32)
		*out.GPUCount = *in.GPUCount
	}
	if in.Precision != nil {
		out.Precision = new(string)
		*out.Precision = *in.Precision
	}
	if in.RecipeID != nil {
		out.RecipeID = new(string)
		*out.RecipeID = *in.RecipeID
	}
}

// DeepCopy is a deepcopy function, copying the receiver, creating a new AIMEndpointRecipeSelector.
func (in *AIMEndpointRecipeSelector) DeepCopy() *AIMEndpointRecipeSelector {
	if in == nil {
		return nil
	}
	out := new(AIMEndpointRecipeSelector)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto is a deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *AIMEndpointCachePolicy) DeepCopyInto(out *AIMEndpointCachePolicy) {
	*out = *in
}

// DeepCopy is a deepcopy function, copying the receiver, creating a new AIMEndpointCachePolicy.
func (in *AIMEndpointCachePolicy) DeepCopy() *AIMEndpointCachePolicy {
	if in == nil {
		return nil
	}
	out := new(AIMEndpointCachePolicy)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto is a deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *AIMEndpointSpec) DeepCopyInto(out *AIMEndpointSpec) {
	*out = *in
	in.RecipeSelector.DeepCopyInto(&out.RecipeSelector)
	if in.Port != nil {
		out.Port = new(int32)
		*out.Port = *in.Port
	}
	if in.ResourceOverrides != nil {
		out.ResourceOverrides = in.ResourceOverrides.DeepCopy()
	}
	out.CachePolicy = in.CachePolicy
}

// DeepCopy is a deepcopy function, copying the receiver, creating a new AIMEndpointSpec.
func (in *AIMEndpointSpec) DeepCopy() *AIMEndpointSpec {
	if in == nil {
		return nil
	}
	out := new(AIMEndpointSpec)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto is a deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *AIMEndpointStatus) DeepCopyInto(out *AIMEndpointStatus) {
	*out = *in
	if in.ResolvedRecipeID != nil {
		out.ResolvedRecipeID = new(string)
		*out.ResolvedRecipeID = *in.ResolvedRecipeID
	}
	if in.Conditions != nil {
		out.Conditions = make([]metav1.Condition, len(in.Conditions))
		for i := range in.Conditions {
			in.Conditions[i].DeepCopyInto(&out.Conditions[i])
		}
	}
	if in.EndpointURLs != nil {
		out.EndpointURLs = make([]string, len(in.EndpointURLs))
		copy(out.EndpointURLs, in.EndpointURLs)
	}
}

// DeepCopy is a deepcopy function, copying the receiver, creating a new AIMEndpointStatus.
func (in *AIMEndpointStatus) DeepCopy() *AIMEndpointStatus {
	if in == nil {
		return nil
	}
	out := new(AIMEndpointStatus)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto is a deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *AIMEndpoint) DeepCopyInto(out *AIMEndpoint) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	in.Spec.DeepCopyInto(&out.Spec)
	in.Status.DeepCopyInto(&out.Status)
}

// DeepCopy is a deepcopy function, copying the receiver, creating a new AIMEndpoint.
func (in *AIMEndpoint) DeepCopy() *AIMEndpoint {
	if in == nil {
		return nil
	}
	out := new(AIMEndpoint)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject is a deepcopy function, copying the receiver, creating a new runtime.Object.
func (in *AIMEndpoint) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto is a deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *AIMEndpointList) DeepCopyInto(out *AIMEndpointList) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	out.ListMeta = in.ListMeta
	if in.Items != nil {
		out.Items = make([]AIMEndpoint, len(in.Items))
		for i := range in.Items {
			in.Items[i].DeepCopyInto(&out.Items[i])
		}
	}
}

// DeepCopy is a deepcopy function, copying the receiver, creating a new AIMEndpointList.
func (in *AIMEndpointList) DeepCopy() *AIMEndpointList {
	if in == nil {
		return nil
	}
	out := new(AIMEndpointList)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject is a deepcopy function, copying the receiver, creating a new runtime.Object.
func (in *AIMEndpointList) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}
