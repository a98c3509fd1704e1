// Package lower turns front-end functions that take managed array handles
// into flat GPU kernels with address-space tagged pointer parameters.
//
// Each transformation is usable on its own (see Passes) and Run sequences
// them over a whole module.
package lower

import "kernlower/internal/kir"

// HandleTag is the struct tag of the opaque managed-array handle.
const HandleTag = "jl_value_t"

// IsArrayHandle reports whether t is a pointer to the handle aggregate.
// Only the structural shape matters.
func IsArrayHandle(t *kir.Type) bool {
	if t == nil || t.Kind != kir.KindPointer || t.Elem == nil {
		return false
	}
	return t.Elem.Kind == kir.KindStruct && t.Elem.Tag == HandleTag
}
