package lower_test

import (
	"testing"

	"kernlower/internal/lower"
)

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"julia_f64_foo", "foo"},
		{"julia_foo_1234", "foo"},
		{"julia_vadd_kernel_33", "vadd_kernel"},
		{"julia_i32_f64_axpy_7", "axpy"},
		{"julia_julia_bar", "bar"},
		{"foo", "foo"},
		{"get_global_id", "get_global_id"},
		{"jl_array_data", "jl_array_data"},
		{"julia_123", "123"},
		{"julia_", "julia_"},
		{"julia_julia_", "julia_julia_"},
		{"", ""},
		{"x1_", "x1_"},
	}
	for _, tt := range tests {
		if got := lower.CanonicalName(tt.in); got != tt.want {
			t.Errorf("CanonicalName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalNameIdempotent(t *testing.T) {
	inputs := []string{
		"julia_f64_foo", "julia_foo_1234", "julia_i32_f64_axpy_7", "julia_123",
		"julia_+_12", "x1_", "f64_", "julia_f64_", "_", "__init__", "a1_b2_c", "julia_julia_f1_", "julia_",
	}
	for _, in := range inputs {
		once := lower.CanonicalName(in)
		if twice := lower.CanonicalName(once); twice != once {
			t.Errorf("not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}

func TestNormalizerCustomPrefix(t *testing.T) {
	n := lower.Normalizer{Prefix: "jlgpu_"}
	if got := n.Canonical("jlgpu_f32_scale_9"); got != "scale" {
		t.Errorf("got %q, want scale", got)
	}
	if got := n.Canonical("julia_scale_9"); got != "julia_scale" {
		t.Errorf("default prefix should not be stripped, got %q", got)
	}
}
