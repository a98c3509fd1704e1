package testkit

import (
	"os"
	"path/filepath"
	"testing"
)

// KernelLL is a single array kernel in textual IR: one decode chain on %A,
// debug and alias attachments, and an i32 result.
const KernelLL = `%jl_value_t = type opaque

declare i64** @jl_array_data(%jl_value_t*)

define i32 @julia_f64_foo(%jl_value_t* %A, i32 %i) {
top:
  %A.data = call i64** @jl_array_data(%jl_value_t* %A), !dbg !1
  %A.ptr = load i64*, i64** %A.data, !tbaa !2
  %A.elt = getelementptr inbounds i64, i64* %A.ptr, i64 0
  %A.cast = bitcast i64* %A.elt to i64*
  %A.val = load i64, i64* %A.cast, !tbaa !2, !dbg !1
  ret i32 %i, !dbg !1
}

!1 = !{!"loc"}
!2 = !{!"jtbaa"}
`

// UnresolvedLL calls a function nobody defines.
const UnresolvedLL = `declare void @julia_missing_3(i32)

define void @julia_user_1(i32 %x) {
top:
  call void @julia_missing_3(i32 %x)
  ret void
}
`

// LibraryLL defines the function UnresolvedLL calls.
const LibraryLL = `define void @missing(i32 %x) {
top:
  ret void
}
`

// WriteFile writes content to dir/name and returns the path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
