package lower_test

import (
	"testing"

	"kernlower/internal/kir"
	"kernlower/internal/lower"
	"kernlower/internal/testkit"
)

func TestStripMetadata(t *testing.T) {
	f, c := testkit.KernelFunc("foo", testkit.DecodeHelper())
	c.Consumer.SetMeta("range", "!7")

	if got := lower.StripMetadata(f); got != 5 {
		t.Fatalf("StripMetadata removed %d attachments, want 5", got)
	}
	if n := testkit.CountMeta(f, lower.StrippedKinds...); n != 0 {
		t.Errorf("%d dbg/tbaa attachments left", n)
	}
	if p, ok := c.Consumer.Meta("range"); !ok || p != "!7" {
		t.Errorf("unrelated attachment dropped")
	}
	if got := lower.StripMetadata(f); got != 0 {
		t.Errorf("second strip removed %d, want 0", got)
	}
}

func TestStripMetadataDeclaration(t *testing.T) {
	if got := lower.StripMetadata(kir.NewFunc("decl", kir.Void)); got != 0 {
		t.Errorf("declaration strip = %d", got)
	}
}
