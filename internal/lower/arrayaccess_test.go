package lower_test

import (
	"errors"
	"testing"

	"kernlower/internal/kir"
	"kernlower/internal/lower"
	"kernlower/internal/testkit"
)

// loweredKernel returns a lowered clone of a one-chain kernel together with
// the chain instructions of the clone.
func loweredKernel(t *testing.T) (*lower.Lowered, testkit.Chain) {
	t.Helper()
	f, _ := testkit.KernelFunc("foo", testkit.DecodeHelper())
	low, err := lower.LowerSignature(f, lower.ArrayLoweringOptions)
	if err != nil {
		t.Fatalf("LowerSignature: %v", err)
	}
	in := low.Func.Entry().Instrs
	return low, testkit.Chain{Decode: in[0], Load: in[1], Index: in[2], Cast: in[3], Consumer: in[4]}
}

func TestRewriteArrayAccessesSingleChain(t *testing.T) {
	low, c := loweredKernel(t)
	before := testkit.InstrCount(low.Func)
	idx := c.Index.Operands[1]

	stats, err := lower.RewriteArrayAccesses(low.Func, low.Handles, lower.DeadDecodeErase)
	if err != nil {
		t.Fatalf("RewriteArrayAccesses: %v", err)
	}
	if stats.Chains != 1 || stats.Removed != 4 || stats.Inserted != 1 {
		t.Fatalf("stats = %+v, want 1 chain, 4 removed, 1 inserted", stats)
	}
	if got := testkit.InstrCount(low.Func); got != before-3 {
		t.Fatalf("instruction count %d, want %d", got, before-3)
	}

	gep, ok := c.Consumer.Operands[0].(*kir.Instr)
	if !ok || gep.Op != kir.OpGEP {
		t.Fatalf("consumer operand is %v, want the new getelementptr", c.Consumer.Operands[0])
	}
	if gep.Operands[0] != low.Handles[0] {
		t.Errorf("new getelementptr is not based on the raw pointer parameter")
	}
	if len(gep.Operands) != 2 || gep.Operands[1] != idx {
		t.Errorf("index list not carried over")
	}
	if gep.Name != "A.elt" || !gep.InBounds {
		t.Errorf("getelementptr should reuse the old name and inbounds flag, got %q %v", gep.Name, gep.InBounds)
	}
	if pos := c.Consumer.Parent.Index(gep); pos != c.Consumer.Parent.Index(c.Consumer)-1 {
		t.Errorf("getelementptr not placed right before the consumer")
	}
	if !gep.Type().Equal(kir.PointerTo(kir.I64, 1)) {
		t.Errorf("getelementptr type %s", gep.Type())
	}
	for _, dead := range []*kir.Instr{c.Decode, c.Load, c.Index, c.Cast} {
		if !dead.Detached() {
			t.Errorf("%s still attached", dead.Op)
		}
	}
	if c.Decode.Operands != nil {
		t.Errorf("erased decode call kept its operands")
	}
	if len(low.Func.Uses(low.Handles[0])) != 1 {
		t.Errorf("raw pointer should have exactly one use")
	}
}

func TestRewriteArrayAccessesDetachMode(t *testing.T) {
	low, c := loweredKernel(t)
	stats, err := lower.RewriteArrayAccesses(low.Func, low.Handles, lower.DeadDecodeDetach)
	if err != nil {
		t.Fatalf("RewriteArrayAccesses: %v", err)
	}
	if len(stats.Detached) != 1 || stats.Detached[0] != c.Decode {
		t.Fatalf("decode call not reported as detached")
	}
	if !c.Decode.Detached() || len(c.Decode.Operands) != 2 {
		t.Errorf("detached decode call should keep its operands, has %d", len(c.Decode.Operands))
	}
	if stats.Removed != 4 {
		t.Errorf("removed = %d, want 4", stats.Removed)
	}
}

func TestRewriteArrayAccessesMalformed(t *testing.T) {
	tests := []struct {
		name   string
		break_ func(f *kir.Func, c testkit.Chain)
		hop    lower.ChainHop
	}{
		{
			name: "second use of data load",
			break_: func(f *kir.Func, c testkit.Chain) {
				extra := kir.NewLoad(kir.I64, c.Load)
				_ = c.Load.Parent.InsertBefore(extra, c.Consumer)
			},
			hop: lower.HopLoad,
		},
		{
			name: "cast replaced by add",
			break_: func(f *kir.Func, c testkit.Chain) {
				c.Cast.Op = kir.OpAdd
				c.Cast.Operands = append(c.Cast.Operands, kir.ConstInt(kir.I64, 0))
			},
			hop: lower.HopCast,
		},
		{
			name: "handle stored directly",
			break_: func(f *kir.Func, c testkit.Chain) {
				slot := kir.NewAlloca(f.Params[0].Typ)
				_ = c.Decode.Parent.InsertBefore(slot, c.Decode)
				_ = c.Decode.Parent.InsertBefore(kir.NewStore(f.Params[0], slot), c.Decode)
			},
			hop: lower.HopDecode,
		},
		{
			name: "consumer is a phi",
			break_: func(f *kir.Func, c testkit.Chain) {
				c.Consumer.Op = kir.OpPhi
				c.Consumer.Targets = []*kir.Block{c.Consumer.Parent}
			},
			hop: lower.HopConsumer,
		},
		{
			name: "cast unused",
			break_: func(f *kir.Func, c testkit.Chain) {
				c.Consumer.Parent.Erase(c.Consumer)
			},
			hop: lower.HopCast,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			low, c := loweredKernel(t)
			tt.break_(low.Func, c)
			before := kir.FormatFunc(low.Func)

			_, err := lower.RewriteArrayAccesses(low.Func, low.Handles, lower.DeadDecodeErase)
			if !errors.Is(err, lower.ErrUnexpectedChain) {
				t.Fatalf("expected ErrUnexpectedChain, got %v", err)
			}
			var ce *lower.ChainError
			if !errors.As(err, &ce) {
				t.Fatalf("expected *ChainError, got %T", err)
			}
			if ce.Hop != tt.hop || ce.Func != "foo" || ce.Param != "A" {
				t.Errorf("ChainError = %+v, want hop %s", ce, tt.hop)
			}
			if after := kir.FormatFunc(low.Func); after != before {
				t.Errorf("function modified despite the error:\n%s", after)
			}
		})
	}
}

func TestRewriteArrayAccessesForwardedHandle(t *testing.T) {
	decode := testkit.DecodeHelper()
	inner, _ := testkit.KernelFunc("inner", decode)

	a := kir.NewParam("A", testkit.HandlePtr())
	outer := kir.NewFunc("outer", kir.Void, a)
	b := outer.NewBlock("top")
	testkit.AppendDecodeChain(b, decode, a, kir.ConstInt(kir.I64, 1), "A")
	b.Append(kir.NewCall(inner, a, kir.ConstInt(kir.I32, 0)))
	b.Append(kir.NewRet(nil))

	low, err := lower.LowerSignature(outer, lower.ArrayLoweringOptions)
	if err != nil {
		t.Fatalf("LowerSignature: %v", err)
	}
	stats, err := lower.RewriteArrayAccesses(low.Func, low.Handles, lower.DeadDecodeErase)
	if err != nil {
		t.Fatalf("RewriteArrayAccesses: %v", err)
	}
	if stats.Chains != 1 || stats.Forwarded != 1 {
		t.Errorf("stats = %+v, want 1 chain and 1 forwarded use", stats)
	}
}

func TestRewriteArrayAccessesNoUses(t *testing.T) {
	p := kir.NewParam("A", kir.PointerTo(kir.I64, 1))
	f := kir.NewFunc("idle", kir.Void, p)
	f.NewBlock("top").Append(kir.NewRet(nil))
	stats, err := lower.RewriteArrayAccesses(f, []*kir.Param{p}, lower.DeadDecodeErase)
	if err != nil || stats.Chains != 0 {
		t.Fatalf("unused parameter: stats %+v, err %v", stats, err)
	}
}

func TestParseDeadDecodeMode(t *testing.T) {
	for in, want := range map[string]lower.DeadDecodeMode{
		"":       lower.DeadDecodeErase,
		"erase":  lower.DeadDecodeErase,
		"Detach": lower.DeadDecodeDetach,
	} {
		got, err := lower.ParseDeadDecodeMode(in)
		if err != nil || got != want {
			t.Errorf("ParseDeadDecodeMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := lower.ParseDeadDecodeMode("free"); err == nil {
		t.Errorf("expected error for unknown mode")
	}
}
