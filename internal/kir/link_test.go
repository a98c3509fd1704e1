package kir_test

import (
	"errors"
	"testing"

	"kernlower/internal/kir"
)

func TestLinkReplacesDeclaration(t *testing.T) {
	dst := kir.NewModule("dst.ll")
	decl := kir.NewFunc("helper", kir.I64, kir.NewParam("", kir.I32))
	user := kir.NewFunc("user", kir.Void)
	ub := user.NewBlock("entry")
	ub.Append(kir.NewCall(decl, kir.ConstInt(kir.I32, 0)))
	ub.Append(kir.NewRet(nil))
	_ = dst.AddFunc(decl)
	_ = dst.AddFunc(user)

	src := kir.NewModule("lib.ll")
	def := kir.NewFunc("helper", kir.I64, kir.NewParam("d", kir.I32))
	db := def.NewBlock("entry")
	db.Append(kir.NewRet(kir.ConstInt(kir.I64, 1)))
	extra := kir.NewFunc("extra", kir.Void)
	eb := extra.NewBlock("entry")
	// calls the library's own declaration of user
	eb.Append(kir.NewCall(kir.NewFunc("user", kir.Void)))
	eb.Append(kir.NewRet(nil))
	_ = src.AddFunc(def)
	_ = src.AddFunc(extra)
	_ = src.AddFunc(eb.Instrs[0].Callee())

	if err := kir.Link(dst, src); err != nil {
		t.Fatalf("Link: %v", err)
	}
	if dst.Func("helper") != def {
		t.Errorf("definition did not replace declaration")
	}
	if ub.Instrs[0].Callee() != def {
		t.Errorf("existing call not redirected to the definition")
	}
	if eb.Instrs[0].Callee() != user {
		t.Errorf("library declaration not resolved to the module definition")
	}
	if len(src.Funcs) != 0 {
		t.Errorf("source module not emptied")
	}
	if err := kir.Validate(dst); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLinkDuplicateDefinition(t *testing.T) {
	mk := func(src string) *kir.Module {
		m := kir.NewModule(src)
		f := kir.NewFunc("f", kir.Void)
		f.NewBlock("entry").Append(kir.NewRet(nil))
		_ = m.AddFunc(f)
		return m
	}
	dst := mk("a.ll")
	before := dst.Func("f")
	if err := kir.Link(dst, mk("b.ll")); !errors.Is(err, kir.ErrDuplicateSymbol) {
		t.Fatalf("expected ErrDuplicateSymbol, got %v", err)
	}
	if dst.Func("f") != before {
		t.Errorf("destination modified by failed link")
	}
}
