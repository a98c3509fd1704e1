// Package llvm bridges kir modules and textual LLVM IR. Input is parsed with
// llir/llvm and translated into kir; output is written by a small emitter
// that mirrors the typed-pointer syntax the front end produces.
package llvm

import (
	"errors"
	"fmt"
	"os"

	"github.com/llir/llvm/asm"
	"github.com/llir/llvm/ir"

	"kernlower/internal/diag"
	"kernlower/internal/kir"
)

var (
	// ErrParse marks input that is not well-formed LLVM assembly.
	ErrParse = errors.New("llvm parse error")
	// ErrUnsupported marks a construct the importer cannot represent in kir.
	ErrUnsupported = errors.New("unsupported LLVM construct")
)

// ReadFile parses the .ll file at path and imports it.
func ReadFile(path string, r diag.Reporter) (*kir.Module, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	m, err := asm.ParseFile(path)
	if err != nil {
		reportParse(r, path, err)
		return nil, fmt.Errorf("%w: %s: %w", ErrParse, path, err)
	}
	return Import(m, path, r)
}

// ParseString parses LLVM assembly held in memory; name is used in
// diagnostics and as the module source.
func ParseString(name, src string, r diag.Reporter) (*kir.Module, error) {
	m, err := asm.ParseString(name, src)
	if err != nil {
		reportParse(r, name, err)
		return nil, fmt.Errorf("%w: %s: %w", ErrParse, name, err)
	}
	return Import(m, name, r)
}

func reportParse(r diag.Reporter, file string, err error) {
	if r == nil {
		return
	}
	diag.ReportError(r, diag.ImpParseError, diag.FileLoc(file), err.Error()).Emit()
}

// Import translates a parsed module. Every unsupported construct is
// reported; the first batch of errors is returned joined together.
func Import(m *ir.Module, source string, r diag.Reporter) (*kir.Module, error) {
	im := &importer{
		src:     source,
		r:       r,
		structs: make(map[string]*kir.Type),
		funcs:   make(map[*ir.Func]*kir.Func, len(m.Funcs)),
	}
	out := kir.NewModule(source)

	for _, g := range m.Globals {
		im.fail(diag.ImpUnsupportedValue, diag.FileLoc(source),
			fmt.Sprintf("global variable @%s is not supported", g.Name()))
	}
	for name := range m.NamedMetadataDefs {
		if r != nil {
			diag.ReportInfo(r, diag.ImpInfo, diag.FileLoc(source),
				fmt.Sprintf("named metadata !%s is not carried over", name)).Emit()
		}
	}

	for _, f := range m.Funcs {
		kf, err := im.declare(f)
		if err != nil {
			im.fail(diag.ImpUnsupportedType, diag.FuncLoc(source, f.Name()), err.Error())
			continue
		}
		if err := out.AddFunc(kf); err != nil {
			im.fail(diag.ImpParseError, diag.FuncLoc(source, f.Name()), err.Error())
			continue
		}
		im.funcs[f] = kf
	}
	if len(im.errs) > 0 {
		return nil, errors.Join(im.errs...)
	}

	for _, f := range m.Funcs {
		if len(f.Blocks) == 0 {
			continue
		}
		fi := newFuncImporter(im, f, im.funcs[f])
		fi.body()
	}
	if len(im.errs) > 0 {
		return nil, errors.Join(im.errs...)
	}
	return out, nil
}

type importer struct {
	src     string
	r       diag.Reporter
	structs map[string]*kir.Type
	funcs   map[*ir.Func]*kir.Func
	errs    []error
}

func (im *importer) fail(code diag.Code, loc diag.Location, msg string) {
	im.errs = append(im.errs, fmt.Errorf("%w: %s: %s", ErrUnsupported, loc, msg))
	if im.r != nil {
		diag.ReportError(im.r, code, loc, msg).Emit()
	}
}

// declare creates the kir function header for f without its body.
func (im *importer) declare(f *ir.Func) (*kir.Func, error) {
	ret, err := im.typ(f.Sig.RetType)
	if err != nil {
		return nil, fmt.Errorf("result type: %w", err)
	}
	params := make([]*kir.Param, 0, len(f.Sig.Params))
	if len(f.Params) == len(f.Sig.Params) {
		for i, p := range f.Params {
			typ, err := im.typ(p.Typ)
			if err != nil {
				return nil, fmt.Errorf("parameter %d: %w", i, err)
			}
			params = append(params, kir.NewParam(p.LocalName, typ))
		}
	} else {
		for i, pt := range f.Sig.Params {
			typ, err := im.typ(pt)
			if err != nil {
				return nil, fmt.Errorf("parameter %d: %w", i, err)
			}
			params = append(params, kir.NewParam("", typ))
		}
	}
	kf := kir.NewFunc(f.Name(), ret, params...)
	kf.Variadic = f.Sig.Variadic
	kf.Linkage = linkage(f.Linkage)
	return kf, nil
}
