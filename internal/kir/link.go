package kir

import "fmt"

// Link moves every function of src into dst. A definition in src replaces a
// same-named declaration in dst; a declaration in src resolves to whatever
// dst already has under that name. Two definitions of one name are an error
// and leave dst untouched. src is empty afterwards.
func Link(dst, src *Module) error {
	resolved := make(map[*Func]*Func, len(src.Funcs))
	var (
		moved    []*Func
		replaced [][2]*Func
	)
	for _, f := range src.Funcs {
		existing := dst.Func(f.Name)
		switch {
		case existing == nil:
			moved = append(moved, f)
		case existing.IsDeclaration() && !f.IsDeclaration():
			moved = append(moved, f)
			replaced = append(replaced, [2]*Func{existing, f})
		case !existing.IsDeclaration() && !f.IsDeclaration():
			return fmt.Errorf("link %s into %s: %w: @%s defined in both", src.Source, dst.Source, ErrDuplicateSymbol, f.Name)
		default:
			resolved[f] = existing
		}
	}
	for _, f := range moved {
		for _, b := range f.Blocks {
			for _, in := range b.Instrs {
				for i, op := range in.Operands {
					if g, ok := op.(*Func); ok {
						if target, ok := resolved[g]; ok {
							in.Operands[i] = target
						}
					}
				}
			}
		}
	}
	src.Funcs = nil
	for _, pair := range replaced {
		if err := dst.ReplaceFunc(pair[0], pair[1]); err != nil {
			return fmt.Errorf("link %s: %w", src.Source, err)
		}
	}
	for _, f := range moved {
		if f.Parent == dst {
			continue
		}
		if err := dst.AddFunc(f); err != nil {
			return fmt.Errorf("link %s: %w", src.Source, err)
		}
	}
	return nil
}
