package lower

import "kernlower/internal/kir"

// StrippedKinds are the attachment kinds the front end emits for its own
// runtime; device back ends reject them.
var StrippedKinds = []string{kir.MetaDebugLoc, kir.MetaTBAA}

// StripMetadata clears debug-location and TBAA attachments from every
// instruction of f and returns how many were removed. Other attachments are
// kept.
func StripMetadata(f *kir.Func) int {
	n := 0
	for _, b := range f.Blocks {
		for _, in := range b.Instrs {
			for _, kind := range StrippedKinds {
				if in.ClearMeta(kind) {
					n++
				}
			}
		}
	}
	return n
}
