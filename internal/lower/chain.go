package lower

import (
	"fmt"

	"kernlower/internal/kir"
)

// ChainHop names a position in the handle decode chain
// param → decode call → load → getelementptr → bitcast → consumer.
type ChainHop uint8

const (
	HopDecode ChainHop = iota + 1
	HopLoad
	HopIndex
	HopCast
	HopConsumer
)

func (h ChainHop) String() string {
	switch h {
	case HopDecode:
		return "decode call"
	case HopLoad:
		return "data load"
	case HopIndex:
		return "element address"
	case HopCast:
		return "element cast"
	case HopConsumer:
		return "consumer"
	}
	return fmt.Sprintf("ChainHop(%d)", h)
}

func (h ChainHop) expected() kir.Opcode {
	switch h {
	case HopDecode:
		return kir.OpCall
	case HopLoad:
		return kir.OpLoad
	case HopIndex:
		return kir.OpGEP
	case HopCast:
		return kir.OpBitCast
	}
	return kir.OpInvalid
}

// ChainError describes the first hop at which a handle use stopped looking
// like a decode chain.
type ChainError struct {
	Func   string
	Param  string
	Hop    ChainHop
	Reason string
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("%v: @%s parameter %%%s: %s: %s", ErrUnexpectedChain, e.Func, e.Param, e.Hop, e.Reason)
}

func (e *ChainError) Unwrap() error { return ErrUnexpectedChain }

// decodeChain is a fully matched chain. Nothing has been mutated yet.
type decodeChain struct {
	Param    *kir.Param
	Decode   *kir.Instr
	Load     *kir.Instr
	Index    *kir.Instr
	Cast     *kir.Instr
	Consumer *kir.Instr
}

// Indices returns the index operands of the element address computation.
func (c *decodeChain) Indices() []kir.Value {
	return c.Index.Operands[1:]
}

// matchDecodeChains matches every use of p. A parameter without uses yields
// no chains. Uses that forward the handle unchanged to another kernel are
// counted, not matched.
func matchDecodeChains(f *kir.Func, p *kir.Param) ([]*decodeChain, int, error) {
	uses := f.Uses(p)
	chains := make([]*decodeChain, 0, len(uses))
	forwarded := 0
	seen := make(map[*kir.Instr]bool, len(uses))
	for _, u := range uses {
		if forwardsHandle(f, u) {
			forwarded++
			continue
		}
		if seen[u.User] {
			return nil, 0, chainErr(f, p, HopDecode, "handle passed more than once to "+u.User.Ident())
		}
		seen[u.User] = true
		c, err := matchDecodeChain(f, p, u)
		if err != nil {
			return nil, 0, err
		}
		chains = append(chains, c)
	}
	return chains, forwarded, nil
}

// forwardsHandle reports whether u passes the parameter straight into a
// handle (or already lowered) parameter of a call whose result is unused.
// Such a call is another kernel, not a decode step.
func forwardsHandle(f *kir.Func, u kir.Use) bool {
	callee := u.User.Callee()
	if callee == nil || u.Index == 0 || u.Index > len(callee.Params) || callee.IsDeclaration() {
		return false
	}
	if u.User.HasValue() && len(f.Uses(u.User)) > 0 {
		return false
	}
	t := callee.Params[u.Index-1].Typ
	return IsArrayHandle(t) || t.IsPointer() && t.Elem.Equal(kir.I64)
}

func matchDecodeChain(f *kir.Func, p *kir.Param, u kir.Use) (*decodeChain, error) {
	c := &decodeChain{Param: p}

	decode := u.User
	if err := expectKind(f, p, HopDecode, decode); err != nil {
		return nil, err
	}
	if u.Index == 0 {
		return nil, chainErr(f, p, HopDecode, "handle is called, not passed")
	}
	c.Decode = decode

	next := []struct {
		hop  ChainHop
		slot **kir.Instr
	}{
		{HopLoad, &c.Load},
		{HopIndex, &c.Index},
		{HopCast, &c.Cast},
	}
	prev := decode
	for _, step := range next {
		in, err := soleUser(f, p, step.hop-1, prev)
		if err != nil {
			return nil, err
		}
		if err := expectKind(f, p, step.hop, in); err != nil {
			return nil, err
		}
		if in.Operands[0] != prev {
			return nil, chainErr(f, p, step.hop, fmt.Sprintf("%s is not the address operand", prev.Ident()))
		}
		*step.slot = in
		prev = in
	}

	consumer, err := soleUser(f, p, HopCast, c.Cast)
	if err != nil {
		return nil, err
	}
	if consumer.Op == kir.OpPhi {
		return nil, chainErr(f, p, HopConsumer, "consumer is a phi")
	}
	c.Consumer = consumer
	return c, nil
}

// soleUser returns the single instruction using v, which sits at hop.
func soleUser(f *kir.Func, p *kir.Param, hop ChainHop, v *kir.Instr) (*kir.Instr, error) {
	uses := f.Uses(v)
	switch len(uses) {
	case 0:
		return nil, chainErr(f, p, hop, v.Ident()+" has no use")
	case 1:
		return uses[0].User, nil
	default:
		return nil, chainErr(f, p, hop, fmt.Sprintf("%s has %d uses", v.Ident(), len(uses)))
	}
}

func expectKind(f *kir.Func, p *kir.Param, hop ChainHop, in *kir.Instr) error {
	if want := hop.expected(); in.Op != want {
		return chainErr(f, p, hop, fmt.Sprintf("found %s, want %s", in.Op, want))
	}
	if len(in.Operands) == 0 {
		return chainErr(f, p, hop, "instruction has no operands")
	}
	return nil
}

func chainErr(f *kir.Func, p *kir.Param, hop ChainHop, reason string) *ChainError {
	return &ChainError{Func: f.Name, Param: p.Name, Hop: hop, Reason: reason}
}
