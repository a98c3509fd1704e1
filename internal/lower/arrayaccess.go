package lower

import (
	"fmt"
	"strings"

	"kernlower/internal/kir"
)

// DeadDecodeMode selects what happens to the decode call once its chain is
// rewritten.
type DeadDecodeMode uint8

const (
	// DeadDecodeErase deletes the call and drops its operands.
	DeadDecodeErase DeadDecodeMode = iota
	// DeadDecodeDetach unlinks the call but keeps it intact, matching the
	// output of older toolchains instruction for instruction.
	DeadDecodeDetach
)

func (m DeadDecodeMode) String() string {
	if m == DeadDecodeDetach {
		return "detach"
	}
	return "erase"
}

// ParseDeadDecodeMode accepts "erase" or "detach".
func ParseDeadDecodeMode(s string) (DeadDecodeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "erase":
		return DeadDecodeErase, nil
	case "detach":
		return DeadDecodeDetach, nil
	}
	return DeadDecodeErase, fmt.Errorf("invalid dead-decode mode %q (expected erase|detach)", s)
}

// RewriteStats counts what RewriteArrayAccesses changed.
type RewriteStats struct {
	Chains   int
	Removed  int
	Inserted int
	// Forwarded counts handle uses passed on to other kernels untouched.
	Forwarded int
	// Detached holds decode calls unlinked under DeadDecodeDetach.
	Detached []*kir.Instr
}

// RewriteArrayAccesses replaces every decode chain hanging off params with a
// single getelementptr on the raw pointer. All chains are matched before the
// function is touched, so a *ChainError leaves f unchanged.
func RewriteArrayAccesses(f *kir.Func, params []*kir.Param, mode DeadDecodeMode) (RewriteStats, error) {
	var stats RewriteStats
	var chains []*decodeChain
	for _, p := range params {
		if p.Parent != f {
			return stats, fmt.Errorf("parameter %%%s does not belong to @%s", p.Name, f.Name)
		}
		cs, forwarded, err := matchDecodeChains(f, p)
		if err != nil {
			return stats, err
		}
		chains = append(chains, cs...)
		stats.Forwarded += forwarded
	}

	for _, c := range chains {
		if err := rewriteChain(c, mode, &stats); err != nil {
			return stats, fmt.Errorf("@%s: %w", f.Name, err)
		}
	}
	return stats, nil
}

func rewriteChain(c *decodeChain, mode DeadDecodeMode, stats *RewriteStats) error {
	gep := kir.NewGEP(c.Param.Typ.Elem, c.Param, c.Indices()...)
	gep.Name = c.Index.Name
	gep.InBounds = c.Index.InBounds
	if err := c.Consumer.Parent.InsertBefore(gep, c.Consumer); err != nil {
		return err
	}
	c.Consumer.ReplaceOperand(c.Cast, gep)
	stats.Inserted++

	for _, dead := range []*kir.Instr{c.Cast, c.Index, c.Load} {
		if !dead.Parent.Erase(dead) {
			return fmt.Errorf("%s vanished from its block", dead.Ident())
		}
		stats.Removed++
	}

	block := c.Decode.Parent
	switch mode {
	case DeadDecodeDetach:
		if !block.Detach(c.Decode) {
			return fmt.Errorf("%s vanished from its block", c.Decode.Ident())
		}
		stats.Detached = append(stats.Detached, c.Decode)
	default:
		if !block.Erase(c.Decode) {
			return fmt.Errorf("%s vanished from its block", c.Decode.Ident())
		}
	}
	stats.Removed++
	stats.Chains++
	return nil
}
