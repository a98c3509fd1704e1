package diag

import (
	"strconv"
	"strings"
)

// Location points at a place inside an IR module. Empty fields are omitted
// when rendering; Instr is -1 when the location names a whole block or function.
type Location struct {
	File  string
	Func  string
	Block string
	Instr int
}

// FileLoc names a whole input file.
func FileLoc(file string) Location {
	return Location{File: file, Instr: -1}
}

// FuncLoc names a function of a file.
func FuncLoc(file, fn string) Location {
	return Location{File: file, Func: fn, Instr: -1}
}

// InstrLoc names the i-th instruction of a block.
func InstrLoc(file, fn, block string, i int) Location {
	return Location{File: file, Func: fn, Block: block, Instr: i}
}

// Less orders locations by file, function, block and instruction index.
func (l Location) Less(o Location) bool {
	if l.File != o.File {
		return l.File < o.File
	}
	if l.Func != o.Func {
		return l.Func < o.Func
	}
	if l.Block != o.Block {
		return l.Block < o.Block
	}
	return l.Instr < o.Instr
}

func (l Location) String() string {
	var b strings.Builder
	b.WriteString(l.File)
	if l.Func != "" {
		if b.Len() > 0 {
			b.WriteByte(':')
		}
		b.WriteByte('@')
		b.WriteString(l.Func)
	}
	if l.Block != "" {
		b.WriteString(":%")
		b.WriteString(l.Block)
	}
	if l.Instr >= 0 && l.Block != "" {
		b.WriteByte('#')
		b.WriteString(strconv.Itoa(l.Instr))
	}
	if b.Len() == 0 {
		return "<module>"
	}
	return b.String()
}
