package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// lowering
	LowInfo              Code = 4000
	LowUnresolvedCall    Code = 4001
	LowUnexpectedChain   Code = 4002
	LowVoidResultUsed    Code = 4003
	LowNameCollision     Code = 4004
	LowIndirectCall      Code = 4005
	LowDeclarationSkip   Code = 4006
	LowInvalidModule     Code = 4007
	LowDroppedAttachment Code = 4008

	// import & link
	ImpInfo             Code = 5000
	ImpParseError       Code = 5001
	ImpUnsupportedType  Code = 5002
	ImpUnsupportedInstr Code = 5003
	ImpUnsupportedValue Code = 5004
	ImpLibraryNotFound  Code = 5005
	ImpLibraryMalformed Code = 5006
	ImpLinkConflict     Code = 5007
	ImpWriteError       Code = 5008

	// observability
	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var (
	codeDescription = map[Code]string{
		UnknownCode:          "Unknown error",
		LowInfo:              "Lowering information",
		LowUnresolvedCall:    "call target not found after name normalization",
		LowUnexpectedChain:   "array handle use is not a decode chain",
		LowVoidResultUsed:    "result of a call retargeted to a void function is used",
		LowNameCollision:     "two functions normalize to the same name",
		LowIndirectCall:      "indirect call left untouched",
		LowDeclarationSkip:   "declaration renamed but not lowered",
		LowInvalidModule:     "lowered module failed validation",
		LowDroppedAttachment: "instruction attachment dropped on output",
		ImpInfo:              "Import information",
		ImpParseError:        "IR parse error",
		ImpUnsupportedType:   "unsupported IR type",
		ImpUnsupportedInstr:  "unsupported IR instruction",
		ImpUnsupportedValue:  "unsupported IR operand",
		ImpLibraryNotFound:   "support library not found",
		ImpLibraryMalformed:  "support library is malformed",
		ImpLinkConflict:      "support library conflicts with module",
		ImpWriteError:        "I/O write error",
		ObsInfo:              "Observability information",
		ObsTimings:           "Pipeline timings",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("LOW%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("IMP%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
