package diag

import "testing"

func TestFormatShort(t *testing.T) {
	diags := []Diagnostic{
		{
			Severity: SevWarning,
			Code:     LowVoidResultUsed,
			Message:  "undef",
			Primary:  InstrLoc("k.ll", "main", "top", 4),
		},
		{
			Severity: SevError,
			Code:     LowUnresolvedCall,
			Message:  "did not find function @bar\nsecond line",
			Primary:  InstrLoc("k.ll", "main", "top", 2),
			Notes: []Note{
				{Loc: FuncLoc("k.ll", "main"), Msg: "called as @julia_bar_1"},
			},
		},
		{
			Severity: SevInfo,
			Code:     ImpInfo,
			Message:  "parsed",
			Primary:  FileLoc(""),
		},
	}

	expected := "info IMP5000 <module> parsed\n" +
		"error LOW4001 k.ll:@main:%top#2 did not find function @bar second line\n" +
		"note LOW4001 k.ll:@main called as @julia_bar_1\n" +
		"warning LOW4003 k.ll:@main:%top#4 undef"

	if got := FormatShort(diags, true); got != expected {
		t.Fatalf("unexpected output:\nwant:\n%s\n\ngot:\n%s", expected, got)
	}
	if got := FormatShort(nil, true); got != "" {
		t.Fatalf("empty input rendered %q", got)
	}
}

func TestCodeID(t *testing.T) {
	cases := map[Code]string{
		LowUnresolvedCall: "LOW4001",
		ImpParseError:     "IMP5001",
		ObsTimings:        "OBS6001",
		UnknownCode:       "E0000",
	}
	for code, want := range cases {
		if got := code.ID(); got != want {
			t.Errorf("%d.ID() = %s, want %s", code, got, want)
		}
	}
	if got := Code(4999).Title(); got != "Unknown error" {
		t.Errorf("unknown title = %q", got)
	}
}
