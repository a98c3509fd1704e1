package llvm

import (
	"fmt"
	"strings"

	"fortio.org/safecast"
)

func safeNodeID(i int) (uint32, error) {
	id, err := safecast.Conv[uint32](i)
	if err != nil {
		return 0, fmt.Errorf("metadata node id overflow: %w", err)
	}
	return id, nil
}

// quoteString renders s between quote characters using LLVM's \XX escapes
// for the quote, backslash and non-printable bytes.
func quoteString(s string, quote byte) string {
	var sb strings.Builder
	sb.WriteByte(quote)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == quote || c == '\\' || c < 0x20 || c >= 0x7f {
			fmt.Fprintf(&sb, "\\%02X", c)
			continue
		}
		sb.WriteByte(c)
	}
	sb.WriteByte(quote)
	return sb.String()
}

// quoteName returns a global name usable after '@'.
func quoteName(name string) string {
	for i := 0; i < len(name); i++ {
		c := name[i]
		if !(c == '_' || c == '.' || c == '$' || c == '-' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return quoteString(name, '"')
		}
	}
	return name
}
