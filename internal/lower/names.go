package lower

import "strings"

// DefaultManglePrefix is the six-character tag the front end puts in front
// of every generated symbol.
const DefaultManglePrefix = "julia_"

// Normalizer recovers canonical base names from mangled symbol names.
// The zero value uses DefaultManglePrefix.
type Normalizer struct {
	Prefix string
}

func (n Normalizer) prefix() string {
	if n.Prefix == "" {
		return DefaultManglePrefix
	}
	return n.Prefix
}

// CanonicalName normalizes with the default prefix.
func CanonicalName(mangled string) string {
	return Normalizer{}.Canonical(mangled)
}

// Canonical returns the base name of a mangled symbol: front-end prefixes
// and type-specialization segments such as "f64_" are skipped, then the
// leading run of letters and underscores is kept, minus trailing
// underscores. When no such run exists the prefix-stripped name is returned
// unmodified, and a name made only of prefixes is returned as is.
// Canonical never fails and is idempotent on its own output.
func (n Normalizer) Canonical(mangled string) string {
	prefix := n.prefix()
	base := mangled
	for strings.HasPrefix(base, prefix) {
		base = base[len(prefix):]
	}
	if base == "" {
		return mangled
	}
	rest := base
	for {
		next := strings.TrimPrefix(rest, prefix)
		next = skipSpecialization(next)
		if next == rest {
			break
		}
		rest = next
	}
	run := strings.TrimRight(rest[:identRun(rest)], "_")
	if run == "" {
		return base
	}
	return run
}

// identRun returns the length of the leading [A-Za-z_]* run of s.
func identRun(s string) int {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return i
		}
	}
	return len(s)
}

// skipSpecialization drops one leading "<letter><digits>_" segment.
func skipSpecialization(s string) string {
	if len(s) < 3 || !isLetter(s[0]) {
		return s
	}
	i := 1
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 1 || i >= len(s) || s[i] != '_' {
		return s
	}
	return s[i+1:]
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
