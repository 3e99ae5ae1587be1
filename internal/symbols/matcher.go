package symbols

import (
	"strings"
	"unicode"
)

// Match reports whether name matches pattern either as a camel-hump prefix
// or as a case-insensitive substring.
func Match(pattern, name string) bool {
	if pattern == "" || name == "" {
		return false
	}
	if strings.Contains(strings.ToLower(name), strings.ToLower(pattern)) {
		return true
	}
	return MatchCamelHumps(pattern, name)
}

// MatchCamelHumps matches pattern against the humps of name. The first
// pattern character must start the name; every following character either
// continues the current hump or starts a later one, so "HSE" and "hybSe"
// both match "HybridSearchEngine". Case is ignored.
func MatchCamelHumps(pattern, name string) bool {
	p := []rune(strings.ToLower(pattern))
	n := []rune(name)
	if len(p) == 0 || len(n) == 0 || len(p) > len(n) {
		return false
	}

	starts := humpStarts(n)
	lower := []rune(strings.ToLower(name))
	if len(lower) != len(n) {
		return false
	}

	m := &humpMatcher{
		pattern: p,
		name:    lower,
		starts:  starts,
		failed:  make(map[[2]int]bool),
	}
	return p[0] == lower[0] && m.match(1, 1)
}

type humpMatcher struct {
	pattern []rune
	name    []rune
	starts  []int
	failed  map[[2]int]bool
}

func (m *humpMatcher) match(pi, ni int) bool {
	if pi == len(m.pattern) {
		return true
	}
	if ni >= len(m.name) {
		return false
	}
	key := [2]int{pi, ni}
	if m.failed[key] {
		return false
	}

	c := m.pattern[pi]
	if m.name[ni] == c && m.match(pi+1, ni+1) {
		return true
	}
	for _, h := range m.starts {
		if h <= ni {
			continue
		}
		if m.name[h] == c && m.match(pi+1, h+1) {
			return true
		}
	}

	m.failed[key] = true
	return false
}

// humpStarts returns the index of every hump: upper-case letters after a
// lower-case letter or digit, the last capital of an acronym followed by a
// lower-case letter, and the first character after a separator or a digit
// run.
func humpStarts(name []rune) []int {
	var starts []int
	for i := 1; i < len(name); i++ {
		prev, cur := name[i-1], name[i]
		switch {
		case isSeparator(cur):
			continue
		case isSeparator(prev):
			starts = append(starts, i)
		case unicode.IsUpper(cur) && !unicode.IsUpper(prev):
			starts = append(starts, i)
		case unicode.IsUpper(cur) && i+1 < len(name) && unicode.IsLower(name[i+1]):
			starts = append(starts, i)
		case unicode.IsDigit(cur) != unicode.IsDigit(prev):
			starts = append(starts, i)
		}
	}
	return starts
}

func isSeparator(r rune) bool {
	return r == '_' || r == '-' || r == '.' || r == '$'
}
