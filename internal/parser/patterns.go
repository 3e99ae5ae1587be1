package parser

import (
	"regexp"
	"strings"

	"github.com/dshills/codeindex/pkg/types"
)

// Declarations in languages without a Go parser are found line by line.
// A pattern symbol spans only the line it was declared on.

type declPattern struct {
	re   *regexp.Regexp
	kind types.SymbolKind
	// member patterns capture the declared type before the name and only
	// match directly inside a class body
	member bool
}

type language struct {
	name     string
	patterns []declPattern
	braces   bool // blocks are delimited by { }
}

const ident = `([A-Za-z_$][\w$]*)`

var (
	jvmModifiers   = `(?:(?:public|private|protected|internal|static|final|abstract|sealed|open|data|override|synchronized|native|virtual|async|partial|readonly|inline|suspend|default|transient|volatile)\s+)`
	jvmAnnotations = `(?:@[\w.]+(?:\([^)]*\))?\s+)*`
	jvmType        = `([\w.$]+(?:\s*<[^()]*?>)?(?:\s*\[\])*)`

	javaLike = language{
		name:   "java",
		braces: true,
		patterns: []declPattern{
			{re: regexp.MustCompile(`^\s*` + jvmAnnotations + jvmModifiers + `*(?:class|interface|enum|record|struct)\s+` + ident), kind: types.KindClass},
			{re: regexp.MustCompile(`^\s*` + jvmAnnotations + jvmModifiers + `*(?:<[^>]*>\s*)?` + jvmType + `\s+` + ident + `\s*\(`), kind: types.KindMethod, member: true},
			{re: regexp.MustCompile(`^\s*` + jvmAnnotations + jvmModifiers + `*` + jvmType + `\s+` + ident + `\s*(?:=|;|,)`), kind: types.KindField, member: true},
		},
	}

	kotlin = language{
		name:   "kotlin",
		braces: true,
		patterns: []declPattern{
			{re: regexp.MustCompile(`^\s*` + jvmAnnotations + jvmModifiers + `*(?:class|interface|object|enum\s+class)\s+` + ident), kind: types.KindClass},
			{re: regexp.MustCompile(`^\s*` + jvmAnnotations + jvmModifiers + `*fun\s+(?:<[^>]*>\s*)?(?:[\w.]+\.)?` + ident + `\s*\(`), kind: types.KindMethod},
			{re: regexp.MustCompile(`^\s*` + jvmAnnotations + jvmModifiers + `*(?:val|var)\s+` + ident), kind: types.KindField},
		},
	}

	scriptModifiers = `(?:(?:export|default|declare|abstract|async)\s+)`

	typescript = language{
		name:   "typescript",
		braces: true,
		patterns: []declPattern{
			{re: regexp.MustCompile(`^\s*` + scriptModifiers + `*(?:class|interface|enum|type)\s+` + ident), kind: types.KindClass},
			{re: regexp.MustCompile(`^\s*` + scriptModifiers + `*function\*?\s+` + ident), kind: types.KindFunction},
			{re: regexp.MustCompile(`^\s*` + scriptModifiers + `*(?:const|let|var)\s+` + ident + `\s*=\s*(?:async\s+)?(?:function|\([^)]*\)\s*=>|` + ident + `\s*=>)`), kind: types.KindFunction},
			{re: regexp.MustCompile(`^\s*` + scriptModifiers + `*(?:const|let|var)\s+` + ident), kind: types.KindVar},
		},
	}

	python = language{
		name: "python",
		patterns: []declPattern{
			{re: regexp.MustCompile(`^\s*class\s+` + ident), kind: types.KindClass},
			{re: regexp.MustCompile(`^\s*(?:async\s+)?def\s+` + ident), kind: types.KindFunction},
			{re: regexp.MustCompile(`^([A-Z][A-Z0-9_]*)\s*(?::[^=]+)?=`), kind: types.KindConst},
		},
	}

	rust = language{
		name:   "rust",
		braces: true,
		patterns: []declPattern{
			{re: regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:struct|enum|trait|type|union)\s+` + ident), kind: types.KindClass},
			{re: regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:(?:async|const|unsafe|extern)\s+)*fn\s+` + ident), kind: types.KindFunction},
			{re: regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:const|static)\s+(?:mut\s+)?` + ident), kind: types.KindConst},
		},
	}
)

var languageByExt = map[string]language{
	".java":  javaLike,
	".cs":    javaLike,
	".scala": javaLike,
	".kt":    kotlin,
	".kts":   kotlin,
	".ts":    typescript,
	".tsx":   typescript,
	".js":    typescript,
	".jsx":   typescript,
	".mjs":   typescript,
	".cjs":   typescript,
	".py":    python,
	".rs":    rust,
}

// reservedWords look like declarations to the patterns above
var reservedWords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"return": true, "new": true, "throw": true, "else": true, "case": true,
	"package": true, "import": true, "yield": true, "assert": true,
	"public": true, "private": true, "protected": true, "static": true,
	"final": true, "abstract": true, "synchronized": true, "default": true,
}

// openClass is a class whose body is, or will be, at depth body
type openClass struct {
	name   string
	body   int
	opened bool
}

// extractByPattern scans content line by line. In brace languages members
// belong to the innermost class whose body they sit in; elsewhere to the
// most recent class.
func extractByPattern(path, content string, lang language) []types.Symbol {
	var (
		symbols []types.Symbol
		classes []openClass
		last    string
		depth   int
	)

	for i, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isComment(trimmed) {
			continue
		}

		if lang.braces {
			for n := len(classes); n > 0 && classes[n-1].opened && depth < classes[n-1].body; n = len(classes) {
				classes = classes[:n-1]
			}
		}

		for _, p := range lang.patterns {
			m := p.re.FindStringSubmatchIndex(line)
			if m == nil {
				continue
			}
			nameAt := 2
			if p.member {
				if !lang.braces || len(classes) == 0 || depth != classes[len(classes)-1].body {
					continue
				}
				if reservedWords[line[m[2]:m[3]]] {
					continue
				}
				nameAt = 4
			}
			name := line[m[nameAt]:m[nameAt+1]]
			if reservedWords[name] {
				continue
			}

			sym := types.Symbol{
				Name:  name,
				Kind:  p.kind,
				Path:  path,
				Start: types.Position{Line: i + 1, Column: m[nameAt] + 1},
				End:   types.Position{Line: i + 1, Column: len(line) + 1},
			}
			switch p.kind {
			case types.KindClass:
				last = name
				if lang.braces {
					// a class that never opened a body was a one-liner
					for n := len(classes); n > 0 && !classes[n-1].opened && classes[n-1].body > depth; n = len(classes) {
						classes = classes[:n-1]
					}
					classes = append(classes, openClass{name: name, body: depth + 1})
				}
			case types.KindMethod, types.KindField:
				sym.Receiver = last
				if lang.braces {
					sym.Receiver = ""
					if len(classes) > 0 {
						sym.Receiver = classes[len(classes)-1].name
					}
				}
			}
			symbols = append(symbols, sym)
			break
		}

		if lang.braces {
			var peak int
			depth, peak = braceDepth(line, depth)
			if n := len(classes); n > 0 && peak >= classes[n-1].body {
				classes[n-1].opened = true
			}
		}
	}

	return symbols
}

// braceDepth returns the depth after line and the deepest point reached in
// it. Braces inside string literals and line comments are ignored.
func braceDepth(line string, depth int) (after, peak int) {
	peak = depth
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
		case c == '/' && i+1 < len(line) && line[i+1] == '/':
			return max(depth, 0), peak
		case c == '{':
			depth++
			peak = max(peak, depth)
		case c == '}':
			depth--
		}
	}
	return max(depth, 0), peak
}

func isComment(line string) bool {
	return strings.HasPrefix(line, "//") ||
		strings.HasPrefix(line, "#") ||
		strings.HasPrefix(line, "*") ||
		strings.HasPrefix(line, "/*")
}
