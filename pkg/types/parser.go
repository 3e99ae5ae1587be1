package types

import "fmt"

// ParseResult holds the declarations found in one source file. A file that
// does not parse cleanly still carries whatever could be recovered.
type ParseResult struct {
	Path        string
	Language    string // "go", "java", "python", ...; empty when unsupported
	PackageName string // Go only
	Symbols     []Symbol
	Errors      []ParseError
}

// ParseError is a syntax problem reported while extracting symbols
type ParseError struct {
	Path    string
	Line    int // 0 when the position is unknown
	Message string
}

func (pe *ParseError) Error() string {
	if pe.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", pe.Path, pe.Line, pe.Message)
	}
	return fmt.Sprintf("%s: %s", pe.Path, pe.Message)
}

// HasErrors reports whether extraction hit a syntax error
func (pr *ParseResult) HasErrors() bool {
	return len(pr.Errors) > 0
}

// AddError records a syntax error at line of the result's file.
func (pr *ParseResult) AddError(line int, msg string) {
	pr.Errors = append(pr.Errors, ParseError{Path: pr.Path, Line: line, Message: msg})
}
