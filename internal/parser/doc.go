// Package parser extracts symbol declarations from source files.
//
// Go files are parsed with go/parser and every top-level function, method,
// type, const and var is reported, together with struct fields and
// interface methods. Java, Kotlin, C#, Scala, TypeScript, JavaScript, Python
// and Rust are scanned line by line with declaration patterns, which find
// classes, functions and fields but not their extent.
//
// # Basic Usage
//
//	p := parser.New()
//	result := p.Parse("internal/user/service.go", content)
//	for _, symbol := range result.Symbols {
//	    fmt.Printf("%s %s at line %d\n", symbol.Kind, symbol.Name, symbol.Start.Line)
//	}
//
// Syntax errors are recorded in result.Errors and never fail the parse; the
// symbols of a partial AST are still returned.
package parser
