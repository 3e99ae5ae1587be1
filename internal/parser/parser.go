package parser

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/codeindex/pkg/types"
)

// Parser extracts symbol declarations from source files. Go files are
// parsed with go/parser. Java, Python, JavaScript and TypeScript use
// tree-sitter when built with the treesitter tag; everything else, and those
// languages in pure Go builds, use line patterns.
type Parser struct {
	fset *token.FileSet
}

// New creates a new Parser instance
func New() *Parser {
	return &Parser{
		fset: token.NewFileSet(),
	}
}

// Supported reports whether symbols can be extracted from path
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".go" {
		return true
	}
	_, ok := languageByExt[ext]
	return ok
}

// ParseFile reads and parses a source file
func (p *Parser) ParseFile(filePath string) (*types.ParseResult, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return p.Parse(filePath, content), nil
}

// Parse extracts symbols from content. Syntax errors are recorded on the
// result and whatever could be recovered is still returned. Unsupported
// file types yield an empty result.
func (p *Parser) Parse(filePath string, content []byte) *types.ParseResult {
	path := types.NormalizePath(filePath)

	if strings.EqualFold(filepath.Ext(filePath), ".go") {
		return p.parseGo(path, content)
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	if result, ok := parseTree(path, content, ext); ok {
		return result
	}

	result := &types.ParseResult{Path: path}
	if lang, ok := languageByExt[ext]; ok {
		result.Language = lang.name
		result.Symbols = extractByPattern(path, string(content), lang)
	}
	return result
}

func (p *Parser) parseGo(path string, content []byte) *types.ParseResult {
	result := &types.ParseResult{Path: path, Language: "go"}

	file, err := parser.ParseFile(p.fset, path, content, parser.SkipObjectResolution)
	if err != nil {
		// go/parser still returns a partial AST
		line := 0
		var list scanner.ErrorList
		if errors.As(err, &list) && len(list) > 0 {
			line = list[0].Pos.Line
		}
		result.AddError(line, fmt.Sprintf("syntax error: %v", err))
	}
	if file == nil {
		return result
	}

	if file.Name != nil {
		result.PackageName = file.Name.Name
	}

	extractor := &symbolExtractor{
		fset:    p.fset,
		path:    path,
		symbols: make([]types.Symbol, 0),
	}
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			extractor.extractFunction(d)
		case *ast.GenDecl:
			extractor.extractGenDecl(d)
		}
	}
	result.Symbols = extractor.symbols

	return result
}

// symbolExtractor collects top-level declarations of one Go file
type symbolExtractor struct {
	fset    *token.FileSet
	path    string
	symbols []types.Symbol
}

func (e *symbolExtractor) add(name string, kind types.SymbolKind, receiver string, node ast.Node) {
	if name == "_" || name == "" {
		return
	}
	e.symbols = append(e.symbols, types.Symbol{
		Name:     name,
		Kind:     kind,
		Receiver: receiver,
		Path:     e.path,
		Start:    e.positionFromToken(node.Pos()),
		End:      e.positionFromToken(node.End()),
	})
}

// extractFunction extracts function and method declarations
func (e *symbolExtractor) extractFunction(funcDecl *ast.FuncDecl) {
	if funcDecl.Recv != nil && len(funcDecl.Recv.List) > 0 {
		e.add(funcDecl.Name.Name, types.KindMethod, receiverType(funcDecl.Recv.List[0].Type), funcDecl)
		return
	}
	e.add(funcDecl.Name.Name, types.KindFunction, "", funcDecl)
}

// extractGenDecl extracts type, const, and var declarations
func (e *symbolExtractor) extractGenDecl(genDecl *ast.GenDecl) {
	for _, spec := range genDecl.Specs {
		switch s := spec.(type) {
		case *ast.TypeSpec:
			e.extractTypeSpec(s)
		case *ast.ValueSpec:
			kind := types.KindVar
			if genDecl.Tok == token.CONST {
				kind = types.KindConst
			}
			for _, name := range s.Names {
				e.add(name.Name, kind, "", s)
			}
		}
	}
}

// extractTypeSpec extracts struct, interface, and other type declarations.
// Struct fields and interface methods become symbols of their own.
func (e *symbolExtractor) extractTypeSpec(typeSpec *ast.TypeSpec) {
	name := typeSpec.Name.Name

	switch t := typeSpec.Type.(type) {
	case *ast.StructType:
		e.add(name, types.KindStruct, "", typeSpec)
		if t.Fields == nil {
			return
		}
		for _, field := range t.Fields.List {
			for _, fieldName := range field.Names {
				e.add(fieldName.Name, types.KindField, name, field)
			}
		}
	case *ast.InterfaceType:
		e.add(name, types.KindInterface, "", typeSpec)
		if t.Methods == nil {
			return
		}
		for _, method := range t.Methods.List {
			if _, ok := method.Type.(*ast.FuncType); !ok {
				continue // embedded interface
			}
			for _, methodName := range method.Names {
				e.add(methodName.Name, types.KindMethod, name, method)
			}
		}
	default:
		e.add(name, types.KindType, "", typeSpec)
	}
}

// receiverType extracts the receiver type name, dropping pointers and type
// parameters
func receiverType(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverType(t.X)
	case *ast.IndexExpr:
		return receiverType(t.X)
	case *ast.IndexListExpr:
		return receiverType(t.X)
	case *ast.Ident:
		return t.Name
	}
	return ""
}

// positionFromToken converts a token position to our Position type
func (e *symbolExtractor) positionFromToken(pos token.Pos) types.Position {
	position := e.fset.Position(pos)
	return types.Position{
		Line:   position.Line,
		Column: position.Column,
	}
}
