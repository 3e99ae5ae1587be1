//go:build treesitter && cgo

package parser

// Built with -tags treesitter (and cgo) to extract Java, Python, JavaScript
// and TypeScript symbols from syntax trees. Other languages keep using the
// line patterns.

import (
	"strings"
	"unicode"
	"unsafe"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_js "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_ts "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/dshills/codeindex/pkg/types"
)

// TreeSitter reports whether syntax-tree extraction is compiled in
const TreeSitter = true

type grammar struct {
	name     string
	language func() unsafe.Pointer
	// kinds maps declaration node kinds to symbol kinds
	kinds map[string]types.SymbolKind
	// owners are the node kinds whose name becomes a member's receiver
	owners map[string]struct{}
}

var (
	javaGrammar = grammar{
		name:     "java",
		language: tree_sitter_java.Language,
		kinds: map[string]types.SymbolKind{
			"class_declaration":     types.KindClass,
			"interface_declaration": types.KindClass,
			"enum_declaration":      types.KindClass,
			"record_declaration":    types.KindClass,
			"method_declaration":    types.KindMethod,
			"field_declaration":     types.KindField,
		},
		owners: map[string]struct{}{
			"class_declaration":     {},
			"interface_declaration": {},
			"enum_declaration":      {},
			"record_declaration":    {},
		},
	}

	pythonGrammar = grammar{
		name:     "python",
		language: tree_sitter_python.Language,
		kinds: map[string]types.SymbolKind{
			"class_definition":    types.KindClass,
			"function_definition": types.KindFunction,
			"assignment":          types.KindConst,
		},
		owners: map[string]struct{}{"class_definition": {}},
	}

	scriptKinds = map[string]types.SymbolKind{
		"class_declaration":              types.KindClass,
		"abstract_class_declaration":     types.KindClass,
		"interface_declaration":          types.KindClass,
		"type_alias_declaration":         types.KindClass,
		"enum_declaration":               types.KindClass,
		"function_declaration":           types.KindFunction,
		"generator_function_declaration": types.KindFunction,
		"method_definition":              types.KindMethod,
		"variable_declarator":            types.KindVar,
	}
	scriptOwners = map[string]struct{}{
		"class_declaration":          {},
		"abstract_class_declaration": {},
	}

	javascriptGrammar = grammar{name: "javascript", language: tree_sitter_js.Language, kinds: scriptKinds, owners: scriptOwners}
	typescriptGrammar = grammar{name: "typescript", language: tree_sitter_ts.LanguageTypescript, kinds: scriptKinds, owners: scriptOwners}
	tsxGrammar        = grammar{name: "typescript", language: tree_sitter_ts.LanguageTSX, kinds: scriptKinds, owners: scriptOwners}
)

var grammarByExt = map[string]grammar{
	".java": javaGrammar,
	".py":   pythonGrammar,
	".js":   javascriptGrammar,
	".jsx":  javascriptGrammar,
	".mjs":  javascriptGrammar,
	".cjs":  javascriptGrammar,
	".ts":   typescriptGrammar,
	".tsx":  tsxGrammar,
}

// parseTree extracts symbols with tree-sitter. ok is false when ext has no
// grammar and the caller should fall back to patterns.
func parseTree(path string, content []byte, ext string) (result *types.ParseResult, ok bool) {
	g, ok := grammarByExt[ext]
	if !ok {
		return nil, false
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(tree_sitter.NewLanguage(g.language())); err != nil {
		return nil, false
	}

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, false
	}
	defer tree.Close()

	result = &types.ParseResult{Path: path, Language: g.name}
	root := tree.RootNode()
	if root == nil {
		return result, true
	}
	if root.HasError() {
		result.AddError(firstErrorLine(root), "syntax error")
	}

	x := treeExtractor{grammar: g, path: path, src: content}
	x.walk(root)
	result.Symbols = x.symbols
	return result, true
}

type treeExtractor struct {
	grammar
	path    string
	src     []byte
	symbols []types.Symbol
}

func (x *treeExtractor) walk(n *tree_sitter.Node) {
	if n == nil {
		return
	}
	if kind, ok := x.kinds[n.Kind()]; ok {
		x.declare(n, kind)
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		x.walk(n.NamedChild(i))
	}
}

func (x *treeExtractor) declare(n *tree_sitter.Node, kind types.SymbolKind) {
	switch n.Kind() {
	case "field_declaration":
		// int a, b = 2;
		for i := uint(0); i < n.NamedChildCount(); i++ {
			if d := n.NamedChild(i); d != nil && d.Kind() == "variable_declarator" {
				x.add(x.text(d.ChildByFieldName("name")), kind, n)
			}
		}
		return
	case "variable_declarator":
		if !topLevel(n) {
			return
		}
		if v := n.ChildByFieldName("value"); v != nil {
			switch v.Kind() {
			case "arrow_function", "function_expression", "function", "generator_function":
				kind = types.KindFunction
			}
		}
	case "assignment":
		// module-level CONSTANT = ...
		name := x.text(n.ChildByFieldName("left"))
		if !topLevel(n) || !isConstName(name) {
			return
		}
		x.add(name, kind, n)
		return
	}
	x.add(x.text(n.ChildByFieldName("name")), kind, n)
}

func (x *treeExtractor) add(name string, kind types.SymbolKind, n *tree_sitter.Node) {
	if name == "" {
		return
	}
	start, end := n.StartPosition(), n.EndPosition()
	sym := types.Symbol{
		Name:  name,
		Kind:  kind,
		Path:  x.path,
		Start: types.Position{Line: int(start.Row) + 1, Column: int(start.Column) + 1},
		End:   types.Position{Line: int(end.Row) + 1, Column: int(end.Column) + 1},
	}
	switch kind {
	case types.KindMethod, types.KindField, types.KindFunction:
		sym.Receiver = x.owner(n)
	}
	x.symbols = append(x.symbols, sym)
}

// owner returns the name of the closest enclosing class
func (x *treeExtractor) owner(n *tree_sitter.Node) string {
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		if _, ok := x.owners[cur.Kind()]; ok {
			return x.text(cur.ChildByFieldName("name"))
		}
	}
	return ""
}

func (x *treeExtractor) text(n *tree_sitter.Node) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.Utf8Text(x.src))
}

// topLevel reports whether n sits in a module-level statement, looking
// through export and declaration wrappers.
func topLevel(n *tree_sitter.Node) bool {
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		switch cur.Kind() {
		case "program", "module":
			return true
		case "lexical_declaration", "variable_declaration", "export_statement", "expression_statement":
			continue
		default:
			return false
		}
	}
	return false
}

func isConstName(name string) bool {
	if name == "" || !unicode.IsUpper(rune(name[0])) {
		return false
	}
	for _, r := range name {
		if r != '_' && !unicode.IsUpper(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func firstErrorLine(n *tree_sitter.Node) int {
	if n.IsError() || n.IsMissing() {
		return int(n.StartPosition().Row) + 1
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		if c := n.Child(i); c != nil && c.HasError() {
			return firstErrorLine(c)
		}
	}
	return 0
}
