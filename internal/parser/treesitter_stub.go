//go:build !treesitter || !cgo

package parser

import "github.com/dshills/codeindex/pkg/types"

// TreeSitter reports whether syntax-tree extraction is compiled in
const TreeSitter = false

// parseTree is unavailable in pure Go builds; every language uses patterns.
func parseTree(string, []byte, string) (*types.ParseResult, bool) {
	return nil, false
}
