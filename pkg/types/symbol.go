package types

import (
	"errors"
	"go/token"
)

// SymbolKind represents the declaration kind of a symbol
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindMethod    SymbolKind = "method"
	KindStruct    SymbolKind = "struct"
	KindInterface SymbolKind = "interface"
	KindType      SymbolKind = "type"
	KindClass     SymbolKind = "class"
	KindConst     SymbolKind = "const"
	KindVar       SymbolKind = "var"
	KindField     SymbolKind = "field"
)

// SymbolCategory groups kinds the way the re-ranker weighs them.
type SymbolCategory string

const (
	CategoryClass  SymbolCategory = "class"
	CategoryMethod SymbolCategory = "method"
	CategoryField  SymbolCategory = "field"
)

// Position represents a location in source code
type Position struct {
	Line   int
	Column int
}

// Symbol is a named declaration extracted from a source file
type Symbol struct {
	Name     string
	Kind     SymbolKind
	Receiver string // methods only
	Path     string
	Start    Position
	End      Position
}

// Category maps the symbol kind onto class, method or field.
func (s *Symbol) Category() SymbolCategory {
	switch s.Kind {
	case KindStruct, KindInterface, KindType, KindClass:
		return CategoryClass
	case KindFunction, KindMethod:
		return CategoryMethod
	default:
		return CategoryField
	}
}

// ValidateKind checks if the symbol kind is valid
func (s *Symbol) ValidateKind() error {
	switch s.Kind {
	case KindFunction, KindMethod, KindStruct, KindInterface, KindType, KindClass, KindConst, KindVar, KindField:
		return nil
	default:
		return errors.New("invalid symbol kind")
	}
}

// IsExported reports whether the name starts with an upper-case letter
func (s *Symbol) IsExported() bool {
	return token.IsExported(s.Name)
}

// Validate performs comprehensive validation of the symbol
func (s *Symbol) Validate() error {
	if s.Name == "" {
		return errors.New("symbol name is required")
	}

	if err := s.ValidateKind(); err != nil {
		return err
	}

	if s.Kind == KindMethod && s.Receiver == "" {
		return errors.New("methods must have a receiver type")
	}

	if s.Start.Line <= 0 || s.End.Line <= 0 {
		return errors.New("invalid position: line numbers must be positive")
	}

	if s.Start.Line > s.End.Line {
		return errors.New("invalid position: start line must be before or equal to end line")
	}

	return nil
}
