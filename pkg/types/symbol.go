package types

import "errors"

// SymbolKind represents the type of declaration found by a syntax parser
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindMethod    SymbolKind = "method"
	KindStruct    SymbolKind = "struct"
	KindInterface SymbolKind = "interface"
	KindType      SymbolKind = "type"
	KindConst     SymbolKind = "const"
	KindVar       SymbolKind = "var"
)

// Position represents a location in source code
type Position struct {
	Line   int
	Column int
}

// Symbol is a top-level declaration extracted from source
type Symbol struct {
	Name     string
	Kind     SymbolKind
	Receiver string // For methods: receiver type name

	Start Position // Includes attached doc comments
	End   Position
}

// QualifiedName returns Receiver.Name for methods and Name otherwise
func (s *Symbol) QualifiedName() string {
	if s.Kind == KindMethod && s.Receiver != "" {
		return s.Receiver + "." + s.Name
	}
	return s.Name
}

// ChunkType maps the symbol kind onto the chunk taxonomy
func (s *Symbol) ChunkType() ChunkType {
	switch s.Kind {
	case KindFunction:
		return ChunkFunction
	case KindMethod:
		return ChunkMethod
	case KindStruct:
		return ChunkClass
	case KindInterface:
		return ChunkInterface
	case KindConst, KindVar:
		return ChunkVariable
	default:
		return ChunkTypeDecl
	}
}

// Validate performs comprehensive validation of the symbol
func (s *Symbol) Validate() error {
	if s.Name == "" {
		return errors.New("symbol name is required")
	}

	// Methods must have a receiver
	if s.Kind == KindMethod && s.Receiver == "" {
		return errors.New("methods must have a receiver type")
	}

	if s.Kind != KindMethod && s.Receiver != "" {
		return errors.New("only methods can have a receiver type")
	}

	if s.Start.Line <= 0 || s.End.Line <= 0 {
		return errors.New("invalid position: line numbers must be positive")
	}

	if s.Start.Line > s.End.Line {
		return errors.New("invalid position: start line must be before or equal to end line")
	}

	return nil
}
