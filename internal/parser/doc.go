// Package parser extracts top-level declarations from Go source held in
// memory, using go/parser and go/ast.
//
//	p := parser.New()
//	result := p.ParseSource("server.go", content)
//	if result.HasErrors() {
//	    // partial AST; callers usually fall back to a whole-file chunk
//	}
//	for _, sym := range result.Symbols {
//	    fmt.Printf("%s %s lines %d-%d\n", sym.Kind, sym.QualifiedName(), sym.Start.Line, sym.End.Line)
//	}
//
// Symbols cover functions, methods (qualified by receiver type), struct,
// interface and other type declarations, and const/var declarations. A
// symbol's Start includes its doc comment so that the chunk built from it
// carries the documentation with the code.
package parser
