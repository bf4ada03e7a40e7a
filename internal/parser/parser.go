package parser

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"

	"github.com/Natural-Heroes/review-agent/pkg/types"
)

// Parser handles AST-based parsing of Go source files
type Parser struct {
	mode parser.Mode
}

// New creates a new Parser instance
func New() *Parser {
	return &Parser{
		mode: parser.ParseComments | parser.SkipObjectResolution,
	}
}

// ParseSource parses Go source held in memory and extracts its top-level
// declarations. Syntax errors are recorded in the result rather than returned;
// declarations from the partial AST are still reported.
func (p *Parser) ParseSource(filePath string, content []byte) *types.ParseResult {
	result := &types.ParseResult{FilePath: filePath}
	fset := token.NewFileSet()

	file, err := parser.ParseFile(fset, filePath, content, p.mode)
	if err != nil {
		if list, ok := err.(scanner.ErrorList); ok {
			for _, e := range list {
				result.AddError(e.Pos.Line, e.Pos.Column, e.Msg)
			}
		} else {
			result.AddError(0, 0, fmt.Sprintf("syntax error: %v", err))
		}
	}

	if file == nil {
		return result
	}

	if file.Name != nil {
		result.PackageName = file.Name.Name
	}

	extractor := &symbolExtractor{
		fset:    fset,
		symbols: make([]types.Symbol, 0, len(file.Decls)),
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

// symbolExtractor collects top-level symbols from a parsed file
type symbolExtractor struct {
	fset    *token.FileSet
	symbols []types.Symbol
}

// extractFunction extracts function and method declarations
func (e *symbolExtractor) extractFunction(funcDecl *ast.FuncDecl) {
	if funcDecl.Name == nil {
		return
	}

	sym := types.Symbol{
		Name:  funcDecl.Name.Name,
		Start: e.startWithDoc(funcDecl.Doc, funcDecl.Pos()),
		End:   e.positionFromToken(funcDecl.End()),
	}

	if funcDecl.Recv != nil && len(funcDecl.Recv.List) > 0 {
		sym.Kind = types.KindMethod
		sym.Receiver = receiverTypeName(funcDecl.Recv.List[0].Type)
		if sym.Receiver == "" {
			sym.Kind = types.KindFunction
		}
	} else {
		sym.Kind = types.KindFunction
	}

	e.symbols = append(e.symbols, sym)
}

// extractGenDecl extracts type, const, and var declarations.
// Ungrouped declarations span the whole GenDecl including its keyword; in a
// parenthesized group each type gets its own symbol while const and var
// groups are kept together.
func (e *symbolExtractor) extractGenDecl(genDecl *ast.GenDecl) {
	if len(genDecl.Specs) == 0 {
		return
	}

	grouped := genDecl.Lparen.IsValid()

	switch genDecl.Tok {
	case token.TYPE:
		for _, spec := range genDecl.Specs {
			typeSpec, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			sym := types.Symbol{
				Name: typeSpec.Name.Name,
				Kind: typeKind(typeSpec),
			}
			if grouped {
				sym.Start = e.startWithDoc(typeSpec.Doc, typeSpec.Pos())
				sym.End = e.positionFromToken(typeSpec.End())
			} else {
				sym.Start = e.startWithDoc(genDecl.Doc, genDecl.Pos())
				sym.End = e.positionFromToken(genDecl.End())
			}
			e.symbols = append(e.symbols, sym)
		}
	case token.CONST, token.VAR:
		valueSpec, ok := genDecl.Specs[0].(*ast.ValueSpec)
		if !ok || len(valueSpec.Names) == 0 {
			return
		}
		kind := types.KindVar
		if genDecl.Tok == token.CONST {
			kind = types.KindConst
		}
		e.symbols = append(e.symbols, types.Symbol{
			Name:  valueSpec.Names[0].Name,
			Kind:  kind,
			Start: e.startWithDoc(genDecl.Doc, genDecl.Pos()),
			End:   e.positionFromToken(genDecl.End()),
		})
	}
}

func typeKind(typeSpec *ast.TypeSpec) types.SymbolKind {
	switch typeSpec.Type.(type) {
	case *ast.StructType:
		return types.KindStruct
	case *ast.InterfaceType:
		return types.KindInterface
	default:
		return types.KindType
	}
}

// receiverTypeName extracts the receiver type name, unwrapping pointers and
// type parameters
func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.Ident:
		return t.Name
	case *ast.IndexExpr:
		return receiverTypeName(t.X)
	case *ast.IndexListExpr:
		return receiverTypeName(t.X)
	}
	return ""
}

// startWithDoc returns the position of the attached doc comment, if any,
// otherwise the declaration position
func (e *symbolExtractor) startWithDoc(doc *ast.CommentGroup, pos token.Pos) types.Position {
	if doc != nil && doc.Pos().IsValid() && doc.Pos() < pos {
		return e.positionFromToken(doc.Pos())
	}
	return e.positionFromToken(pos)
}

// positionFromToken converts a token position to our Position type
func (e *symbolExtractor) positionFromToken(pos token.Pos) types.Position {
	position := e.fset.Position(pos)
	return types.Position{
		Line:   position.Line,
		Column: position.Column,
	}
}
