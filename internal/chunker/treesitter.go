package chunker

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/Natural-Heroes/review-agent/pkg/types"
)

// MinNodeContent is the trimmed length a JS/TS node must exceed to be kept
const MinNodeContent = 20

// grammar describes how one tree-sitter language maps onto chunks
type grammar struct {
	language string
	lang     *sitter.Language

	// nodes lists the declaration node types that become chunks
	nodes map[string]types.ChunkType
	// classes are node types whose nested methods are qualified by the class name
	classes map[string]bool
	// wrapper is a node type holding decorators plus a "definition" child
	wrapper string

	// descend walks into the bodies of non-class chunks
	descend bool
	// functionsAreMethods types functions directly inside a class as methods
	functionsAreMethods bool
	// strict falls back to a whole-file chunk when the tree has syntax errors
	strict bool
	// minContent discards nodes whose trimmed content is not longer than this
	minContent int
}

func pythonGrammar() *grammar {
	return &grammar{
		language: "python",
		lang:     python.GetLanguage(),
		nodes: map[string]types.ChunkType{
			"function_definition": types.ChunkFunction,
			"class_definition":    types.ChunkClass,
		},
		classes:             map[string]bool{"class_definition": true},
		wrapper:             "decorated_definition",
		functionsAreMethods: true,
		strict:              true,
	}
}

var ecmaNodes = map[string]types.ChunkType{
	"function_declaration":           types.ChunkFunction,
	"generator_function_declaration": types.ChunkFunction,
	"function_expression":            types.ChunkFunction,
	"function":                       types.ChunkFunction,
	"arrow_function":                 types.ChunkFunction,
	"method_definition":              types.ChunkMethod,
	"class_declaration":              types.ChunkClass,
	"abstract_class_declaration":     types.ChunkClass,
	"class_expression":               types.ChunkClass,
	"class":                          types.ChunkClass,
	"interface_declaration":          types.ChunkInterface,
	"type_alias_declaration":         types.ChunkTypeDecl,
	"enum_declaration":               types.ChunkEnum,
}

var ecmaClasses = map[string]bool{
	"class_declaration":          true,
	"abstract_class_declaration": true,
	"class_expression":           true,
	"class":                      true,
}

func ecmaGrammar(language string, lang *sitter.Language) *grammar {
	return &grammar{
		language:   language,
		lang:       lang,
		nodes:      ecmaNodes,
		classes:    ecmaClasses,
		descend:    true,
		minContent: MinNodeContent,
	}
}

func javascriptGrammar(language string) *grammar {
	return ecmaGrammar(language, javascript.GetLanguage())
}

func typescriptGrammar() *grammar {
	return ecmaGrammar("typescript", typescript.GetLanguage())
}

func tsxGrammar() *grammar {
	return ecmaGrammar("tsx", tsx.GetLanguage())
}

// treeSitterChunker implements the syntax-tree strategy for tree-sitter grammars
type treeSitterChunker struct {
	g *grammar
}

func newTreeSitterChunker(g *grammar) *treeSitterChunker {
	return &treeSitterChunker{g: g}
}

// Chunk implements Chunker
func (c *treeSitterChunker) Chunk(content, filePath string) []types.Chunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	fallback := WholeFile{Language: c.g.language, ChunkType: types.ChunkModule}.Chunk(content, filePath)

	src := []byte(content)
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(c.g.lang)

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil || tree == nil {
		return fallback
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || (c.g.strict && root.HasError()) {
		return fallback
	}

	w := &nodeWalker{
		g:        c.g,
		src:      src,
		lines:    splitLines(content),
		filePath: filePath,
	}
	w.walk(root, "")

	if len(w.chunks) == 0 {
		return fallback
	}
	return w.chunks
}

// nodeWalker performs a pre-order traversal collecting chunks
type nodeWalker struct {
	g        *grammar
	src      []byte
	lines    sourceLines
	filePath string
	chunks   []types.Chunk
}

func (w *nodeWalker) walk(n *sitter.Node, class string) {
	if n == nil {
		return
	}

	if n.IsNamed() {
		typ := n.Type()
		if w.g.wrapper != "" && typ == w.g.wrapper {
			if def := n.ChildByFieldName("definition"); def != nil {
				if _, ok := w.g.nodes[def.Type()]; ok {
					w.visit(def, class, n)
					return
				}
			}
		}
		if _, ok := w.g.nodes[typ]; ok {
			w.visit(n, class, nil)
			return
		}
	}

	w.walkChildren(n, class)
}

func (w *nodeWalker) walkChildren(n *sitter.Node, class string) {
	for i := 0; i < int(n.ChildCount()); i++ {
		w.walk(n.Child(i), class)
	}
}

// visit emits a chunk for a declaration node and decides whether to descend.
// wrapper is the decorated definition enclosing n, if any.
func (w *nodeWalker) visit(n *sitter.Node, class string, wrapper *sitter.Node) {
	typ := n.Type()
	chunkType := w.g.nodes[typ]
	name := w.nodeName(n)

	if class != "" && (chunkType == types.ChunkMethod || (w.g.functionsAreMethods && chunkType == types.ChunkFunction)) {
		chunkType = types.ChunkMethod
		if name != "" {
			name = class + "." + name
		}
	}

	if w.significant(n, wrapper) {
		start := w.startRow(n, wrapper) + 1
		end := endRow(n) + 1
		w.chunks = append(w.chunks, types.Chunk{
			Content:   w.lines.slice(start, end),
			FilePath:  w.filePath,
			StartLine: start,
			EndLine:   end,
			ChunkType: chunkType,
			Name:      name,
			Language:  w.g.language,
		})
	}

	switch {
	case w.g.classes[typ]:
		inner := class
		if plain := w.nodeName(n); plain != "" {
			inner = plain
		}
		w.walkChildren(n, inner)
	case w.g.descend:
		w.walkChildren(n, "")
	}
}

// significant reports whether the node's own text, or that of its decorator
// or export wrapper, is longer than the grammar's minimum. Lines around the
// node do not count.
func (w *nodeWalker) significant(n, wrapper *sitter.Node) bool {
	outer := n
	if wrapper != nil {
		outer = wrapper
	} else if parent := n.Parent(); parent != nil && parent.Type() == "export_statement" {
		outer = parent
	}
	return len(strings.TrimSpace(outer.Content(w.src))) > w.g.minContent
}

// startRow returns the earliest row among the node, an enclosing wrapper and
// any attached decorators
func (w *nodeWalker) startRow(n, wrapper *sitter.Node) int {
	row := int(n.StartPoint().Row)
	if wrapper != nil {
		row = min(row, int(wrapper.StartPoint().Row))
	}

	for sib := n.PrevNamedSibling(); sib != nil && sib.Type() == "decorator"; sib = sib.PrevNamedSibling() {
		row = min(row, int(sib.StartPoint().Row))
	}

	if parent := n.Parent(); parent != nil && parent.Type() == "export_statement" {
		for i := 0; i < int(parent.NamedChildCount()); i++ {
			if child := parent.NamedChild(i); child.Type() == "decorator" {
				row = min(row, int(child.StartPoint().Row))
			}
		}
	}

	return row
}

// endRow returns the last row holding node text. A node ending at column 0
// ends with a newline, so its text stops on the previous row.
func endRow(n *sitter.Node) int {
	end := n.EndPoint()
	row := int(end.Row)
	if end.Column == 0 && row > int(n.StartPoint().Row) {
		row--
	}
	return row
}

var nameNodeTypes = map[string]bool{
	"identifier":                  true,
	"property_identifier":         true,
	"type_identifier":             true,
	"private_property_identifier": true,
}

var anonymousNodeTypes = map[string]bool{
	"arrow_function":      true,
	"function_expression": true,
	"function":            true,
	"class":               true,
	"class_expression":    true,
}

// nodeName finds a declaration's name: the "name" field, then the binding an
// anonymous function or class is assigned to, then the first identifier-like
// child (descending one level into variable declarators).
func (w *nodeWalker) nodeName(n *sitter.Node) string {
	if field := n.ChildByFieldName("name"); field != nil {
		return field.Content(w.src)
	}

	if anonymousNodeTypes[n.Type()] {
		if name := w.bindingName(n.Parent()); name != "" {
			return name
		}
		return ""
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if nameNodeTypes[child.Type()] {
			return child.Content(w.src)
		}
		if child.Type() == "variable_declarator" {
			if id := child.ChildByFieldName("name"); id != nil {
				return id.Content(w.src)
			}
		}
	}
	return ""
}

// bindingName returns the name a value is bound to by its parent node
func (w *nodeWalker) bindingName(parent *sitter.Node) string {
	if parent == nil {
		return ""
	}

	var target *sitter.Node
	switch parent.Type() {
	case "variable_declarator", "public_field_definition", "field_definition":
		target = parent.ChildByFieldName("name")
		if target == nil {
			target = parent.ChildByFieldName("property")
		}
	case "pair":
		target = parent.ChildByFieldName("key")
	case "assignment_expression":
		target = parent.ChildByFieldName("left")
	}

	if target == nil || !(nameNodeTypes[target.Type()] || target.Type() == "member_expression") {
		return ""
	}
	return target.Content(w.src)
}
