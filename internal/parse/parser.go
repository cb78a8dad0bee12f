package parse

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/veracity-dev/ess/internal/model"
)

// Result is everything C2 extracts from one File: its symbol table,
// the DEFINES edges between its symbols, and every call and import
// target it names, recorded as external references.
type Result struct {
	Entities []model.CodeEntity
	Edges    []model.Edge
	External []ExternalRef
}

// ExternalRef is a call or import target seen in the file. Parse does
// not check it against the CodeEntities of the same file, so calls to
// symbols defined in the file are recorded here too. The ingest
// pipeline materializes these as External-placeholder nodes (spec
// §4.2) rather than dropping the edge.
type ExternalRef struct {
	Name string
	Kind string // "call" | "import"
}

// Parser wraps a tree-sitter parser over a fixed language registry.
// Not safe for concurrent use; callers pool one Parser per goroutine.
type Parser struct {
	ts       *sitter.Parser
	registry *Registry
}

// New builds a Parser with the default language registry.
func New() *Parser {
	return &Parser{ts: sitter.NewParser(), registry: NewRegistry()}
}

// Close releases the underlying tree-sitter parser.
func (p *Parser) Close() {
	if p.ts != nil {
		p.ts.Close()
	}
}

// Parse extracts code entities and edges from source for the given
// project-scoped file path and language. Unsupported languages yield
// an empty Result rather than an error — a File node still exists
// without any CodeEntity children.
func (p *Parser) Parse(ctx context.Context, project, path, language string, source []byte) (Result, error) {
	spec, ok := p.registry.Get(language)
	if !ok {
		return Result{}, nil
	}

	p.ts.SetLanguage(spec.Grammar)
	tree, err := p.ts.ParseCtx(ctx, nil, source)
	if err != nil {
		return Result{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if tree == nil {
		return Result{}, fmt.Errorf("parse %s: nil tree", path)
	}
	defer tree.Close()

	ext := &extraction{
		project: project,
		path:    path,
		spec:    spec,
		source:  source,
	}
	ext.walk(tree.RootNode(), nil)

	sort.Slice(ext.entities, func(i, j int) bool {
		if ext.entities[i].StartLine != ext.entities[j].StartLine {
			return ext.entities[i].StartLine < ext.entities[j].StartLine
		}
		return ext.entities[i].QualifiedName < ext.entities[j].QualifiedName
	})
	sort.Slice(ext.edges, func(i, j int) bool {
		if ext.edges[i].Source != ext.edges[j].Source {
			return ext.edges[i].Source < ext.edges[j].Source
		}
		return ext.edges[i].Target < ext.edges[j].Target
	})

	return Result{Entities: ext.entities, Edges: ext.edges, External: ext.external}, nil
}

// extraction accumulates results while walking one file's AST.
type extraction struct {
	project string
	path    string
	spec    *LanguageSpec
	source  []byte

	entities []model.CodeEntity
	edges    []model.Edge
	external []ExternalRef
}

// walk recurses the tree, tracking the enclosing symbol's uid (for
// DEFINES edges) and its qualified name prefix (for nested methods).
func (e *extraction) walk(n *sitter.Node, enclosing *model.CodeEntity) {
	if n == nil {
		return
	}

	kind, isSymbol := e.classify(n, enclosing)
	current := enclosing
	if isSymbol {
		name := e.extractName(n)
		if name != "" {
			qualified := name
			if enclosing != nil {
				qualified = enclosing.QualifiedName + "." + name
			}
			entity := model.CodeEntity{
				UID:           model.SymbolUID(e.project, e.path, qualified),
				Project:       e.project,
				Kind:          kind,
				Name:          name,
				QualifiedName: qualified,
				Path:          e.path,
				StartLine:     int(n.StartPoint().Row) + 1,
				EndLine:       int(n.EndPoint().Row) + 1,
				IsAsync:       strings.Contains(string(e.source[n.StartByte():min(n.EndByte(), n.StartByte()+64)]), "async"),
				Signature:     e.signatureLine(n),
			}
			e.entities = append(e.entities, entity)
			if enclosing != nil {
				e.edges = append(e.edges, model.Edge{
					Project: e.project, Type: model.EdgeDefines,
					Source: enclosing.UID, Target: entity.UID,
				})
			}
			current = &entity
		}
	}

	if e.spec.ImportTypes[n.Type()] {
		if target := e.extractImportTarget(n); target != "" {
			e.external = append(e.external, ExternalRef{Name: target, Kind: "import"})
		}
	}

	if e.spec.CallTypes[n.Type()] && current != nil {
		if callee := e.extractCalleeName(n); callee != "" {
			e.external = append(e.external, ExternalRef{Name: callee, Kind: "call"})
		}
	}

	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		e.walk(n.Child(i), current)
	}
}

func (e *extraction) classify(n *sitter.Node, enclosing *model.CodeEntity) (model.CodeEntityKind, bool) {
	t := n.Type()
	switch {
	case e.spec.MethodTypes[t]:
		return model.KindMethod, true
	case e.spec.ClassTypes[t]:
		return model.KindClass, true
	case e.spec.FunctionTypes[t]:
		if enclosing != nil && enclosing.Kind == model.KindClass {
			return model.KindMethod, true
		}
		return model.KindFunction, true
	default:
		return "", false
	}
}

func (e *extraction) extractName(n *sitter.Node) string {
	for _, field := range e.spec.NameFieldOrder {
		if child := n.ChildByFieldName(field); child != nil {
			return string(e.source[child.StartByte():child.EndByte()])
		}
	}
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		c := n.Child(i)
		if c.Type() == "identifier" || c.Type() == "property_identifier" || c.Type() == "type_identifier" {
			return string(e.source[c.StartByte():c.EndByte()])
		}
	}
	return ""
}

func (e *extraction) extractCalleeName(n *sitter.Node) string {
	fn := n.ChildByFieldName("function")
	if fn == nil && n.ChildCount() > 0 {
		fn = n.Child(0)
	}
	if fn == nil {
		return ""
	}
	text := string(e.source[fn.StartByte():fn.EndByte()])
	if idx := strings.LastIndexByte(text, '.'); idx >= 0 {
		return text[idx+1:]
	}
	return text
}

func (e *extraction) extractImportTarget(n *sitter.Node) string {
	var deepest *sitter.Node
	var visit func(node *sitter.Node)
	visit = func(node *sitter.Node) {
		if node.Type() == "interpreted_string_literal" || node.Type() == "string" {
			deepest = node
			return
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			visit(node.Child(i))
		}
	}
	visit(n)
	if deepest == nil {
		return ""
	}
	return strings.Trim(string(e.source[deepest.StartByte():deepest.EndByte()]), "\"'")
}

func (e *extraction) signatureLine(n *sitter.Node) string {
	start := int(n.StartPoint().Row)
	end := start
	if end > int(n.EndPoint().Row) {
		end = int(n.EndPoint().Row)
	}
	lines := strings.Split(string(e.source), "\n")
	if start < 0 || start >= len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[start])
}
