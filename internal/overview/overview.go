// Package overview condenses a source file into its structural headers:
// imports plus the signature line of every declaration. The refinement
// engine feeds overviews to the model as cheap evidence before paying for
// raw file content.
//
// Dispatch is by file extension. Extensions without a registered extractor
// report ErrUnsupported; callers fall back to raw content instead of
// treating the file as unreadable.
package overview

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// ErrUnsupported reports a file extension with no registered extractor.
var ErrUnsupported = errors.New("overview: unsupported file type")

// Extractor produces a structural overview of one source file.
type Extractor struct {
	parser   *sitter.Parser
	language string
	// node types whose header line belongs in the overview
	decls map[string]bool
	// node types carrying import statements
	imports map[string]bool
}

// containers are declaration kinds whose members are listed too; function
// bodies are never descended into.
var containers = map[string]bool{
	"class_declaration":     true,
	"class_definition":      true,
	"decorated_definition":  true,
	"interface_declaration": true,
	"enum_declaration":      true,
}

// Registry maps file extensions to shared extractor instances.
type Registry struct {
	byExt map[string]*Extractor
}

// NewRegistry builds the default registry covering Go, Python,
// JavaScript/TypeScript and Java.
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]*Extractor)}

	goExt := newExtractor("go", golang.GetLanguage(),
		[]string{"function_declaration", "method_declaration", "type_declaration", "const_declaration", "var_declaration"},
		[]string{"import_declaration"})
	r.register(goExt, ".go")

	pyExt := newExtractor("python", python.GetLanguage(),
		[]string{"function_definition", "class_definition", "decorated_definition"},
		[]string{"import_statement", "import_from_statement"})
	r.register(pyExt, ".py")

	jsDecls := []string{
		"function_declaration", "generator_function_declaration", "class_declaration",
		"lexical_declaration", "variable_declaration", "export_statement",
		"method_definition",
	}
	jsImports := []string{"import_statement"}
	r.register(newExtractor("javascript", javascript.GetLanguage(), jsDecls, jsImports),
		".js", ".jsx", ".mjs", ".cjs")
	r.register(newExtractor("typescript", typescript.GetLanguage(),
		append(jsDecls, "interface_declaration", "type_alias_declaration", "enum_declaration"),
		jsImports),
		".ts", ".tsx")

	javaExt := newExtractor("java", java.GetLanguage(),
		[]string{"class_declaration", "interface_declaration", "enum_declaration", "method_declaration", "constructor_declaration", "field_declaration"},
		[]string{"import_declaration"})
	r.register(javaExt, ".java")

	return r
}

func (r *Registry) register(e *Extractor, exts ...string) {
	for _, ext := range exts {
		r.byExt[ext] = e
	}
}

// Supported reports whether an overview can be extracted for the path.
func (r *Registry) Supported(p string) bool {
	_, ok := r.byExt[strings.ToLower(path.Ext(p))]
	return ok
}

// Extract returns the structural overview for the file, or ErrUnsupported
// when its extension has no extractor.
func (r *Registry) Extract(p string, content []byte) (string, error) {
	e, ok := r.byExt[strings.ToLower(path.Ext(p))]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, path.Ext(p))
	}
	return e.extract(content)
}

func newExtractor(language string, lang *sitter.Language, decls, imports []string) *Extractor {
	p := sitter.NewParser()
	p.SetLanguage(lang)
	e := &Extractor{
		parser:   p,
		language: language,
		decls:    make(map[string]bool, len(decls)),
		imports:  make(map[string]bool, len(imports)),
	}
	for _, d := range decls {
		e.decls[d] = true
	}
	for _, i := range imports {
		e.imports[i] = true
	}
	return e
}

func (e *Extractor) extract(content []byte) (string, error) {
	tree, err := e.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return "", err
	}
	defer tree.Close()

	var b strings.Builder
	e.walk(tree.RootNode(), content, &b)
	return strings.TrimRight(b.String(), "\n"), nil
}

func (e *Extractor) walk(node *sitter.Node, content []byte, b *strings.Builder) {
	if node == nil {
		return
	}
	typ := node.Type()
	switch {
	case e.imports[typ]:
		fmt.Fprintf(b, "%s\n", collapseWhitespace(node.Content(content)))
		return
	case e.decls[typ]:
		line := int(node.StartPoint().Row) + 1
		fmt.Fprintf(b, "L%d: %s\n", line, headerLine(node.Content(content)))
		if containers[typ] {
			for i := 0; i < int(node.ChildCount()); i++ {
				e.walk(node.Child(i), content, b)
			}
		}
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		e.walk(node.Child(i), content, b)
	}
}

// headerLine trims a declaration down to its signature: everything before
// the body opener (or the first line break, for colon-bodied languages),
// collapsed to one line.
func headerLine(src string) string {
	if i := strings.IndexByte(src, '{'); i >= 0 {
		src = src[:i]
	}
	if i := strings.IndexByte(src, '\n'); i >= 0 {
		src = src[:i]
	}
	return collapseWhitespace(src)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
