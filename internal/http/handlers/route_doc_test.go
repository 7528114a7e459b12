package handlers

import (
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"regexp"
	"strings"
	"testing"
)

var routeComment = regexp.MustCompile(`^(GET|POST|PUT|PATCH|DELETE) /\S*`)

func TestHandlerMethodsDocumentTheirRoute(t *testing.T) {
	fset := token.NewFileSet()
	pkgs, err := parser.ParseDir(fset, ".", func(fi fs.FileInfo) bool {
		return !strings.HasSuffix(fi.Name(), "_test.go")
	}, parser.ParseComments)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	checked := 0
	for _, pkg := range pkgs {
		for name, file := range pkg.Files {
			for _, decl := range file.Decls {
				fn, ok := decl.(*ast.FuncDecl)
				if !ok || fn.Recv == nil || !fn.Name.IsExported() || !takesGinContext(fn) {
					continue
				}
				checked++
				if fn.Doc == nil || !routeComment.MatchString(strings.TrimSpace(strings.TrimPrefix(fn.Doc.List[0].Text, "//"))) {
					t.Fatalf("%s: %s: want leading route comment like \"// GET /api/...\"", name, fn.Name.Name)
				}
			}
		}
	}
	if checked == 0 {
		t.Fatalf("handlers: want>0 checked got=0")
	}
}

func takesGinContext(fn *ast.FuncDecl) bool {
	params := fn.Type.Params.List
	if len(params) != 1 {
		return false
	}
	star, ok := params[0].Type.(*ast.StarExpr)
	if !ok {
		return false
	}
	sel, ok := star.X.(*ast.SelectorExpr)
	return ok && sel.Sel.Name == "Context"
}
