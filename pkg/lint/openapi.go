package lint

import (
	"fmt"
	"strings"

	"github.com/pb33f/libopenapi"

	"github.com/chorbdd/chor/pkg/ast"
	"github.com/chorbdd/chor/pkg/loader"
)

// endpoint is the method+path pair declared by an OpenAPI document, enough
// to cross-check a `Web http_*` action's URL against. Modelled on the
// teacher's spec_ingester.ParsedEndpoint, trimmed to what CheckOpenAPI
// needs.
type endpoint struct {
	Method string
	Path   string
}

// loadEndpoints parses doc with pb33f/libopenapi and walks its v3 paths,
// exactly as the teacher's OpenAPIParser.Parse does, but collecting only
// method+path pairs instead of the full ParsedSpec.
func loadEndpoints(doc []byte) ([]endpoint, error) {
	document, err := libopenapi.NewDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("lint: parsing OpenAPI document: %w", err)
	}
	model, err := document.BuildV3Model()
	if err != nil {
		return nil, fmt.Errorf("lint: building OpenAPI v3 model: %w", err)
	}

	var endpoints []endpoint
	if model.Model.Paths == nil {
		return endpoints, nil
	}
	for pair := model.Model.Paths.PathItems.First(); pair != nil; pair = pair.Next() {
		path := pair.Key()
		item := pair.Value()
		ops := map[string]bool{
			"GET":    item.Get != nil,
			"POST":   item.Post != nil,
			"PUT":    item.Put != nil,
			"PATCH":  item.Patch != nil,
			"DELETE": item.Delete != nil,
		}
		for method, declared := range ops {
			if declared {
				endpoints = append(endpoints, endpoint{Method: method, Path: path})
			}
		}
	}
	return endpoints, nil
}

var verbMethod = map[string]string{
	"http_get":    "GET",
	"http_post":   "POST",
	"http_put":    "PUT",
	"http_patch":  "PATCH",
	"http_delete": "DELETE",
}

// CheckOpenAPI cross-checks every `Web http_*` action in plan against doc,
// the OpenAPI document named by the file's `openapi_ref` setting, emitting
// a W-OAS-UNKNOWN-ENDPOINT diagnostic for a call whose method is declared
// nowhere in the document for any path the call's URL contains.
func CheckOpenAPI(plan *loader.Plan, doc []byte) ([]Diagnostic, error) {
	endpoints, err := loadEndpoints(doc)
	if err != nil {
		return nil, err
	}

	var diags []Diagnostic
	walk := func(steps []ast.Step) {
		for _, s := range steps {
			if s.Action == nil {
				continue
			}
			method, ok := verbMethod[s.Action.Verb]
			if !ok || len(s.Action.Args) == 0 {
				continue
			}
			url := s.Action.Args[0]
			if !matchesAnyEndpoint(method, url, endpoints) {
				diags = append(diags, Diagnostic{
					Code:     "W-OAS-UNKNOWN-ENDPOINT",
					Severity: SeverityWarning,
					Pos:      s.Action.Pos,
					Message:  fmt.Sprintf("%s %q has no matching path in the declared OpenAPI document", method, url),
				})
			}
		}
	}
	for _, sc := range plan.Scenarios {
		for _, t := range sc.Tests {
			walk(t.Given)
			walk(t.When)
			walk(t.Then)
		}
		walk(sc.After)
	}
	return diags, nil
}

// matchesAnyEndpoint does a substring match of the declared path against
// the call's (possibly templated, possibly absolute) URL, the same
// simplified matching the teacher's parser notes as a deliberate
// simplification rather than full URI-template resolution.
func matchesAnyEndpoint(method, url string, endpoints []endpoint) bool {
	for _, e := range endpoints {
		if e.Method != method {
			continue
		}
		if strings.Contains(url, e.Path) {
			return true
		}
	}
	return false
}
