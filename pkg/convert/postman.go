// Package convert implements the supplemented `chor convert` command:
// exporting a plan's Web scenarios as a Postman v2.1 collection, and
// importing a Postman collection as a skeleton `.chor` feature file.
// Grounded on the teacher's hand-rolled
// pkg/core/tools/spec_ingester/postman_parser.go, which already walks the
// same github.com/rbretecher/go-postman-collection tree for the opposite
// direction (Postman -> internal model, here internal model -> Postman and
// back to source text rather than to a model struct).
package convert

import (
	"fmt"
	"io"
	"strings"

	postman "github.com/rbretecher/go-postman-collection"

	"github.com/chorbdd/chor/pkg/ast"
	"github.com/chorbdd/chor/pkg/loader"
)

var methodFor = map[string]postman.Method{
	"http_get":    postman.Get,
	"http_post":   postman.Post,
	"http_put":    postman.Put,
	"http_patch":  postman.Patch,
	"http_delete": postman.Delete,
}

var verbForMethod = map[postman.Method]string{
	postman.Get:    "http_get",
	postman.Post:   "http_post",
	postman.Put:    "http_put",
	postman.Patch:  "http_patch",
	postman.Delete: "http_delete",
}

// ToPostman builds a Postman v2.1 collection from every `Web http_*` action
// in plan, one folder per scenario and one request item per HTTP action, the same
// "walk Given/When/Then, emit one entry per HTTP action" shape the
// teacher's processItems walks in reverse.
func ToPostman(plan *loader.Plan) *postman.Collection {
	c := postman.CreateCollection(plan.Feature, fmt.Sprintf("Exported from %s.chor", plan.Feature))

	for _, sc := range plan.Scenarios {
		folder := c.AddItemGroup(sc.Name)
		for _, t := range sc.Tests {
			for _, s := range allSteps(t) {
				if s.Action == nil {
					continue
				}
				method, ok := methodFor[s.Action.Verb]
				if !ok || len(s.Action.Args) == 0 {
					continue
				}
				item := postman.CreateItem(postman.Item{
					Name: fmt.Sprintf("%s: %s", t.ID, s.Action.Verb),
					Request: &postman.Request{
						URL:    &postman.URL{Raw: s.Action.Args[0]},
						Method: method,
					},
				})
				folder.AddItem(item)
			}
		}
	}
	return c
}

// WritePostman encodes c as JSON to w.
func WritePostman(w io.Writer, c *postman.Collection) error {
	return c.Write(w, postman.V210)
}

func allSteps(t loader.Test) []ast.Step {
	steps := make([]ast.Step, 0, len(t.Given)+len(t.When)+len(t.Then))
	steps = append(steps, t.Given...)
	steps = append(steps, t.When...)
	steps = append(steps, t.Then...)
	return steps
}

// FromPostman parses a Postman v2.1 collection and renders a skeleton
// `.chor` feature file: one scenario per top-level folder (or one flat
// scenario if the collection has none), one trivial test per request that
// issues the request and asserts its last response succeeded. Requests in
// nested folders join their top-level folder's scenario; when the collection
// has folders, requests outside any folder are not rendered.
func FromPostman(r io.Reader) (string, error) {
	c, err := postman.ParseCollection(r)
	if err != nil {
		return "", fmt.Errorf("convert: parsing postman collection: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "feature %q\n", c.Info.Name)
	fmt.Fprintln(&b, "actor Web")
	fmt.Fprintln(&b)

	if containsGroup(c.Items) {
		for _, item := range c.Items {
			if item.IsGroup() {
				writeScenario(&b, item.Name, item.Items)
			}
		}
	} else {
		writeScenario(&b, c.Info.Name, c.Items)
	}
	return b.String(), nil
}

func containsGroup(items []*postman.Items) bool {
	for _, item := range items {
		if item.IsGroup() {
			return true
		}
	}
	return false
}

func writeScenario(b *strings.Builder, name string, items []*postman.Items) {
	fmt.Fprintf(b, "scenario %q {\n", name)
	n := 0
	for _, item := range items {
		if item.IsGroup() {
			writeScenarioItems(b, &n, item.Items)
			continue
		}
		writeTest(b, &n, item)
	}
	fmt.Fprintln(b, "}")
	fmt.Fprintln(b)
}

func writeScenarioItems(b *strings.Builder, n *int, items []*postman.Items) {
	for _, item := range items {
		if item.IsGroup() {
			writeScenarioItems(b, n, item.Items)
			continue
		}
		writeTest(b, n, item)
	}
}

func writeTest(b *strings.Builder, n *int, item *postman.Items) {
	if item.Request == nil || item.Request.URL == nil {
		return
	}
	*n++
	verb, ok := verbForMethod[item.Request.Method]
	if !ok {
		verb = "http_get"
	}
	fmt.Fprintf(b, "  test T%d %q {\n", *n, item.Name)
	fmt.Fprintln(b, "    given: Test can_start")
	fmt.Fprintf(b, "    when: Web %s %q\n", verb, item.Request.URL.Raw)
	fmt.Fprintln(b, "    then: Web response_status_is is_success")
	fmt.Fprintln(b, "  }")
}
