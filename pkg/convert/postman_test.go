package convert

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chorbdd/chor/pkg/loader"
	"github.com/chorbdd/chor/pkg/parser"
)

func noEnv(string) (string, bool) { return "", false }

func TestToPostmanIncludesHTTPActions(t *testing.T) {
	f, err := parser.Parse(`
feature "orders"
actor Web
scenario "checkout" {
  test T "desc" {
    given: Test can_start
    when: Web http_post "https://api.example.com/orders"
    then: Web response_status_is 201
  }
}
`)
	require.NoError(t, err)
	plan, err := loader.Load(f, noEnv)
	require.NoError(t, err)

	c := ToPostman(plan)
	var buf bytes.Buffer
	require.NoError(t, WritePostman(&buf, c))
	assert.Contains(t, buf.String(), "api.example.com/orders")
}

func TestFromPostmanProducesChorSource(t *testing.T) {
	collectionJSON := `{
  "info": {"name": "orders", "schema": "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"},
  "item": [
    {"name": "create order", "request": {"method": "POST", "url": {"raw": "https://api.example.com/orders"}}}
  ]
}`
	src, err := FromPostman(strings.NewReader(collectionJSON))
	require.NoError(t, err)
	assert.Contains(t, src, `feature "orders"`)
	assert.Contains(t, src, "http_post")
	assert.Contains(t, src, "api.example.com/orders")
}
