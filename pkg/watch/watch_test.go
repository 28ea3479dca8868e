package watch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chorbdd/chor/pkg/engine"
)

func TestGlyphCoversEveryTerminalState(t *testing.T) {
	assert.NotEmpty(t, glyph("passed"))
	assert.NotEmpty(t, glyph("failed"))
	assert.NotEmpty(t, glyph("timed_out"))
	assert.NotEmpty(t, glyph("skipped"))
	assert.NotEmpty(t, glyph("pending"))
}

func TestModelAccumulatesTicksByScenario(t *testing.T) {
	m := newModel(nil)
	mi, _ := m.Update(tickMsg{scenario: "s1", tests: []engine.TestSnapshot{{ID: "A", State: "passed"}}})
	m = mi.(model)

	assert.Equal(t, []string{"s1"}, m.order)
	assert.Len(t, m.byScenario["s1"], 1)
	assert.Equal(t, "A", m.byScenario["s1"][0].ID)
}
