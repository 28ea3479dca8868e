package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstituteReplacesPlainAndIndexedRefs(t *testing.T) {
	s := NewStore()
	s.Set("NAME", String("chor"))
	s.Set("ITEMS", List([]Value{String("a"), String("b")}))

	out, err := s.Substitute("hello ${NAME}, first is ${ITEMS[0]}")
	require.NoError(t, err)
	assert.Equal(t, "hello chor, first is a", out)
}

func TestSubstituteOutOfRangeIndexFails(t *testing.T) {
	s := NewStore()
	s.Set("ITEMS", List([]Value{String("a")}))

	_, err := s.Substitute("${ITEMS[9]}")
	require.Error(t, err)
	var subErr *SubstitutionError
	require.ErrorAs(t, err, &subErr)
}

func TestStaticIndicesExtractsLiteralIndicesOnly(t *testing.T) {
	refs := StaticIndices("${L[0]} and ${L[2]} but not ${PLAIN}")
	require.Len(t, refs, 2)
	assert.Equal(t, IndexRef{Name: "L", Index: 0}, refs[0])
	assert.Equal(t, IndexRef{Name: "L", Index: 2}, refs[1])
}
