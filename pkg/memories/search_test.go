package memories

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func filterFixture() []Memory {
	return []Memory{
		{ID: "1", LocationName: "Paris, France", Description: "Croissants"},
		{ID: "2", LocationName: "Lyon", Description: "Day trip from PARIS by train"},
		{ID: "3", LocationName: "Kyoto", Description: "Temples"},
		{ID: "4", LocationName: "Comparison", Description: "not a city"},
	}
}

func ids(records []Memory) []string {
	out := make([]string, len(records))
	for i, m := range records {
		out[i] = m.ID
	}
	return out
}

func TestFilter(t *testing.T) {
	records := filterFixture()

	t.Run("MatchesNameOrDescriptionCaseInsensitively", func(t *testing.T) {
		assert.Equal(t, []string{"1", "2"}, ids(Filter(records, "paris")))
	})

	t.Run("SubstringMatch", func(t *testing.T) {
		assert.Equal(t, []string{"4"}, ids(Filter(records, "pari"+"son")))
	})

	t.Run("EmptyQueryReturnsEverythingInOrder", func(t *testing.T) {
		assert.Equal(t, []string{"1", "2", "3", "4"}, ids(Filter(records, "")))
		assert.Equal(t, []string{"1", "2", "3", "4"}, ids(Filter(records, "   ")))
	})

	t.Run("NoMatches", func(t *testing.T) {
		assert.Empty(t, Filter(records, "reykjavik"))
	})

	t.Run("DoesNotMutateInput", func(t *testing.T) {
		before := ids(records)
		_ = Filter(records, "kyoto")
		assert.Equal(t, before, ids(records))
	})
}
