package memories

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	valid := Memory{ID: "a", Lat: 10, Lng: 20}
	require.NoError(t, Validate(valid))

	tests := []struct {
		name string
		m    Memory
	}{
		{"missing id", Memory{Lat: 1, Lng: 2}},
		{"blank id", Memory{ID: "  \t", Lat: 1, Lng: 2}},
		{"nan lat", Memory{ID: "a", Lat: math.NaN(), Lng: 2}},
		{"infinite lng", Memory{ID: "a", Lat: 1, Lng: math.Inf(1)}},
		{"photo without url", Memory{ID: "a", Photos: []Photo{{ID: "p"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.m)
			assert.True(t, errors.Is(err, ErrInvalidRecord), "got %v", err)
			assert.False(t, IsValid(tt.m))
		})
	}
}

func TestNewAndMerge(t *testing.T) {
	created := time.UnixMilli(1_700_000_000_000)
	photos := []Photo{{ID: "p1", URL: "https://img/1.jpg"}}

	m := New(Draft{Lat: 1, Lng: 2, LocationName: "  ", Photos: photos}, created)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, created.UnixMilli(), m.CreatedAt)
	assert.Equal(t, created.UnixMilli(), m.Date, "date defaults to capture time")
	assert.Equal(t, DefaultLocationName, m.LocationName)

	// The record must not share its photo slice with the draft.
	photos[0].Caption = "mutated"
	assert.Empty(t, m.Photos[0].Caption)

	later := created.Add(time.Hour)
	updated := Merge(m, Draft{Lat: 3, Lng: 4, LocationName: "Oslo", Description: "fjords", Date: 42}, later)
	assert.Equal(t, m.ID, updated.ID)
	assert.Equal(t, m.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "Oslo", updated.LocationName)
	assert.Equal(t, "fjords", updated.Description)
	assert.Equal(t, int64(42), updated.Date)
	assert.Empty(t, updated.Photos)
}

func TestSortAndKeepValid(t *testing.T) {
	records := []Memory{
		{ID: "old", CreatedAt: 1, Date: 30},
		{ID: "", CreatedAt: 5},
		{ID: "new", CreatedAt: 3, Date: 10},
	}
	records = KeepValid(records)
	SortNewestFirst(records)
	assert.Equal(t, []string{"new", "old"}, ids(records))

	SortByTripDate(records)
	assert.Equal(t, []string{"new", "old"}, ids(records))
}
