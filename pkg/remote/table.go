package remote

import (
	"context"

	"github.com/unowned-ai/wayfarer/pkg/memories"
)

// DefaultTable is the remote table holding the journal.
const DefaultTable = "memories"

// Row is a memory as stored remotely. Coordinates are pointers so rows
// with a NULL lat or lng can be told apart from the equator.
type Row struct {
	ID           string           `json:"id"`
	Lat          *float64         `json:"lat"`
	Lng          *float64         `json:"lng"`
	LocationName string           `json:"locationName"`
	Description  string           `json:"description"`
	Photos       []memories.Photo `json:"photos"`
	Date         int64            `json:"date"`
	CreatedAt    int64            `json:"createdAt"`
}

// Table is the subset of the remote REST API the Store needs. Update and
// Delete return the affected rows; an empty slice means nothing changed.
type Table interface {
	Select(ctx context.Context) ([]Row, error)
	Insert(ctx context.Context, row Row) error
	Update(ctx context.Context, row Row) ([]Row, error)
	Delete(ctx context.Context, id string) ([]Row, error)
}

func rowOf(m memories.Memory) Row {
	lat, lng := m.Lat, m.Lng
	return Row{
		ID:           m.ID,
		Lat:          &lat,
		Lng:          &lng,
		LocationName: m.LocationName,
		Description:  m.Description,
		Photos:       memories.ClonePhotos(m.Photos),
		Date:         m.Date,
		CreatedAt:    m.CreatedAt,
	}
}

// memoryOf converts r, reporting false when its coordinates are missing.
func memoryOf(r Row) (memories.Memory, bool) {
	if r.Lat == nil || r.Lng == nil {
		return memories.Memory{}, false
	}
	m := memories.Memory{
		ID:           r.ID,
		Lat:          *r.Lat,
		Lng:          *r.Lng,
		LocationName: r.LocationName,
		Description:  r.Description,
		Photos:       r.Photos,
		Date:         r.Date,
		CreatedAt:    r.CreatedAt,
	}
	if m.Photos == nil {
		m.Photos = []memories.Photo{}
	}
	return m, true
}

func containsID(rows []Row, id string) bool {
	for _, r := range rows {
		if r.ID == id {
			return true
		}
	}
	return false
}
