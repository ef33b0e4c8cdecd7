package memories

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/unowned-ai/wayfarer/pkg/geo"
)

// DefaultLocationName is used when a memory is saved with a blank name.
const DefaultLocationName = "Unnamed place"

var (
	// ErrInvalidRecord marks a memory that must never reach a store:
	// missing or blank id, or non-finite coordinates.
	ErrInvalidRecord = errors.New("invalid memory record")
	ErrNotFound      = errors.New("memory not found")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the persistence invariants of m.
func Validate(m Memory) error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("%w: blank id", ErrInvalidRecord)
	}
	if !geo.IsValidCoordinate(m.Lat, m.Lng) {
		return fmt.Errorf("%w: coordinates lat=%v lng=%v are not finite", ErrInvalidRecord, m.Lat, m.Lng)
	}
	return nil
}

// IsValid is Validate as a predicate.
func IsValid(m Memory) bool {
	return Validate(m) == nil
}

// NowMillis returns t as Unix milliseconds.
func NowMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// New captures a brand-new memory from d, assigning its id and creation time.
func New(d Draft, now time.Time) Memory {
	m := Memory{
		ID:        uuid.NewString(),
		CreatedAt: NowMillis(now),
	}
	apply(&m, d, now)
	return m
}

// Merge applies d over existing, keeping its id and creation time.
func Merge(existing Memory, d Draft, now time.Time) Memory {
	m := Memory{
		ID:        existing.ID,
		CreatedAt: existing.CreatedAt,
	}
	apply(&m, d, now)
	return m
}

func apply(m *Memory, d Draft, now time.Time) {
	m.Lat = d.Lat
	m.Lng = d.Lng
	m.LocationName = strings.TrimSpace(d.LocationName)
	if m.LocationName == "" {
		m.LocationName = DefaultLocationName
	}
	m.Description = d.Description
	m.Photos = ClonePhotos(d.Photos)
	m.Date = d.Date
	if m.Date == 0 {
		m.Date = NowMillis(now)
	}
}

// DraftOf returns the editable fields of m.
func DraftOf(m Memory) Draft {
	return Draft{
		Lat:          m.Lat,
		Lng:          m.Lng,
		LocationName: m.LocationName,
		Description:  m.Description,
		Photos:       ClonePhotos(m.Photos),
		Date:         m.Date,
	}
}

// ClonePhotos copies a photo list so two records never share backing storage.
func ClonePhotos(photos []Photo) []Photo {
	out := make([]Photo, len(photos))
	copy(out, photos)
	return out
}

// Clone returns a deep copy of m.
func Clone(m Memory) Memory {
	m.Photos = ClonePhotos(m.Photos)
	return m
}

// NewPhoto wraps an uploaded image URL with a fresh id.
func NewPhoto(url, caption string) Photo {
	return Photo{ID: uuid.NewString(), URL: url, Caption: caption}
}

// SortNewestFirst orders records by CreatedAt descending, the order every
// store returns.
func SortNewestFirst(records []Memory) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt > records[j].CreatedAt
	})
}

// SortByTripDate orders records by Date ascending, for the album view.
func SortByTripDate(records []Memory) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date < records[j].Date
	})
}

// KeepValid drops records that fail Validate.
func KeepValid(records []Memory) []Memory {
	out := make([]Memory, 0, len(records))
	for _, m := range records {
		if IsValid(m) {
			out = append(out, m)
		}
	}
	return out
}
