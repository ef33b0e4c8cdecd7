package memories

// Photo is an image attached to a Memory. Photos are owned by exactly one
// Memory and are never shared between records.
type Photo struct {
	ID      string `json:"id" validate:"required"`
	URL     string `json:"url" validate:"required"`
	Caption string `json:"caption"`
}

// Memory is a single travel journal entry pinned to a map location.
//
// Timestamps are Unix milliseconds. Date is the user-editable trip date;
// CreatedAt is assigned once when the record is captured and never changes.
type Memory struct {
	ID           string  `json:"id" validate:"required"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	LocationName string  `json:"locationName"`
	Description  string  `json:"description"`
	Photos       []Photo `json:"photos" validate:"dive"`
	Date         int64   `json:"date"`
	CreatedAt    int64   `json:"createdAt"`
}

// Draft holds the user-editable fields of a Memory, as collected by an edit
// form. Lat/Lng are expected to be canonical already.
type Draft struct {
	Lat          float64
	Lng          float64
	LocationName string
	Description  string
	Photos       []Photo
	Date         int64
}
