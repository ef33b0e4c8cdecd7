package app

import (
	"fmt"

	"github.com/unowned-ai/wayfarer/pkg/geo"
	"github.com/unowned-ai/wayfarer/pkg/memories"
)

// ShowMap returns to the map, abandoning any open form.
func (c *Coordinator) ShowMap() {
	c.mu.Lock()
	c.resetViewLocked(ViewMap)
	c.mu.Unlock()
}

func (c *Coordinator) ShowAlbum() {
	c.mu.Lock()
	c.resetViewLocked(ViewAlbum)
	c.mu.Unlock()
}

// Select opens the detail view of id.
func (c *Coordinator) Select(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexLocked(id) < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	c.resetViewLocked(ViewDetail)
	c.state.SelectedID = id
	return nil
}

// BeginCapture opens an empty form at a map position. The position is
// canonicalized first, the same way a drag end is.
func (c *Coordinator) BeginCapture(lat, lng float64) error {
	p, err := geo.NewPoint(lat, lng)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetViewLocked(ViewEdit)
	c.state.EditPoint = p
	return nil
}

// BeginEdit opens the form for an existing record.
func (c *Coordinator) BeginEdit(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	m := c.records[i]
	c.resetViewLocked(ViewEdit)
	c.state.EditingID = id
	c.state.EditPoint = geo.Point{Lat: geo.ClampLatitude(m.Lat), Lng: geo.NormalizeLongitude(m.Lng)}
	return nil
}

// EditDraft returns the form's initial contents: the existing record's
// fields, or a blank draft at the capture point.
func (c *Coordinator) EditDraft() (memories.Draft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.View != ViewEdit {
		return memories.Draft{}, ErrWrongView
	}
	var d memories.Draft
	if i := c.indexLocked(c.state.EditingID); c.state.EditingID != "" && i >= 0 {
		d = memories.DraftOf(c.records[i])
	}
	d.Lat, d.Lng = c.state.EditPoint.Lat, c.state.EditPoint.Lng
	return d, nil
}

// CancelEdit closes the form without saving.
func (c *Coordinator) CancelEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.View != ViewEdit {
		return
	}
	id := c.state.EditingID
	if id != "" && c.indexLocked(id) >= 0 {
		c.resetViewLocked(ViewDetail)
		c.state.SelectedID = id
		return
	}
	c.resetViewLocked(ViewMap)
}

// BeginPickLocation lets the next map selection replace the form's
// coordinates.
func (c *Coordinator) BeginPickLocation() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.View != ViewEdit {
		return ErrWrongView
	}
	c.state.PickingLocation = true
	return nil
}

// PickLocation ends picking with a new position and returns to the form.
func (c *Coordinator) PickLocation(lat, lng float64) error {
	p, err := geo.NewPoint(lat, lng)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.View != ViewEdit || !c.state.PickingLocation {
		return ErrWrongView
	}
	c.state.EditPoint = p
	c.state.PickingLocation = false
	return nil
}

func (c *Coordinator) CancelPickLocation() {
	c.mu.Lock()
	c.state.PickingLocation = false
	c.mu.Unlock()
}

// BeginReposition starts dragging the selected record's pin. The
// provisional position is kept apart from the record until confirmed.
func (c *Coordinator) BeginReposition() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.View != ViewDetail {
		return ErrWrongView
	}
	i := c.indexLocked(c.state.SelectedID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, c.state.SelectedID)
	}
	m := c.records[i]
	c.state.Repositioning = true
	c.state.DragPoint = geo.Point{Lat: geo.ClampLatitude(m.Lat), Lng: geo.NormalizeLongitude(m.Lng)}
	return nil
}

// DragTo moves the provisional pin.
func (c *Coordinator) DragTo(lat, lng float64) error {
	p, err := geo.NewPoint(lat, lng)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Repositioning {
		return ErrWrongView
	}
	c.state.DragPoint = p
	return nil
}

// CancelReposition discards the provisional pin.
func (c *Coordinator) CancelReposition() {
	c.mu.Lock()
	c.state.Repositioning = false
	c.state.DragPoint = geo.Point{}
	c.mu.Unlock()
}
