package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/unowned-ai/wayfarer/pkg/auth"
	"github.com/unowned-ai/wayfarer/pkg/geo"
	"github.com/unowned-ai/wayfarer/pkg/images"
	"github.com/unowned-ai/wayfarer/pkg/memories"
	"go.uber.org/zap"
)

var (
	errDeleteUnconfirmed = errors.New("deletion was not confirmed by the store")
	errNoGeocoder        = errors.New("place search is not configured")
)

// Save persists the open form. A new record is inserted, an existing one
// updated; either way the journal shows the result immediately and the
// record's status tracks the store's answer. On failure the record stays
// visible as StatusFailed until the next refresh.
func (c *Coordinator) Save(ctx context.Context, d memories.Draft) (m memories.Memory, err error) {
	defer c.recoverAction("save", &err)
	if err := c.requireLogin(); err != nil {
		return memories.Memory{}, err
	}
	if !c.begin(ActionSave) {
		return memories.Memory{}, ErrActionPending
	}
	defer c.end(ActionSave)

	c.mu.Lock()
	if c.state.View != ViewEdit {
		c.mu.Unlock()
		return memories.Memory{}, ErrWrongView
	}
	d.Lat, d.Lng = c.state.EditPoint.Lat, c.state.EditPoint.Lng
	existingID := c.state.EditingID
	isNew := existingID == ""
	if isNew {
		m = memories.New(d, c.now())
	} else {
		i := c.indexLocked(existingID)
		if i < 0 {
			c.mu.Unlock()
			return memories.Memory{}, fmt.Errorf("%w: %s", ErrNotFound, existingID)
		}
		m = memories.Merge(c.records[i], d, c.now())
	}
	if err := memories.Validate(m); err != nil {
		c.mu.Unlock()
		c.notify(writeFailure("save", err))
		return memories.Memory{}, err
	}
	c.applyLocked(m, isNew)
	c.resetViewLocked(ViewDetail)
	c.state.SelectedID = m.ID
	c.mu.Unlock()

	if isNew {
		err = c.store.Insert(ctx, m)
	} else {
		err = c.store.Update(ctx, m)
	}
	c.settle(m.ID, err)
	if err != nil {
		c.notify(writeFailure("save", err))
		return m, err
	}
	return m, nil
}

// ConfirmReposition commits the dragged pin position to the selected record.
func (c *Coordinator) ConfirmReposition(ctx context.Context) (m memories.Memory, err error) {
	defer c.recoverAction("reposition", &err)
	if err := c.requireLogin(); err != nil {
		return memories.Memory{}, err
	}
	if !c.begin(ActionSave) {
		return memories.Memory{}, ErrActionPending
	}
	defer c.end(ActionSave)

	c.mu.Lock()
	if c.state.View != ViewDetail || !c.state.Repositioning {
		c.mu.Unlock()
		return memories.Memory{}, ErrWrongView
	}
	i := c.indexLocked(c.state.SelectedID)
	if i < 0 {
		c.mu.Unlock()
		return memories.Memory{}, fmt.Errorf("%w: %s", ErrNotFound, c.state.SelectedID)
	}
	d := memories.DraftOf(c.records[i])
	d.Lat, d.Lng = c.state.DragPoint.Lat, c.state.DragPoint.Lng
	m = memories.Merge(c.records[i], d, c.now())
	c.applyLocked(m, false)
	c.state.Repositioning = false
	c.state.DragPoint = geo.Point{}
	c.mu.Unlock()

	err = c.store.Update(ctx, m)
	c.settle(m.ID, err)
	if err != nil {
		c.notify(writeFailure("move", err))
		return m, err
	}
	return m, nil
}

// Delete removes id after confirm agrees. The record leaves the journal
// only when the store confirms the deletion.
func (c *Coordinator) Delete(ctx context.Context, id string, confirm Confirmer) (deleted bool, err error) {
	defer c.recoverAction("delete", &err)
	if err := c.requireLogin(); err != nil {
		return false, err
	}
	if !c.begin(ActionDelete) {
		return false, ErrActionPending
	}
	defer c.end(ActionDelete)

	m, err := c.Get(id)
	if err != nil {
		return false, err
	}
	if confirm == nil || !confirm(ctx, fmt.Sprintf("Delete the memory at %q?", m.LocationName)) {
		return false, nil
	}

	ok, err := c.store.Remove(ctx, id)
	if err == nil && !ok {
		err = errDeleteUnconfirmed
	}
	if err != nil {
		c.notify(writeFailure("delete", err))
		return false, err
	}

	c.mu.Lock()
	if i := c.indexLocked(id); i >= 0 {
		c.records = append(c.records[:i:i], c.records[i+1:]...)
	}
	delete(c.status, id)
	c.resetViewLocked(ViewMap)
	c.mu.Unlock()
	return true, nil
}

// applyLocked puts m into the journal ahead of confirmation.
func (c *Coordinator) applyLocked(m memories.Memory, isNew bool) {
	if i := c.indexLocked(m.ID); !isNew && i >= 0 {
		c.records[i] = memories.Clone(m)
	} else {
		c.records = append([]memories.Memory{memories.Clone(m)}, c.records...)
	}
	c.status[m.ID] = StatusPending
}

func (c *Coordinator) settle(id string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.indexLocked(id) < 0 {
		return
	}
	if err != nil {
		c.status[id] = StatusFailed
	} else {
		c.status[id] = StatusSynced
	}
}

func (c *Coordinator) requireLogin() error {
	if !c.requireAuth {
		return nil
	}
	c.mu.Lock()
	ok := c.state.Authenticated
	c.mu.Unlock()
	if ok {
		return nil
	}
	c.notify(Notice{Level: NoticeWarning, Message: "Log in to make changes.", Err: ErrNotAuthenticated})
	return ErrNotAuthenticated
}

// Login signs in. A failed attempt is returned in the Result and also
// raised as a notice.
func (c *Coordinator) Login(ctx context.Context, password string) (res auth.Result, err error) {
	defer c.recoverAction("login", &err)
	if !c.begin(ActionLogin) {
		return auth.Result{}, ErrActionPending
	}
	defer c.end(ActionLogin)

	if c.auth == nil {
		res = auth.Result{Err: auth.ErrNotConfigured}
	} else {
		res = c.auth.Login(ctx, password)
	}
	if !res.Success {
		c.notify(loginFailure(res))
		return res, nil
	}
	c.setAuthenticated(true)
	return res, nil
}

func (c *Coordinator) Logout(ctx context.Context) error {
	c.setAuthenticated(false)
	if c.auth == nil {
		return nil
	}
	return c.auth.Logout(ctx)
}

func (c *Coordinator) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Authenticated
}

// AttachPhoto uploads an image and returns a Photo for a draft. Hosting
// failures degrade to an inline image with a warning notice.
func (c *Coordinator) AttachPhoto(ctx context.Context, name string, data []byte, caption string) (p memories.Photo, err error) {
	defer c.recoverAction("upload", &err)
	if !c.begin(ActionUpload) {
		return memories.Photo{}, ErrActionPending
	}
	defer c.end(ActionUpload)

	var res images.Result
	if c.uploader == nil {
		url, err := images.Inline(data)
		if err != nil {
			return memories.Photo{}, err
		}
		res = images.Result{URL: url, Inline: true}
	} else if res, err = c.uploader.Upload(ctx, name, data); err != nil {
		c.notify(Notice{Level: NoticeError, Message: "Could not read the photo.", Err: err})
		return memories.Photo{}, err
	}
	if res.RemoteErr != nil {
		c.notify(Notice{Level: NoticeWarning, Message: "Photo upload failed, using a local copy instead.", Err: res.RemoteErr})
	}
	return memories.NewPhoto(res.URL, caption), nil
}

// SearchPlaces looks up named places to fly to.
func (c *Coordinator) SearchPlaces(ctx context.Context, query string, limit int) ([]geo.Place, error) {
	if c.geocoder == nil {
		return nil, errNoGeocoder
	}
	places, err := c.geocoder.Search(ctx, query, limit)
	if err != nil {
		c.logger.Debug("place search failed", zap.String("query", query), zap.Error(err))
		c.notify(Notice{Level: NoticeWarning, Message: "Place search is unavailable right now.", Err: err})
		return nil, err
	}
	return places, nil
}
