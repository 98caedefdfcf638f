package review

import (
	"context"
	"fmt"

	"github.com/leca/skureview/internal/model"
)

// ResetFailedMessage is shown to the operator when a reset fails.
const ResetFailedMessage = "Failed to reset SKU. Please try again."

// ResetError reports a failed reset. The session has already resynchronized
// with the backend when it is returned.
type ResetError struct {
	SKU string
	Err error
}

func (e *ResetError) Error() string { return fmt.Sprintf("reset %s: %v", e.SKU, e.Err) }

func (e *ResetError) Unwrap() error { return e.Err }

// SetStatus changes an image's status. Any status other than Approved clears
// its display order in the same step. After a successful write the catalog
// is refreshed, since its counts have changed.
func (s *Session) SetStatus(ctx context.Context, imageName string, status model.Status) error {
	w, err := s.StageStatus(imageName, status)
	if err != nil {
		return err
	}
	return w.Commit(ctx)
}

// SetOrder changes an image's display order. The value is kept whatever the
// image's status.
func (s *Session) SetOrder(ctx context.Context, imageName string, order model.FlexInt) error {
	w, err := s.StageOrder(imageName, order)
	if err != nil {
		return err
	}
	return w.Commit(ctx)
}

// SetNotes changes an image's notes.
func (s *Session) SetNotes(ctx context.Context, imageName, notes string) error {
	w, err := s.StageNotes(imageName, notes)
	if err != nil {
		return err
	}
	return w.Commit(ctx)
}

// StageStatus applies a status change locally and returns the write that
// sends it.
func (s *Session) StageStatus(imageName string, status model.Status) (*Write, error) {
	return s.stage(imageName, "status", func(img *model.Image) {
		img.SetStatus(status)
	})
}

// StageOrder applies a display order change locally.
func (s *Session) StageOrder(imageName string, order model.FlexInt) (*Write, error) {
	return s.stage(imageName, "display_order", func(img *model.Image) {
		img.DisplayOrder = order
	})
}

// StageNotes applies a notes change locally.
func (s *Session) StageNotes(imageName, notes string) (*Write, error) {
	return s.stage(imageName, "notes", func(img *model.Image) {
		img.Notes = model.FlexString(notes)
	})
}

// Write is a local edit whose remote write has not been sent yet. It holds
// the image's full field set as it was right after the edit. Commit must be
// called exactly once; until then the session counts the write as saving.
type Write struct {
	s        *Session
	field    string
	before   model.Image
	version  uint64
	gen      uint64
	snapshot model.ImageUpdate
}

// Image is the name of the edited image.
func (w *Write) Image() string { return w.snapshot.ImageName }

// Field is the edited field: status, display_order or notes.
func (w *Write) Field() string { return w.field }

// Snapshot is the field set Commit sends.
func (w *Write) Snapshot() model.ImageUpdate { return w.snapshot }

// stage applies mutate to the local copy at once and captures the snapshot.
func (s *Session) stage(imageName, field string, mutate func(*model.Image)) (*Write, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == "" {
		return nil, ErrNoSelection
	}
	i := model.FindImage(s.images, imageName)
	if i < 0 {
		return nil, ErrImageNotFound
	}
	w := &Write{s: s, field: field, before: s.images[i]}
	mutate(&s.images[i])
	s.versions[imageName]++
	w.version = s.versions[imageName]
	w.gen = s.gen
	w.snapshot = s.images[i].Fields()
	s.saving++
	return w, nil
}

// Commit sends the staged field set to the backend. The write goes out even
// if another SKU has been selected since; only the local rollback and echo
// handling depend on the selection. The local change stays if the write
// fails, unless rollback is enabled.
func (w *Write) Commit(ctx context.Context) error {
	s := w.s
	name := w.snapshot.ImageName
	echo, err := s.gw.UpdateImage(ctx, s.identity, w.snapshot)

	s.mu.Lock()
	s.saving--
	current := s.rollback && w.gen == s.gen && s.versions[name] == w.version
	if err != nil {
		s.logger.Warn("Image update failed", "image_name", name, "field", w.field, "err", err)
		if current {
			if j := model.FindImage(s.images, name); j >= 0 {
				restoreFields(&s.images[j], w.before)
			}
		}
		s.mu.Unlock()
		return err
	}
	if current && echo != nil {
		if j := model.FindImage(s.images, name); j >= 0 {
			restoreFields(&s.images[j], *echo)
		}
	}
	s.mu.Unlock()

	if w.field == "status" {
		if _, err := s.catalog.Load(ctx, s.identity); err != nil {
			s.logger.Warn("Catalog refresh after status change failed", "image_name", name, "err", err)
		}
	}
	return nil
}

// restoreFields copies the editable fields of src onto dst.
func restoreFields(dst *model.Image, src model.Image) {
	dst.Status = src.Status
	dst.DisplayOrder = src.DisplayOrder
	dst.Notes = src.Notes
}

// Reset returns every image of the selected SKU to Pending with no display
// order, locally at once and then on the backend. Whatever the outcome, the
// image list and the catalog are then reloaded from the backend. A failed
// reset is reported as *ResetError.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	sku := s.selected
	if sku == "" {
		s.mu.Unlock()
		return ErrNoSelection
	}
	for i := range s.images {
		s.images[i].SetStatus(model.StatusPending)
		s.versions[s.images[i].ImageName]++
	}
	s.resetting = true
	s.mu.Unlock()

	err := s.gw.ResetSKU(ctx, s.identity, sku)
	if err != nil {
		s.logger.Error("Reset failed, resynchronizing", "sku_id", sku, "err", err)
	}

	if rerr := s.fetchImages(ctx, sku); rerr != nil {
		s.logger.Warn("Image reload after reset failed", "sku_id", sku, "err", rerr)
	}
	if _, cerr := s.catalog.Load(ctx, s.identity); cerr != nil {
		s.logger.Warn("Catalog reload after reset failed", "sku_id", sku, "err", cerr)
	}

	s.mu.Lock()
	s.resetting = false
	s.mu.Unlock()

	if err != nil {
		return &ResetError{SKU: sku, Err: err}
	}
	return nil
}
