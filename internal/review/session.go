// Package review is the state engine behind the review console. A Session
// tracks the selected SKU and its images, applies field edits optimistically
// while pushing them to the backend, and derives the grouped view, stats and
// navigation position on demand.
//
// A Session is safe for concurrent use. Remote calls run without the lock
// held, so edits and navigation stay responsive while requests are in
// flight. Results that arrive after a newer selection are discarded.
package review

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/leca/skureview/internal/model"
)

var (
	// ErrNoSelection is returned by operations that need a selected SKU.
	ErrNoSelection = errors.New("no sku selected")
	// ErrImageNotFound is returned when an edit names an image that is not
	// in the current list.
	ErrImageNotFound = errors.New("image not found in the selected sku")
	// ErrNoNeighbour is returned by Next and Prev at the ends of the
	// filtered sequence.
	ErrNoNeighbour = errors.New("no sku in that direction")
)

// Gateway is the part of the API client the session calls.
type Gateway interface {
	ListImages(ctx context.Context, email, skuID string) ([]model.Image, error)
	UpdateImage(ctx context.Context, email string, upd model.ImageUpdate) (*model.Image, error)
	ResetSKU(ctx context.Context, email, skuID string) error
}

// Catalog is the SKU catalog the session refreshes and navigates.
type Catalog interface {
	Load(ctx context.Context, identity string) ([]model.SKU, error)
	Filter(query string) []model.SKU
	First() string
}

// Preview is the image the operator asked to look at.
type Preview struct {
	SKU  string
	Name string
	Path string
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithRollback makes a failed field write restore the value it replaced,
// unless the image has been edited again since. It also applies the
// backend's echoed record after a successful write. Off by default: a failed
// write keeps the optimistic value.
func WithRollback(on bool) Option {
	return func(s *Session) { s.rollback = on }
}

// Session is the review state of one logged-in operator.
type Session struct {
	gw       Gateway
	catalog  Catalog
	logger   *slog.Logger
	rollback bool
	identity string

	mu        sync.Mutex
	selected  string
	images    []model.Image
	loading   bool
	resetting bool
	saving    int
	filter    string
	preview   *Preview

	// gen increments whenever the image list is (re)requested; a result is
	// committed only if gen has not moved since its request.
	gen uint64
	// versions counts local edits per image name since the list was loaded.
	versions map[string]uint64
}

// New creates a session for identity with nothing selected.
func New(identity string, gw Gateway, catalog Catalog, opts ...Option) *Session {
	s := &Session{
		gw:       gw,
		catalog:  catalog,
		logger:   slog.Default(),
		identity: identity,
		versions: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Identity returns the operator the session acts for.
func (s *Session) Identity() string { return s.identity }

// Start loads the catalog and, if nothing is selected yet, selects its first
// entry. This is the only automatic selection the session makes. A catalog
// failure is returned and nothing is selected.
func (s *Session) Start(ctx context.Context) error {
	if _, err := s.catalog.Load(ctx, s.identity); err != nil {
		return err
	}
	s.mu.Lock()
	selected := s.selected
	s.mu.Unlock()
	if selected != "" {
		return nil
	}
	first := s.catalog.First()
	if first == "" {
		return nil
	}
	return s.Select(ctx, first)
}

// Select makes skuID the current SKU and loads its images. The previous list
// is dropped at once, so images of another SKU are never shown under the new
// heading. If another selection starts before this one finishes, this
// result is discarded. A failed load leaves the list empty.
func (s *Session) Select(ctx context.Context, skuID string) error {
	s.mu.Lock()
	s.selected = skuID
	s.images = nil
	s.versions = make(map[string]uint64)
	s.preview = nil
	s.mu.Unlock()

	return s.fetchImages(ctx, skuID)
}

// Refresh reloads the selected SKU's images and the catalog. The current
// list stays visible until the new one arrives.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	sku := s.selected
	s.mu.Unlock()

	var imgErr error
	if sku != "" {
		imgErr = s.fetchImages(ctx, sku)
	}
	_, catErr := s.catalog.Load(ctx, s.identity)
	return errors.Join(imgErr, catErr)
}

// fetchImages requests skuID's images and commits them if skuID is still
// selected and no newer request has started.
func (s *Session) fetchImages(ctx context.Context, skuID string) error {
	s.mu.Lock()
	if s.selected != skuID {
		s.mu.Unlock()
		return nil
	}
	s.gen++
	gen := s.gen
	s.loading = true
	s.mu.Unlock()

	images, err := s.gw.ListImages(ctx, s.identity, skuID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		s.logger.Debug("Discarding superseded image list", "sku_id", skuID, "superseded_by", s.selected)
		return nil
	}
	s.loading = false
	if err != nil {
		s.logger.Warn("Image list load failed", "sku_id", skuID, "err", err)
		return err
	}
	if images == nil {
		images = []model.Image{}
	}
	s.images = images
	s.versions = make(map[string]uint64)
	return nil
}

// SetFilter sets the SKU search string used for navigation.
func (s *Session) SetFilter(query string) {
	s.mu.Lock()
	s.filter = query
	s.mu.Unlock()
}

// Next selects the SKU after the current one in the filtered sequence.
func (s *Session) Next(ctx context.Context) error { return s.step(ctx, 1) }

// Prev selects the SKU before the current one in the filtered sequence.
func (s *Session) Prev(ctx context.Context) error { return s.step(ctx, -1) }

func (s *Session) step(ctx context.Context, delta int) error {
	s.mu.Lock()
	filtered := s.catalog.Filter(s.filter)
	pos := model.PositionOf(filtered, s.selected)
	s.mu.Unlock()

	if (delta > 0 && !pos.HasNext) || (delta < 0 && !pos.HasPrev) {
		return ErrNoNeighbour
	}
	return s.Select(ctx, filtered[pos.Index+delta].ID())
}

// SetPreview targets an image of the selected SKU for preview.
func (s *Session) SetPreview(imageName string) (Preview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == "" {
		return Preview{}, ErrNoSelection
	}
	i := model.FindImage(s.images, imageName)
	if i < 0 {
		return Preview{}, ErrImageNotFound
	}
	p := Preview{SKU: s.selected, Name: imageName, Path: s.images[i].ImagePath.String()}
	s.preview = &p
	return p, nil
}

// ClearPreview drops the preview target.
func (s *Session) ClearPreview() {
	s.mu.Lock()
	s.preview = nil
	s.mu.Unlock()
}
