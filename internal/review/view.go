package review

import "github.com/leca/skureview/internal/model"

// View is a consistent snapshot of everything the console renders. The
// derived parts are computed from the image list and catalog at call time.
type View struct {
	Identity  string
	Selected  string
	Images    []model.Image
	Loading   bool
	Resetting bool
	// Saving counts field writes still in flight.
	Saving   int
	Filter   string
	Filtered []model.SKU
	Position model.Position
	Stats    model.Stats
	Groups   model.Groups
	Preview  *Preview
}

// View returns the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	images := append([]model.Image(nil), s.images...)
	filtered := s.catalog.Filter(s.filter)
	v := View{
		Identity:  s.identity,
		Selected:  s.selected,
		Images:    images,
		Loading:   s.loading,
		Resetting: s.resetting,
		Saving:    s.saving,
		Filter:    s.filter,
		Filtered:  filtered,
		Position:  model.PositionOf(filtered, s.selected),
		Stats:     model.ComputeStats(images),
		Groups:    model.GroupByProvider(images),
	}
	if s.preview != nil {
		p := *s.preview
		v.Preview = &p
	}
	return v
}

// Selected returns the selected SKU id, "" when none.
func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Images returns a copy of the current image list.
func (s *Session) Images() []model.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Image(nil), s.images...)
}

// Image returns one image of the current list by name.
func (s *Session) Image(name string) (model.Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := model.FindImage(s.images, name); i >= 0 {
		return s.images[i], true
	}
	return model.Image{}, false
}

// Stats counts the current images by review bucket.
func (s *Session) Stats() model.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.ComputeStats(s.images)
}

// Position locates the selected SKU in the filtered catalog.
func (s *Session) Position() model.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.PositionOf(s.catalog.Filter(s.filter), s.selected)
}
