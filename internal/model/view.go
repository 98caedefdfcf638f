package model

// Stats counts images by review bucket. Anything that is neither Approved nor
// Rejected, including unexpected strings, lands in Pending.
type Stats struct {
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Pending  int `json:"pending"`
}

// Total is the number of images counted.
func (s Stats) Total() int { return s.Approved + s.Rejected + s.Pending }

// ComputeStats derives Stats from an image list.
func ComputeStats(images []Image) Stats {
	var st Stats
	for _, img := range images {
		switch img.Status {
		case StatusApproved:
			st.Approved++
		case StatusRejected:
			st.Rejected++
		default:
			st.Pending++
		}
	}
	return st
}

// Groups partitions images by provider. Both buckets keep list order.
type Groups struct {
	Manufacturer []Image
	Client       []Image
}

// Empty reports whether neither bucket holds an image.
func (g Groups) Empty() bool { return len(g.Manufacturer) == 0 && len(g.Client) == 0 }

// GroupByProvider splits images into manufacturer and client buckets.
// Images with an empty provider go to the client bucket.
func GroupByProvider(images []Image) Groups {
	var g Groups
	for _, img := range images {
		if img.IsManufacturer() {
			g.Manufacturer = append(g.Manufacturer, img)
		} else {
			g.Client = append(g.Client, img)
		}
	}
	return g
}

// Position is the operator's place inside a filtered SKU sequence.
type Position struct {
	// Index is zero-based; -1 when nothing is selected or the selection is
	// filtered out.
	Index   int
	Total   int
	HasPrev bool
	HasNext bool
}

// Record is the 1-based record number shown to the operator, 0 when none.
func (p Position) Record() int { return p.Index + 1 }

// PositionOf locates selected inside filtered.
func PositionOf(filtered []SKU, selected string) Position {
	p := Position{Index: -1, Total: len(filtered)}
	if selected == "" {
		return p
	}
	p.Index = IndexOfSKU(filtered, selected)
	// a selection hidden by the filter can still step forward onto the first entry
	p.HasPrev = p.Index > 0
	p.HasNext = p.Index < len(filtered)-1
	return p
}
