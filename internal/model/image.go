package model

import "strings"

// Status is the review state of an image. Unknown strings from the backend
// are kept as-is and counted as pending.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

// ParseStatus maps operator input such as "approve" or "REJECTED" onto one of
// the three known statuses.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approved", "approve":
		return StatusApproved, true
	case "rejected", "reject":
		return StatusRejected, true
	case "pending", "":
		return StatusPending, true
	}
	return "", false
}

// ManufacturerMarker marks an image as manufacturer-provided when it appears,
// case-insensitively, anywhere in ImageProvidedBy.
const ManufacturerMarker = "mfr"

// Image is one reviewable image record belonging to a SKU.
type Image struct {
	ImageName       string     `json:"image_name"`
	SKUID           FlexString `json:"sku_id"`
	ImagePath       FlexString `json:"image_path"`
	Size            FlexString `json:"size"`
	Resolution      FlexString `json:"resolution"`
	DPI             FlexString `json:"dpi"`
	Format          FlexString `json:"format"`
	ImageProvidedBy FlexString `json:"image_provided_by"`
	Status          Status     `json:"status"`
	DisplayOrder    FlexInt    `json:"display_order"`
	Notes           FlexString `json:"notes"`

	// Technical metadata filled in at ingestion; read-only here.
	Width      FlexString `json:"width,omitempty"`
	Height     FlexString `json:"height,omitempty"`
	ColorMode  FlexString `json:"color_mode,omitempty"`
	Background FlexString `json:"background,omitempty"`
	Watermark  FlexString `json:"watermark,omitempty"`
}

// EffectiveStatus returns the status with the empty value read as Pending.
func (img Image) EffectiveStatus() Status {
	if img.Status == "" {
		return StatusPending
	}
	return img.Status
}

// SetStatus applies a status change. Any status other than Approved clears
// the display order in the same mutation.
func (img *Image) SetStatus(s Status) {
	img.Status = s
	if s != StatusApproved {
		img.DisplayOrder = FlexInt{}
	}
}

// IsManufacturer reports whether the image belongs to the manufacturer group.
func (img Image) IsManufacturer() bool {
	return strings.Contains(strings.ToLower(img.ImageProvidedBy.String()), ManufacturerMarker)
}

// ProviderLabel is the display label for the image's provider group.
func (img Image) ProviderLabel() string {
	if img.IsManufacturer() {
		return "Mfr"
	}
	return "Client"
}

// Fields returns the editable field snapshot sent on every update.
func (img Image) Fields() ImageUpdate {
	return ImageUpdate{
		ImageName:    img.ImageName,
		Status:       img.EffectiveStatus(),
		DisplayOrder: img.DisplayOrder,
		Notes:        img.Notes.String(),
	}
}

// ImageUpdate is the full editable field set of one image. The backend always
// receives all three fields, never a partial patch.
type ImageUpdate struct {
	ImageName    string  `json:"image_name"`
	Status       Status  `json:"status"`
	DisplayOrder FlexInt `json:"display_order"`
	Notes        string  `json:"notes"`
}

// FindImage returns the index of the image named name, or -1.
func FindImage(images []Image, name string) int {
	for i := range images {
		if images[i].ImageName == name {
			return i
		}
	}
	return -1
}
