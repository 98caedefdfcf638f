package api

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
)

// ExportKind names one of the downloadable reports.
type ExportKind string

const (
	ExportReport          ExportKind = "report"
	ExportSKUArchive      ExportKind = "sku-archive"
	ExportApprovedArchive ExportKind = "approved-archive"
	ExportApprovedReport  ExportKind = "approved-report"
)

// ExportKinds lists every kind in display order.
var ExportKinds = []ExportKind{ExportReport, ExportSKUArchive, ExportApprovedArchive, ExportApprovedReport}

// ParseExportKind accepts a kind name as typed by the operator.
func ParseExportKind(s string) (ExportKind, error) {
	k := ExportKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ExportKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown export kind %q", s)
}

// NeedsSKU reports whether the kind is scoped to a single SKU.
func (k ExportKind) NeedsSKU() bool { return k == ExportSKUArchive }

// DefaultFilename is used when the server does not name the file.
func (k ExportKind) DefaultFilename(skuID string) string {
	switch k {
	case ExportReport:
		return "Image_Validation_Report.xlsx"
	case ExportApprovedReport:
		return "Approved_Images_Report.xlsx"
	case ExportApprovedArchive:
		return "all_approved_images.zip"
	case ExportSKUArchive:
		return skuID + "_approved.zip"
	}
	return string(k)
}

func (k ExportKind) path(skuID string) string {
	switch k {
	case ExportReport:
		return "/export/excel"
	case ExportSKUArchive:
		return "/export/zip/" + url.PathEscape(skuID)
	case ExportApprovedArchive:
		return "/export/approved-zip"
	case ExportApprovedReport:
		return "/export/approved-excel"
	}
	return ""
}

// ExportURL returns the download URL for kind. skuID is required only for
// the per-SKU archive.
func (c *Client) ExportURL(kind ExportKind, email, skuID string) (string, error) {
	op := "export " + string(kind)
	if err := requireIdentity(op, email); err != nil {
		return "", err
	}
	p := kind.path(skuID)
	if p == "" {
		return "", ValidationError(op, fmt.Sprintf("unknown export kind %q", kind))
	}
	if kind.NeedsSKU() && skuID == "" {
		return "", ValidationError(op, "sku id is required")
	}
	return c.endpoint(p, emailQuery(email)), nil
}

// Download is an open export stream. The caller closes Body.
type Download struct {
	Filename    string
	ContentType string
	Body        io.ReadCloser
}

// Export opens the download stream for kind.
func (c *Client) Export(ctx context.Context, kind ExportKind, email, skuID string) (*Download, error) {
	rawURL, err := c.ExportURL(kind, email, skuID)
	if err != nil {
		return nil, err
	}
	op := "export " + string(kind)
	resp, err := c.send(ctx, op, http.MethodGet, rawURL, nil, "")
	if err != nil {
		return nil, err
	}
	name := filenameFromDisposition(resp.Header.Get("Content-Disposition"))
	if name == "" {
		name = kind.DefaultFilename(skuID)
	}
	return &Download{
		Filename:    name,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        resp.Body,
	}, nil
}

// FetchAsset opens the image bytes behind an image_path.
func (c *Client) FetchAsset(ctx context.Context, imagePath string) (io.ReadCloser, error) {
	const op = "fetch asset"
	u := c.ImageURL(imagePath)
	if u == "" {
		return nil, ValidationError(op, "image has no path")
	}
	resp, err := c.send(ctx, op, http.MethodGet, u, nil, "")
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func filenameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	name := params["filename"]
	if name == "" {
		return ""
	}
	// never let the server pick a directory
	return filepath.Base(filepath.Clean("/" + name))
}
