package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/leca/skureview/internal/model"
)

// ListSKUs returns every SKU visible to email with its review counts.
// A response that is not a list is read as an empty catalog.
func (c *Client) ListSKUs(ctx context.Context, email string) ([]model.SKU, error) {
	const op = "list skus"
	if err := requireIdentity(op, email); err != nil {
		return nil, err
	}
	data, err := c.doJSON(ctx, op, http.MethodGet, "/validate/skus", emailQuery(email), nil)
	if err != nil {
		return nil, err
	}
	return decodeList[model.SKU](c.logger, op, data), nil
}

// ListImages returns the images of one SKU in server order. A response that
// is not a list is read as an empty image list.
func (c *Client) ListImages(ctx context.Context, email, skuID string) ([]model.Image, error) {
	const op = "list images"
	if err := requireIdentity(op, email); err != nil {
		return nil, err
	}
	if skuID == "" {
		return nil, ValidationError(op, "sku id is required")
	}
	data, err := c.doJSON(ctx, op, http.MethodGet, "/validate/images/"+url.PathEscape(skuID), emailQuery(email), nil)
	if err != nil {
		return nil, err
	}
	return decodeList[model.Image](c.logger, op, data), nil
}

type updateRequest struct {
	Email string `json:"email"`
	model.ImageUpdate
}

// UpdateImage writes the full editable field set of one image. When the
// backend echoes the updated record it is returned; otherwise the result is
// nil.
func (c *Client) UpdateImage(ctx context.Context, email string, upd model.ImageUpdate) (*model.Image, error) {
	const op = "update image"
	if err := requireIdentity(op, email); err != nil {
		return nil, err
	}
	if upd.ImageName == "" {
		return nil, ValidationError(op, "image name is required")
	}
	data, err := c.doJSON(ctx, op, http.MethodPut, "/validate/update", nil, updateRequest{Email: email, ImageUpdate: upd})
	if err != nil {
		return nil, err
	}
	var echo model.Image
	if err := json.Unmarshal(data, &echo); err != nil || echo.ImageName != upd.ImageName {
		return nil, nil
	}
	return &echo, nil
}

type resetRequest struct {
	Email string `json:"email"`
	SKUID string `json:"sku_id"`
}

// ResetSKU returns every image of skuID to Pending on the backend.
func (c *Client) ResetSKU(ctx context.Context, email, skuID string) error {
	const op = "reset sku"
	if err := requireIdentity(op, email); err != nil {
		return err
	}
	if skuID == "" {
		return ValidationError(op, "sku id is required")
	}
	_, err := c.doJSON(ctx, op, http.MethodPost, "/validate/reset", nil, resetRequest{Email: email, SKUID: skuID})
	return err
}
