package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
)

// UploadFile is one file to send in a multipart upload.
type UploadFile struct {
	Name   string
	Reader io.Reader
}

// UploadExcel sends the metadata spreadsheet for email.
func (c *Client) UploadExcel(ctx context.Context, email string, file UploadFile) (*UploadSummary, error) {
	const op = "upload excel"
	if err := requireIdentity(op, email); err != nil {
		return nil, err
	}
	if file.Reader == nil || file.Name == "" {
		return nil, ValidationError(op, "a metadata file is required")
	}

	body, contentType, err := multipartBody(email, "file", []UploadFile{file})
	if err != nil {
		return nil, &Error{Op: op, Kind: KindValidation, Err: err}
	}
	data, err := c.doMultipart(ctx, op, "/upload/excel", body, contentType)
	if err != nil {
		return nil, err
	}
	var out UploadSummary
	_ = json.Unmarshal(data, &out)
	return &out, nil
}

// UploadImages sends a batch of image files for email.
func (c *Client) UploadImages(ctx context.Context, email string, files []UploadFile) (*ImageUploadResult, error) {
	const op = "upload images"
	if err := requireIdentity(op, email); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ValidationError(op, "at least one image is required")
	}

	body, contentType, err := multipartBody(email, "files", files)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindValidation, Err: err}
	}
	data, err := c.doMultipart(ctx, op, "/upload/images", body, contentType)
	if err != nil {
		return nil, err
	}
	var out ImageUploadResult
	_ = json.Unmarshal(data, &out)
	return &out, nil
}

func (c *Client) doMultipart(ctx context.Context, op, path string, body *bytes.Buffer, contentType string) ([]byte, error) {
	resp, err := c.send(ctx, op, http.MethodPost, c.endpoint(path, nil), body, contentType)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindNetwork, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	return data, nil
}

// multipartBody builds a form with the email field and one part per file
// under fieldName.
func multipartBody(email, fieldName string, files []UploadFile) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("email", email); err != nil {
		return nil, "", fmt.Errorf("write email field: %w", err)
	}
	for _, f := range files {
		fw, err := w.CreateFormFile(fieldName, filepath.Base(f.Name))
		if err != nil {
			return nil, "", fmt.Errorf("create form file %s: %w", f.Name, err)
		}
		if _, err := io.Copy(fw, f.Reader); err != nil {
			return nil, "", fmt.Errorf("copy %s: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
