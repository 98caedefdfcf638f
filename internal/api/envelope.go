package api

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// MessageResponse is the generic acknowledgement body the backend returns.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginResponse is returned by /auth/login.
type LoginResponse struct {
	Message       string `json:"message"`
	Email         string `json:"email"`
	SessionActive bool   `json:"session_active"`
}

// UploadSummary is returned by /upload/excel.
type UploadSummary struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// ImageUploadResult reports how each uploaded file was merged into the
// ingested metadata.
type ImageUploadResult struct {
	Results []ImageMerge `json:"results"`
}

// ImageMerge is one entry of ImageUploadResult.
type ImageMerge struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

// Merged reports whether the file matched a metadata row.
func (m ImageMerge) Merged() bool { return m.Status == "Merged" }

// errorBody is the backend's error shape: detail is either a string or a
// list of validation entries.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// parseDetail extracts the structured detail message from an error body.
// It returns "" when the body carries no detail field.
func parseDetail(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(eb.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var entries []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(eb.Detail, &entries); err == nil {
		msgs := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.Msg != "" {
				msgs = append(msgs, e.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

// decodeList decodes a JSON array leniently. A body that is not an array
// yields an empty list; null or undecodable entries are skipped.
func decodeList[T any](logger *slog.Logger, op string, body []byte) []T {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		logger.Warn("Response is not a list, treating as empty", "op", op, "err", err)
		return []T{}
	}
	out := make([]T, 0, len(raw))
	for i, item := range raw {
		if string(item) == "null" {
			continue
		}
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			logger.Warn("Skipping malformed list entry", "op", op, "index", i, "err", err)
			continue
		}
		out = append(out, v)
	}
	return out
}
