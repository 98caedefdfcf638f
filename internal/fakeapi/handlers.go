package fakeapi

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/leca/skureview/internal/model"
)

type emailBody struct {
	Email string `json:"email"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req emailBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		unprocessable(w, "invalid request body")
		return
	}
	if !strings.Contains(req.Email, "@") {
		unprocessable(w, "value is not a valid email address")
		return
	}
	s.mu.Lock()
	s.sessions[req.Email] = true
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful", "email": req.Email, "session_active": true,
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	var req emailBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		unprocessable(w, "invalid request body")
		return
	}
	s.mu.Lock()
	delete(s.sessions, req.Email)
	delete(s.records, req.Email)
	delete(s.uploads, req.Email)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully (Session cleared)"})
}

// session reports whether email has an open session.
func (s *Server) session(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return email != "" && s.sessions[email]
}

func (s *Server) uploadExcel(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		badRequest(w, "invalid multipart form")
		return
	}
	email := r.FormValue("email")
	if email == "" {
		badRequest(w, "Email required")
		return
	}
	if !s.session(email) {
		notFound(w, "Session not found. Please login first.")
		return
	}
	_, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "file is required")
		return
	}

	s.mu.Lock()
	s.uploads[email] = append(s.uploads[email], header.Filename)
	count := len(s.records[email])
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"message": "Excel processed", "count": count})
}

func (s *Server) uploadImages(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		badRequest(w, "invalid multipart form")
		return
	}
	email := r.FormValue("email")
	if !s.session(email) {
		notFound(w, "Session not found")
		return
	}

	type result struct {
		Filename string `json:"filename"`
		Status   string `json:"status"`
	}
	var results []result

	s.mu.Lock()
	for _, fh := range r.MultipartForm.File["files"] {
		s.uploads[email] = append(s.uploads[email], fh.Filename)
		status := "Orphaned (No Excel Match)"
		if i := model.FindImage(s.records[email], fh.Filename); i >= 0 {
			s.records[email][i].ImagePath = model.FlexString("/sessions/" + SessionDir(email) + "/images/" + fh.Filename)
			status = "Merged"
		}
		results = append(results, result{Filename: fh.Filename, Status: status})
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) listSKUs(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if !s.session(email) {
		notFound(w, "Session not found")
		return
	}

	s.mu.Lock()
	var order []string
	counts := map[string]*model.SKU{}
	for _, img := range s.records[email] {
		id := img.SKUID.String()
		c, ok := counts[id]
		if !ok {
			c = &model.SKU{SKUID: img.SKUID}
			counts[id] = c
			order = append(order, id)
		}
		c.Total++
		switch strings.ToLower(string(img.Status)) {
		case "approved":
			c.Approved++
		case "rejected":
			c.Rejected++
		default:
			c.Pending++
		}
	}
	s.mu.Unlock()

	out := make([]model.SKU, 0, len(order))
	for _, id := range order {
		out = append(out, *counts[id])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listImages(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	skuID := strings.TrimSpace(chi.URLParam(r, "sku_id"))

	s.mu.Lock()
	var out []model.Image
	for _, img := range s.records[email] {
		if strings.TrimSpace(img.SKUID.String()) == skuID {
			out = append(out, img)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		oi, oj := orderKey(out[i]), orderKey(out[j])
		if oi != oj {
			return oi < oj
		}
		return out[i].ImageName < out[j].ImageName
	})
	if out == nil {
		out = []model.Image{}
	}
	writeJSON(w, http.StatusOK, out)
}

func orderKey(img model.Image) int {
	if img.DisplayOrder.Valid && img.DisplayOrder.Value != 0 {
		return img.DisplayOrder.Value
	}
	return 9999
}

type updateBody struct {
	Email        string        `json:"email"`
	ImageName    string        `json:"image_name"`
	Status       model.Status  `json:"status"`
	DisplayOrder model.FlexInt `json:"display_order"`
	Notes        *string       `json:"notes"`
}

func (s *Server) updateImage(w http.ResponseWriter, r *http.Request) {
	var req updateBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		unprocessable(w, "invalid request body")
		return
	}
	if !s.session(req.Email) {
		notFound(w, "Session not found")
		return
	}

	s.mu.Lock()
	i := model.FindImage(s.records[req.Email], req.ImageName)
	if i < 0 {
		s.mu.Unlock()
		notFound(w, "Image record not found")
		return
	}
	rec := &s.records[req.Email][i]
	rec.Status = req.Status
	rec.DisplayOrder = req.DisplayOrder
	if req.Status == model.StatusRejected || req.Status == model.StatusPending {
		rec.DisplayOrder = model.FlexInt{}
	}
	rec.Notes = ""
	if req.Notes != nil {
		rec.Notes = model.FlexString(*req.Notes)
	}
	updated := *rec
	s.mu.Unlock()

	if s.EchoRecords {
		writeJSON(w, http.StatusOK, updated)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Updated successfully"})
}

type resetBody struct {
	Email string `json:"email"`
	SKUID string `json:"sku_id"`
}

func (s *Server) resetSKU(w http.ResponseWriter, r *http.Request) {
	var req resetBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		unprocessable(w, "invalid request body")
		return
	}
	if !s.session(req.Email) {
		notFound(w, "Session not found")
		return
	}

	s.mu.Lock()
	updated := false
	for i := range s.records[req.Email] {
		rec := &s.records[req.Email][i]
		if strings.TrimSpace(rec.SKUID.String()) == strings.TrimSpace(req.SKUID) {
			rec.Status = model.StatusPending
			rec.DisplayOrder = model.FlexInt{}
			updated = true
		}
	}
	s.mu.Unlock()

	if !updated {
		writeJSON(w, http.StatusOK, map[string]string{"message": "No changes made"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Reset all images for SKU " + req.SKUID})
}

// exportReport writes the records as CSV. The real backend produces a
// spreadsheet; the bytes are opaque to the client either way.
func (s *Server) exportReport(approvedOnly bool) http.HandlerFunc {
	filename := "Image_Validation_Report.xlsx"
	if approvedOnly {
		filename = "Approved_Images_Report.xlsx"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		email := r.URL.Query().Get("email")
		if !s.session(email) {
			notFound(w, "Session not found")
			return
		}
		images := s.Images(email)
		if len(images) == 0 {
			badRequest(w, "No data to export")
			return
		}

		var buf bytes.Buffer
		cw := csv.NewWriter(&buf)
		_ = cw.Write([]string{"Image Provided By", "Sku ID", "Image Name", "Approved Status", "Display Order", "Notes"})
		rows := 0
		for _, img := range images {
			if approvedOnly && img.Status != model.StatusApproved {
				continue
			}
			_ = cw.Write([]string{img.ImageProvidedBy.String(), img.SKUID.String(), img.ImageName, string(img.Status), img.DisplayOrder.String(), img.Notes.String()})
			rows++
		}
		cw.Flush()
		if rows == 0 {
			notFound(w, "No approved images found to export")
			return
		}
		writeAttachment(w, filename, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	}
}

func (s *Server) exportSKUArchive(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	skuID := strings.TrimSpace(chi.URLParam(r, "sku_id"))
	var names []string
	for _, img := range s.Images(email) {
		if strings.TrimSpace(img.SKUID.String()) == skuID && img.Status == model.StatusApproved {
			names = append(names, img.ImageName)
		}
	}
	if len(names) == 0 {
		notFound(w, "No approved images found for this SKU")
		return
	}
	s.writeArchive(w, email, skuID+"_approved.zip", names)
}

func (s *Server) exportApprovedArchive(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if !s.session(email) {
		notFound(w, "Session not found")
		return
	}
	images := s.Images(email)
	if len(images) == 0 {
		badRequest(w, "No metadata found")
		return
	}
	seen := map[string]bool{}
	var names []string
	for _, img := range images {
		if img.Status == model.StatusApproved && !seen[img.ImageName] {
			seen[img.ImageName] = true
			names = append(names, img.ImageName)
		}
	}
	if len(names) == 0 {
		notFound(w, "No approved images found across all SKUs")
		return
	}
	s.writeArchive(w, email, "all_approved_images.zip", names)
}

func (s *Server) writeArchive(w http.ResponseWriter, email, filename string, names []string) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		path := "/sessions/" + SessionDir(email) + "/images/" + name
		s.mu.Lock()
		data, ok := s.assets[path]
		s.mu.Unlock()
		if !ok {
			continue
		}
		f, err := zw.Create(name)
		if err != nil {
			writeDetail(w, http.StatusInternalServerError, err.Error())
			return
		}
		_, _ = f.Write(data)
	}
	if err := zw.Close(); err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeAttachment(w, filename, "application/zip", buf.Bytes())
}

func writeAttachment(w http.ResponseWriter, filename, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) serveAsset(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	data, ok := s.assets[r.URL.Path]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	_, _ = w.Write(data)
}
