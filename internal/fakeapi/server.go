// Package fakeapi is an in-memory implementation of the review backend's
// REST contract. Tests run it behind httptest to exercise the client stack
// end to end, with per-route fault injection and a call log.
package fakeapi

import (
	"bytes"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/leca/skureview/internal/model"
)

// Call is one request the server received.
type Call struct {
	ID     string
	Method string
	Path   string
	Query  string
	Body   []byte
}

type fault struct {
	status int
	body   string
}

// Server holds the backend state and its chi router.
type Server struct {
	// EchoRecords makes PUT /validate/update return the updated record
	// instead of a bare acknowledgement.
	EchoRecords bool

	mu       sync.Mutex
	sessions map[string]bool
	records  map[string][]model.Image
	uploads  map[string][]string
	assets   map[string][]byte
	faults   map[string]fault
	calls    []Call

	Router chi.Router
}

// New creates an empty backend with its routes registered.
func New() *Server {
	s := &Server{
		sessions: make(map[string]bool),
		records:  make(map[string][]model.Image),
		uploads:  make(map[string][]string),
		assets:   make(map[string][]byte),
		faults:   make(map[string]fault),
	}

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Disposition", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(middleware.Recoverer)
	r.Use(s.record)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Image Validator API is running"})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.login)
		r.Post("/logout", s.logout)
	})

	r.Route("/upload", func(r chi.Router) {
		r.Post("/excel", s.uploadExcel)
		r.Post("/images", s.uploadImages)
	})

	r.Route("/validate", func(r chi.Router) {
		r.Get("/skus", s.listSKUs)
		r.Get("/images/{sku_id}", s.listImages)
		r.Put("/update", s.updateImage)
		r.Post("/reset", s.resetSKU)
	})

	r.Route("/export", func(r chi.Router) {
		r.Get("/excel", s.exportReport(false))
		r.Get("/approved-excel", s.exportReport(true))
		r.Get("/zip/{sku_id}", s.exportSKUArchive)
		r.Get("/approved-zip", s.exportApprovedArchive)
	})

	r.Get("/sessions/*", s.serveAsset)

	s.Router = r
	return s
}

// record logs the call and applies any fault registered for it.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil && !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = newID()
		}

		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		s.calls = append(s.calls, Call{
			ID:     id,
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   body,
		})
		f, faulted := s.matchFault(key)
		s.mu.Unlock()

		if faulted {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(f.body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) matchFault(key string) (fault, bool) {
	for prefix, f := range s.faults {
		if strings.HasPrefix(key, prefix) {
			return f, true
		}
	}
	return fault{}, false
}

// Fail makes every request whose "METHOD /path" starts with route answer
// with status and a {"detail": detail} body until cleared.
func (s *Server) Fail(route string, status int, detail string) {
	body := `{"detail":null}`
	if detail != "" {
		body = `{"detail":` + quote(detail) + `}`
	}
	s.Respond(route, status, body)
}

// Respond makes matching requests answer with a raw body.
func (s *Server) Respond(route string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[route] = fault{status: status, body: body}
}

// Clear removes the fault registered for route.
func (s *Server) Clear(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.faults, route)
}

// Calls returns a copy of the call log.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount counts calls whose "METHOD /path" starts with route.
func (s *Server) CallCount(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if strings.HasPrefix(c.Method+" "+c.Path, route) {
			n++
		}
	}
	return n
}

// Seed opens a session for email and appends image records to it. Missing
// statuses default to Pending.
func (s *Server) Seed(email string, images ...model.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[email] = true
	for _, img := range images {
		if img.Status == "" {
			img.Status = model.StatusPending
		}
		s.records[email] = append(s.records[email], img)
	}
}

// Images returns a copy of email's records in ingestion order.
func (s *Server) Images(email string) []model.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Image, len(s.records[email]))
	copy(out, s.records[email])
	return out
}

// Image returns one record by name.
func (s *Server) Image(email, name string) (model.Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := model.FindImage(s.records[email], name); i >= 0 {
		return s.records[email][i], true
	}
	return model.Image{}, false
}

// HasSession reports whether email is logged in.
func (s *Server) HasSession(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[email]
}

// Uploads returns the filenames uploaded by email.
func (s *Server) Uploads(email string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.uploads[email]...)
}

// SetAsset registers bytes served under an image path such as
// "/sessions/op/images/a.jpg".
func (s *Server) SetAsset(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[path] = data
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_\-]`)

// SessionDir is the directory name the backend derives from an email.
func SessionDir(email string) string {
	return unsafeChars.ReplaceAllString(email, "_")
}

func newID() string { return uuid.NewString() }
