package asset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfgrader/grader/internal/export"
	"github.com/pdfgrader/grader/internal/typeid"
)

const maxUploadSize = 10 << 20 // 10MB

var ErrNoHebrewFont = errors.New("no hebrew font configured")

// UploadResponse is returned from the upload endpoint.
type UploadResponse struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Type string `json:"type"`
	Name string `json:"name"`
	Font string `json:"font"`
}

// Handler serves the export fonts: uploaded fonts by asset ID and the
// configured Hebrew font.
type Handler struct {
	dir        string // directory to store font files
	hebrewFont string // path of the default Hebrew font, may be empty
}

// NewHandler creates a new font handler that stores uploads in dir.
func NewHandler(dir, hebrewFont string) *Handler {
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Error("create asset dir", "error", err, "dir", dir)
	}
	return &Handler{dir: dir, hebrewFont: hebrewFont}
}

// Upload handles POST /assets/upload (multipart form with "file" field).
// Only TrueType and OpenType fonts are accepted.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "file too large (max 10MB)", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".ttf" && ext != ".otf" {
		http.Error(w, "only .ttf and .otf fonts are supported", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read file", http.StatusBadRequest)
		return
	}
	font, err := export.ParseFont(data)
	if err != nil {
		http.Error(w, "invalid font: "+err.Error(), http.StatusBadRequest)
		return
	}

	assetID := typeid.NewAssetID()
	filename := assetID + ext
	if err := os.WriteFile(filepath.Join(h.dir, filename), data, 0644); err != nil {
		slog.Error("write font file", "error", err)
		http.Error(w, "failed to save file", http.StatusInternalServerError)
		return
	}
	slog.Info("font uploaded", "asset", assetID, "font", font.Name(), "bytes", len(data))

	resp := UploadResponse{
		ID:   assetID,
		URL:  fmt.Sprintf("/assets/%s", filename),
		Type: strings.TrimPrefix(ext, "."),
		Name: header.Filename,
		Font: font.Name(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// Serve returns an http.Handler that serves stored font files with caching headers.
func (h *Handler) Serve() http.Handler {
	fs := http.FileServer(http.Dir(h.dir))
	return http.StripPrefix("/assets/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Asset IDs are unique, so files are immutable
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}

// HebrewFont handles GET /fonts/hebrew, serving the configured default
// Hebrew font used for export.
func (h *Handler) HebrewFont(w http.ResponseWriter, r *http.Request) {
	data, err := h.LoadHebrewFont()
	if errors.Is(err, ErrNoHebrewFont) {
		http.Error(w, "no hebrew font configured", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("load hebrew font", "error", err, "path", h.hebrewFont)
		http.Error(w, "hebrew font unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "font/ttf")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

// LoadHebrewFont reads and validates the configured Hebrew font.
func (h *Handler) LoadHebrewFont() ([]byte, error) {
	if h.hebrewFont == "" {
		return nil, ErrNoHebrewFont
	}
	data, err := os.ReadFile(h.hebrewFont)
	if err != nil {
		return nil, fmt.Errorf("read hebrew font: %w", err)
	}
	if _, err := export.ParseFont(data); err != nil {
		return nil, fmt.Errorf("hebrew font %s: %w", h.hebrewFont, err)
	}
	return data, nil
}
