package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/poiesic/clausemark/core"
	"github.com/poiesic/clausemark/ingestion"
	"github.com/poiesic/clausemark/pdftext"
	"github.com/poiesic/clausemark/storage"
)

// DefaultTopK is used when an ask request leaves top_k unset.
const DefaultTopK = 3

type ingestRequest struct {
	Filename string            `json:"filename"`
	Pages    []string          `json:"pages"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type ingestedDocument struct {
	DocumentID core.ID `json:"document_id"`
	Filename   string  `json:"filename"`
	Pages      int     `json:"pages"`
	Chars      int     `json:"chars"`
	Duplicate  bool    `json:"duplicate,omitempty"`
}

type askRequest struct {
	Question string `json:"question"`
	TopK     *int   `json:"top_k,omitempty"`
}

type pageView struct {
	Page  int `json:"page"`
	Start int `json:"start_char"`
	End   int `json:"end_char"`
}

type documentView struct {
	DocumentID core.ID           `json:"document_id"`
	Filename   string            `json:"filename"`
	Chars      int               `json:"chars"`
	Pages      []pageView        `json:"pages"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	InsertedAt string            `json:"inserted_at"`
}

// handleIngest accepts either a JSON body of page texts or a multipart
// upload with one or more "files" parts.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	var results []ingestion.Result
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		var ok bool
		if results, ok = s.ingestMultipart(w, r); !ok {
			return
		}
	} else {
		var req ingestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.Filename == "" {
			jsonError(w, "filename is required", http.StatusBadRequest)
			return
		}
		res, err := s.svc.Ingest(r.Context(), sanitizeFilename(req.Filename), req.Pages, req.Metadata)
		if err != nil {
			s.writeError(w, err)
			return
		}
		results = append(results, res)
	}

	ingested := make([]ingestedDocument, 0, len(results))
	for _, res := range results {
		ingested = append(ingested, ingestedDocument{
			DocumentID: res.Document.Id,
			Filename:   res.Document.Filename,
			Pages:      len(res.Document.Pages),
			Chars:      len(res.Document.FullText),
			Duplicate:  res.Duplicate,
		})
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ingested": ingested})
}

func (s *Server) ingestMultipart(w http.ResponseWriter, r *http.Request) ([]ingestion.Result, bool) {
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		jsonError(w, "no files provided", http.StatusBadRequest)
		return nil, false
	}

	results := make([]ingestion.Result, 0, len(headers))
	for _, header := range headers {
		filename := sanitizeFilename(header.Filename)
		if !pdftext.IsPDF(filename) {
			jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
			return nil, false
		}
		file, err := header.Open()
		if err != nil {
			jsonError(w, "failed to read file", http.StatusInternalServerError)
			return nil, false
		}
		res, err := s.svc.IngestReader(r.Context(), file, filename)
		file.Close()
		if err != nil {
			s.writeError(w, err)
			return nil, false
		}
		results = append(results, res)
	}
	return results, true
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	doc, err := s.svc.Document(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	view := documentView{
		DocumentID: doc.Id,
		Filename:   doc.Filename,
		Chars:      len(doc.FullText),
		Pages:      make([]pageView, 0, len(doc.Pages)),
		Metadata:   doc.Metadata,
		InsertedAt: doc.InsertedAt.UTC().Format(time.RFC3339),
	}
	for _, p := range doc.Pages {
		view.Pages = append(view.Pages, pageView{Page: p.Page, Start: p.Start, End: p.End})
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	findings, err := s.svc.Audit(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"document_id": id, "findings": findings})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	fields, err := s.svc.Extract(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"document_id": id, "fields": fields.Map()})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		jsonError(w, "question is required", http.StatusBadRequest)
		return
	}
	k := DefaultTopK
	if req.TopK != nil {
		k = *req.TopK
	}
	if k > s.maxTopK {
		jsonError(w, fmt.Sprintf("top_k must be at most %d", s.maxTopK), http.StatusBadRequest)
		return
	}

	resp, err := s.svc.Query(r.Context(), req.Question, k)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func documentID(w http.ResponseWriter, r *http.Request) (core.ID, bool) {
	raw := chi.URLParam(r, "docID")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		jsonError(w, fmt.Sprintf("invalid document id %q", raw), http.StatusBadRequest)
		return 0, false
	}
	return core.ID(id), true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, core.ErrInvalidDocument),
		errors.Is(err, core.ErrInvalidPageSpan),
		errors.Is(err, pdftext.ErrUnsupportedFormat):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &maxBytes):
		jsonError(w, err.Error(), http.StatusRequestEntityTooLarge)
	default:
		s.log.Error("request failed", "err", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
