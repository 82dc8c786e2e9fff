package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/FocuswithJustin/Linegra/core/capsule"
	"github.com/FocuswithJustin/Linegra/core/cache"
	"github.com/FocuswithJustin/Linegra/core/cas"
	"github.com/FocuswithJustin/Linegra/core/errors"
	"github.com/FocuswithJustin/Linegra/core/gedcom"
	"github.com/FocuswithJustin/Linegra/core/lineage"
	"github.com/FocuswithJustin/Linegra/internal/importer"
	"github.com/FocuswithJustin/Linegra/internal/logging"
	"github.com/FocuswithJustin/Linegra/internal/report"
	"github.com/FocuswithJustin/Linegra/internal/validation"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *APIMeta  `json:"meta,omitempty"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIMeta carries response metadata.
type APIMeta struct {
	Total     int    `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

// HealthInfo is returned by /health.
type HealthInfo struct {
	Status  string      `json:"status"`
	Version string      `json:"version"`
	Uptime  string      `json:"uptime"`
	Jobs    int         `json:"jobs"`
	Clients int         `json:"clients"`
	Cache   cache.Stats `json:"cache"`
}

// CreateTreeRequest is the body of POST /trees.
type CreateTreeRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ParseResponse is returned by POST /parse.
type ParseResponse struct {
	Digest        cas.Digest             `json:"digest"`
	Cached        bool                   `json:"cached"`
	Stats         gedcom.Stats           `json:"stats"`
	People        []lineage.Person       `json:"people"`
	Relationships []lineage.Relationship `json:"relationships"`
	Warnings      []string               `json:"warnings"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"name":    "Linegra API",
		"version": capsule.ToolVersion,
		"endpoints": []string{
			"GET /health",
			"GET /trees",
			"POST /trees",
			"GET /trees/{id}",
			"DELETE /trees/{id}",
			"GET /trees/{id}/imports",
			"POST /trees/{id}/imports",
			"GET /trees/{id}/export",
			"GET /trees/{id}/report",
			"POST /parse",
			"GET /jobs",
			"GET /jobs/{id}",
			"DELETE /jobs/{id}",
			"WS /ws",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	respond(w, http.StatusOK, HealthInfo{
		Status:  "healthy",
		Version: capsule.ToolVersion,
		Uptime:  time.Since(s.started).Round(time.Second).String(),
		Jobs:    len(s.jobs.List("")),
		Clients: s.hub.ClientCount(),
		Cache:   s.importer.CacheStats(),
	})
}

func (s *Server) handleTrees(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		trees, err := s.archive.ListTrees(r.Context())
		if err != nil {
			respondErr(w, r, err)
			return
		}
		respondList(w, trees, len(trees))
	case http.MethodPost:
		var req CreateTreeRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
			return
		}
		tree, err := s.archive.CreateTree(r.Context(), req.Name, req.Description)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		respond(w, http.StatusCreated, tree)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		tree, err := s.archive.GetTree(r.Context(), id)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		respond(w, http.StatusOK, tree)
	case http.MethodDelete:
		if err := s.archive.DeleteTree(r.Context(), id); err != nil {
			respondErr(w, r, err)
			return
		}
		respond(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodDelete)
	}
}

func (s *Server) handleImports(w http.ResponseWriter, r *http.Request) {
	treeID := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		records, err := s.archive.ListImports(r.Context(), treeID)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		respondList(w, records, len(records))
	case http.MethodPost:
		s.startImport(w, r, treeID)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// startImport validates the uploaded document and hands it to a job. The
// response is 202 with the pending job.
func (s *Server) startImport(w http.ResponseWriter, r *http.Request, treeID string) {
	if _, err := s.archive.GetTree(r.Context(), treeID); err != nil {
		respondErr(w, r, err)
		return
	}
	name := "upload.ged"
	if q := r.URL.Query().Get("name"); q != "" {
		clean, err := validation.SanitizeFilename(q)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		name = clean
	}
	data, err := validation.ReadUpload(r.Body, s.cfg.MaxUploadBytes)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if err := validation.ValidateDocument(name, data, s.cfg.MaxUploadBytes); err != nil {
		respondErr(w, r, err)
		return
	}

	job, ctx := s.jobs.Create(treeID, name)
	go s.runJob(ctx, job, importer.Request{TreeID: treeID, Name: name, Data: data})

	w.Header().Set("Location", "/jobs/"+job.ID)
	respond(w, http.StatusAccepted, job)
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// attachmentName turns a tree name into a download file name.
func attachmentName(name, ext string) string {
	base := strings.Trim(unsafeFileChars.ReplaceAllString(name, "_"), "._")
	if base == "" {
		base = "tree"
	}
	return base + ext
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	treeID := r.PathValue("id")
	tree, err := s.archive.GetTree(r.Context(), treeID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	ds, err := s.archive.LoadDataset(r.Context(), treeID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	text, loss := gedcom.ExportWithReport(ds.People, ds.Relationships)
	if loss.HasLoss() {
		logging.InfoContext(r.Context(), "export dropped data", "tree_id", treeID,
			"loss_class", loss.LossClass, "lost_elements", len(loss.LostElements))
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachmentName(tree.Name, ".ged")))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(text))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	ctx := r.Context()
	treeID := r.PathValue("id")
	tree, err := s.archive.GetTree(ctx, treeID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	ds, err := s.archive.LoadDataset(ctx, treeID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	imports, err := s.archive.ListImports(ctx, treeID)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, report.Input{Tree: tree, Dataset: ds, Imports: imports}); err != nil {
		respondErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachmentName(tree.Name, ".xlsx")))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	data, err := validation.ReadUpload(r.Body, s.cfg.MaxUploadBytes)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	result, digest, cached := s.importer.Parse(data)
	respond(w, http.StatusOK, ParseResponse{
		Digest:        digest,
		Cached:        cached,
		Stats:         result.Stats(),
		People:        result.People,
		Relationships: result.Relationships,
		Warnings:      result.Warnings,
	})
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	jobs := s.jobs.List(r.URL.Query().Get("tree"))
	respondList(w, jobs, len(jobs))
}

func (s *Server) handleJobByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		job, ok := s.jobs.Get(id)
		if !ok {
			respondErr(w, r, errors.NewNotFound("job", id))
			return
		}
		respond(w, http.StatusOK, job)
	case http.MethodDelete:
		job, err := s.jobs.Cancel(id)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		respond(w, http.StatusAccepted, job)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodDelete)
	}
}

func allowMethods(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	methodNotAllowed(w, methods...)
	return false
}

func methodNotAllowed(w http.ResponseWriter, methods ...string) {
	w.Header().Set("Allow", strings.Join(methods, ", "))
	respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
		"Only "+strings.Join(methods, " and ")+" allowed")
}

func meta() *APIMeta {
	return &APIMeta{Timestamp: time.Now().UTC().Format(time.RFC3339)}
}

func respond(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, APIResponse{Success: true, Data: data, Meta: meta()})
}

func respondList(w http.ResponseWriter, data any, total int) {
	m := meta()
	m.Total = total
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data, Meta: m})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message},
		Meta:    meta(),
	})
}

// respondErr maps an error to its status and code. Unknown errors are
// logged and reported without detail.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, validation.ErrTooLarge):
		respondError(w, http.StatusRequestEntityTooLarge, "TOO_LARGE", err.Error())
	case errors.Is(err, validation.ErrEmptyUpload), errors.Is(err, validation.ErrNotDocument),
		errors.Is(err, validation.ErrInvalidFilename), errors.Is(err, validation.ErrFilenameTooLong):
		respondError(w, http.StatusBadRequest, "INVALID_DOCUMENT", err.Error())
	case errors.Is(err, errors.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, errors.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, errors.ErrUnsupported):
		respondError(w, http.StatusBadRequest, "UNSUPPORTED", err.Error())
	case errors.Is(err, errors.ErrCanceled):
		respondError(w, http.StatusConflict, "CANCELLED", err.Error())
	default:
		logging.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
