package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/rnaseq-qc/internal/store"
	"github.com/jonathan/rnaseq-qc/internal/types"
)

// maxUploadBytes caps a single multipart upload (FASTQ files are large).
const maxUploadBytes = 2 << 30

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.okResponse(w, map[string]any{"time": store.NowISO()})
}

// handleUpload accepts a multipart form with a sample name and one or
// more FASTQ files, storing them under the sample's upload directory.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		s.errorResponse(w, http.StatusBadRequest, "no files")
		return
	}

	name := r.FormValue("sample_name")
	if name == "" {
		name = "sample-" + uuid.New().String()[:6]
	}

	destDir := filepath.Join(s.cfg.UploadDir(), sanitizeName(name))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to create sample directory")
		return
	}

	saved := make([]string, 0, len(files))
	for _, fh := range files {
		path, err := saveUploadedFile(fh, destDir)
		if err != nil {
			s.errorResponse(w, http.StatusInternalServerError, "failed to save file: "+err.Error())
			return
		}
		saved = append(saved, path)
	}

	s.okResponse(w, map[string]any{
		"sample": types.Sample{Name: name, Files: saved},
	})
}

// handleRun creates a queued run for an uploaded sample and launches the
// pipeline in the background.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req types.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	jobID := strings.ReplaceAll(uuid.New().String(), "-", "")
	if err := s.store.CreateRun(r.Context(), jobID, req.Sample, req.Params); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to create run")
		return
	}

	log.Printf("Starting pipeline run %s for sample %s", jobID, req.Sample.Name)
	go func() {
		if err := s.runner.Run(context.Background(), jobID); err != nil {
			log.Printf("Pipeline run %s failed: %v", jobID, err)
		}
	}()

	s.okResponse(w, map[string]any{"job_id": jobID})
}

// handleStatus returns the current job snapshot for polling clients.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	job, err := s.store.GetRun(r.Context(), jobID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "database error: "+err.Error())
		return
	}
	if job == nil {
		s.errorResponse(w, http.StatusNotFound, "not found")
		return
	}
	s.okResponse(w, map[string]any{"job": job})
}

// handleListRuns returns summary records for all runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "database error: "+err.Error())
		return
	}
	s.okResponse(w, map[string]any{"runs": runs})
}

// handleGetRun returns a single run as a plain JSON object for the report
// view.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	job, err := s.store.GetRun(r.Context(), jobID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "database error: "+err.Error())
		return
	}
	if job == nil {
		s.errorResponse(w, http.StatusNotFound, "not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}

// handleArtifact serves raw artifact bytes by opaque path. Paths must
// resolve inside the QC or storage roots; anything else is reported as
// not found.
func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		s.errorResponse(w, http.StatusBadRequest, "missing path")
		return
	}

	full, err := filepath.Abs(path)
	if err != nil || !s.allowedArtifactPath(full) {
		s.errorResponse(w, http.StatusNotFound, "not found")
		return
	}
	if info, err := os.Stat(full); err != nil || info.IsDir() {
		s.errorResponse(w, http.StatusNotFound, "not found")
		return
	}

	http.ServeFile(w, r, full)
}

// handleQCFile serves a file from a job's QC working directory, guarding
// against path traversal out of the job's own subtree.
func (s *Server) handleQCFile(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	rest := r.PathValue("rest")

	base, err := filepath.Abs(filepath.Join(s.cfg.QCRoot, jobID))
	if err != nil {
		s.errorResponse(w, http.StatusNotFound, "not found")
		return
	}
	full, err := filepath.Abs(filepath.Join(base, rest))
	if err != nil || !strings.HasPrefix(full, base+string(filepath.Separator)) {
		s.errorResponse(w, http.StatusNotFound, "not found")
		return
	}
	if info, err := os.Stat(full); err != nil || info.IsDir() {
		s.errorResponse(w, http.StatusNotFound, "not found")
		return
	}

	http.ServeFile(w, r, full)
}

// allowedArtifactPath reports whether an absolute path lies inside one of
// the roots the service writes artifacts to.
func (s *Server) allowedArtifactPath(full string) bool {
	for _, root := range []string{s.cfg.QCRoot, s.cfg.StorageRoot} {
		abs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if strings.HasPrefix(full, abs+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// sanitizeName strips path separators and traversal sequences from a
// client-supplied name before it is used as a directory or file name.
func sanitizeName(name string) string {
	name = filepath.Base(name)
	return strings.ReplaceAll(name, "..", "_")
}

// saveUploadedFile writes one uploaded file into destDir and returns the
// stored path.
func saveUploadedFile(fh *multipart.FileHeader, destDir string) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
	}
	defer src.Close()

	path := filepath.Join(destDir, sanitizeName(fh.Filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
