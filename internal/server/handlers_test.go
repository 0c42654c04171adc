package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/rnaseq-qc/internal/config"
	"github.com/jonathan/rnaseq-qc/internal/types"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		APIPort:       5050,
		QCRoot:        filepath.Join(root, "qc"),
		StorageRoot:   filepath.Join(root, "storage"),
		STARGenomeDir: filepath.Join(root, "star_index"),
		GTFPath:       filepath.Join(root, "genomic.gtf"),
		DBPath:        filepath.Join(root, "rnaseq.sqlite"),
		Threads:       1,
	}
	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.store.Close() })
	return s
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)

	resp := httptest.NewRecorder()
	s.handleHealth(resp, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["ok"])
	assert.NotEmpty(t, body["time"])
}

func multipartUpload(t *testing.T, sampleName string, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if sampleName != "" {
		require.NoError(t, mw.WriteField("sample_name", sampleName))
	}
	for name, content := range files {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandleUpload(t *testing.T) {
	s := newTestServer(t)

	resp := httptest.NewRecorder()
	s.handleUpload(resp, multipartUpload(t, "patient1", map[string]string{
		"R1.fastq.gz": "@read1\nACGT\n+\nFFFF\n",
		"R2.fastq.gz": "@read1\nTGCA\n+\nFFFF\n",
	}))

	require.Equal(t, http.StatusOK, resp.Code)
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["ok"])

	sample := body["sample"].(map[string]any)
	assert.Equal(t, "patient1", sample["name"])
	files := sample["files"].([]any)
	require.Len(t, files, 2)
	for _, f := range files {
		_, err := os.Stat(f.(string))
		assert.NoError(t, err)
		assert.True(t, strings.HasPrefix(f.(string), s.cfg.UploadDir()))
	}
}

func TestHandleUpload_NoFiles(t *testing.T) {
	s := newTestServer(t)

	resp := httptest.NewRecorder()
	s.handleUpload(resp, multipartUpload(t, "patient1", nil))

	require.Equal(t, http.StatusBadRequest, resp.Code)
	body := decodeBody(t, resp)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "no files", body["error"])
}

func TestHandleUpload_GeneratedSampleName(t *testing.T) {
	s := newTestServer(t)

	resp := httptest.NewRecorder()
	s.handleUpload(resp, multipartUpload(t, "", map[string]string{"R1.fastq.gz": "data"}))

	require.Equal(t, http.StatusOK, resp.Code)
	sample := decodeBody(t, resp)["sample"].(map[string]any)
	assert.True(t, strings.HasPrefix(sample["name"].(string), "sample-"))
}

func TestHandleRun_InvalidBody(t *testing.T) {
	s := newTestServer(t)

	resp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/run", strings.NewReader("{not json"))
	s.handleRun(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, false, decodeBody(t, resp)["ok"])
}

func TestHandleRun_MissingSampleName(t *testing.T) {
	s := newTestServer(t)

	body, _ := json.Marshal(types.RunRequest{Sample: types.Sample{Files: []string{"r1.fq"}}})
	resp := httptest.NewRecorder()
	s.handleRun(resp, httptest.NewRequest(http.MethodPost, "/api/run", bytes.NewReader(body)))

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, decodeBody(t, resp)["error"], "sample name")
}

func TestHandleRun_NoFilesFailsJob(t *testing.T) {
	s := newTestServer(t)

	body, _ := json.Marshal(types.RunRequest{Sample: types.Sample{Name: "patient1"}})
	resp := httptest.NewRecorder()
	s.handleRun(resp, httptest.NewRequest(http.MethodPost, "/api/run", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, resp.Code)
	respBody := decodeBody(t, resp)
	assert.Equal(t, true, respBody["ok"])
	jobID := respBody["job_id"].(string)
	assert.Len(t, jobID, 32)

	// The background run records a failed error stage at progress 100.
	require.Eventually(t, func() bool {
		job, err := s.store.GetRun(context.Background(), jobID)
		return err == nil && job != nil && job.Status == types.StatusFailed
	}, 5*time.Second, 20*time.Millisecond)

	job, err := s.store.GetRun(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, float64(100), job.Progress)
	require.NotEmpty(t, job.Stages)
	assert.Equal(t, "error", job.Stages[0].Name)
}

func TestHandleStatus_NotFound(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/status/missing", nil)
	req.SetPathValue("job_id", "missing")
	resp := httptest.NewRecorder()
	s.handleStatus(resp, req)

	require.Equal(t, http.StatusNotFound, resp.Code)
	body := decodeBody(t, resp)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "not found", body["error"])
}

func TestHandleStatus(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.store.CreateRun(context.Background(), "abc123",
		types.Sample{Name: "s1", Files: []string{"r1.fq"}}, types.RunParams{}))

	req := httptest.NewRequest(http.MethodGet, "/api/status/abc123", nil)
	req.SetPathValue("job_id", "abc123")
	resp := httptest.NewRecorder()
	s.handleStatus(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["ok"])
	job := body["job"].(map[string]any)
	assert.Equal(t, "abc123", job["id"])
	assert.Equal(t, "queued", job["status"])
}

func TestHandleGetRun_BareRecord(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.store.CreateRun(context.Background(), "abc123",
		types.Sample{Name: "s1", Files: []string{"r1.fq"}}, types.RunParams{}))

	req := httptest.NewRequest(http.MethodGet, "/api/runs/abc123", nil)
	req.SetPathValue("job_id", "abc123")
	resp := httptest.NewRecorder()
	s.handleGetRun(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	// The report endpoint returns the plain job record, not an envelope.
	var job types.Job
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&job))
	assert.Equal(t, "abc123", job.ID)
}

func TestHandleListRuns(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.store.CreateRun(context.Background(), "run1",
		types.Sample{Name: "s1", Files: []string{"a"}}, types.RunParams{}))

	resp := httptest.NewRecorder()
	s.handleListRuns(resp, httptest.NewRequest(http.MethodGet, "/api/runs", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["ok"])
	assert.Len(t, body["runs"], 1)
}

func TestHandleArtifact_MissingPath(t *testing.T) {
	s := newTestServer(t)

	resp := httptest.NewRecorder()
	s.handleArtifact(resp, httptest.NewRequest(http.MethodGet, "/api/artifact", nil))

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "missing path", decodeBody(t, resp)["error"])
}

func TestHandleArtifact_OutsideRoots(t *testing.T) {
	s := newTestServer(t)

	resp := httptest.NewRecorder()
	s.handleArtifact(resp, httptest.NewRequest(http.MethodGet,
		"/api/artifact?path="+url.QueryEscape("/etc/passwd"), nil))

	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "not found", decodeBody(t, resp)["error"])
}

func TestHandleArtifact_ServesFile(t *testing.T) {
	s := newTestServer(t)

	jobDir := filepath.Join(s.cfg.QCRoot, "abc123")
	require.NoError(t, os.MkdirAll(jobDir, 0o755))
	artifact := filepath.Join(jobDir, "per base quality.png")
	require.NoError(t, os.WriteFile(artifact, []byte("PNGDATA"), 0o644))

	resp := httptest.NewRecorder()
	s.handleArtifact(resp, httptest.NewRequest(http.MethodGet,
		"/api/artifact?path="+url.QueryEscape(artifact), nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "PNGDATA", resp.Body.String())
}

func TestHandleQCFile_Traversal(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/qc/abc123/x", nil)
	req.SetPathValue("job_id", "abc123")
	req.SetPathValue("rest", "../../../etc/passwd")
	resp := httptest.NewRecorder()
	s.handleQCFile(resp, req)

	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "patient1", sanitizeName("patient1"))
	assert.Equal(t, "passwd", sanitizeName("/etc/passwd"))
	assert.Equal(t, "_evil", sanitizeName("..evil"))
}
