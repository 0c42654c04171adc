// Package client provides the HTTP client and polling session used by the
// CLI to drive the QC service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonathan/rnaseq-qc/internal/types"
)

// Client talks to the QC service API. All responses carry the boolean ok
// discriminator; ok:false surfaces as an *APIError with the server's
// message.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// New creates a client for the API at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is an application-level failure reported by the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error (HTTP %d)", e.StatusCode)
	}
	return e.Message
}

// envelope is the common response wrapper carrying the ok discriminator.
type envelope struct {
	OK     bool          `json:"ok"`
	Error  string        `json:"error,omitempty"`
	Time   string        `json:"time,omitempty"`
	Sample *types.Sample `json:"sample,omitempty"`
	JobID  string        `json:"job_id,omitempty"`
	Job    *types.Job    `json:"job,omitempty"`
	Runs   []types.Job   `json:"runs,omitempty"`
}

// doJSON issues a request and decodes the ok-discriminated envelope.
func (c *Client) doJSON(req *http.Request) (*envelope, error) {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !env.OK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: env.Error}
	}
	return &env, nil
}

// Health checks that the service is reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return err
	}
	_, err = c.doJSON(req)
	return err
}

// Upload sends the named files as one sample and returns the stored
// sample record.
func (c *Client) Upload(ctx context.Context, sampleName string, paths []string) (*types.Sample, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("sample_name", sampleName); err != nil {
		return nil, fmt.Errorf("failed to write sample name: %w", err)
	}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		part, err := mw.CreateFormFile("files", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to attach %s: %w", path, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	env, err := c.doJSON(req)
	if err != nil {
		return nil, err
	}
	if env.Sample == nil {
		return nil, fmt.Errorf("upload response missing sample")
	}
	return env.Sample, nil
}

// StartRun starts a pipeline run for an uploaded sample and returns the
// new job ID.
func (c *Client) StartRun(ctx context.Context, sample types.Sample, params types.RunParams) (string, error) {
	body, err := json.Marshal(types.RunRequest{Sample: sample, Params: params})
	if err != nil {
		return "", fmt.Errorf("failed to marshal run request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/run", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	env, err := c.doJSON(req)
	if err != nil {
		return "", err
	}
	if env.JobID == "" {
		return "", fmt.Errorf("run response missing job_id")
	}
	return env.JobID, nil
}

// Status fetches the current job snapshot.
func (c *Client) Status(ctx context.Context, jobID string) (*types.Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/status/"+url.PathEscape(jobID), nil)
	if err != nil {
		return nil, err
	}

	env, err := c.doJSON(req)
	if err != nil {
		return nil, err
	}
	if env.Job == nil {
		return nil, fmt.Errorf("status response missing job")
	}
	return env.Job, nil
}

// Run fetches the full job record for the report view.
func (c *Client) Run(ctx context.Context, jobID string) (*types.Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/runs/"+url.PathEscape(jobID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var env envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err == nil && env.Error != "" {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: env.Error}
		}
		return nil, &APIError{StatusCode: resp.StatusCode}
	}

	var job types.Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("failed to decode run record: %w", err)
	}
	return &job, nil
}

// ListRuns fetches summary records for all runs, newest first.
func (c *Client) ListRuns(ctx context.Context) ([]types.Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/runs", nil)
	if err != nil {
		return nil, err
	}

	env, err := c.doJSON(req)
	if err != nil {
		return nil, err
	}
	return env.Runs, nil
}

// ArtifactURL builds the retrieval URL for an artifact path. The opaque
// path is percent-encoded before being embedded in the query string.
func (c *Client) ArtifactURL(path string) string {
	return c.baseURL + "/api/artifact?path=" + url.QueryEscape(path)
}

// FetchArtifact retrieves the raw bytes of an artifact. The caller must
// close the returned reader.
func (c *Client) FetchArtifact(ctx context.Context, path string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ArtifactURL(path), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		var env envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err == nil && env.Error != "" {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: env.Error}
		}
		return nil, &APIError{StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}
