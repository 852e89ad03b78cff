package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/automeetsslide/decksidecar/internal/credentials"
	"github.com/automeetsslide/decksidecar/internal/errors"
)

// HTTPClient implements Client against the workspace REST API.
type HTTPClient struct {
	baseURL string
	tokens  *credentials.Tokens
	client  *http.Client
}

// NewHTTPClient creates a client for baseURL that authenticates with tokens.
// timeout bounds each request, including upload and download bodies.
func NewHTTPClient(baseURL string, tokens *credentials.Tokens, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		client:  &http.Client{Timeout: timeout},
	}
}

type artifactDTO struct {
	ID     string     `json:"id"`
	Title  string     `json:"title"`
	Kind   string     `json:"kind"`
	Status TaskStatus `json:"status"`
}

func (d artifactDTO) toArtifact() Artifact {
	return Artifact{
		ID:     d.ID,
		Title:  d.Title,
		Kind:   ParseArtifactKind(d.Kind),
		Status: d.Status,
	}
}

type apiError struct {
	Error string `json:"error"`
}

func (c *HTTPClient) CreateNotebook(ctx context.Context, title string) (Notebook, error) {
	var nb Notebook
	err := c.doJSON(ctx, "create_notebook", http.MethodPost, "/notebooks", map[string]string{"title": title}, &nb)
	return nb, err
}

func (c *HTTPClient) ListNotebooks(ctx context.Context) ([]Notebook, error) {
	var notebooks []Notebook
	err := c.doJSON(ctx, "list_notebooks", http.MethodGet, "/notebooks", nil, &notebooks)
	return notebooks, err
}

func (c *HTTPClient) AddFileSource(ctx context.Context, notebookID, path string) (Source, error) {
	const op = "add_file_source"

	f, err := os.Open(path)
	if err != nil {
		return Source{}, fmt.Errorf("%s: opening %s: %w", op, path, err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := c.newRequest(ctx, http.MethodPost, c.notebookPath(notebookID, "sources", "file"), pr)
	if err != nil {
		return Source{}, remoteErr(op, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var src Source
	return src, c.do(op, req, &src)
}

func (c *HTTPClient) AddURLSource(ctx context.Context, notebookID, sourceURL string) (Source, error) {
	var src Source
	err := c.doJSON(ctx, "add_url_source", http.MethodPost,
		c.notebookPath(notebookID, "sources", "url"), map[string]string{"url": sourceURL}, &src)
	return src, err
}

func (c *HTTPClient) GetSource(ctx context.Context, notebookID, sourceID string) (Source, error) {
	var src Source
	err := c.doJSON(ctx, "get_source", http.MethodGet,
		c.notebookPath(notebookID, "sources", sourceID), nil, &src)
	return src, err
}

func (c *HTTPClient) GenerateSlideDeck(ctx context.Context, notebookID, instructions string) (GenerationStatus, error) {
	var status GenerationStatus
	err := c.doJSON(ctx, "generate_slide_deck", http.MethodPost,
		c.notebookPath(notebookID, "artifacts", "slide-deck"), map[string]string{"instructions": instructions}, &status)
	return status, err
}

func (c *HTTPClient) PollGeneration(ctx context.Context, notebookID, taskID string) (GenerationStatus, error) {
	var status GenerationStatus
	err := c.doJSON(ctx, "poll_generation", http.MethodGet,
		c.notebookPath(notebookID, "tasks", taskID), nil, &status)
	if err == nil && status.TaskID == "" {
		status.TaskID = taskID
	}
	return status, err
}

func (c *HTTPClient) ListArtifacts(ctx context.Context, notebookID string) ([]Artifact, error) {
	var dtos []artifactDTO
	if err := c.doJSON(ctx, "list_artifacts", http.MethodGet,
		c.notebookPath(notebookID, "artifacts"), nil, &dtos); err != nil {
		return nil, err
	}

	artifacts := make([]Artifact, 0, len(dtos))
	for _, d := range dtos {
		artifacts = append(artifacts, d.toArtifact())
	}
	return artifacts, nil
}

func (c *HTTPClient) DownloadSlideDeck(ctx context.Context, notebookID, dest, artifactID string) (string, error) {
	const op = "download_slide_deck"

	path := c.notebookPath(notebookID, "artifacts", "slide-deck", "download")
	if artifactID != "" {
		path += "?" + url.Values{"artifact_id": {artifactID}}.Encode()
	}

	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", remoteErr(op, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", remoteErr(op, classifyError(err))
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", remoteErr(op, err)
	}

	// Write next to the destination and rename, so a failed transfer never
	// leaves a truncated file under the final name.
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", remoteErr(op, classifyError(err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return dest, nil
}

func (c *HTTPClient) notebookPath(notebookID string, parts ...string) string {
	segments := []string{"/notebooks", url.PathEscape(notebookID)}
	for _, p := range parts {
		segments = append(segments, url.PathEscape(p))
	}
	return strings.Join(segments, "/")
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(req)
	return req, nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.tokens == nil {
		return
	}
	if header := c.tokens.CookieHeader(); header != "" {
		req.Header.Set("Cookie", header)
	}
	if c.tokens.CSRF != "" {
		req.Header.Set("X-Csrf-Token", c.tokens.CSRF)
	}
}

func (c *HTTPClient) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encoding request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return remoteErr(op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(op, req, out)
}

func (c *HTTPClient) do(op string, req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return remoteErr(op, classifyError(err))
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return remoteErr(op, err)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return remoteErr(op, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

// checkStatus turns a non-2xx response into an error, using the service's
// {"error": "..."} body when there is one.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	detail := http.StatusText(resp.StatusCode)
	var apiErr apiError
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
		detail = apiErr.Error
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: status %d: %s", errors.ErrNotAuthenticated, resp.StatusCode, detail)
	}
	return fmt.Errorf("status %d: %s", resp.StatusCode, detail)
}

// remoteErr tags err as a workspace failure of op. Authentication failures
// keep their own sentinel as well.
func remoteErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, errors.ErrRemoteOperation, err)
}

// classifyError keeps cancellation recognizable and labels transport timeouts.
func classifyError(err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", errors.ErrCanceled, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("request timed out: %w", err)
	}
	return err
}
