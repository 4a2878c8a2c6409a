// Package github implements the thin client to the GitHub contents API
// that the document store uses as its blob backend. Blobs travel base64
// encoded; the content SHA returned on reads is the version token required
// for conditional writes and deletes.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/wesavefood/wesavefood/internal/domain"
	"github.com/wesavefood/wesavefood/internal/logger"
	"github.com/wesavefood/wesavefood/pkg/errors"
)

const defaultBaseURL = "https://api.github.com"

type Client struct {
	log    zerolog.Logger
	cfg    domain.GitHubConfig
	http   *http.Client
	apiURL string
}

func NewClient(cfg domain.GitHubConfig, log logger.Logger) *Client {
	return &Client{
		log:    log.With().Str("module", "github").Logger(),
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		apiURL: defaultBaseURL,
	}
}

// SetBaseURL overrides the API endpoint. Used by tests and GitHub
// Enterprise deployments.
func (c *Client) SetBaseURL(u string) {
	c.apiURL = u
}

type contentResponse struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

type writeRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

type writeResponse struct {
	Content *contentResponse `json:"content"`
}

type deleteRequest struct {
	Message string `json:"message"`
	SHA     string `json:"sha"`
	Branch  string `json:"branch"`
}

func (c *Client) contentsURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.apiURL, c.cfg.Owner, c.cfg.Repo, path)
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, errors.Wrap(err, "could not build request")
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// ReadBlob fetches a blob and its version token. Returns
// domain.ErrNotFound when the path does not exist on the branch.
func (c *Client) ReadBlob(ctx context.Context, path string) (*domain.Blob, error) {
	u := c.contentsURL(path) + "?ref=" + url.QueryEscape(c.cfg.Branch)

	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(domain.ErrUnavailable, "read %s: %v", path, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return nil, errors.Wrap(domain.ErrNotFound, "blob %s", path)
	case res.StatusCode != http.StatusOK:
		return nil, errors.Wrap(domain.ErrUnavailable, "read %s: unexpected status %d", path, res.StatusCode)
	}

	var body contentResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(domain.ErrUnavailable, "read %s: decoding response: %v", path, err)
	}

	content, err := base64.StdEncoding.DecodeString(stripNewlines(body.Content))
	if err != nil {
		return nil, errors.Wrap(domain.ErrCorrupt, "blob %s: invalid base64 payload", path)
	}

	c.log.Trace().Str("path", path).Str("sha", body.SHA).
		Str("size", humanize.Bytes(uint64(len(content)))).Msg("blob fetched")

	return &domain.Blob{Path: body.Path, Content: content, SHA: body.SHA}, nil
}

// WriteBlob creates or updates a blob and returns the new version token.
// An empty sha requests creation; the remote side rejects the write with a
// conflict when the sha is stale, or when sha is empty but the path already
// exists. Both cases surface as domain.ErrConflict.
func (c *Client) WriteBlob(ctx context.Context, path string, content []byte, sha string) (string, error) {
	payload := writeRequest{
		Message: "Update " + path,
		Content: base64.StdEncoding.EncodeToString(content),
		Branch:  c.cfg.Branch,
		SHA:     sha,
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(err, "could not encode write request")
	}

	req, err := c.newRequest(ctx, http.MethodPut, c.contentsURL(path), bytes.NewReader(buf))
	if err != nil {
		return "", err
	}

	res, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(domain.ErrUnavailable, "write %s: %v", path, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusConflict, http.StatusUnprocessableEntity:
		// 409: sha is stale. 422: sha missing but the file exists.
		c.log.Warn().Str("path", path).Str("sha", sha).Int("status", res.StatusCode).
			Msg("conditional write rejected, remote content changed")
		return "", errors.Wrap(domain.ErrConflict, "write %s", path)
	case http.StatusNotFound:
		return "", errors.Wrap(domain.ErrNotFound, "write %s", path)
	default:
		return "", errors.Wrap(domain.ErrUnavailable, "write %s: unexpected status %d", path, res.StatusCode)
	}

	var body writeResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return "", errors.Wrap(domain.ErrUnavailable, "write %s: decoding response: %v", path, err)
	}
	if body.Content == nil {
		return "", errors.Wrap(domain.ErrUnavailable, "write %s: response missing content", path)
	}

	c.log.Debug().Str("path", path).Str("sha", body.Content.SHA).
		Str("size", humanize.Bytes(uint64(len(content)))).Msg("blob written")

	return body.Content.SHA, nil
}

// DeleteBlob removes a blob. The sha must be the current version token.
func (c *Client) DeleteBlob(ctx context.Context, path string, sha string) error {
	payload := deleteRequest{
		Message: "Delete " + path,
		SHA:     sha,
		Branch:  c.cfg.Branch,
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "could not encode delete request")
	}

	req, err := c.newRequest(ctx, http.MethodDelete, c.contentsURL(path), bytes.NewReader(buf))
	if err != nil {
		return err
	}

	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(domain.ErrUnavailable, "delete %s: %v", path, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return errors.Wrap(domain.ErrNotFound, "delete %s", path)
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return errors.Wrap(domain.ErrConflict, "delete %s", path)
	default:
		return errors.Wrap(domain.ErrUnavailable, "delete %s: unexpected status %d", path, res.StatusCode)
	}
}

// ListBlobs returns metadata for every file directly under dir. A missing
// directory lists as empty.
func (c *Client) ListBlobs(ctx context.Context, dir string) ([]domain.BlobInfo, error) {
	u := c.contentsURL(dir) + "?ref=" + url.QueryEscape(c.cfg.Branch)

	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(domain.ErrUnavailable, "list %s: %v", dir, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return nil, nil
	case res.StatusCode != http.StatusOK:
		return nil, errors.Wrap(domain.ErrUnavailable, "list %s: unexpected status %d", dir, res.StatusCode)
	}

	var entries []contentResponse
	if err := json.NewDecoder(res.Body).Decode(&entries); err != nil {
		return nil, errors.Wrap(domain.ErrUnavailable, "list %s: decoding response: %v", dir, err)
	}

	infos := make([]domain.BlobInfo, 0, len(entries))
	for _, e := range entries {
		if e.Type != "file" {
			continue
		}
		infos = append(infos, domain.BlobInfo{Path: e.Path, Name: e.Name, SHA: e.SHA})
	}

	return infos, nil
}

// Ping verifies the repository is reachable with the configured credential.
func (c *Client) Ping(ctx context.Context) error {
	u := fmt.Sprintf("%s/repos/%s/%s", c.apiURL, c.cfg.Owner, c.cfg.Repo)

	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(domain.ErrUnavailable, "ping: %v", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return errors.Wrap(domain.ErrUnavailable, "ping: unexpected status %d", res.StatusCode)
	}

	return nil
}

// The contents API wraps base64 at 60 columns.
func stripNewlines(s string) string {
	buf := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' || s[i] == '\r' {
			continue
		}
		buf = append(buf, s[i])
	}
	return string(buf)
}
