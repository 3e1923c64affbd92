// Package client is a thin SDK over the profile intake HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const DefaultBaseURL = "http://localhost:8000/api/v1"

// Client talks to one API deployment with one bearer credential. It is safe
// for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func New(baseURL, token string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) CreateProfile(ctx context.Context, input CreateProfileInput) (*Profile, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	var profile Profile
	if err := c.do(ctx, http.MethodPost, "/profiles", nil, bytes.NewReader(body), "application/json", &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) GetProfile(ctx context.Context, profileID string) (*Profile, error) {
	var profile Profile
	if err := c.do(ctx, http.MethodGet, "/profiles/"+url.PathEscape(profileID), nil, nil, "", &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) ListSubmissions(ctx context.Context, profileID string) ([]Submission, error) {
	var out struct {
		Submissions []Submission `json:"submissions"`
	}
	path := "/profiles/" + url.PathEscape(profileID) + "/submissions"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, "", &out); err != nil {
		return nil, err
	}
	return out.Submissions, nil
}

// UploadPDF uploads the file at path for the given profile.
func (c *Client) UploadPDF(ctx context.Context, profileID, path string) (*Submission, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()
	return c.Upload(ctx, profileID, filepath.Base(path), f)
}

// Upload sends r as the multipart "file" part. The part content type is
// derived from the filename extension.
func (c *Client) Upload(ctx context.Context, profileID, filename string, r io.Reader) (*Submission, error) {
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     "file",
		"filename": filename,
	}))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	query := url.Values{"profile_id": {profileID}}
	var submission Submission
	if err := c.do(ctx, http.MethodPost, "/submissions", query, &buf, writer.FormDataContentType(), &submission); err != nil {
		return nil, err
	}
	return &submission, nil
}

func (c *Client) Submit(ctx context.Context, submissionID string) (*Submission, error) {
	var submission Submission
	path := "/submissions/" + url.PathEscape(submissionID) + "/submit"
	if err := c.do(ctx, http.MethodPost, path, nil, nil, "", &submission); err != nil {
		return nil, err
	}
	return &submission, nil
}

func (c *Client) Status(ctx context.Context, submissionID string) (*Submission, error) {
	var submission Submission
	if err := c.do(ctx, http.MethodGet, "/submissions/"+url.PathEscape(submissionID), nil, nil, "", &submission); err != nil {
		return nil, err
	}
	return &submission, nil
}

func (c *Client) Tasks(ctx context.Context, submissionID string) ([]CompletionTask, error) {
	var out struct {
		Tasks []CompletionTask `json:"tasks"`
	}
	path := "/submissions/" + url.PathEscape(submissionID) + "/tasks"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, "", &out); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

// WaitForStatus polls the submission every interval until its status is one
// of statuses or ctx is done. With no statuses it waits for a terminal one.
func (c *Client) WaitForStatus(ctx context.Context, submissionID string, interval time.Duration, statuses ...string) (*Submission, error) {
	if len(statuses) == 0 {
		statuses = []string{StatusCompleted, StatusRejected}
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		submission, err := c.Status(ctx, submissionID)
		if err != nil {
			return nil, err
		}
		if slices.Contains(statuses, submission.Status) {
			return submission, nil
		}
		select {
		case <-ctx.Done():
			return submission, fmt.Errorf("waiting for submission %s (last status %s): %w", submissionID, submission.Status, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var payload struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		apiErr.Message = payload.Error
		apiErr.Fields = payload.Fields
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return apiErr
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
	// Fields is only set on 422 responses.
	Fields map[string]string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "intake: HTTP %d: %s", e.StatusCode, e.Message)
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "; %s: %s", k, e.Fields[k])
	}
	return b.String()
}

func IsNotFound(err error) bool { return hasStatus(err, http.StatusNotFound) }

func IsConflict(err error) bool { return hasStatus(err, http.StatusConflict) }

func IsUnauthorized(err error) bool { return hasStatus(err, http.StatusUnauthorized) }

func hasStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}
