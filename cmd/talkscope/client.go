package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/kalambet/talkscope/internal/analysis"
)

// apiClient talks to a running talkscope server.
type apiClient struct {
	baseURL    string
	httpClient *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &apiClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

func (c *apiClient) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server not reachable at %s, is talkscope serve running? (%w)", c.baseURL, err)
	}
	return resp, nil
}

func (c *apiClient) get(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, path, nil, "")
}

// upload posts data as the "file" part of a multipart form.
func (c *apiClient) upload(ctx context.Context, path, filename string, data []byte) (*http.Response, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, path, &body, mw.FormDataContentType())
}

// apiError is a non-2xx reply from the server.
type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server returned %d %s: %s", e.Status, e.Code, e.Message)
}

func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("server returned %d (failed to read body: %w)", resp.StatusCode, err)
		}
		apiErr := &apiError{Status: resp.StatusCode}
		if json.Unmarshal(body, apiErr) != nil || apiErr.Message == "" {
			apiErr.Code = ""
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return apiErr
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// remoteAnalyzer runs analyses on a talkscope server instead of calling
// the model provider directly.
type remoteAnalyzer struct {
	client *apiClient
}

func (a remoteAnalyzer) Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error) {
	path := "/analyze"
	if req.Level == analysis.Advanced {
		path = "/analyze/advanced"
	}

	resp, err := a.client.upload(ctx, path, "transcript.txt", []byte(req.Transcript))
	if err != nil {
		return nil, err
	}

	var data map[string]any
	if err := decodeJSON(resp, &data); err != nil {
		return nil, err
	}
	return &analysis.Result{
		ID:    resp.Header.Get("X-Analysis-ID"),
		Model: resp.Header.Get("X-Analysis-Model"),
		Data:  data,
	}, nil
}

type healthResponse struct {
	Status        string `json:"status"`
	APIConfigured bool   `json:"api_configured"`
}

func (c *apiClient) health(ctx context.Context) (*healthResponse, error) {
	resp, err := c.get(ctx, "/health")
	if err != nil {
		return nil, err
	}
	var h healthResponse
	if err := decodeJSON(resp, &h); err != nil {
		return nil, err
	}
	return &h, nil
}
