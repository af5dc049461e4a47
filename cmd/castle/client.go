package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// apiClient is a thin HTTP wrapper around castled's dashboard API. Every
// castle subcommand goes through it rather than touching the catalog or
// registry files directly, since castled owns the single writable copy of
// both while it's running (spec.md §3 "single writer").
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(addr string) *apiClient {
	return &apiClient{
		baseURL: "http://" + addr,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *apiClient) do(method, path string, body []byte) ([]byte, int, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, c.baseURL+path, rdr)
	if err != nil {
		return nil, 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-yaml")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("castled not reachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	if resp.StatusCode >= 300 {
		return out, resp.StatusCode, fmt.Errorf("%s %s: %s", method, path, bytes.TrimSpace(out))
	}
	return out, resp.StatusCode, nil
}

func (c *apiClient) get(path string) ([]byte, error) {
	body, _, err := c.do(http.MethodGet, path, nil)
	return body, err
}

func (c *apiClient) getJSON(path string, out any) error {
	body, err := c.get(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func (c *apiClient) post(path string, body []byte) ([]byte, error) {
	out, _, err := c.do(http.MethodPost, path, body)
	return out, err
}

func (c *apiClient) put(path string, body []byte) ([]byte, error) {
	out, _, err := c.do(http.MethodPut, path, body)
	return out, err
}

func (c *apiClient) delete(path string) error {
	_, _, err := c.do(http.MethodDelete, path, nil)
	return err
}
