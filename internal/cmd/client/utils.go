package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// BaseURLFunc provides the base HTTP API URL (e.g., from env or flag).
type BaseURLFunc func() string

// BaseURLFromEnv returns the server address from TICKQ_HTTP or a default.
func BaseURLFromEnv() string {
	if v := os.Getenv("TICKQ_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:8080"
}

// postJSON posts body to path and decodes the JSON response into out when the
// status is 2xx. Non-2xx responses become errors carrying the server's text.
func postJSON(base, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(strings.TrimRight(base, "/")+path, "application/json", bytes.NewReader(b))
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

// getJSON fetches path and decodes the JSON response into out.
func getJSON(base, path string, out any) error {
	resp, err := http.Get(strings.TrimRight(base, "/") + path)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text := strings.TrimSpace(string(data))
		if text == "" {
			text = resp.Status
		}
		return fmt.Errorf("server: %s", text)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

// printJSON renders v as indented JSON on w.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
