package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ivana-meshed/mmm-app-sub001/internal/batch"
)

// Client talks to the training-runner REST API and implements both
// batch.Launcher and batch.StatusPoller.
//
//	POST {base}/v1/jobs            body: params blob   → {execution_name, timestamp, gcs_prefix}
//	GET  {base}/v1/executions/{name}                   → {state, message}
type Client struct {
	base string
	hc   *http.Client
}

// Options configures the runner client.
type Options struct {
	// BaseURL is the runner API root, e.g. "http://runner:8090". Required.
	BaseURL string
	// Timeout bounds each HTTP call. Zero means 60s; launches can be slow
	// because the runner provisions resources synchronously.
	Timeout time.Duration
}

// New creates a runner client.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("runner: Options.BaseURL is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		base: strings.TrimRight(opts.BaseURL, "/"),
		hc:   &http.Client{Timeout: timeout},
	}, nil
}

type launchResp struct {
	ExecutionName string `json:"execution_name"`
	Timestamp     string `json:"timestamp"`
	GCSPrefix     string `json:"gcs_prefix"`
}

// Launch implements batch.Launcher.
func (c *Client) Launch(ctx context.Context, params json.RawMessage) (batch.LaunchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/v1/jobs", bytes.NewReader(params))
	if err != nil {
		return batch.LaunchResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return batch.LaunchResult{}, fmt.Errorf("runner: launch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return batch.LaunchResult{}, fmt.Errorf("runner: launch: %s", readAPIError(resp))
	}
	var out launchResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return batch.LaunchResult{}, fmt.Errorf("runner: launch: decode response: %w", err)
	}
	if out.ExecutionName == "" {
		return batch.LaunchResult{}, errors.New("runner: launch: response missing execution_name")
	}
	return batch.LaunchResult{
		ExecutionName: out.ExecutionName,
		Timestamp:     out.Timestamp,
		GCSPrefix:     out.GCSPrefix,
	}, nil
}

type statusResp struct {
	State   string `json:"state"`
	Message string `json:"message"`
}

// Status implements batch.StatusPoller.
func (c *Client) Status(ctx context.Context, executionName string) (batch.ExecStatus, error) {
	u := c.base + "/v1/executions/" + url.PathEscape(executionName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return batch.ExecStatus{}, err
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return batch.ExecStatus{}, fmt.Errorf("runner: status %s: %w", executionName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// Not visible yet; the backend settles execution records lazily.
		return batch.ExecStatus{State: batch.StatePending, Message: "execution not visible yet"}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return batch.ExecStatus{}, fmt.Errorf("runner: status %s: %s", executionName, readAPIError(resp))
	}
	var out statusResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return batch.ExecStatus{}, fmt.Errorf("runner: status %s: decode response: %w", executionName, err)
	}
	return batch.ExecStatus{State: batch.State(out.State), Message: out.Message}, nil
}

func readAPIError(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	text := strings.TrimSpace(string(body))
	if text == "" {
		return resp.Status
	}
	return resp.Status + ": " + text
}
