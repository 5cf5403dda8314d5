package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"pipeforge/internal/settings"
)

// HTTPJobDispatcher dispatches downstream jobs (the `pipeline`
// action-link) by POSTing to a configured job-queue endpoint and,
// optionally, polling for completion. This is a thin, swappable adapter;
// tests substitute any settings.JobDispatcher.
type HTTPJobDispatcher struct {
	Logger     *log.Logger
	Client     *http.Client
	Endpoint   string
	PollEvery  time.Duration
	PollClient func(ctx context.Context, name string, number int) (string, error)
}

type dispatchRequest struct {
	Name       string                              `json:"name"`
	Parameters map[string]settings.DownstreamParam `json:"parameters"`
	DryRun     bool                                `json:"dry_run"`
	Propagate  bool                                `json:"propagate"`
}

type dispatchResponse struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
	Result string `json:"result"`
}

func (d *HTTPJobDispatcher) Dispatch(ctx context.Context, name string, params map[string]settings.DownstreamParam, dryRun, propagate, wait bool) (settings.JobResult, error) {
	if dryRun {
		d.Logger.Info("dry-run: would dispatch downstream job", "name", name)
		return settings.JobResult{Result: "SUCCESS"}, nil
	}

	body, err := json.Marshal(dispatchRequest{Name: name, Parameters: params, DryRun: dryRun, Propagate: propagate})
	if err != nil {
		return settings.JobResult{}, fmt.Errorf("encoding dispatch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Endpoint, bytes.NewReader(body))
	if err != nil {
		return settings.JobResult{}, fmt.Errorf("building dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}

	d.Logger.Info("dispatching downstream job", "name", name, "wait", wait)
	resp, err := client.Do(req)
	if err != nil {
		return settings.JobResult{}, fmt.Errorf("dispatching job %q: %w", name, err)
	}
	defer resp.Body.Close()

	var out dispatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return settings.JobResult{}, fmt.Errorf("decoding dispatch response: %w", err)
	}

	result := settings.JobResult{Result: out.Result, Number: out.Number, URL: out.URL}

	if wait && d.PollClient != nil && result.Result == "" {
		r, err := d.PollClient(ctx, name, out.Number)
		if err != nil {
			return result, fmt.Errorf("waiting for job %q #%d: %w", name, out.Number, err)
		}
		result.Result = r
	}

	return result, nil
}
