// Package eps talks to the external power-system tracing service. The
// pipeline uses it only for the duplicate-feeder advisory; every failure is
// tolerated and reported as "no information".
package eps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TraceResult is the feeder information for one pole. The service's schema
// varies between deployments; anything beyond the feeder id is best-effort.
type TraceResult struct {
	PoleID         string   `json:"poleId"`
	FeederID       string   `json:"feederId"`
	TransformerID  string   `json:"transformerId"`
	ConnectedPoles []string `json:"connectedPoles"`
}

// DuplicateCheck reports candidates sharing a feeder.
type DuplicateCheck struct {
	HasDuplicate   bool
	DuplicatePoles []string
	Message        string
}

// Client calls the tracing endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New creates a client. baseURL is the service root; the trace endpoint path
// is appended per call.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/",
		http:    &http.Client{Timeout: timeout},
		logger:  slog.Default(),
	}
}

// Healthy probes the service root.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

// TracePole looks up the feeder for one pole via connHvPoleTrace.do.
func (c *Client) TracePole(ctx context.Context, poleID string) (*TraceResult, error) {
	u := c.baseURL + "connHvPoleTrace.do?" + url.Values{"poleId": {poleID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("trace returned %s", resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "{") {
		return nil, fmt.Errorf("trace response is not JSON")
	}

	var result TraceResult
	if err := json.Unmarshal([]byte(trimmed), &result); err != nil {
		return nil, err
	}
	if result.PoleID == "" {
		result.PoleID = poleID
	}
	return &result, nil
}

// CheckDuplicates traces the given poles and reports any pair sharing a
// feeder id. Individual trace failures are logged and skipped; the check is
// advisory.
func (c *Client) CheckDuplicates(ctx context.Context, poleIDs []string) DuplicateCheck {
	feeders := make(map[string][]string)
	for _, id := range poleIDs {
		trace, err := c.TracePole(ctx, id)
		if err != nil {
			c.logger.Debug("feeder trace failed", "pole", id, "error", err)
			continue
		}
		if trace.FeederID == "" {
			continue
		}
		feeders[trace.FeederID] = append(feeders[trace.FeederID], id)
	}

	var dupes []string
	for feeder, poles := range feeders {
		if len(poles) > 1 {
			dupes = append(dupes, poles...)
			c.logger.Info("candidates share a feeder", "feeder", feeder, "poles", poles)
		}
	}
	if len(dupes) == 0 {
		return DuplicateCheck{}
	}
	return DuplicateCheck{
		HasDuplicate:   true,
		DuplicatePoles: dupes,
		Message:        fmt.Sprintf("%d candidates share a feeder", len(dupes)),
	}
}
