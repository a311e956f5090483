package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pfrederiksen/cricpulse/internal/logger"
	"github.com/pfrederiksen/cricpulse/internal/match"
)

const (
	DefaultBaseURL = "https://crickbarservice.heisenapp.com"
	UserAgent      = "cricpulse/1.0 (github.com/pfrederiksen/cricpulse)"
	DefaultTimeout = 15 * time.Second

	// maxBody caps how much of a response is read.
	maxBody = 8 << 20
)

// Source is the read side of the live-cricket API.
type Source interface {
	// ListLiveMatches returns the live match list, or an empty slice on any failure.
	ListLiveMatches(ctx context.Context) []match.Summary
	// MatchDetail returns the detail record for id, or false on any failure.
	MatchDetail(ctx context.Context, id match.ID) (match.State, bool)
}

// Ensure Client implements Source at compile time.
var _ Source = (*Client)(nil)

// Client talks to the live-cricket HTTP API. It never returns errors: every
// failure is logged and degrades to an empty or absent result.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	log     *logger.Logger
	metrics *logger.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger sets the logger used for degraded reads.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithMetrics sets the metrics tracker.
func WithMetrics(m *logger.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a Client for the API at baseURL (DefaultBaseURL when empty).
func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported base URL scheme %q", base.Scheme)
	}

	c := &Client{
		baseURL: base,
		http:    &http.Client{Timeout: DefaultTimeout},
		log:     logger.Default(),
		metrics: logger.DefaultMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(logger.Fields{"component": "source"})
	return c, nil
}

// ListLiveMatches fetches GET /matches.
func (c *Client) ListLiveMatches(ctx context.Context) []match.Summary {
	start := time.Now()
	defer func() { c.metrics.RecordTiming("source.matches", time.Since(start)) }()

	body, err := c.get(ctx, "/matches")
	if err != nil {
		c.metrics.IncrCounter("source.matches.failed")
		c.log.Warn("live match list unavailable", logger.Fields{"endpoint": "/matches", "error": err.Error()})
		return []match.Summary{}
	}

	matches, err := decodeSummaries(body)
	if err != nil {
		c.metrics.IncrCounter("source.matches.failed")
		c.log.Warn("live match list undecodable", logger.Fields{"endpoint": "/matches", "error": err.Error()})
		return []match.Summary{}
	}
	return matches
}

// MatchDetail fetches GET /score/{id}.
func (c *Client) MatchDetail(ctx context.Context, id match.ID) (match.State, bool) {
	start := time.Now()
	defer func() { c.metrics.RecordTiming("source.detail", time.Since(start)) }()

	id = match.NormalizeID(id)
	if id.IsZero() {
		return nil, false
	}
	endpoint := "/score/" + url.PathEscape(id.String())

	body, err := c.get(ctx, endpoint)
	if err != nil {
		c.metrics.IncrCounter("source.detail.failed")
		c.log.Warn("match detail unavailable", logger.Fields{"endpoint": endpoint, "match_id": id.String(), "error": err.Error()})
		return nil, false
	}

	detail, err := decodeDetail(body)
	if err != nil {
		c.metrics.IncrCounter("source.detail.failed")
		c.log.Warn("match detail undecodable", logger.Fields{"endpoint": endpoint, "match_id": id.String(), "error": err.Error()})
		return nil, false
	}
	return detail, true
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	endpoint := *c.baseURL
	endpoint.Path = strings.TrimRight(endpoint.Path, "/") + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}

// decodeSummaries decodes the match list element by element. Summary
// decoding tolerates odd fields, so only non-objects and entries without an
// id are skipped.
func decodeSummaries(body []byte) ([]match.Summary, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing match list: %w", err)
	}

	matches := make([]match.Summary, 0, len(raw))
	for _, item := range raw {
		var s match.Summary
		if err := json.Unmarshal(item, &s); err != nil {
			continue
		}
		if s.ID.IsZero() {
			continue
		}
		s.Name = s.DisplayName()
		s.Status = PlainText(s.Status)
		matches = append(matches, s)
	}
	return matches, nil
}

// freeTextFields are detail fields the feed may send with inline markup.
var freeTextFields = []string{"matchStatus", "status"}

func decodeDetail(body []byte) (match.State, error) {
	var detail match.State
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, fmt.Errorf("parsing match detail: %w", err)
	}
	if detail == nil {
		return nil, fmt.Errorf("match detail is null")
	}

	for _, key := range freeTextFields {
		if text := detail.StringField(key); text != "" {
			if err := detail.Set(key, PlainText(text)); err != nil {
				return nil, err
			}
		}
	}
	if err := cleanLastWicket(detail); err != nil {
		return nil, err
	}
	return detail, nil
}

func cleanLastWicket(detail match.State) error {
	raw, ok := detail["lastWicket"]
	if !ok {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil
	}
	var text string
	if err := json.Unmarshal(fields["text"], &text); err != nil || text == "" {
		return nil
	}
	cleaned, err := json.Marshal(PlainText(text))
	if err != nil {
		return err
	}
	fields["text"] = cleaned
	return detail.Set("lastWicket", fields)
}
