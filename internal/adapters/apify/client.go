package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"adscout/internal/core/ports"
)

const (
	DefaultBaseURL = "https://api.apify.com/v2"
	// DefaultActorID is the public Facebook Ads Library scraper actor.
	DefaultActorID = "curious_coder~facebook-ads-library-scraper"
)

var (
	// ErrMissingToken is returned by NewClient when no API token is configured.
	ErrMissingToken = errors.New("apify: api token not set")
	// ErrUnexpectedStatus wraps any non-2xx response from the platform.
	ErrUnexpectedStatus = errors.New("apify: unexpected status")
)

// Options configures a Client.
type Options struct {
	Token   string
	BaseURL string
	ActorID string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Client implements ports.ActorClient using the Apify REST API.
type Client struct {
	token   string
	baseURL string
	actorID string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient creates a new Client. An empty token is rejected; callers that
// want to run without credentials should not construct a client at all.
func NewClient(opts Options) (*Client, error) {
	if opts.Token == "" {
		return nil, ErrMissingToken
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.ActorID == "" {
		opts.ActorID = DefaultActorID
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		token:   opts.Token,
		baseURL: opts.BaseURL,
		actorID: opts.ActorID,
		client:  &http.Client{Timeout: opts.Timeout},
		logger:  opts.Logger.Named("apify"),
	}, nil
}

type runInput struct {
	URLs  []startURL `json:"urls"`
	Count int        `json:"count"`
}

type startURL struct {
	URL string `json:"url"`
}

type runEnvelope struct {
	Data struct {
		ID               string          `json:"id"`
		Status           ports.RunStatus `json:"status"`
		DefaultDatasetID string          `json:"defaultDatasetId"`
	} `json:"data"`
}

// StartRun launches the actor against the given search URL.
func (c *Client) StartRun(ctx context.Context, input ports.RunInput) (*ports.RemoteRun, error) {
	body, err := json.Marshal(runInput{
		URLs:  []startURL{{URL: input.SearchURL}},
		Count: input.Count,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode run input: %w", err)
	}

	var env runEnvelope
	if err := c.do(ctx, http.MethodPost, c.endpoint(nil, "acts", c.actorID, "runs"), body, &env); err != nil {
		return nil, fmt.Errorf("failed to start actor run: %w", err)
	}
	if env.Data.ID == "" {
		return nil, fmt.Errorf("failed to start actor run: response carried no run id")
	}

	status := env.Data.Status
	if status == "" {
		status = ports.RunReady
	}
	return &ports.RemoteRun{
		RunID:     env.Data.ID,
		DatasetID: env.Data.DefaultDatasetID,
		Status:    status,
	}, nil
}

// RunStatus reads the current status of a run.
func (c *Client) RunStatus(ctx context.Context, runID string) (ports.RunStatus, error) {
	var env runEnvelope
	if err := c.do(ctx, http.MethodGet, c.endpoint(nil, "actor-runs", runID), nil, &env); err != nil {
		return "", fmt.Errorf("failed to read run status: %w", err)
	}
	if env.Data.Status == "" {
		return "", fmt.Errorf("failed to read run status: empty status")
	}
	return env.Data.Status, nil
}

// DatasetItems fetches up to limit items from a dataset. Items that do not
// decode are logged and skipped so one malformed record does not sink the
// whole batch.
func (c *Client) DatasetItems(ctx context.Context, datasetID string, limit int) ([]ports.RawItem, error) {
	if datasetID == "" {
		return nil, fmt.Errorf("failed to fetch dataset items: empty dataset id")
	}
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var raw []json.RawMessage
	if err := c.do(ctx, http.MethodGet, c.endpoint(q, "datasets", datasetID, "items"), nil, &raw); err != nil {
		return nil, fmt.Errorf("failed to fetch dataset items: %w", err)
	}

	items := make([]ports.RawItem, 0, len(raw))
	for i, msg := range raw {
		var item ports.RawItem
		if err := json.Unmarshal(msg, &item); err != nil {
			c.logger.Warn("skipping undecodable dataset item",
				zap.String("dataset_id", datasetID),
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// AbortRun asks the platform to stop a run.
func (c *Client) AbortRun(ctx context.Context, runID string) error {
	if err := c.do(ctx, http.MethodPost, c.endpoint(nil, "actor-runs", runID, "abort"), nil, nil); err != nil {
		return fmt.Errorf("failed to abort run %s: %w", runID, err)
	}
	return nil
}

// endpoint joins path segments onto the base URL and appends the token.
func (c *Client) endpoint(q url.Values, segments ...string) string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		u = &url.URL{Path: c.baseURL}
	}
	u = u.JoinPath(segments...)
	if q == nil {
		q = url.Values{}
	}
	q.Set("token", c.token)
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("%w: %d, body: %s", ErrUnexpectedStatus, resp.StatusCode, string(respBody))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
