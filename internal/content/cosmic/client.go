package cosmic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/airwaves-fm/stationsearch/internal/content"
	"github.com/airwaves-fm/stationsearch/pkg/logger"
)

// Object type slugs in the bucket
const (
	TypeEpisodes  = "episodes"
	TypePosts     = "posts"
	TypeVideos    = "videos"
	TypeHosts     = "regular-hosts"
	TypeTakeovers = "takeovers"
	TypeEvents    = "events"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
	objectProps     = "id,slug,title,type,created_at,published_at,metadata"
)

// rawObject is one object as returned by the objects endpoint. Type
// specific fields stay in Metadata until decoded into a record.
type rawObject struct {
	ID          string          `json:"id"`
	Slug        string          `json:"slug"`
	Title       string          `json:"title"`
	Type        string          `json:"type"`
	CreatedAt   string          `json:"created_at"`
	PublishedAt string          `json:"published_at"`
	Metadata    json.RawMessage `json:"metadata"`
}

// objectsResponse models one page of the objects endpoint
type objectsResponse struct {
	Objects []rawObject `json:"objects"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Skip    int         `json:"skip"`
}

// Client reads content objects from a Cosmic bucket
type Client struct {
	endpoint   string
	bucket     string
	readKey    string
	pageSize   int
	httpClient *http.Client
	logger     *logger.Logger
}

var (
	_ content.Source      = (*Client)(nil)
	_ content.EventSource = (*Client)(nil)
)

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithPageSize sets how many objects are requested per call
func WithPageSize(size int) Option {
	return func(c *Client) {
		if size > 0 && size <= maxPageSize {
			c.pageSize = size
		}
	}
}

// New creates a Cosmic client
func New(endpoint, bucket, readKey string, log *logger.Logger, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("cosmic endpoint required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("cosmic bucket slug required")
	}
	c := &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		bucket:     bucket,
		readKey:    strings.TrimSpace(readKey),
		pageSize:   defaultPageSize,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		logger:     log.WithComponent("cosmic-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchEpisodes fetches episode objects
func (c *Client) FetchEpisodes(ctx context.Context, q content.Query) ([]*content.EpisodeRecord, error) {
	return fetchRecords[content.EpisodeRecord](ctx, c, TypeEpisodes, q)
}

// FetchPosts fetches post objects
func (c *Client) FetchPosts(ctx context.Context, q content.Query) ([]*content.PostRecord, error) {
	return fetchRecords[content.PostRecord](ctx, c, TypePosts, q)
}

// FetchVideos fetches video objects
func (c *Client) FetchVideos(ctx context.Context, q content.Query) ([]*content.VideoRecord, error) {
	return fetchRecords[content.VideoRecord](ctx, c, TypeVideos, q)
}

// FetchHosts fetches regular host and series objects
func (c *Client) FetchHosts(ctx context.Context, q content.Query) ([]*content.HostRecord, error) {
	return fetchRecords[content.HostRecord](ctx, c, TypeHosts, q)
}

// FetchTakeovers fetches takeover objects
func (c *Client) FetchTakeovers(ctx context.Context, q content.Query) ([]*content.TakeoverRecord, error) {
	return fetchRecords[content.TakeoverRecord](ctx, c, TypeTakeovers, q)
}

// FetchEvents fetches event objects
func (c *Client) FetchEvents(ctx context.Context, q content.Query) ([]*content.EventRecord, error) {
	return fetchRecords[content.EventRecord](ctx, c, TypeEvents, q)
}

// fetchRecords pages through objectType until q.Limit objects are read or
// the bucket runs out, decoding each object's metadata into a record
func fetchRecords[T any, P interface {
	*T
	content.Record
}](ctx context.Context, c *Client, objectType string, q content.Query) ([]P, error) {
	objects, err := c.list(ctx, objectType, q)
	if err != nil {
		return nil, err
	}

	out := make([]P, 0, len(objects))
	for _, obj := range objects {
		rec := P(new(T))
		if len(obj.Metadata) > 0 && string(obj.Metadata) != "null" {
			if err := json.Unmarshal(obj.Metadata, rec); err != nil {
				c.logger.Warn("Skipping undecodable object", "type", objectType, "id", obj.ID, "error", err)
				continue
			}
		}
		*rec.Base() = content.Object{
			ID:          obj.ID,
			Slug:        obj.Slug,
			Title:       obj.Title,
			Type:        obj.Type,
			CreatedAt:   obj.CreatedAt,
			PublishedAt: obj.PublishedAt,
			Metadata:    metadataMap(obj.Metadata),
		}
		out = append(out, rec)
	}
	return out, nil
}

// list reads up to q.Limit raw objects starting at q.Offset
func (c *Client) list(ctx context.Context, objectType string, q content.Query) ([]rawObject, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = c.pageSize
	}

	var objects []rawObject
	skip := q.Offset
	for len(objects) < limit {
		want := min(c.pageSize, limit-len(objects))
		page, err := c.page(ctx, objectType, want, skip)
		if err != nil {
			return nil, err
		}
		objects = append(objects, page.Objects...)
		skip += len(page.Objects)

		if len(page.Objects) < want || (page.Total > 0 && skip >= page.Total) {
			break
		}
	}
	return objects, nil
}

func (c *Client) page(ctx context.Context, objectType string, limit, skip int) (*objectsResponse, error) {
	endpoint, err := url.Parse(fmt.Sprintf("%s/buckets/%s/objects", c.endpoint, url.PathEscape(c.bucket)))
	if err != nil {
		return nil, fmt.Errorf("parse cosmic url: %w", err)
	}
	filter, err := json.Marshal(map[string]string{"type": objectType})
	if err != nil {
		return nil, fmt.Errorf("encode cosmic query: %w", err)
	}

	params := url.Values{}
	params.Set("query", string(filter))
	params.Set("props", objectProps)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("skip", strconv.Itoa(skip))
	params.Set("depth", "1")
	if c.readKey != "" {
		params.Set("read_key", c.readKey)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	// an empty result set is reported as 404
	if resp.StatusCode == http.StatusNotFound {
		return &objectsResponse{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cosmic objects returned %d for type %s (latency=%v)", resp.StatusCode, objectType, latency)
	}

	var payload objectsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode cosmic response: %w", err)
	}

	c.logger.Debug("Fetched objects page",
		"type", objectType,
		"count", len(payload.Objects),
		"skip", skip,
		"latency", latency,
	)
	return &payload, nil
}

func metadataMap(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}
