// Package wikidata resolves item coordinates (property P625) through the Wikidata API.
package wikidata

import (
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

	"github.com/pjpmarques/Castelos/internal/fortification"
)

// DefaultEndpoint is the public Wikidata action API.
const DefaultEndpoint = "https://www.wikidata.org/w/api.php"

// CoordinateProperty is the Wikidata "coordinate location" property.
const CoordinateProperty = "P625"

const maxResponseBytes = 1 << 20

// ErrNoCoordinate reports that the item has no usable coordinate claim.
var ErrNoCoordinate = errors.New("wikidata: no coordinate claim")

// Waiter blocks until the next request to rawURL may proceed.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Observer records the outcome of each request.
type Observer interface {
	ObserveRequest(rawURL, status string, bytesRead int)
}

// Config controls the client.
type Config struct {
	Endpoint  string
	UserAgent string
	Timeout   time.Duration
}

// Client looks up coordinates. It is safe for concurrent use.
type Client struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
	waiter     Waiter
	observer   Observer
	logger     *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithWaiter throttles every request through w.
func WithWaiter(w Waiter) Option {
	return func(c *Client) { c.waiter = w }
}

// WithObserver reports every request to o.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for soft failures.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds a Client.
func New(cfg Config, opts ...Option) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		endpoint:   endpoint,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: timeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns the item's coordinate. An empty id is absent without a
// request; every failure is logged and reported as absent.
func (c *Client) Lookup(ctx context.Context, id fortification.ExternalID) (fortification.Coordinate, bool) {
	if id == "" {
		return fortification.Coordinate{}, false
	}
	coord, err := c.Coordinate(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNoCoordinate) {
			c.logger.Debug("item has no coordinate", zap.String("item", string(id)))
		} else {
			c.logger.Warn("coordinate lookup failed", zap.String("item", string(id)), zap.Error(err))
		}
		return fortification.Coordinate{}, false
	}
	return coord, true
}

// Coordinate fetches the first P625 claim of the item.
func (c *Client) Coordinate(ctx context.Context, id fortification.ExternalID) (fortification.Coordinate, error) {
	reqURL := c.claimsURL(id)
	if c.waiter != nil {
		if err := c.waiter.Wait(ctx, reqURL); err != nil {
			return fortification.Coordinate{}, fmt.Errorf("wikidata %s: %w", id, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fortification.Coordinate{}, fmt.Errorf("build wikidata request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(reqURL, "error", 0)
		return fortification.Coordinate{}, fmt.Errorf("wikidata request %s: %w", id, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.observe(reqURL, strconv.Itoa(resp.StatusCode), len(body))
	if err != nil {
		return fortification.Coordinate{}, fmt.Errorf("read wikidata response %s: %w", id, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fortification.Coordinate{}, fmt.Errorf("wikidata %s: unexpected status %d", id, resp.StatusCode)
	}

	return decodeCoordinate(body)
}

func (c *Client) claimsURL(id fortification.ExternalID) string {
	q := url.Values{}
	q.Set("action", "wbgetclaims")
	q.Set("format", "json")
	q.Set("entity", string(id))
	q.Set("property", CoordinateProperty)
	return c.endpoint + "?" + q.Encode()
}

func (c *Client) observe(rawURL, status string, n int) {
	if c.observer != nil {
		c.observer.ObserveRequest(rawURL, status, n)
	}
}

type claimsResponse struct {
	Claims map[string][]claim `json:"claims"`
	Error  *apiError          `json:"error,omitempty"`
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type claim struct {
	MainSnak struct {
		SnakType  string `json:"snaktype"`
		DataValue *struct {
			Value globeCoordinate `json:"value"`
		} `json:"datavalue,omitempty"`
	} `json:"mainsnak"`
}

type globeCoordinate struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func decodeCoordinate(body []byte) (fortification.Coordinate, error) {
	var payload claimsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return fortification.Coordinate{}, fmt.Errorf("decode wikidata claims: %w", err)
	}
	if payload.Error != nil {
		return fortification.Coordinate{}, fmt.Errorf("wikidata api error %s: %s", payload.Error.Code, payload.Error.Info)
	}
	claims := payload.Claims[CoordinateProperty]
	if len(claims) == 0 {
		return fortification.Coordinate{}, ErrNoCoordinate
	}
	snak := claims[0].MainSnak
	// novalue and somevalue snaks carry no datavalue.
	if snak.DataValue == nil || snak.DataValue.Value.Latitude == nil || snak.DataValue.Value.Longitude == nil {
		return fortification.Coordinate{}, ErrNoCoordinate
	}
	return fortification.Coordinate{
		Latitude:  strconv.FormatFloat(*snak.DataValue.Value.Latitude, 'f', -1, 64),
		Longitude: strconv.FormatFloat(*snak.DataValue.Value.Longitude, 'f', -1, 64),
	}, nil
}
