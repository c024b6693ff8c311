package tomtom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/KostasPapadooo/ev-charging-app/internal/models"
)

const (
	// availabilityChunkSize is the provider's maximum id count per
	// chargingAvailability call.
	availabilityChunkSize = 20

	searchCategoryEV = "7309"
	searchPageLimit  = 100

	defaultBaseURL = "https://api.tomtom.com/search/2"
	defaultTimeout = 30 * time.Second
)

// HTTPDoer defines the http.Client interface subset.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Availability is the normalized bulk-status entry for one station.
type Availability struct {
	Status     models.StationStatus
	Connectors []models.Connector
}

// Config holds provider credentials and endpoints.
type Config struct {
	SearchAPIKey string
	EVAPIKey     string
	BaseURL      string
	Timeout      time.Duration
}

// Client talks to the TomTom search and charging-availability endpoints and
// is the single place that knows the provider's rate limits and payload
// shapes.
type Client struct {
	httpClient HTTPDoer
	baseURL    string
	searchKey  string
	evKey      string
	logger     *zap.Logger
}

// NewClient builds the provider client. A nil httpClient gets a default one
// with the configured timeout.
func NewClient(cfg Config, httpClient HTTPDoer, logger *zap.Logger) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	evKey := cfg.EVAPIKey
	if evKey == "" {
		evKey = cfg.SearchAPIKey
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    base,
		searchKey:  cfg.SearchAPIKey,
		evKey:      evKey,
		logger:     logger,
	}
}

// SearchArea returns normalized stations around the point. Individual
// malformed records are logged and skipped; the call fails only when the
// provider request itself fails.
func (c *Client) SearchArea(ctx context.Context, latitude, longitude float64, radiusMeters int) ([]models.Station, error) {
	params := url.Values{}
	params.Set("key", c.searchKey)
	params.Set("limit", strconv.Itoa(searchPageLimit))
	params.Set("lat", formatCoord(latitude))
	params.Set("lon", formatCoord(longitude))
	params.Set("radius", strconv.Itoa(radiusMeters))
	params.Set("categorySet", searchCategoryEV)

	endpoint := c.baseURL + "/search/" + url.PathEscape("electric vehicle charging station") + ".json"

	var payload searchResponse
	if err := c.getJSON(ctx, endpoint, params, &payload); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	stations := make([]models.Station, 0, len(payload.Results))
	for _, result := range payload.Results {
		station, err := parseStation(result, now)
		if err != nil {
			c.logger.Warn("skipping malformed provider record",
				zap.String("record_id", result.ID),
				zap.Error(err))
			continue
		}
		stations = append(stations, *station)
	}

	c.logger.Debug("provider area search",
		zap.Int("raw", len(payload.Results)),
		zap.Int("parsed", len(stations)))
	return stations, nil
}

// BulkStatus fetches current availability for the given ids, chunked at the
// provider maximum. A failed chunk is logged and its ids are simply absent
// from the result map; callers must treat missing ids as unchanged, never as
// offline. It errors only when every chunk failed.
func (c *Client) BulkStatus(ctx context.Context, ids []string) (map[string]Availability, error) {
	if len(ids) == 0 {
		return map[string]Availability{}, nil
	}

	result := make(map[string]Availability, len(ids))
	var chunks, failed int
	var lastErr error

	for start := 0; start < len(ids); start += availabilityChunkSize {
		end := start + availabilityChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]
		chunks++

		entries, err := c.availabilityChunk(ctx, chunk)
		if err != nil {
			failed++
			lastErr = err
			c.logger.Warn("availability chunk failed",
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err))
			continue
		}
		for id, availability := range entries {
			result[id] = availability
		}
	}

	if failed == chunks {
		return nil, fmt.Errorf("all %d availability chunks failed: %w", chunks, lastErr)
	}
	return result, nil
}

func (c *Client) availabilityChunk(ctx context.Context, ids []string) (map[string]Availability, error) {
	params := url.Values{}
	params.Set("key", c.evKey)
	params.Set("chargingAvailability", strings.Join(ids, ","))

	endpoint := c.baseURL + "/chargingAvailability.json"

	var payload availabilityResponse
	err := c.getJSON(ctx, endpoint, params, &payload)
	if err != nil {
		// One follow-up attempt when the provider signals throttling with a
		// Retry-After we can honor inside the call timeout.
		if apiErr, throttled := throttleError(err); throttled {
			if waitErr := sleepCtx(ctx, retryDelay(apiErr)); waitErr != nil {
				return nil, waitErr
			}
			err = c.getJSON(ctx, endpoint, params, &payload)
		}
		if err != nil {
			return nil, err
		}
	}

	entries := make(map[string]Availability, len(payload.ChargingAvailability))
	for _, raw := range payload.ChargingAvailability {
		if raw.ID == "" {
			continue
		}
		connectors := make([]models.Connector, 0, len(raw.Connectors))
		perConnector := false
		for _, rc := range raw.Connectors {
			if rc.ID == "" {
				continue
			}
			perConnector = true
			connectors = append(connectors, models.Connector{
				ID:     rc.ID,
				Status: normalizeStatus(rc.Availability.Status),
			})
		}

		status := normalizeStatus(raw.Availability.Status)
		if perConnector {
			status = models.DeriveStatus(connectors)
		}
		if len(connectors) == 0 {
			connectors = nil
		}
		entries[raw.ID] = Availability{Status: status, Connectors: connectors}
	}
	return entries, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, parseErr := strconv.Atoi(retryAfter); parseErr == nil {
				apiErr.RetryAfter = time.Duration(seconds) * time.Second
			}
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("tomtom: decode response: %w", err)
	}
	return nil
}

func throttleError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return apiErr, true
	}
	return nil, false
}

func retryDelay(apiErr *APIError) time.Duration {
	if apiErr.RetryAfter > 0 && apiErr.RetryAfter <= 10*time.Second {
		return apiErr.RetryAfter
	}
	return time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
