package tomtom

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/KostasPapadooo/ev-charging-app/internal/models"
)

type fakeDoer struct {
	mu       sync.Mutex
	requests []*http.Request
	handler  func(call int, req *http.Request) (*http.Response, error)
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	call := len(f.requests)
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.handler(call, req)
}

func (f *fakeDoer) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestClient(doer *fakeDoer) *Client {
	return NewClient(Config{SearchAPIKey: "test-key"}, doer, zap.NewNop())
}

func TestSearchAreaSkipsMalformedRecords(t *testing.T) {
	body := `{"results": [
		{"id": "tt-1", "poi": {"name": "Good"}, "position": {"lat": 37.9, "lon": 23.7},
		 "chargingPark": {"availability": {"status": "AVAILABLE"}}},
		{"poi": {"name": "No ID"}, "position": {"lat": 37.9, "lon": 23.7}},
		{"id": "tt-2", "poi": {"name": "Also Good"}, "position": {"lat": 38.0, "lon": 23.8},
		 "chargingPark": {"availability": {"status": "BUSY"}}}
	]}`
	doer := &fakeDoer{handler: func(_ int, _ *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, body), nil
	}}

	stations, err := newTestClient(doer).SearchArea(context.Background(), 37.98, 23.72, 5000)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(stations) != 2 {
		t.Fatalf("expected 2 parsed stations, got %d", len(stations))
	}
	if stations[0].TomTomID != "tt-1" || stations[1].TomTomID != "tt-2" {
		t.Errorf("unexpected ids: %s, %s", stations[0].TomTomID, stations[1].TomTomID)
	}
	if stations[1].Status != models.StatusOccupied {
		t.Errorf("BUSY should normalize to OCCUPIED, got %s", stations[1].Status)
	}
}

func TestSearchAreaUnreachable(t *testing.T) {
	doer := &fakeDoer{handler: func(_ int, _ *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	}}

	_, err := newTestClient(doer).SearchArea(context.Background(), 37.98, 23.72, 5000)
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsUnavailable(err) {
		t.Errorf("transport failure should classify as unavailable: %v", err)
	}
}

func TestSearchAreaAuthFailure(t *testing.T) {
	doer := &fakeDoer{handler: func(_ int, _ *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusForbidden, `{"detailedError": "bad key"}`), nil
	}}

	_, err := newTestClient(doer).SearchArea(context.Background(), 37.98, 23.72, 5000)
	if !IsAuthFailure(err) {
		t.Errorf("expected auth failure classification, got %v", err)
	}
	if IsUnavailable(err) {
		t.Error("auth failure must not classify as unavailable")
	}
}

func TestBulkStatusChunksRequests(t *testing.T) {
	ids := make([]string, 45)
	for i := range ids {
		ids[i] = "st-" + string(rune('a'+i%26)) + string(rune('0'+i/26))
	}

	doer := &fakeDoer{handler: func(_ int, req *http.Request) (*http.Response, error) {
		requested := strings.Split(req.URL.Query().Get("chargingAvailability"), ",")
		if len(requested) > availabilityChunkSize {
			t.Errorf("chunk exceeds provider limit: %d ids", len(requested))
		}
		var entries []string
		for _, id := range requested {
			entries = append(entries, `{"id": "`+id+`", "availability": {"status": "AVAILABLE"}}`)
		}
		return jsonResponse(http.StatusOK, `{"chargingAvailability": [`+strings.Join(entries, ",")+`]}`), nil
	}}

	result, err := newTestClient(doer).BulkStatus(context.Background(), ids)
	if err != nil {
		t.Fatalf("bulk status: %v", err)
	}
	if doer.requestCount() != 3 {
		t.Errorf("expected 3 chunked calls for 45 ids, got %d", doer.requestCount())
	}
	if len(result) != len(ids) {
		t.Errorf("expected %d entries, got %d", len(ids), len(result))
	}
	for _, availability := range result {
		if availability.Status != models.StatusAvailable {
			t.Fatalf("unexpected status %s", availability.Status)
		}
	}
}

func TestBulkStatusFailedChunkAbsentFromResult(t *testing.T) {
	ids := make([]string, availabilityChunkSize*2)
	for i := range ids {
		ids[i] = "st-" + strings.Repeat("x", 1) + string(rune('a'+i%26)) + string(rune('a'+i/26))
	}

	doer := &fakeDoer{handler: func(call int, req *http.Request) (*http.Response, error) {
		if call == 0 {
			return jsonResponse(http.StatusInternalServerError, "boom"), nil
		}
		requested := strings.Split(req.URL.Query().Get("chargingAvailability"), ",")
		var entries []string
		for _, id := range requested {
			entries = append(entries, `{"id": "`+id+`", "availability": {"status": "OCCUPIED"}}`)
		}
		return jsonResponse(http.StatusOK, `{"chargingAvailability": [`+strings.Join(entries, ",")+`]}`), nil
	}}

	result, err := newTestClient(doer).BulkStatus(context.Background(), ids)
	if err != nil {
		t.Fatalf("one surviving chunk should not fail the call: %v", err)
	}
	if len(result) != availabilityChunkSize {
		t.Errorf("expected %d entries from the surviving chunk, got %d", availabilityChunkSize, len(result))
	}
	for _, id := range ids[:availabilityChunkSize] {
		if _, ok := result[id]; ok {
			t.Fatalf("id %s from failed chunk must be absent", id)
		}
	}
}

func TestBulkStatusAllChunksFailed(t *testing.T) {
	doer := &fakeDoer{handler: func(_ int, _ *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusServiceUnavailable, "down"), nil
	}}

	_, err := newTestClient(doer).BulkStatus(context.Background(), []string{"st-1", "st-2"})
	if err == nil {
		t.Fatal("expected error when every chunk fails")
	}
	if !IsUnavailable(err) {
		t.Errorf("expected unavailable classification, got %v", err)
	}
}

func TestBulkStatusHonorsRetryAfter(t *testing.T) {
	doer := &fakeDoer{handler: func(call int, req *http.Request) (*http.Response, error) {
		if call == 0 {
			resp := jsonResponse(http.StatusTooManyRequests, "throttled")
			resp.Header.Set("Retry-After", "0")
			return resp, nil
		}
		return jsonResponse(http.StatusOK, `{"chargingAvailability": [{"id": "st-1", "availability": {"status": "AVAILABLE"}}]}`), nil
	}}

	result, err := newTestClient(doer).BulkStatus(context.Background(), []string{"st-1"})
	if err != nil {
		t.Fatalf("bulk status: %v", err)
	}
	if doer.requestCount() != 2 {
		t.Errorf("expected one retry after throttle, got %d calls", doer.requestCount())
	}
	if result["st-1"].Status != models.StatusAvailable {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestBulkStatusPerConnectorDerivation(t *testing.T) {
	body := `{"chargingAvailability": [
		{"id": "st-1",
		 "availability": {"status": "UNKNOWN"},
		 "connectors": [
			{"id": "c1", "availability": {"status": "BUSY"}},
			{"id": "c2", "availability": {"status": "AVAILABLE"}}
		 ]}
	]}`
	doer := &fakeDoer{handler: func(_ int, _ *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, body), nil
	}}

	result, err := newTestClient(doer).BulkStatus(context.Background(), []string{"st-1"})
	if err != nil {
		t.Fatalf("bulk status: %v", err)
	}
	availability := result["st-1"]
	if availability.Status != models.StatusAvailable {
		t.Errorf("status = %s, want AVAILABLE derived from connectors", availability.Status)
	}
	if len(availability.Connectors) != 2 {
		t.Errorf("expected 2 connector statuses, got %d", len(availability.Connectors))
	}
}
