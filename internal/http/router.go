package httpserver

import "net/http"

// Routes groups handlers. Nil entries are simply not registered.
type Routes struct {
	StationsList   http.HandlerFunc
	StationByID    http.HandlerFunc
	NearbySearch   http.HandlerFunc
	StationHistory http.HandlerFunc
	StationEvents  http.HandlerFunc
	StatsSummary   http.HandlerFunc
	WebSocket      http.HandlerFunc
	Health         http.HandlerFunc
	Metrics        http.Handler
}

// NewRouter registers endpoints.
func NewRouter(routes Routes) http.Handler {
	mux := http.NewServeMux()
	if routes.StationsList != nil {
		mux.Handle("/api/stations", method(http.MethodGet, routes.StationsList))
	}
	if routes.NearbySearch != nil {
		mux.Handle("/api/stations/nearby/search", method(http.MethodGet, routes.NearbySearch))
	}
	if routes.StatsSummary != nil {
		mux.Handle("/api/stations/stats/summary", method(http.MethodGet, routes.StatsSummary))
	}
	if routes.StationByID != nil {
		mux.Handle("/api/stations/{id}", method(http.MethodGet, routes.StationByID))
	}
	if routes.StationHistory != nil {
		mux.Handle("/api/stations/{id}/history", method(http.MethodGet, routes.StationHistory))
	}
	if routes.StationEvents != nil {
		mux.Handle("/api/stations/{id}/events", method(http.MethodGet, routes.StationEvents))
	}
	if routes.WebSocket != nil {
		mux.Handle("/ws", routes.WebSocket)
	}
	if routes.Health != nil {
		mux.Handle("/health", method(http.MethodGet, routes.Health))
	}
	if routes.Metrics != nil {
		mux.Handle("/metrics", routes.Metrics)
	}
	return mux
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}
