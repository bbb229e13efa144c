package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts clients whose Ping does not return a bare error.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type Broker interface {
	Healthy() bool
}

type HealthHandler struct {
	Store     Pinger
	Broker    Broker
	Cache     Pinger
	Version   string
	StartTime time.Time
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Uptime       string            `json:"uptime"`
	Dependencies map[string]string `json:"dependencies"`
}

// NewHealthHandler takes nil for any dependency that is not configured.
func NewHealthHandler(store Pinger, broker Broker, cache Pinger) *HealthHandler {
	return &HealthHandler{
		Store:     store,
		Broker:    broker,
		Cache:     cache,
		Version:   "1.0.0",
		StartTime: time.Now(),
	}
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	deps := map[string]string{
		"database": ping(ctx, h.Store),
		"redis":    ping(ctx, h.Cache),
	}

	switch {
	case h.Broker == nil:
		deps["rabbitmq"] = "not configured"
	case h.Broker.Healthy():
		deps["rabbitmq"] = "healthy"
	default:
		deps["rabbitmq"] = "unhealthy: connection closed"
	}

	status := "healthy"
	for _, v := range deps {
		if v != "healthy" && v != "not configured" {
			status = "degraded"
			break
		}
	}

	code := http.StatusOK
	if status == "degraded" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, HealthResponse{
		Status:       status,
		Version:      h.Version,
		Uptime:       time.Since(h.StartTime).Round(time.Second).String(),
		Dependencies: deps,
	})
}

func ping(ctx context.Context, p Pinger) string {
	if p == nil {
		return "not configured"
	}
	if err := p.Ping(ctx); err != nil {
		return fmt.Sprintf("unhealthy: %v", err)
	}
	return "healthy"
}
