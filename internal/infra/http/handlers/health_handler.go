package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"
)

// BrokerStatus é satisfeito por *queue.RabbitMQ.
type BrokerStatus interface {
	Healthy() bool
}

type HealthHandler struct {
	DB        *sql.DB
	RabbitMQ  BrokerStatus
	RelayURL  string
	Version   string
	StartTime time.Time
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Uptime       string            `json:"uptime"`
	Dependencies map[string]string `json:"dependencies"`
}

func NewHealthHandler(db *sql.DB, rabbitMQ BrokerStatus, relayURL string) *HealthHandler {
	return &HealthHandler{
		DB:        db,
		RabbitMQ:  rabbitMQ,
		RelayURL:  relayURL,
		Version:   "1.0.0",
		StartTime: time.Now(),
	}
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	deps := make(map[string]string)

	// Database
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.PingContext(ctx); err != nil {
			deps["database"] = fmt.Sprintf("unhealthy: %v", err)
		} else {
			deps["database"] = "healthy"
		}
	} else {
		deps["database"] = "in-memory"
	}

	// RabbitMQ
	if h.RabbitMQ != nil {
		if h.RabbitMQ.Healthy() {
			deps["rabbitmq"] = "healthy"
		} else {
			deps["rabbitmq"] = "unhealthy: connection closed"
		}
	} else {
		deps["rabbitmq"] = "not configured"
	}

	if h.RelayURL != "" {
		deps["relay"] = "configured"
	} else {
		deps["relay"] = "not configured"
	}

	status := "healthy"
	for _, v := range deps {
		switch v {
		case "healthy", "configured", "not configured", "in-memory":
		default:
			status = "degraded"
		}
	}

	response := HealthResponse{
		Status:       status,
		Version:      h.Version,
		Uptime:       time.Since(h.StartTime).Round(time.Second).String(),
		Dependencies: deps,
	}

	code := http.StatusOK
	if status == "degraded" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, response)
}
