// Package handlers holds the HTTP endpoints for order intake and inspection.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"motionlab/internal/domain"
)

// Processor is the slice of the orchestrator the API needs.
type Processor interface {
	ProcessOrder(ctx context.Context, orderID string) error
}

// App bundles the handler dependencies.
type App struct {
	Orders domain.OrderRepository
	Jobs   domain.JobRepository
	Ledger domain.CreditLedger
	Proc   Processor
	Logger zerolog.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) jsonError(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, map[string]string{"error": msg})
}
