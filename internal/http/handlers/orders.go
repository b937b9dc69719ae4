package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"motionlab/internal/domain"
)

type orderResponse struct {
	ID         string        `json:"id"`
	Status     string        `json:"status"`
	Kind       string        `json:"kind"`
	ResultRefs []string      `json:"result_refs,omitempty"`
	Jobs       []jobResponse `json:"jobs,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

type jobResponse struct {
	Provider  string `json:"provider"`
	Model     string `json:"model,omitempty"`
	Status    string `json:"status"`
	ResultRef string `json:"result_ref,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// ProcessOrder kicks an order into the engine once its funding is confirmed.
// The work continues on the scheduler, so the endpoint answers as soon as the
// order was either started or queued.
func (a *App) ProcessOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.Proc.ProcessOrder(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.jsonError(w, http.StatusNotFound, "order not found")
			return
		}
		if errors.Is(err, domain.ErrInsufficientCredit) {
			a.jsonError(w, http.StatusPaymentRequired, "insufficient credit")
			return
		}
		a.Logger.Error().Err(err).Str("order_id", id).Msg("process order failed")
		a.jsonError(w, http.StatusInternalServerError, "processing failed")
		return
	}

	order, err := a.Orders.GetByID(r.Context(), id)
	if err != nil {
		a.jsonError(w, http.StatusInternalServerError, "order lookup failed")
		return
	}
	a.json(w, http.StatusAccepted, orderResponse{
		ID:        order.ID,
		Status:    string(order.Status),
		Kind:      string(order.Kind),
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	})
}

// GetOrder returns the order with its jobs.
func (a *App) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	order, err := a.Orders.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.jsonError(w, http.StatusNotFound, "order not found")
			return
		}
		a.Logger.Error().Err(err).Str("order_id", id).Msg("order lookup failed")
		a.jsonError(w, http.StatusInternalServerError, "order lookup failed")
		return
	}

	jobs, err := a.Jobs.ListByOrderID(r.Context(), id)
	if err != nil {
		a.Logger.Error().Err(err).Str("order_id", id).Msg("job lookup failed")
		a.jsonError(w, http.StatusInternalServerError, "job lookup failed")
		return
	}

	resp := orderResponse{
		ID:         order.ID,
		Status:     string(order.Status),
		Kind:       string(order.Kind),
		ResultRefs: order.ResultRefs,
		CreatedAt:  order.CreatedAt,
		UpdatedAt:  order.UpdatedAt,
	}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, jobResponse{
			Provider:  string(j.Provider),
			Model:     j.Model,
			Status:    string(j.Status),
			ResultRef: j.ResultRef,
			ErrorKind: string(j.ErrorKind),
		})
	}
	a.json(w, http.StatusOK, resp)
}

// GetBalance returns the owner's prepaid credit balance.
func (a *App) GetBalance(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "ownerID")
	balance, err := a.Ledger.Balance(r.Context(), owner)
	if err != nil {
		a.Logger.Error().Err(err).Str("owner_id", owner).Msg("balance lookup failed")
		a.jsonError(w, http.StatusInternalServerError, "balance lookup failed")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"owner_id": owner, "balance": balance})
}
