package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cardmesh/tokenledger/internal/services/ledger"
)

// NewRouter constructs the handler with all API endpoints registered.
func NewRouter(svc *ledger.LedgerService) http.Handler {
	h := NewHandler(svc)
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Post("/accounts", h.ProvisionAccountHandler)
	r.Get("/accounts/{accountId}/balance", h.GetBalanceHandler)
	r.Get("/accounts/{accountId}/ledger", h.LedgerHistoryHandler)
	r.Post("/accounts/{accountId}/reconcile", h.ReconcileHandler)

	r.Post("/transfers", h.TransferHandler)

	r.Post("/hooks/card-published", h.CardPublishedHandler)
	r.Post("/hooks/attribution-created", h.AttributionCreatedHandler)

	return r
}
