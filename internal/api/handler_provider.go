package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cardmesh/tokenledger/internal/models"
	"github.com/cardmesh/tokenledger/internal/services/ledger"
)

// HandlerProvider wraps the ledger service and exposes HTTP handlers.
type HandlerProvider struct {
	svc *ledger.LedgerService
}

// NewHandler returns a new handler provider.
func NewHandler(svc *ledger.LedgerService) *HandlerProvider {
	return &HandlerProvider{svc: svc}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)

		http.Error(w, `{"error":"internal json encode failure"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps the service's typed errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrSameAccount),
		errors.Is(err, models.ErrNoAccounts),
		errors.Is(err, models.ErrSelfAttribution),
		errors.Is(err, ledger.ErrUnknownAttributionType):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrAccountNotFound),
		errors.Is(err, models.ErrAttributionNotFound),
		errors.Is(err, models.ErrCardNotFound),
		errors.Is(err, models.ErrEntryNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrInsufficientBalance):
		writeError(w, http.StatusConflict, "insufficient balance")
	case errors.Is(err, models.ErrConcurrencyConflict),
		errors.Is(err, models.ErrDuplicateReference):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseAccountIDFromPath(r *http.Request) (uuid.UUID, error) {
	idStr := chi.URLParam(r, "accountId")
	if idStr == "" {
		return uuid.Nil, fmt.Errorf("missing accountId")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid accountId: %w", err)
	}

	return id, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB cap
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty body")
		}

		return fmt.Errorf("invalid JSON")
	}

	return nil
}

// parseAmount reads a positive decimal string with at most 8 fractional digits.
func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, models.ErrInvalidAmount
	}

	if !amount.IsPositive() || amount.Exponent() < -models.AmountScale {
		return decimal.Zero, models.ErrInvalidAmount
	}

	return amount, nil
}

func accountJSON(acc models.Account) map[string]any {
	return map[string]any{
		"accountId":   acc.ID,
		"balance":     acc.Balance.String(),
		"totalEarned": acc.TotalEarned.String(),
		"totalSpent":  acc.TotalSpent.String(),
		"version":     acc.Version,
	}
}

func entryJSON(e models.Entry) map[string]any {
	out := map[string]any{
		"entryId":       e.ID,
		"seq":           e.Seq,
		"amount":        e.Amount.String(),
		"entryType":     e.Type,
		"referenceId":   e.ReferenceID,
		"referenceType": e.ReferenceType,
		"createdAt":     e.CreatedAt,
	}

	if e.From != nil {
		out["fromAccount"] = *e.From
	}
	if e.To != nil {
		out["toAccount"] = *e.To
	}
	if e.BalanceAfterFrom != nil {
		out["balanceAfterFrom"] = e.BalanceAfterFrom.String()
	}
	if e.BalanceAfterTo != nil {
		out["balanceAfterTo"] = e.BalanceAfterTo.String()
	}

	return out
}

// --- Handlers ---

type provisionRequest struct {
	AccountID string `json:"accountId"`
}

// ProvisionAccountHandler handles POST /accounts, called by the identity
// service when a user is set up.
func (h *HandlerProvider) ProvisionAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req provisionRequest

	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := uuid.Parse(req.AccountID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid accountId")
		return
	}

	acc, err := h.svc.ProvisionAccount(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, accountJSON(acc))
}

// GetBalanceHandler handles GET /accounts/{accountId}/balance
func (h *HandlerProvider) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	accountID, err := parseAccountIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid accountId in path")
		return
	}

	acc, err := h.svc.GetBalance(r.Context(), accountID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, accountJSON(acc))
}

// LedgerHistoryHandler handles GET /accounts/{accountId}/ledger?since=&limit=
func (h *HandlerProvider) LedgerHistoryHandler(w http.ResponseWriter, r *http.Request) {
	accountID, err := parseAccountIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid accountId in path")
		return
	}

	var since int64
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || since < 0 {
			writeError(w, http.StatusBadRequest, "invalid since cursor")
			return
		}
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > 1000 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}

	page, err := h.svc.History(r.Context(), accountID, since, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	entries := make([]map[string]any, 0, len(page))
	nextSince := since

	for _, e := range page {
		entries = append(entries, entryJSON(e))
		nextSince = e.Seq
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries":   entries,
		"nextSince": nextSince,
	})
}

// ReconcileHandler handles POST /accounts/{accountId}/reconcile
func (h *HandlerProvider) ReconcileHandler(w http.ResponseWriter, r *http.Request) {
	accountID, err := parseAccountIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid accountId in path")
		return
	}

	report, err := h.svc.VerifyAccount(r.Context(), accountID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"accountId": report.AccountID,
		"stored":    report.Stored.String(),
		"computed":  report.Computed.String(),
		"divergent": report.Divergent(),
	})
}

type transferRequest struct {
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
	Amount      string `json:"amount"`
	ReferenceID string `json:"referenceId,omitempty"`
}

// TransferHandler handles POST /transfers: administrative/manual transfers.
func (h *HandlerProvider) TransferHandler(w http.ResponseWriter, r *http.Request) {
	var req transferRequest

	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	svcReq := ledger.TransferRequest{
		Amount:        amount,
		ReferenceID:   uuid.New(),
		ReferenceType: models.RefManual,
	}

	if req.From != "" {
		from, err := uuid.Parse(req.From)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from account")
			return
		}
		svcReq.From = &from
	}

	if req.To != "" {
		to, err := uuid.Parse(req.To)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to account")
			return
		}
		svcReq.To = &to
	}

	if req.ReferenceID != "" {
		ref, err := uuid.Parse(req.ReferenceID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid referenceId")
			return
		}
		svcReq.ReferenceID = ref
	}

	res, err := h.svc.Transfer(r.Context(), svcReq)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	accs := make([]map[string]any, 0, len(res.Accounts))
	for _, acc := range res.Accounts {
		accs = append(accs, accountJSON(acc))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entry":    entryJSON(res.Entry),
		"accounts": accs,
	})
}

type cardPublishedRequest struct {
	CardID         string `json:"cardId"`
	OwnerAccountID string `json:"ownerAccountId"`
}

// CardPublishedHandler handles POST /hooks/card-published. Present the same
// event twice and the second call returns the first call's entry with 200.
func (h *HandlerProvider) CardPublishedHandler(w http.ResponseWriter, r *http.Request) {
	var req cardPublishedRequest

	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cardID, err := uuid.Parse(req.CardID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cardId")
		return
	}

	owner, err := uuid.Parse(req.OwnerAccountID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ownerAccountId")
		return
	}

	entry, err := h.svc.OnCardPublished(r.Context(), cardID, owner)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"entry": entryJSON(entry)})
}

type attributionCreatedRequest struct {
	AttributionID string `json:"attributionId"`
}

// AttributionCreatedHandler handles POST /hooks/attribution-created. An
// already-paid attribution is an idempotent no-op: 200 with the paying entry.
func (h *HandlerProvider) AttributionCreatedHandler(w http.ResponseWriter, r *http.Request) {
	var req attributionCreatedRequest

	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	attributionID, err := uuid.Parse(req.AttributionID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid attributionId")
		return
	}

	entry, err := h.svc.OnAttributionCreated(r.Context(), attributionID)
	if err != nil {
		if errors.Is(err, models.ErrAlreadyPaid) {
			writeJSON(w, http.StatusOK, map[string]any{
				"entry":       entryJSON(entry),
				"alreadyPaid": true,
			})
			return
		}

		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"entry": entryJSON(entry)})
}
