package httphandler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/stellar/go/support/http/httpdecode"
	"github.com/stellar/go/support/render/httpjson"

	"github.com/innovategy/innosystem/internal/data"
	"github.com/innovategy/innosystem/internal/monitor"
	"github.com/innovategy/innosystem/internal/serve/dto"
	"github.com/innovategy/innosystem/internal/serve/httperror"
	"github.com/innovategy/innosystem/internal/serve/middleware"
	"github.com/innovategy/innosystem/internal/serve/validators"
	"github.com/innovategy/innosystem/internal/wallet"
)

// WalletHandler implements the customer-scoped wallet routes (spec §6):
// GET /wallets/{customer_id}, POST /wallets/{customer_id}/deposit,
// GET /wallets/{customer_id}/transactions/{limit}/{offset}.
type WalletHandler struct {
	Models  *data.Models
	Engine  *wallet.Engine
	Monitor monitor.Client
}

// authorizeCustomer rejects the request unless the caller is the customer
// named by the path, or an admin (spec §7: "a customer accessing another
// customer's resource" must come back Forbidden).
func authorizeCustomer(rw http.ResponseWriter, req *http.Request, customerID string) bool {
	principal, ok := middleware.CurrentPrincipal(req.Context())
	if !ok {
		httperror.Unauthorized("", nil).Render(rw)
		return false
	}
	if principal.Role == middleware.RoleAdmin {
		return true
	}
	if principal.Role != middleware.RoleCustomer || principal.Customer.ID != customerID {
		httperror.Forbidden("", nil).Render(rw)
		return false
	}
	return true
}

func (h WalletHandler) Get(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	customerID := chi.URLParam(req, "customer_id")
	if !authorizeCustomer(rw, req, customerID) {
		return
	}

	w, err := h.Models.Wallets.GetByCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			httperror.NotFound(fmt.Sprintf("wallet for customer %s not found", customerID), nil).Render(rw)
			return
		}
		httperror.Internal(ctx, "loading wallet", err).Render(rw)
		return
	}

	httpjson.RenderStatus(rw, http.StatusOK, dto.FromWallet(*w), httpjson.JSON)
}

func (h WalletHandler) Deposit(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	customerID := chi.URLParam(req, "customer_id")
	if !authorizeCustomer(rw, req, customerID) {
		return
	}

	var reqBody dto.DepositRequest
	if err := httpdecode.DecodeJSON(req, &reqBody); err != nil {
		httperror.BadInput("decoding request body", err).Render(rw)
		return
	}

	v := validators.NewWalletValidator()
	cleaned := v.ValidateDepositRequest(&reqBody)
	if v.HasErrors() {
		httperror.BadInput("", nil).WithExtras(v.Errors).Render(rw)
		return
	}

	w, err := h.Engine.Deposit(ctx, customerID, cleaned.AmountCents, cleaned.Description)
	if err != nil {
		httperror.Internal(ctx, "depositing funds", err).Render(rw)
		return
	}

	if h.Monitor != nil {
		h.Monitor.MonitorWalletOperation("deposit", "success")
	}

	httpjson.RenderStatus(rw, http.StatusOK, dto.FromWallet(*w), httpjson.JSON)
}

func (h WalletHandler) ListTransactions(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	customerID := chi.URLParam(req, "customer_id")
	if !authorizeCustomer(rw, req, customerID) {
		return
	}

	limit, err := strconv.Atoi(chi.URLParam(req, "limit"))
	if err != nil || limit <= 0 {
		httperror.BadInput("limit must be a positive integer", err).Render(rw)
		return
	}
	offset, err := strconv.Atoi(chi.URLParam(req, "offset"))
	if err != nil || offset < 0 {
		httperror.BadInput("offset must be a non-negative integer", err).Render(rw)
		return
	}

	w, err := h.Models.Wallets.GetByCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			httperror.NotFound(fmt.Sprintf("wallet for customer %s not found", customerID), nil).Render(rw)
			return
		}
		httperror.Internal(ctx, "loading wallet", err).Render(rw)
		return
	}

	txs, err := h.Models.WalletTransactions.ListByWallet(ctx, w.ID, limit, offset)
	if err != nil {
		httperror.Internal(ctx, "listing wallet transactions", err).Render(rw)
		return
	}

	httpjson.RenderStatus(rw, http.StatusOK, dto.FromWalletTransactions(txs), httpjson.JSON)
}
