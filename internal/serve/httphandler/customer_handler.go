package httphandler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stellar/go/support/http/httpdecode"
	"github.com/stellar/go/support/log"
	"github.com/stellar/go/support/render/httpjson"

	"github.com/innovategy/innosystem/internal/data"
	"github.com/innovategy/innosystem/internal/serve/dto"
	"github.com/innovategy/innosystem/internal/serve/httperror"
	"github.com/innovategy/innosystem/internal/serve/middleware"
	"github.com/innovategy/innosystem/internal/serve/validators"
)

// CustomerHandler implements the reseller/admin customer routes (spec §6):
// POST /customers, GET /customers, GET /customers/{id}.
type CustomerHandler struct {
	Models *data.Models
}

// CustomerAPIKeyPrefix marks a customer-scoped key the way "ck_" reads at a
// glance in logs and support tickets.
const CustomerAPIKeyPrefix = "ck"

func (h CustomerHandler) Create(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	principal, _ := middleware.CurrentPrincipal(ctx)

	var reqBody dto.CreateCustomerRequest
	if err := httpdecode.DecodeJSON(req, &reqBody); err != nil {
		httperror.BadInput("decoding request body", err).Render(rw)
		return
	}

	v := validators.NewCustomerValidator()
	cleaned := v.ValidateCreateCustomerRequest(&reqBody)
	if v.HasErrors() {
		httperror.BadInput("", nil).WithExtras(v.Errors).Render(rw)
		return
	}

	resellerID := cleaned.ResellerID
	if principal.Role == middleware.RoleReseller {
		resellerID = &principal.Reseller.ID
	}

	apiKey, err := data.GenerateAPIKey(CustomerAPIKeyPrefix)
	if err != nil {
		httperror.Internal(ctx, "generating customer api key", err).Render(rw)
		return
	}

	customer, err := h.Models.Customers.Insert(ctx, data.CustomerInsert{
		Name:       cleaned.Name,
		Email:      cleaned.Email,
		APIKey:     &apiKey,
		ResellerID: resellerID,
	})
	if err != nil {
		httperror.Internal(ctx, "creating customer", err).Render(rw)
		return
	}

	httpjson.RenderStatus(rw, http.StatusCreated, dto.FromCustomer(*customer), httpjson.JSON)
}

func (h CustomerHandler) List(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	principal, _ := middleware.CurrentPrincipal(ctx)

	var (
		customers []data.Customer
		err       error
	)
	if principal.Role == middleware.RoleReseller {
		customers, err = h.Models.Customers.GetByResellerID(ctx, principal.Reseller.ID)
	} else {
		customers, err = h.Models.Customers.ListAll(ctx)
	}
	if err != nil {
		httperror.Internal(ctx, "listing customers", err).Render(rw)
		return
	}

	httpjson.RenderStatus(rw, http.StatusOK, dto.FromCustomers(customers), httpjson.JSON)
}

func (h CustomerHandler) Get(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	principal, _ := middleware.CurrentPrincipal(ctx)
	id := chi.URLParam(req, "id")

	customer, err := h.Models.Customers.Get(ctx, id)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			httperror.NotFound(fmt.Sprintf("customer %s not found", id), nil).Render(rw)
			return
		}
		httperror.Internal(ctx, "loading customer", err).Render(rw)
		return
	}

	if principal.Role == middleware.RoleReseller && (customer.ResellerID == nil || *customer.ResellerID != principal.Reseller.ID) {
		httperror.Forbidden("", nil).Render(rw)
		return
	}

	log.Ctx(ctx).Debugf("fetched customer %s", id)
	httpjson.RenderStatus(rw, http.StatusOK, dto.FromCustomer(*customer), httpjson.JSON)
}
