package httphandler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/stellar/go/support/http/httpdecode"
	"github.com/stellar/go/support/render/httpjson"

	"github.com/innovategy/innosystem/internal/billing"
	"github.com/innovategy/innosystem/internal/data"
	"github.com/innovategy/innosystem/internal/dispatch"
	"github.com/innovategy/innosystem/internal/serve/dto"
	"github.com/innovategy/innosystem/internal/serve/httperror"
	"github.com/innovategy/innosystem/internal/serve/middleware"
	"github.com/innovategy/innosystem/internal/serve/validators"
	"github.com/innovategy/innosystem/internal/wallet"
)

// JobHandler implements the job submission, lookup, cost preview, and
// completion routes (spec §6).
type JobHandler struct {
	Models   *data.Models
	Dispatch *dispatch.Controller
	Billing  *billing.Service
}

func (h JobHandler) Submit(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	principal, ok := middleware.CurrentPrincipal(ctx)
	if !ok || principal.Role != middleware.RoleCustomer {
		httperror.Forbidden("only customers may submit jobs", nil).Render(rw)
		return
	}

	var reqBody dto.SubmitJobRequest
	if err := httpdecode.DecodeJSON(req, &reqBody); err != nil {
		httperror.BadInput("decoding request body", err).Render(rw)
		return
	}

	v := validators.NewJobValidator()
	jobTypeID, priority := v.ValidateSubmitJobRequest(&reqBody)
	if v.HasErrors() {
		httperror.BadInput("", nil).WithExtras(v.Errors).Render(rw)
		return
	}

	job, err := h.Dispatch.SubmitJob(ctx, principal.Customer.ID, jobTypeID, priority, reqBody.ProjectID, reqBody.InputData)
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrInsufficientFunds):
			httperror.InsufficientFunds("", err).Render(rw)
		case errors.Is(err, data.ErrRecordNotFound):
			httperror.NotFound("job type not found", err).Render(rw)
		default:
			httperror.Internal(ctx, "submitting job", err).Render(rw)
		}
		return
	}

	httpjson.RenderStatus(rw, http.StatusCreated, dto.FromJob(*job), httpjson.JSON)
}

func (h JobHandler) EstimateCost(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	var reqBody dto.EstimateCostRequest
	if err := httpdecode.DecodeJSON(req, &reqBody); err != nil {
		httperror.BadInput("decoding request body", err).Render(rw)
		return
	}

	v := validators.NewJobValidator()
	jobTypeID, priority := v.ValidateEstimateCostRequest(&reqBody)
	if v.HasErrors() {
		httperror.BadInput("", nil).WithExtras(v.Errors).Render(rw)
		return
	}

	estimatedCost, err := h.Billing.EstimateCost(ctx, jobTypeID, priority)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			httperror.NotFound("job type not found", err).Render(rw)
			return
		}
		httperror.Internal(ctx, "estimating job cost", err).Render(rw)
		return
	}

	httpjson.RenderStatus(rw, http.StatusOK, dto.EstimateCostResponse{EstimatedCostCents: estimatedCost}, httpjson.JSON)
}

func (h JobHandler) Complete(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	var reqBody dto.CompleteJobRequest
	if err := httpdecode.DecodeJSON(req, &reqBody); err != nil {
		httperror.BadInput("decoding request body", err).Render(rw)
		return
	}

	v := validators.NewJobValidator()
	v.ValidateCompleteJobRequest(&reqBody)
	if v.HasErrors() {
		httperror.BadInput("", nil).WithExtras(v.Errors).Render(rw)
		return
	}

	if err := h.Dispatch.CompleteJob(ctx, reqBody.JobID, reqBody.Success, reqBody.OutputData, reqBody.Error); err != nil {
		var badState data.ErrBadState
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			httperror.NotFound(fmt.Sprintf("job %s not found", reqBody.JobID), err).Render(rw)
		case errors.As(err, &badState):
			httperror.BadState("", err).Render(rw)
		default:
			httperror.Internal(ctx, "completing job", err).Render(rw)
		}
		return
	}

	httpjson.RenderStatus(rw, http.StatusOK, map[string]string{"message": "job completion recorded"}, httpjson.JSON)
}

func (h JobHandler) List(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	principal, ok := middleware.CurrentPrincipal(ctx)
	if !ok || principal.Role != middleware.RoleCustomer {
		httperror.Forbidden("only customers may list their jobs", nil).Render(rw)
		return
	}

	q := req.URL.Query()
	params := data.JobQueryParams{
		Page:      queryInt(q, "page", 1),
		PageLimit: queryInt(q, "page_size", 50),
		Filters:   map[data.FilterKey]interface{}{data.FilterKeyCustomerID: principal.Customer.ID},
	}
	if status := q.Get("status"); status != "" {
		if parsed, err := data.ToJobStatus(status); err == nil {
			params.Filters[data.FilterKeyStatus] = parsed
		}
	}
	if jobTypeID := q.Get("job_type_id"); jobTypeID != "" {
		params.Filters[data.FilterKeyJobTypeID] = jobTypeID
	}

	jobs, total, err := h.Models.Jobs.QueryJobs(ctx, params)
	if err != nil {
		httperror.Internal(ctx, "listing jobs", err).Render(rw)
		return
	}

	httpjson.RenderStatus(rw, http.StatusOK, dto.JobListResponse{Jobs: dto.FromJobs(jobs), Total: total}, httpjson.JSON)
}

func (h JobHandler) Get(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	principal, _ := middleware.CurrentPrincipal(ctx)
	id := chi.URLParam(req, "id")

	job, err := h.Models.Jobs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			httperror.NotFound(fmt.Sprintf("job %s not found", id), nil).Render(rw)
			return
		}
		httperror.Internal(ctx, "loading job", err).Render(rw)
		return
	}

	if principal.Role == middleware.RoleCustomer && job.CustomerID != principal.Customer.ID {
		httperror.Forbidden("", nil).Render(rw)
		return
	}

	httpjson.RenderStatus(rw, http.StatusOK, dto.FromJob(*job), httpjson.JSON)
}

func queryInt(q map[string][]string, key string, def int) int {
	values, ok := q[key]
	if !ok || len(values) == 0 {
		return def
	}
	n, err := strconv.Atoi(values[0])
	if err != nil || n <= 0 {
		return def
	}
	return n
}
