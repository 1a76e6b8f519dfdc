package httphandler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stellar/go/support/http/httpdecode"
	"github.com/stellar/go/support/render/httpjson"

	"github.com/innovategy/innosystem/internal/data"
	"github.com/innovategy/innosystem/internal/dispatch"
	"github.com/innovategy/innosystem/internal/monitor"
	"github.com/innovategy/innosystem/internal/serve/dto"
	"github.com/innovategy/innosystem/internal/serve/httperror"
	"github.com/innovategy/innosystem/internal/serve/validators"
)

// RunnerHandler implements the runner heartbeat/health/registration routes
// and the maintenance reassignment trigger (spec §4.5, §6).
type RunnerHandler struct {
	Models   *data.Models
	Dispatch *dispatch.Controller
	Monitor  monitor.Client
}

// Register lets a runner enroll itself with its compatible job-type names
// (spec §4.5: "runners self-register"). Not in spec.md's route table, which
// documents only the already-registered runner's heartbeat/health surface;
// added here since self-registration has to happen through some boundary,
// and the fleet's deployment credential (the admin key) is the natural one.
func (h RunnerHandler) Register(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	var reqBody dto.RegisterRunnerRequest
	if err := httpdecode.DecodeJSON(req, &reqBody); err != nil {
		httperror.BadInput("decoding request body", err).Render(rw)
		return
	}

	v := validators.NewRunnerValidator()
	cleaned := v.ValidateRegisterRunnerRequest(&reqBody)
	if v.HasErrors() {
		httperror.BadInput("", nil).WithExtras(v.Errors).Render(rw)
		return
	}

	runner, err := h.Dispatch.Register(ctx, cleaned.Name, cleaned.Description, cleaned.CompatibleJobTypes)
	if err != nil {
		httperror.Internal(ctx, "registering runner", err).Render(rw)
		return
	}

	httpjson.RenderStatus(rw, http.StatusCreated, dto.FromRunner(*runner), httpjson.JSON)
}

// Heartbeat requires no authentication (spec §4.5: "does not require
// authentication in the spec"), so this route is mounted outside the
// authenticated router group.
func (h RunnerHandler) Heartbeat(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	id := chi.URLParam(req, "id")

	if err := h.Dispatch.Heartbeat(ctx, id); err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			httperror.NotFound(fmt.Sprintf("runner %s not found", id), nil).Render(rw)
			return
		}
		httperror.Internal(ctx, "recording heartbeat", err).Render(rw)
		return
	}

	httpjson.RenderStatus(rw, http.StatusOK, map[string]string{"status": "ok"}, httpjson.JSON)
}

func (h RunnerHandler) Health(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	id := chi.URLParam(req, "id")

	health, err := h.Dispatch.HealthOf(ctx, id)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			httperror.NotFound(fmt.Sprintf("runner %s not found", id), nil).Render(rw)
			return
		}
		httperror.Internal(ctx, "classifying runner health", err).Render(rw)
		return
	}

	if h.Monitor != nil {
		h.Monitor.MonitorRunnerHealth(id, string(health))
	}

	httpjson.RenderStatus(rw, http.StatusOK, dto.RunnerHealthResponse{RunnerID: id, Health: string(health)}, httpjson.JSON)
}

// ReassignJobs triggers the stall sweep on demand (spec §6: "trigger stall
// sweep"), in addition to whatever periodic schedule cmd/serve.go runs it
// on.
func (h RunnerHandler) ReassignJobs(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	reassigned, err := h.Dispatch.StallSweep(ctx, dispatch.DefaultStallThreshold)
	if err != nil {
		httperror.Internal(ctx, "running stall sweep", err).Render(rw)
		return
	}

	if h.Monitor != nil {
		h.Monitor.MonitorStallSweep(reassigned)
	}

	httpjson.RenderStatus(rw, http.StatusOK, dto.ReassignJobsResponse{Reassigned: reassigned}, httpjson.JSON)
}
