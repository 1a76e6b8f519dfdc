package httphandler

import (
	"net/http"

	"github.com/stellar/go/support/render/httpjson"

	"github.com/innovategy/innosystem/internal/serve/dto"
)

// HealthHandler answers GET /health (spec §6): no dependencies, no
// authentication, just proof the process is up.
type HealthHandler struct{}

func (h HealthHandler) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	httpjson.RenderStatus(rw, http.StatusOK, dto.HealthResponse{Status: "OK"}, httpjson.JSON)
}
