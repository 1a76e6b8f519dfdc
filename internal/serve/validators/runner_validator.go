package validators

import (
	"strings"

	"github.com/innovategy/innosystem/internal/serve/dto"
)

type RunnerValidator struct {
	*Validator
}

func NewRunnerValidator() *RunnerValidator {
	return &RunnerValidator{Validator: NewValidator()}
}

func (rv *RunnerValidator) ValidateRegisterRunnerRequest(reqBody *dto.RegisterRunnerRequest) *dto.RegisterRunnerRequest {
	rv.Check(reqBody != nil, "body", "request body is empty")
	if rv.HasErrors() {
		return nil
	}

	name := strings.TrimSpace(reqBody.Name)
	rv.Check(name != "", "name", "name is required")
	rv.Check(len(reqBody.CompatibleJobTypes) > 0, "compatible_job_types", "at least one compatible job type is required")

	if rv.HasErrors() {
		return nil
	}

	return &dto.RegisterRunnerRequest{Name: name, Description: reqBody.Description, CompatibleJobTypes: reqBody.CompatibleJobTypes}
}
