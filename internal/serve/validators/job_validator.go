package validators

import (
	"strings"

	"github.com/innovategy/innosystem/internal/data"
	"github.com/innovategy/innosystem/internal/serve/dto"
)

type JobValidator struct {
	*Validator
}

func NewJobValidator() *JobValidator {
	return &JobValidator{Validator: NewValidator()}
}

// ValidateSubmitJobRequest checks the required fields and parses priority,
// returning the zero value alongside a populated Validator on failure.
func (jv *JobValidator) ValidateSubmitJobRequest(reqBody *dto.SubmitJobRequest) (string, data.Priority) {
	jv.Check(reqBody != nil, "body", "request body is empty")
	if jv.HasErrors() {
		return "", 0
	}

	jobTypeID := strings.TrimSpace(reqBody.JobTypeID)
	jv.Check(jobTypeID != "", "job_type_id", "job_type_id is required")

	priority, err := data.ToPriority(reqBody.Priority)
	jv.CheckError(err, "priority", "priority must be one of LOW, MEDIUM, HIGH, CRITICAL")

	return jobTypeID, priority
}

func (jv *JobValidator) ValidateEstimateCostRequest(reqBody *dto.EstimateCostRequest) (string, data.Priority) {
	jv.Check(reqBody != nil, "body", "request body is empty")
	if jv.HasErrors() {
		return "", 0
	}

	jobTypeID := strings.TrimSpace(reqBody.JobTypeID)
	jv.Check(jobTypeID != "", "job_type_id", "job_type_id is required")

	priority, err := data.ToPriority(reqBody.Priority)
	jv.CheckError(err, "priority", "priority must be one of LOW, MEDIUM, HIGH, CRITICAL")

	return jobTypeID, priority
}

func (jv *JobValidator) ValidateCompleteJobRequest(reqBody *dto.CompleteJobRequest) {
	jv.Check(reqBody != nil, "body", "request body is empty")
	if jv.HasErrors() {
		return
	}
	jv.Check(strings.TrimSpace(reqBody.JobID) != "", "job_id", "job_id is required")
}
