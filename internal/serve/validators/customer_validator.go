package validators

import (
	"strings"

	"github.com/asaskevich/govalidator"

	"github.com/innovategy/innosystem/internal/serve/dto"
)

type CustomerValidator struct {
	*Validator
}

func NewCustomerValidator() *CustomerValidator {
	return &CustomerValidator{Validator: NewValidator()}
}

func (cv *CustomerValidator) ValidateCreateCustomerRequest(reqBody *dto.CreateCustomerRequest) *dto.CreateCustomerRequest {
	cv.Check(reqBody != nil, "body", "request body is empty")
	if cv.HasErrors() {
		return nil
	}

	name := strings.TrimSpace(reqBody.Name)
	email := strings.TrimSpace(reqBody.Email)

	cv.Check(name != "", "name", "name is required")
	cv.Check(email != "", "email", "email is required")
	if email != "" {
		cv.Check(govalidator.IsEmail(email), "email", "email is not a valid address")
	}

	if cv.HasErrors() {
		return nil
	}

	return &dto.CreateCustomerRequest{Name: name, Email: email, ResellerID: reqBody.ResellerID}
}
