package validators

import (
	"strings"

	"github.com/innovategy/innosystem/internal/serve/dto"
)

type WalletValidator struct {
	*Validator
}

func NewWalletValidator() *WalletValidator {
	return &WalletValidator{Validator: NewValidator()}
}

func (wv *WalletValidator) ValidateDepositRequest(reqBody *dto.DepositRequest) *dto.DepositRequest {
	wv.Check(reqBody != nil, "body", "request body is empty")
	if wv.HasErrors() {
		return nil
	}

	wv.Check(reqBody.AmountCents > 0, "amount_cents", "amount_cents must be greater than zero")
	description := strings.TrimSpace(reqBody.Description)
	if description == "" {
		description = "customer deposit"
	}

	if wv.HasErrors() {
		return nil
	}

	return &dto.DepositRequest{AmountCents: reqBody.AmountCents, Description: description}
}
