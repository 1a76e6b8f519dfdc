// Package validators accumulates field-level request validation errors the
// way the rest of this stack's HTTP layer does, so a handler can report
// every rejected field in one response instead of stopping at the first.
package validators

type Validator struct {
	Errors map[string]any
}

func NewValidator() *Validator {
	return &Validator{Errors: make(map[string]any)}
}

func (v *Validator) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *Validator) Check(ok bool, key, message string) {
	if !ok {
		v.AddError(key, message)
	}
}

func (v *Validator) CheckError(err error, key, message string) {
	if err != nil && message == "" {
		message = err.Error()
	}
	v.Check(err == nil, key, message)
}

func (v *Validator) AddError(key, message string) {
	v.Errors[key] = message
}
