package data

import (
	"sort"
	"strings"

	"PickupStatsApi/internal/validator"
)

type ModelValidationErr struct {
	Errors map[string]string
}

func (e ModelValidationErr) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for key, value := range e.Errors {
		fields = append(fields, key+" "+value)
	}
	sort.Strings(fields)
	return "model validation unsuccessful: " + strings.Join(fields, "; ")
}

// ModelValidationErrFrom lifts the failures collected by a validator.
func ModelValidationErrFrom(v *validator.Validator) ModelValidationErr {
	e := ModelValidationErr{Errors: make(map[string]string, len(v.Errors))}
	for key, value := range v.Errors {
		e.Errors[key] = value
	}
	return e
}
