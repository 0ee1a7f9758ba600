package web

import (
	"fmt"
	"net/http"
	"strconv"
)

// ParamValidator is a function type that validates a parameter.
type ParamValidator func(valueToTest int64) bool

// ParamError reports a query parameter that is not a number or fails its bound.
// Rule is "number" or the name of the failed comparison.
type ParamError struct {
	Key   string
	Value string
	Rule  string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("Invalid %s number: %s", e.Key, e.Value)
}

func newComparisonValidator(valueInClosure int64, compareFn func(argValue, closedValue int64) bool) ParamValidator {
	return func(argValue int64) bool {
		return compareFn(argValue, valueInClosure)
	}
}

// gte returns a ParamValidator that checks if the argument is greater than or equal to the value captured in the closure.
func gte(valToCompareAgainst int64) ParamValidator {
	return newComparisonValidator(valToCompareAgainst, func(argValue, closedValue int64) bool {
		return argValue >= closedValue
	})
}

// QueryIntGte reads the integer query parameter key, falling back to def when it is absent.
// A present value must parse as a 32-bit integer >= lowest, otherwise a *ParamError is returned.
func QueryIntGte(r *http.Request, key string, def int, lowest int64) (int, error) {
	return parseValidate(r, key, def, "gte", gte(lowest))
}

func parseValidate(r *http.Request, key string, def int, rule string, pValidator ParamValidator) (int, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return def, nil
	}
	intValue, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		return 0, &ParamError{Key: key, Value: value, Rule: "number"}
	}
	if !pValidator(intValue) {
		return 0, &ParamError{Key: key, Value: value, Rule: rule}
	}
	return int(intValue), nil
}
