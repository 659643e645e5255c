package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrRateLimited         = errors.New("rate limited by external catalog")
	ErrUpstreamUnavailable = errors.New("external catalog unavailable")
)

// ValidationError reports a rejected enum or identifier together with the
// values that would have been accepted.
type ValidationError struct {
	Field    string
	Value    string
	Accepted []string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
	}
	if len(e.Accepted) == 0 {
		return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
	}
	return fmt.Sprintf("invalid %s %q: must be one of %s", e.Field, e.Value, strings.Join(e.Accepted, ", "))
}

func NewReleaseStatusError(value string) *ValidationError {
	return &ValidationError{Field: "release_status", Value: value, Accepted: stringsOf(ReleaseStatuses())}
}

func NewAvailabilityStatusError(value string) *ValidationError {
	return &ValidationError{Field: "availability_status", Value: value, Accepted: stringsOf(AvailabilityStatuses())}
}

func NewDimensionError(value string) *ValidationError {
	return &ValidationError{Field: "dimension", Value: value, Accepted: []string{string(DimensionRelease), string(DimensionAvailability)}}
}

func stringsOf[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
