package server

import (
	"encoding/json"
	"net/http"
)

// Problem types for RFC 7807 Problem Details responses.
const (
	ProblemTypeNotFound     = "https://boltin.app/problems/not-found"
	ProblemTypeBadRequest   = "https://boltin.app/problems/bad-request"
	ProblemTypeValidation   = "https://boltin.app/problems/validation-failed"
	ProblemTypeInternal     = "https://boltin.app/problems/internal-error"
	ProblemTypeUnauthorized = "https://boltin.app/problems/unauthorized"
	ProblemTypeForbidden    = "https://boltin.app/problems/forbidden"
	ProblemTypeRateLimited  = "https://boltin.app/problems/rate-limited"
	ProblemTypeConflict     = "https://boltin.app/problems/conflict"
)

// Problem represents an RFC 7807 Problem Details response. Fields holds
// per-field validation messages; ConflictField names the identifier that
// collided on duplicate registrations.
type Problem struct {
	Type          string            `json:"type" example:"https://boltin.app/problems/bad-request"`
	Title         string            `json:"title" example:"Bad Request"`
	Status        int               `json:"status" example:"400"`
	Detail        string            `json:"detail,omitempty" example:"query must be at least 3 characters"`
	Instance      string            `json:"instance,omitempty" example:"/api/v1/devices/search"`
	Fields        map[string]string `json:"fields,omitempty"`
	ConflictField string            `json:"conflict_field,omitempty" example:"imei"`
}

// WriteProblem writes an RFC 7807 Problem Details JSON response.
func WriteProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NotFound writes a 404 problem response.
func NotFound(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeNotFound,
		Title:    "Not Found",
		Status:   http.StatusNotFound,
		Detail:   detail,
		Instance: instance,
	})
}

// BadRequest writes a 400 problem response.
func BadRequest(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeBadRequest,
		Title:    "Bad Request",
		Status:   http.StatusBadRequest,
		Detail:   detail,
		Instance: instance,
	})
}

// ValidationFailed writes a 400 problem response carrying per-field messages.
func ValidationFailed(w http.ResponseWriter, fields map[string]string, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeValidation,
		Title:    "Validation Failed",
		Status:   http.StatusBadRequest,
		Detail:   "one or more identification fields failed validation",
		Instance: instance,
		Fields:   fields,
	})
}

// Conflict writes a 409 problem response naming the colliding field.
func Conflict(w http.ResponseWriter, detail, field, instance string) {
	WriteProblem(w, Problem{
		Type:          ProblemTypeConflict,
		Title:         "Conflict",
		Status:        http.StatusConflict,
		Detail:        detail,
		Instance:      instance,
		ConflictField: field,
	})
}

// Forbidden writes a 403 problem response.
func Forbidden(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeForbidden,
		Title:    "Forbidden",
		Status:   http.StatusForbidden,
		Detail:   detail,
		Instance: instance,
	})
}

// InternalError writes a 500 problem response.
func InternalError(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeInternal,
		Title:    "Internal Server Error",
		Status:   http.StatusInternalServerError,
		Detail:   detail,
		Instance: instance,
	})
}

// RateLimited writes a 429 problem response.
func RateLimited(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeRateLimited,
		Title:    "Too Many Requests",
		Status:   http.StatusTooManyRequests,
		Detail:   detail,
		Instance: instance,
	})
}
