package api

import (
	"errors"

	"github.com/gin-gonic/gin"
)

var (
	ErrLotNotPending   = errors.New("lot is not in the pending phase")
	ErrInvalidPricing  = errors.New("start price must be greater than or equal to end price, and both must be non-negative")
	ErrInvalidDuration = errors.New("duration must be greater than zero seconds")
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrScheduleInPast  = errors.New("scheduled start time must be in the future")
)

type FailedValidationResponse struct {
	Message         string            `json:"message"`
	FieldViolations []*FieldViolation `json:"field_violations"`
}

type FieldViolation struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

func fieldViolation(field string, err error) *FieldViolation {
	return &FieldViolation{
		Field:       field,
		Description: err.Error(),
	}
}

func errorResponse(err error) gin.H {
	return gin.H{"error": err.Error()}
}

func failedValidationError(violations []*FieldViolation) *FailedValidationResponse {
	return &FailedValidationResponse{
		Message:         "Invalid request parameters",
		FieldViolations: violations,
	}
}
