package model

import (
	"errors"
	"net/http"
)

var (
	ErrRateLimitReached = errors.New("RATE_LIMIT_REACHED")
	ErrRateLimiter      = errors.New("RATE_LIMITER_ERROR")
	ErrFetch            = errors.New("FETCH_ERROR")
	ErrNotFound         = errors.New("NOT_FOUND")
	ErrInvalidQuery     = errors.New("INVALID_QUERY")
)

type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func NewAPIError(errReason error) APIError {
	switch {
	case errors.Is(errReason, ErrRateLimitReached):
		return APIError{
			Code:      ErrRateLimitReached.Error(),
			Message:   "github rate limit reached. consider using a token to increase the limit or wait few minutes and try again",
			Retryable: true,
		}

	case errors.Is(errReason, ErrFetch):
		return APIError{
			Code:      ErrFetch.Error(),
			Message:   "unable to search repositories on github. please try again",
			Retryable: true,
		}

	case errors.Is(errReason, ErrNotFound):
		return APIError{
			Code:    ErrNotFound.Error(),
			Message: "repository not found",
		}

	case errors.Is(errReason, ErrInvalidQuery):
		return APIError{
			Code:    ErrInvalidQuery.Error(),
			Message: errReason.Error(),
		}

	case errors.Is(errReason, ErrRateLimiter):
		return APIError{
			Code:    ErrRateLimiter.Error(),
			Message: "internal server error. contact our support with the reason code for assistance",
		}
	}

	return APIError{
		Code:    "GENERIC_ERROR",
		Message: "internal server error. contact our support with the reason code for assistance",
	}
}

// HTTPStatus return the status code matching the error reason
func HTTPStatus(errReason error) int {
	switch {
	case errors.Is(errReason, ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(errReason, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(errReason, ErrRateLimitReached):
		return http.StatusTooManyRequests
	case errors.Is(errReason, ErrFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
