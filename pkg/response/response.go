// Package response defines the JSON envelope returned by the HTTP API.
package response

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var EmptyRequestBodyResponse = Response{
	Status:     StatusError,
	StatusCode: http.StatusBadRequest,
	Error:      "Empty Request Body",
	Message:    "Request body is empty. Please provide necessary data.",
}

var InvalidRequestBodyResponse = Response{
	Status:     StatusError,
	StatusCode: http.StatusBadRequest,
	Error:      "Invalid Request Body",
	Message:    "Request body is not valid JSON.",
}

var ResourceNotFoundResponse = Response{
	Status:     StatusError,
	StatusCode: http.StatusNotFound,
	Error:      "Resource Not Found",
	Message:    "The requested resource was not found.",
}

var ServerErrorResponse = Response{
	Status:     StatusError,
	StatusCode: http.StatusInternalServerError,
	Error:      "Server Error",
	Message:    "An internal server error occurred. Please try again later.",
}

type Response struct {
	Status     string `json:"status"`
	StatusCode int    `json:"status_code"`
	Error      string `json:"error,omitempty"`
	Message    string `json:"message"`
	Details    []any  `json:"details,omitempty"`
	Data       any    `json:"data,omitempty"`
}

func SuccessResponse(statusCode int, msg string, data ...any) Response {
	resp := Response{
		Status:     StatusSuccess,
		StatusCode: statusCode,
		Message:    msg,
	}

	if len(data) > 0 {
		resp.Data = data[0]
	}

	return resp
}

// ErrorResponse builds an error envelope with the standard text for statusCode as its title.
func ErrorResponse(statusCode int, msg string) Response {
	return Response{
		Status:     StatusError,
		StatusCode: statusCode,
		Error:      http.StatusText(statusCode),
		Message:    msg,
	}
}

func ValidationErrorResponse(err error) Response {
	details := getValidationErrors(err)

	resp := Response{
		Status:     StatusError,
		StatusCode: http.StatusBadRequest,
		Error:      "Validation Error",
		Message:    "Request data is not valid.",
		Details:    make([]any, 0, len(details)),
	}

	for _, d := range details {
		resp.Details = append(resp.Details, d)
	}

	return resp
}

type validationError struct {
	Field string `json:"field"`
	Value any    `json:"value"`
	Issue string `json:"issue"`
}

func getValidationErrors(err error) []validationError {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return nil
	}

	validationErrs := make([]validationError, 0, len(errs))
	for _, e := range errs {
		validationErrs = append(validationErrs, validationError{
			Field: e.Field(),
			Value: e.Value(),
			Issue: issueForTag(e.Tag(), e.Param()),
		})
	}

	return validationErrs
}

func issueForTag(tag, param string) string {
	switch tag {
	case "required":
		return "This field is required."
	case "url", "absurl":
		return "Invalid url."
	case "shortcode":
		return "Must be 3-10 letters or digits."
	case "min":
		return fmt.Sprintf("Must be at least %s.", param)
	case "max":
		return fmt.Sprintf("Must be at most %s.", param)
	default:
		return "Invalid value."
	}
}
