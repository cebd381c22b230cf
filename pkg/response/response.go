package response

import (
	"encoding/json"
	"net/http"

	"minimart/pkg/apierror"
)

// Response represents a standard debug API response.
type Response struct {
	Success bool            `json:"success"`
	Data    interface{}     `json:"data,omitempty"`
	Error   *apierror.Error `json:"error,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := Response{
		Success: true,
		Data:    data,
	}

	_ = json.NewEncoder(w).Encode(resp)
}

// Error sends an error response with an HTTP status derived from the
// error code.
func Error(w http.ResponseWriter, err error) {
	apiErr := apierror.From(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus(apiErr.Code))

	resp := Response{
		Success: false,
		Error:   apiErr,
	}

	_ = json.NewEncoder(w).Encode(resp)
}

// OK sends a 200 OK response.
func OK(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

func httpStatus(code string) int {
	switch code {
	case apierror.CodeInvalidArgument:
		return http.StatusBadRequest
	case apierror.CodeNotFound:
		return http.StatusNotFound
	case apierror.CodeAuthFailed, apierror.CodeNotLoggedIn, apierror.CodeSessionTimeout:
		return http.StatusUnauthorized
	case apierror.CodeOutOfStock:
		return http.StatusConflict
	case apierror.CodeUnimplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusServiceUnavailable
	}
}
