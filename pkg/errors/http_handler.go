package errors

import (
	"net/http"
)

// WriteError writes err as a JSON ErrorResponse with the AppError's status.
// The returned error is the write failure, if any, for the caller to log.
func WriteError(w http.ResponseWriter, err error) error {
	appErr := AsAppError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode())

	_, writeErr := w.Write(append(appErr.ToJSON(), '\n'))
	return writeErr
}
