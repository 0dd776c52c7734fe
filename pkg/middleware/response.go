package middleware

import (
	"net/http"

	apperrors "gotour/pkg/errors"
)

// writeJSONError writes the same error envelope as the handlers so clients
// can decode middleware rejections uniformly.
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	_ = apperrors.WriteError(w, apperrors.New(code, message, status))
}
