package middleware

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	apperrors "gotour/pkg/errors"
	"gotour/pkg/logger"
	"gotour/pkg/model"
)

const (
	UserIDHeader    = "X-User-ID"
	UserRoleHeader  = "X-User-Role"
	SignatureHeader = "X-Gateway-Signature"

	actorKey contextKey = "actor"
)

// GatewayActor reads the caller identity asserted by the API gateway. With a
// non-empty secret the gateway must also sign the identity and body:
// hex(HMAC-SHA256(secret, userID + "\n" + role + "\n" + body)), optionally
// prefixed with "sha256=".
func GatewayActor(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
			if userID == "" {
				logAndReject(w, log, r, "Missing "+UserIDHeader+" header")
				return
			}
			role := parseRole(r.Header.Get(UserRoleHeader))

			if secret != "" {
				signature := extractSignature(r)
				if signature == "" {
					logAndReject(w, log, r, "Missing "+SignatureHeader+" header")
					return
				}

				body, err := readAndRestoreBody(r)
				if err != nil {
					logAndReject(w, log, r, "Failed to read request body")
					return
				}

				if !verifySignature(signingPayload(userID, string(role), body), signature, secret) {
					logAndReject(w, log, r, "Invalid gateway signature")
					return
				}
			}

			actor := model.Actor{UserID: userID, Role: role}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the actor set by GatewayActor. ok is false for
// requests that did not pass through it.
func ActorFromContext(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(model.Actor)
	return actor, ok
}

// Sign computes the signature GatewayActor expects for the given identity and
// body. Used by the gateway and by tests.
func Sign(secret, userID, role string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(signingPayload(userID, role, body))
	return hex.EncodeToString(mac.Sum(nil))
}

func parseRole(s string) model.Role {
	if strings.EqualFold(strings.TrimSpace(s), string(model.RoleAdmin)) {
		return model.RoleAdmin
	}
	return model.RoleUser
}

func signingPayload(userID, role string, body []byte) []byte {
	payload := make([]byte, 0, len(userID)+len(role)+len(body)+2)
	payload = append(payload, userID...)
	payload = append(payload, '\n')
	payload = append(payload, role...)
	payload = append(payload, '\n')
	return append(payload, body...)
}

func extractSignature(r *http.Request) string {
	header := r.Header.Get(SignatureHeader)
	if header == "" {
		return ""
	}

	signature, found := strings.CutPrefix(header, "sha256=")
	if found {
		return signature
	}

	return header
}

func readAndRestoreBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewBuffer(body))

	return body, nil
}

func verifySignature(payload []byte, receivedSignature string, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expectedSignature := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expectedSignature), []byte(strings.ToLower(receivedSignature)))
}

func logAndReject(w http.ResponseWriter, log *logger.Logger, r *http.Request, reason string) {
	log.Warn("Gateway identity verification failed",
		"request_id", RequestIDFromContext(r.Context()),
		"reason", reason,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
	)

	writeJSONError(w, http.StatusUnauthorized, apperrors.CodeUnauthorized, "Authentication required")
}
