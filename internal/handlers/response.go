package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"event-checkout/internal/middleware"
	"event-checkout/internal/models"
)

const maxBodyBytes = 1 << 20

// statusForKind maps an error kind to its HTTP status
func statusForKind(kind models.ErrorKind) int {
	switch kind {
	case models.KindValidation, models.KindEmptyCart:
		return http.StatusBadRequest
	case models.KindAmountMismatch:
		return http.StatusUnprocessableEntity
	case models.KindEventNotFound, models.KindOrderNotFound:
		return http.StatusNotFound
	case models.KindDuplicateRequest:
		return http.StatusConflict
	case models.KindDelivery:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError translates err to a JSON error response. Internal details are
// logged and replaced with a generic message.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	kind := models.KindOf(err)
	status := statusForKind(kind)

	message := err.Error()
	var ce *models.CheckoutError
	if errors.As(err, &ce) {
		message = ce.Message
	}
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", zap.String("kind", string(kind)), zap.Error(err))
		if kind == models.KindInternal {
			message = "internal error"
		}
	}

	middleware.WriteError(w, status, kind, message)
}

// decodeJSON reads a JSON body into v, rejecting oversized and malformed input
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return models.NewError(models.KindValidation, fmt.Sprintf("invalid request body: %v", err), nil)
	}
	return nil
}
