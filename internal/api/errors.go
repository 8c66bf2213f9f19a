package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/taskly-api/internal/api/middleware"
	"github.com/phrazzld/taskly-api/internal/api/shared"
	"github.com/phrazzld/taskly-api/internal/domain"
	"github.com/phrazzld/taskly-api/internal/service"
	"github.com/phrazzld/taskly-api/internal/service/auth"
	"github.com/phrazzld/taskly-api/internal/store"
)

const (
	validationFailedMessage = "The given data was invalid."
	genericErrorMessage     = "An unexpected error occurred"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrRevokedToken),
		domain.IsUnauthenticated(err):
		return http.StatusUnauthorized

	// Authorization errors. Guests get 401, matching the guest middleware.
	case errors.Is(err, domain.ErrGuestForbidden):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotOwned):
		return http.StatusForbidden

	// Not found errors
	case store.IsNotFoundError(err),
		errors.Is(err, service.ErrBlobMissing):
		return http.StatusNotFound

	// Unprocessable: field validation, duplicates, refused deletes, bad passwords
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		store.IsDuplicateError(err),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrTagInUse),
		errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnprocessableEntity

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return genericErrorMessage
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrRevokedToken):
		return "Token revoked"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		domain.IsUnauthenticated(err):
		return "Unauthenticated."

	case errors.Is(err, domain.ErrGuestForbidden):
		return middleware.GuestForbiddenMessage
	case errors.Is(err, domain.ErrNotOwned):
		return "This action is unauthorized."

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, store.ErrTagNotFound):
		return "Tag not found"
	case errors.Is(err, store.ErrAttachmentNotFound),
		errors.Is(err, service.ErrBlobMissing):
		return "Attachment not found"
	case store.IsNotFoundError(err):
		return "Resource not found"

	case errors.Is(err, domain.ErrTagInUse):
		return "Tag cannot be deleted"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "Invalid credentials"
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		store.IsDuplicateError(err),
		errors.Is(err, store.ErrInvalidEntity):
		return validationFailedMessage

	default:
		return genericErrorMessage
	}
}

// FieldErrors extracts per-field messages from validation failures. It
// returns nil for errors that carry no field information.
func FieldErrors(err error) map[string][]string {
	var many domain.ValidationErrors
	if errors.As(err, &many) {
		return many.Fields()
	}
	var one *domain.ValidationError
	if errors.As(err, &one) && one.Field != "" {
		return map[string][]string{one.Field: {one.Message}}
	}
	switch {
	case errors.Is(err, store.ErrTagNameExists):
		return map[string][]string{"name": {"The name has already been taken."}}
	case errors.Is(err, store.ErrEmailExists):
		return map[string][]string{"email": {"The email has already been taken."}}
	}
	return nil
}

// HandleAPIError writes err as a JSON error response. fallback replaces the
// generic message for 500s so clients can tell which operation failed.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}

	var opts []shared.ResponseOption
	if fields := FieldErrors(err); fields != nil {
		opts = append(opts, shared.WithFieldErrors(fields))
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		opts = append(opts, shared.WithElevatedLogLevel())
	}

	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}
