package response

// ErrCode is a machine-readable error code returned in the error envelope.
type ErrCode string

const (
	ErrValidation          ErrCode = "VALIDATION_ERROR"
	ErrTokenRequired       ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid        ErrCode = "TOKEN_INVALID"
	ErrSessionNotFound     ErrCode = "SESSION_NOT_FOUND"
	ErrSessionClosed       ErrCode = "SESSION_CLOSED"
	ErrResultNotReady      ErrCode = "RESULT_NOT_READY"
	ErrMissingCredential   ErrCode = "MISSING_CREDENTIAL"
	ErrUpstreamUnavailable ErrCode = "UPSTREAM_UNAVAILABLE"
	ErrRateLimitExceeded   ErrCode = "RATE_LIMIT_EXCEEDED"
	ErrNotFound            ErrCode = "NOT_FOUND"
	ErrInternal            ErrCode = "INTERNAL_ERROR"
)

var errMessages = map[ErrCode]string{
	ErrValidation:          "One or more fields failed validation",
	ErrTokenRequired:       "A session token is required",
	ErrTokenInvalid:        "The session token is invalid or has expired",
	ErrSessionNotFound:     "The assessment session does not exist",
	ErrSessionClosed:       "The assessment session is already closed",
	ErrResultNotReady:      "The result for this session is not available yet",
	ErrMissingCredential:   "No API credential is configured",
	ErrUpstreamUnavailable: "An upstream provider is unavailable, try again later",
	ErrRateLimitExceeded:   "Too many requests, slow down",
	ErrNotFound:            "The requested resource was not found",
	ErrInternal:            "An internal error occurred",
}

// GetMessage returns the human-readable message for a code.
func GetMessage(code ErrCode) string {
	if msg, ok := errMessages[code]; ok {
		return msg
	}
	return errMessages[ErrInternal]
}
