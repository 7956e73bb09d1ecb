package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden        ErrCode = "FORBIDDEN"
	ErrAdminAccessOnly  ErrCode = "ADMIN_ACCESS_ONLY"
	ErrPermissionDenied ErrCode = "PERMISSION_DENIED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrConflict        ErrCode = "CONFLICT"
	ErrActionForbidden ErrCode = "ACTION_FORBIDDEN"

	// ─── Exams ─────────────────────────────────────────────────────────
	ErrExamNotPublished ErrCode = "EXAM_NOT_PUBLISHED"
	ErrNotExamAuthor    ErrCode = "NOT_EXAM_AUTHOR"
	ErrNoQuestions      ErrCode = "NO_QUESTIONS"
	ErrExamNotDraft     ErrCode = "EXAM_NOT_DRAFT"

	// ─── Attempts ──────────────────────────────────────────────────────
	ErrAttemptNotFound  ErrCode = "ATTEMPT_NOT_FOUND"
	ErrAttemptSubmitted ErrCode = "ATTEMPT_SUBMITTED"
	ErrInvalidOption    ErrCode = "INVALID_OPTION"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."
	case ErrPermissionDenied:
		return "Permission denied."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."
	case ErrActionForbidden:
		return "This action is not allowed."

	// ─── Exams ─────────────────────────────────────────────────────────
	case ErrExamNotPublished:
		return "This exam has not been published."
	case ErrNotExamAuthor:
		return "You are not the author of this exam."
	case ErrNoQuestions:
		return "This exam has no questions."
	case ErrExamNotDraft:
		return "This exam is not in DRAFT status."

	// ─── Attempts ──────────────────────────────────────────────────────
	case ErrAttemptNotFound:
		return "Attempt not found or no longer active."
	case ErrAttemptSubmitted:
		return "This attempt has already been submitted."
	case ErrInvalidOption:
		return "The selected option does not belong to this question."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
