package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrCaptchaInvalid     ErrCode = "CAPTCHA_INVALID"
	ErrUsernameTaken      ErrCode = "USERNAME_TAKEN"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden ErrCode = "FORBIDDEN"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrDuplicateName    ErrCode = "DUPLICATE_NAME"
	ErrDuplicateID      ErrCode = "DUPLICATE_ID"
	ErrUnknownMajor     ErrCode = "UNKNOWN_MAJOR"
	ErrDependencyExists ErrCode = "DEPENDENCY_EXISTS"

	// ─── Upload ────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrInvalidCredentials:
		return "Invalid username or password."
	case ErrTokenRequired:
		return "Please log in to perform this action."
	case ErrCaptchaInvalid:
		return "The captcha is invalid or has expired. Please request a new one."
	case ErrUsernameTaken:
		return "This username is already taken."

	case ErrForbidden:
		return "You do not have permission to perform this action."

	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	case ErrNotFound:
		return "Resource not found."
	case ErrDuplicateName:
		return "A major with this name already exists."
	case ErrDuplicateID:
		return "A student with this ID already exists."
	case ErrUnknownMajor:
		return "The selected major does not exist."
	case ErrDependencyExists:
		return "Cannot delete this major because students are still enrolled in it."

	case ErrFileRequired:
		return "A CSV file upload is required."
	case ErrUnsupportedFile:
		return "Only .csv files are supported."
	case ErrFileTooLarge:
		return "The uploaded file exceeds the size limit."

	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
