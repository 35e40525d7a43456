package bookstore

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeEmptyPassword      = "auth_empty_password"
	TextCodeInvalidCreds       = "auth_invalid_credentials"
	TextCodeSessionNotFound    = "auth_session_not_found"
	TextCodeSessionDecodeError = "auth_session_decode_error"
	TextCodeTokenExpired       = "auth_token_expired"
	TextCodeTokenMalformed     = "auth_token_malformed"
	TextCodeRoleForbidden      = "auth_role_forbidden"
	TextCodeEmailTaken         = "account_email_taken"
	TextCodeAlreadyVerified    = "account_already_verified"
	TextCodeTokenNotFound      = "verification_token_not_found"
	TextCodeTokenUsed          = "verification_token_used"
	TextCodeVerifyExpired      = "verification_token_expired"
	TextCodeInvalidRole        = "account_invalid_role"
	TextCodeInvalidImage       = "image_invalid_format"
	TextCodeImageUpload        = "image_upload_failed"
)

// ErrNoEmptyString is returned when a password to hash is empty.
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned when credentials do not match.
var ErrMismatchedHashAndPassword = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound)

// ErrUnableToFindSession is the error when the request carries no token
var ErrUnableToFindSession = errors.New("unable to find session", errors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToDecodeSession unable to decode JWT claims from the session token
var ErrUnableToDecodeSession = errors.New("unable to decode session", errors.CategoryAuth).
	WithTextCode(TextCodeSessionDecodeError).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned for expired session tokens.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned when a session token cannot be parsed.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrRoleForbidden is returned when the session role does not grant access.
var ErrRoleForbidden = errors.New("insufficient role", errors.CategoryAuthz).
	WithTextCode(TextCodeRoleForbidden).
	WithCode(errors.CodeForbidden)

// ErrEmailTaken is returned when registering an email that already exists.
var ErrEmailTaken = errors.New("email already registered", errors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(errors.CodeConflict)

// ErrAlreadyVerified is returned when re-requesting verification for a
// verified account.
var ErrAlreadyVerified = errors.New("account already verified", errors.CategoryConflict).
	WithTextCode(TextCodeAlreadyVerified).
	WithCode(errors.CodeConflict)

// ErrVerificationTokenNotFound is returned for unknown verification tokens.
var ErrVerificationTokenNotFound = errors.New("verification token not found", errors.CategoryNotFound).
	WithTextCode(TextCodeTokenNotFound).
	WithCode(errors.CodeNotFound)

// ErrVerificationTokenUsed is returned when a verification token was
// already consumed. Used and expired tokens both answer NotFound so the
// verify endpoint discloses nothing about a token's history.
var ErrVerificationTokenUsed = errors.New("verification token not found", errors.CategoryNotFound).
	WithTextCode(TextCodeTokenUsed).
	WithCode(errors.CodeNotFound)

// ErrVerificationTokenExpired is returned when a verification token is past
// its redeem-by time.
var ErrVerificationTokenExpired = errors.New("verification token not found", errors.CategoryNotFound).
	WithTextCode(TextCodeVerifyExpired).
	WithCode(errors.CodeNotFound)

// ErrInvalidRole is returned when parsing an unknown role name.
var ErrInvalidRole = errors.New("invalid role", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidRole).
	WithCode(errors.CodeBadRequest)

// ErrInvalidImageFormat is returned when an uploaded image has a content
// type outside the allowlist.
var ErrInvalidImageFormat = errors.New("unsupported image format", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidImage).
	WithCode(errors.CodeBadRequest)

// ErrImageUploadFailed is returned when object storage rejects an upload.
var ErrImageUploadFailed = errors.New("image upload failed", errors.CategoryInternal).
	WithTextCode(TextCodeImageUpload).
	WithCode(errors.CodeInternal)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
