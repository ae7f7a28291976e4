package errs

import "errors"

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrVersionConflict = errors.New("user record was modified by another session")
	ErrInvalidStatus   = errors.New("invalid account status")
	ErrInvalidSender   = errors.New("invalid sender")
	ErrMessageTooLarge = errors.New("message text exceeds maximum size")
	ErrAdminExists     = errors.New("admin already exists")
	ErrAdminNotFound   = errors.New("admin not found")
	ErrAdminLimit      = errors.New("admin account limit reached")
	ErrBadCredentials  = errors.New("invalid username or password")
	ErrSessionNotFound = errors.New("session not found or expired")
	ErrTokenMissing    = errors.New("BOT_TOKEN missing")
)
