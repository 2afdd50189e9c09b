package files

import "errors"

var (
	ErrMissingPayload  = errors.New("no file uploaded")
	ErrNotFound        = errors.New("file not found")
	ErrInvalidFilename = errors.New("invalid filename")
	ErrFileTooLarge    = errors.New("file exceeds maximum allowed size")
)
