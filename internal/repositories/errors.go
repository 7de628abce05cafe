package repositories

import "errors"

// Sentinel errors returned (wrapped) by every repository implementation.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
	// ErrReference means a referenced row, such as a project's owner, does not exist.
	ErrReference = errors.New("referenced record does not exist")
)
