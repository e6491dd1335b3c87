package repository

import "errors"

var (
	// ErrNotFound indicates an entity was not located.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate indicates a unique constraint rejected the write.
	ErrDuplicate = errors.New("repository: duplicate")
	// ErrInvalidReference indicates a foreign key pointed at a missing row.
	ErrInvalidReference = errors.New("repository: invalid reference")
)
