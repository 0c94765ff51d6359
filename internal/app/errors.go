package app

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidCredential = errors.New("invalid credentials, use admin/admin or a user email with code 000000")
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrSelectionLocked   = errors.New("branch selection is locked for this identity")
	ErrBranchNotFound    = errors.New("branch not found")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrAssistantNotFound = errors.New("assistant not found")
)
