package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// These errors represent domain-level failures and are used by stores and
// services to communicate domain-specific error conditions.
// -----------------------------------------------------------------------------

// Validation errors
var (
	ErrEmptyProblem      = errors.New("problem text is required")
	ErrInvalidLevel      = errors.New("hint level must be between 0 and 4")
	ErrInvalidDifficulty = errors.New("invalid difficulty level")
	ErrInvalidLanguage   = errors.New("invalid language")
	ErrInvalidPart       = errors.New("invalid message part")
)

// Conversation errors
var (
	ErrConversationNotFound = errors.New("conversation not found")
)

// General errors
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)
