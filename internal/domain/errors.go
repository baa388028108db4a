package domain

import "errors"

var (
	// ErrSessionNotFound is returned when an assessment session has not been initialized.
	ErrSessionNotFound = errors.New("assessment session not found")
	// ErrNoContentAvailable is the fatal-for-this-attempt condition when the
	// candidate item pool is exhausted. Distinct from normal termination.
	ErrNoContentAvailable = errors.New("no content available for assessment")
	// ErrInvalidSessionState rejects caller-contract violations such as
	// requesting a report on a non-completed session.
	ErrInvalidSessionState = errors.New("invalid session state for operation")
	// ErrSessionCompleted is returned when responses arrive after completion.
	ErrSessionCompleted = errors.New("assessment session already completed")
	// ErrCycleDetected indicates the concept graph contains a prerequisite cycle.
	ErrCycleDetected = errors.New("concept graph contains a cycle")
	// ErrDanglingPrerequisite indicates a prerequisite id with no matching concept.
	ErrDanglingPrerequisite = errors.New("prerequisite references unknown concept")
	// ErrItemNotFound indicates an item id could not be resolved.
	ErrItemNotFound = errors.New("item not found")
	// ErrConceptNotFound indicates a concept id could not be resolved.
	ErrConceptNotFound = errors.New("concept not found")
	// ErrInvalidItemParams indicates an IRT triple outside the calibrated ranges.
	ErrInvalidItemParams = errors.New("item parameters out of range")
)
