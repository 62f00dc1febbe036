package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// Not found
	ErrNotFound          = errors.New("requested resource not found")
	ErrLiveMatchNotFound = errors.New("live match not found")
	ErrFixtureNotFound   = errors.New("fixture not found")
	ErrEventNotFound     = errors.New("event not found")
	ErrAutoPlayNotFound  = errors.New("auto-play data not found for this match")

	// Conflicts
	ErrAlreadyInitialized       = errors.New("live match is already initialized")
	ErrScheduleAlreadyGenerated = errors.New("schedule has already been generated for this event")
	ErrInningsCompleted         = errors.New("current innings is already completed")
	ErrMatchCompleted           = errors.New("match is already completed")
	ErrMatchNotLive             = errors.New("match is not live")
	ErrConcurrentUpdate         = errors.New("match was updated concurrently, retry the command")
	ErrLiveMatchRequired        = errors.New("live match must be initialized first")
	ErrAutoPlayAlreadyRunning   = errors.New("auto-play is already running for this match")

	// Validation and business rules
	ErrValidationFailed     = errors.New("validation failed")
	ErrNotEnoughTeams       = errors.New("at least two registered teams are required")
	ErrTeamsNotDetermined   = errors.New("fixture teams are not determined yet")
	ErrInvalidPlaybackSpeed = errors.New("playback speed must be one of 0.5, 1, 2, 3")
	ErrInvalidScorecard     = errors.New("invalid scorecard file")
)

// ValidationError lists the offending fields of a rejected command.
type ValidationError struct {
	Fields map[string]string
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("%s: %s", ErrValidationFailed, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}
