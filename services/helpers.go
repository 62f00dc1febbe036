package services

import (
	"errors"
	"fmt"

	"github.com/Dosada05/uniplay/repositories"
	"github.com/Dosada05/uniplay/scoring"
)

// handleRepositoryError translates storage sentinels into service errors so
// handlers only ever map service errors.
func handleRepositoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrLiveMatchNotFound):
		return ErrLiveMatchNotFound
	case errors.Is(err, repositories.ErrLiveMatchExists):
		return ErrAlreadyInitialized
	case errors.Is(err, repositories.ErrLiveMatchStale):
		return ErrConcurrentUpdate
	case errors.Is(err, repositories.ErrFixtureNotFound),
		errors.Is(err, repositories.ErrLiveMatchFixtureInvalid),
		errors.Is(err, repositories.ErrAutoPlayFixtureInvalid):
		return ErrFixtureNotFound
	case errors.Is(err, repositories.ErrEventNotFound),
		errors.Is(err, repositories.ErrFixtureEventInvalid):
		return ErrEventNotFound
	case errors.Is(err, repositories.ErrScheduleAlreadyGenerated):
		return ErrScheduleAlreadyGenerated
	case errors.Is(err, repositories.ErrAutoPlayNotFound):
		return ErrAutoPlayNotFound
	default:
		return err
	}
}

func handleScoringError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, scoring.ErrInningsCompleted):
		return ErrInningsCompleted
	case errors.Is(err, scoring.ErrMatchCompleted):
		return ErrMatchCompleted
	case errors.Is(err, scoring.ErrNoActiveInnings):
		return fmt.Errorf("%w: no active innings", ErrMatchNotLive)
	case errors.Is(err, scoring.ErrInvalidToss):
		return newValidationError("toss_winner", err.Error())
	case errors.Is(err, scoring.ErrInvalidDecision):
		return newValidationError("toss_decision", err.Error())
	default:
		return err
	}
}
