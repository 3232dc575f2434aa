package services

import (
	stderrors "errors"

	"github.com/abrezinsky/squarespool/internal/errors"
	"github.com/abrezinsky/squarespool/internal/pool"
	"github.com/abrezinsky/squarespool/internal/repository"
)

// Service errors
var (
	ErrAlreadyLaunched       = errors.Conflict("numbers have already been assigned").WithCode("ALREADY_LAUNCHED")
	ErrGridNotSold           = errors.Validation("every square must be paid before numbers can be assigned")
	ErrNotLaunched           = errors.Validation("numbers have not been assigned")
	ErrStaleGameState        = errors.Conflict("game state was changed by someone else, reload and try again").WithCode("STALE_GAME_STATE")
	ErrNoGameInProgress      = pool.ErrNoGameInProgress
	ErrInvalidSignature      = errors.InvalidInput("invalid webhook signature").WithCode("INVALID_SIGNATURE")
	ErrParticipantNotFound   = errors.NotFound("participant not found")
	ErrUnknownAccessCode     = errors.NotFound("access code is not registered")
	ErrParticipantHasSquares = errors.Conflict("participant still holds squares")
	ErrPropNotFound          = errors.NotFound("prop not found")
	ErrPropNotOpen           = errors.Conflict("prop is not open for answers")
	ErrPropNotEditable       = errors.Conflict("only draft props can be edited")
	ErrSquareLimit           = errors.Conflict("participant square limit reached").WithCode("SQUARE_LIMIT")
	ErrNoCells               = errors.InvalidInput("at least one square is required")
	ErrNoResetTargets        = errors.Validation("no reset targets specified")
	ErrBaseURLNotSet         = errors.Validation("base_url not configured")
	ErrScoreSyncNotReady     = errors.Validation("score sync needs scoreboard_url, afc_team and nfc_team")
)

// unavailable converts a lost claim into a conflict naming the cells
func unavailable(err *repository.UnavailableError) error {
	return errors.Wrap(err, errors.ErrConflict, "claim failed").WithCode("SQUARE_UNAVAILABLE")
}

// translate maps repository sentinels to application errors. Anything it does
// not recognise is wrapped as internal.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var appErr *errors.Error
	if stderrors.As(err, &appErr) {
		return err
	}
	var lost *repository.UnavailableError
	switch {
	case stderrors.As(err, &lost):
		return unavailable(lost)
	case stderrors.Is(err, repository.ErrAlreadyLaunched):
		return ErrAlreadyLaunched
	case stderrors.Is(err, repository.ErrStaleVersion):
		return ErrStaleGameState
	case stderrors.Is(err, repository.ErrLimitExceeded):
		return ErrSquareLimit
	case stderrors.Is(err, repository.ErrOwnsSquares):
		return ErrParticipantHasSquares
	case stderrors.Is(err, repository.ErrNotFound):
		return errors.Wrap(err, errors.ErrNotFound, "not found")
	case stderrors.Is(err, repository.ErrConflict), stderrors.Is(err, repository.ErrDuplicate):
		return errors.Wrap(err, errors.ErrConflict, "conflict")
	case stderrors.Is(err, repository.ErrInvalidTable):
		return errors.Wrap(err, errors.ErrValidation, "invalid reset target")
	}
	return errors.Internal(err)
}
