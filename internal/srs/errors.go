package srs

import (
	"errors"

	"github.com/conorfennell/recall/internal/domain"
)

// Sentinel errors returned by the scheduler. Check with errors.Is.
var (
	ErrInvalidCardState = errors.New("srs: invalid card state")
	ErrInvalidOutcome   = domain.ErrInvalidOutcome
)
