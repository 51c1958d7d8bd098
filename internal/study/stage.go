package study

import (
	"fmt"

	"github.com/conorfennell/recall/internal/domain"
)

// Stage is where a card sits in its lifecycle.
type Stage int

const (
	StageNew Stage = iota
	StageLearning
	StageReview
)

func (s Stage) String() string {
	switch s {
	case StageNew:
		return "new"
	case StageLearning:
		return "learning"
	case StageReview:
		return "review"
	}
	return "unknown"
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(text []byte) error {
	for _, st := range []Stage{StageNew, StageLearning, StageReview} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", text)
}

// CardStage classifies a card. A card that was forgotten goes back to
// learning rather than new, since it has been seen before.
func CardStage(card domain.Card, graduateAfter int) Stage {
	switch {
	case card.Repetitions == 0 && card.LastReviewed == nil:
		return StageNew
	case card.Repetitions >= graduateAfter && graduateAfter > 0:
		return StageReview
	default:
		return StageLearning
	}
}

// Stage classifies a card using the service's graduation threshold.
func (s *Service) Stage(card domain.Card) Stage {
	return CardStage(card, s.cfg.GraduateAfter)
}
