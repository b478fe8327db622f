package services

import (
	"sync/atomic"

	"github.com/Cyvadra/signal-relay/internal/models"
)

// ModeState is the process-wide trading mode. It starts at the configured
// default and changes only through Set.
type ModeState struct {
	mode atomic.Value // string
}

// NewModeState creates a mode state; an empty initial mode means paper
func NewModeState(initial string) (*ModeState, error) {
	if initial == "" {
		initial = models.ModePaper
	}
	if err := checkMode(initial); err != nil {
		return nil, err
	}

	s := &ModeState{}
	s.mode.Store(initial)
	return s, nil
}

// Current returns the mode in effect now
func (s *ModeState) Current() string {
	return s.mode.Load().(string)
}

// Set switches the mode and returns the previous one
func (s *ModeState) Set(mode string) (string, error) {
	if err := checkMode(mode); err != nil {
		return "", err
	}
	return s.mode.Swap(mode).(string), nil
}

func checkMode(mode string) error {
	if mode != models.ModePaper && mode != models.ModeLive {
		return validationErrorf("mode must be %s or %s, got %q", models.ModePaper, models.ModeLive, mode)
	}
	return nil
}

