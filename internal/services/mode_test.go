package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/Cyvadra/signal-relay/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModeState(t *testing.T) {
	state, err := NewModeState("")
	require.NoError(t, err)
	assert.Equal(t, models.ModePaper, state.Current())

	previous, err := state.Set(models.ModeLive)
	require.NoError(t, err)
	assert.Equal(t, models.ModePaper, previous)
	assert.Equal(t, models.ModeLive, state.Current())

	_, err = state.Set("LIVE")
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, models.ModeLive, state.Current())

	_, err = NewModeState("demo")
	assert.Error(t, err)
}

func TestModeStateConcurrentAccess(t *testing.T) {
	state, err := NewModeState(models.ModeLive)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			mode := models.ModePaper
			if i%2 == 0 {
				mode = models.ModeLive
			}
			_, _ = state.Set(mode)
		}(i)
		go func() {
			defer wg.Done()
			current := state.Current()
			assert.Contains(t, []string{models.ModePaper, models.ModeLive}, current)
		}()
	}
	wg.Wait()
}
