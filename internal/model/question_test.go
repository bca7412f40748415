package model

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestForTakerStripsGradingData(t *testing.T) {
	q := Question{
		ID:            uuid.New(),
		Prompt:        "Pick one",
		Kind:          QuestionKindChoice,
		Options:       []string{"a", "b", "c"},
		Topic:         "Logic",
		CorrectOption: "b",
	}

	taker := q.ForTaker()
	require.Equal(t, q.ID, taker.ID)
	require.Equal(t, q.Options, taker.Options)

	// The serialized form must carry no trace of the correct option.
	data, err := json.Marshal(taker)
	require.NoError(t, err)
	require.NotContains(t, string(data), "correct_option")
}

func TestSessionStatusTerminal(t *testing.T) {
	require.False(t, SessionStatusInProgress.Terminal())
	require.False(t, SessionStatusExpired.Terminal())
	require.False(t, SessionStatusSubmitting.Terminal())
	require.True(t, SessionStatusSubmitted.Terminal())
}
