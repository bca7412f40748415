package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerStoreLastWriteWins(t *testing.T) {
	s := NewAnswerStore()
	qID := uuid.New()
	t0 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	s.Set(2, qID, "first", t0)
	s.Set(2, qID, "second", t0.Add(time.Minute))

	a, ok := s.Get(2)
	require.True(t, ok)
	assert.Equal(t, "second", a.Value)
	assert.Equal(t, t0.Add(time.Minute), a.LastModifiedAt)
	assert.Equal(t, 1, s.Len())
}

func TestAnswerStoreUnset(t *testing.T) {
	s := NewAnswerStore()
	_, ok := s.Get(0)
	assert.False(t, ok)
}

func TestAnswerStoreAllIsACopy(t *testing.T) {
	s := NewAnswerStore()
	s.Set(0, uuid.New(), "a", time.Now())

	snap := s.All()
	s.Set(0, uuid.New(), "b", time.Now())

	assert.Equal(t, "a", snap[0].Value)
}
