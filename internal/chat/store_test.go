package chat

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collabry/collabry-go/internal/models"
)

func msg(id, text string) models.Message {
	return models.Message{ID: id, RoomID: "r1", SenderID: "u1", Text: text}
}

func TestAppendDedupesByID(t *testing.T) {
	s := NewMessageStore()

	assert.True(t, s.Append(msg("m1", "first")))
	assert.True(t, s.Append(msg("m2", "second")))
	assert.False(t, s.Append(msg("m1", "echo of first")), "duplicate id must be rejected")
	assert.Equal(t, 2, s.Len())

	got := s.Messages()
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Text, "original content wins over the echo")
}

func TestAppendPreservesArrivalOrder(t *testing.T) {
	s := NewMessageStore()
	for i := 0; i < 10; i++ {
		s.Append(msg(fmt.Sprintf("m%d", i), fmt.Sprintf("t%d", i)))
	}
	got := s.Messages()
	for i, m := range got {
		assert.Equal(t, fmt.Sprintf("m%d", i), m.ID, "no client-side re-sort")
	}
}

func TestReplaceAll(t *testing.T) {
	s := NewMessageStore()
	s.Append(msg("old", "stale"))

	s.ReplaceAll([]models.Message{msg("m1", "a"), msg("m2", "b"), msg("m1", "dup in batch")})
	assert.Equal(t, 2, s.Len())
	_, ok := s.ByID("old")
	assert.False(t, ok)

	// Empty history is a valid state, not an error.
	s.ReplaceAll(nil)
	assert.Zero(t, s.Len())
	assert.Empty(t, s.Messages())
}

func TestIndexOfAndByID(t *testing.T) {
	s := NewMessageStore()
	s.Append(msg("m1", "a"))
	s.Append(msg("m2", "b"))

	assert.Equal(t, 1, s.IndexOf("m2"))
	assert.Equal(t, -1, s.IndexOf("missing"))

	m, ok := s.ByID("m1")
	require.True(t, ok)
	assert.Equal(t, "a", m.Text)
}

func TestConcurrentAppendKeepsIDsUnique(t *testing.T) {
	s := NewMessageStore()
	var wg sync.WaitGroup
	// Optimistic echo and broadcast racing on the same ids.
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.Append(msg(fmt.Sprintf("m%d", i), "x"))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, s.Len())
	seen := map[string]bool{}
	for _, m := range s.Messages() {
		assert.False(t, seen[m.ID], "id %s appeared twice", m.ID)
		seen[m.ID] = true
	}
}
