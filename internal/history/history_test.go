package history_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JonasSouza871/rfid-catalog/internal/history"
)

func setupLog(t *testing.T) *history.Log {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	l := history.NewLog(t.TempDir()+"/history", logger)
	require.NoError(t, l.Init())
	t.Cleanup(func() { l.Close() })
	return l
}

func TestAppendAndRecent(t *testing.T) {
	l := setupLog(t)

	require.NoError(t, l.Append(history.KindRegistered, "04:A1:B2:C3", "Keys"))
	require.NoError(t, l.Append(history.KindIdentified, "04:A1:B2:C3", "Keys"))
	require.NoError(t, l.Append(history.KindDeleted, "04:A1:B2:C3", "Keys"))

	events, err := l.Recent(10)
	require.NoError(t, err)
	require.Len(t, events, 3)

	// Newest first.
	assert.Equal(t, history.KindDeleted, events[0].Kind)
	assert.Equal(t, history.KindIdentified, events[1].Kind)
	assert.Equal(t, history.KindRegistered, events[2].Kind)

	for _, ev := range events {
		assert.NotEmpty(t, ev.ID)
		assert.Equal(t, "04:A1:B2:C3", ev.TagID)
		assert.NotZero(t, ev.At)
	}
}

func TestRecentLimit(t *testing.T) {
	l := setupLog(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Append(history.KindIdentified, "04:A1:B2:C3", "Keys"))
	}

	events, err := l.Recent(2)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestRecentEmpty(t *testing.T) {
	l := setupLog(t)
	events, err := l.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, events)
}
