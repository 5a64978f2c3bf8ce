package database

import (
	"errors"
	"path/filepath"
	"testing"

	"mention-bot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusManagerPersistsLatestRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status", "backfill.json")

	sm := NewStatusManager(path)
	sm.Begin("run-1", "c1", "incremental")
	st, ok := sm.Get("c1")
	require.True(t, ok)
	assert.Equal(t, "running", st.Status)

	sm.Finish("c1", &models.BackfillResult{RunID: "run-1", Messages: 3}, nil)
	sm.Begin("run-2", "c2", "full")
	sm.Finish("c2", nil, errors.New("boom"))
	require.NoError(t, sm.Save())

	loaded := NewStatusManager(path)
	st, ok = loaded.Get("c1")
	require.True(t, ok)
	assert.Equal(t, "completed", st.Status)
	require.NotNil(t, st.Result)
	assert.Equal(t, 3, st.Result.Messages)

	st, ok = loaded.Get("c2")
	require.True(t, ok)
	assert.Equal(t, "failed", st.Status)
	assert.Equal(t, "boom", st.Error)
}

func TestStatusManagerInMemory(t *testing.T) {
	sm := NewStatusManager("")
	sm.Finish("c1", nil, nil)
	assert.NoError(t, sm.Save())

	_, ok := sm.Get("missing")
	assert.False(t, ok)
}
