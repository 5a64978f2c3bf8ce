package database

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"mention-bot/models"

	"github.com/m-mizutani/goerr/v2"
)

// StatusManager keeps the backfill status file: the latest run per tracked channel.
type StatusManager struct {
	statusFile string
	mutex      sync.Mutex
	status     *models.BackfillStatusFile
}

// NewStatusManager creates a status manager. An existing file is loaded so the history
// survives restarts; an empty path keeps the status in memory only.
func NewStatusManager(statusFile string) *StatusManager {
	sm := &StatusManager{
		statusFile: statusFile,
		status: &models.BackfillStatusFile{
			Channels: make(map[string]*models.BackfillStatus),
		},
	}
	if statusFile == "" {
		return sm
	}
	if data, err := os.ReadFile(statusFile); err == nil {
		var loaded models.BackfillStatusFile
		if json.Unmarshal(data, &loaded) == nil && loaded.Channels != nil {
			sm.status = &loaded
		}
	}
	return sm
}

// Begin records a running backfill.
func (sm *StatusManager) Begin(runID, channelID, mode string) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.status.Channels[channelID] = &models.BackfillStatus{
		RunID:     runID,
		ChannelID: channelID,
		Mode:      mode,
		Status:    "running",
		StartedAt: time.Now().UTC(),
	}
}

// Finish records the outcome of a backfill. A nil runErr marks it completed.
func (sm *StatusManager) Finish(channelID string, result *models.BackfillResult, runErr error) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	st, ok := sm.status.Channels[channelID]
	if !ok {
		st = &models.BackfillStatus{ChannelID: channelID}
		sm.status.Channels[channelID] = st
	}
	now := time.Now().UTC()
	st.FinishedAt = &now
	st.Result = result
	if runErr != nil {
		st.Status = "failed"
		st.Error = runErr.Error()
	} else {
		st.Status = "completed"
		st.Error = ""
	}
}

// Get returns a copy of the latest status of a channel.
func (sm *StatusManager) Get(channelID string) (models.BackfillStatus, bool) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	st, ok := sm.status.Channels[channelID]
	if !ok {
		return models.BackfillStatus{}, false
	}
	return *st, true
}

// Save commits the current status to the JSON file.
func (sm *StatusManager) Save() error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.status.LastUpdated = time.Now().UTC()
	if sm.statusFile == "" {
		return nil
	}

	// Ensure the directory exists.
	dir := filepath.Dir(sm.statusFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return goerr.Wrap(err, "failed to create status directory", goerr.V("dir", dir))
	}

	data, err := json.MarshalIndent(sm.status, "", "    ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal status")
	}

	// Write the file, overwriting it if it exists.
	if err := os.WriteFile(sm.statusFile, data, 0644); err != nil {
		return goerr.Wrap(err, "failed to write status file", goerr.V("path", sm.statusFile))
	}
	return nil
}
