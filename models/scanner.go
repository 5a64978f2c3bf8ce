package models

import "time"

// BackfillMode selects how a history pass runs.
type BackfillMode struct {
	Full    bool // ignore the stored watermark
	TwoPass bool // record mentions first, then match responses over the same window
}

func (m BackfillMode) String() string {
	s := "incremental"
	if m.Full {
		s = "full"
	}
	if m.TwoPass {
		s += "/two-pass"
	}
	return s
}

// BackfillResult summarises one pass over a tracked channel.
type BackfillResult struct {
	RunID            string
	ChannelID        string
	Messages         int
	Threads          int
	FailedThreads    int
	MentionsCreated  int
	ResponsesMatched int
	Watermark        *time.Time
	WatermarkMoved   bool
}

// BackfillStatus is the persisted outcome of the latest run per channel.
type BackfillStatus struct {
	RunID      string          `json:"run_id"`
	ChannelID  string          `json:"channel_id"`
	Mode       string          `json:"mode"`
	Status     string          `json:"status"` // running, completed, failed
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Result     *BackfillResult `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// BackfillStatusFile is the content of the status JSON file.
type BackfillStatusFile struct {
	Channels    map[string]*BackfillStatus `json:"channels"`
	LastUpdated time.Time                  `json:"last_updated"`
}
