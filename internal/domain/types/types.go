// Package types contains common types used across the application
package types

// SubmissionStatus reports what happened to an entry's attribution payload.
type SubmissionStatus string

// Submission outcomes reported to clients.
const (
	SubmissionQueued   SubmissionStatus = "queued"
	SubmissionDropped  SubmissionStatus = "dropped"
	SubmissionDisabled SubmissionStatus = "disabled"
)

// Stats is a point-in-time view of the agent.
type Stats struct {
	Surfaces       int    `json:"surfaces"`
	SessionActive  bool   `json:"session_active"`
	SessionHandle  string `json:"session_handle,omitempty"`
	VoiceSample    bool   `json:"voice_sample"`
	Recording      bool   `json:"recording"`
	JournalEntries int    `json:"journal_entries"`
	QueueDepth     int    `json:"queue_depth"`
	QueueCapacity  int    `json:"queue_capacity"`
	Submitted      int64  `json:"submitted"`
	SubmitFailed   int64  `json:"submit_failed"`
	Dropped        int64  `json:"dropped"`
}
