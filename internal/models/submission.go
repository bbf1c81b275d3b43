package models

import "time"

// Status is the lifecycle state of a submission record. A submission without a
// record is ABSENT; that state is never stored.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
	StatusFailed     Status = "FAILED"
)

// Submission is the record kept for one submission identifier.
// Result is set only when Status is DONE, Error only when Status is FAILED.
type Submission struct {
	ID        string    `firestore:"submissionId" json:"submissionId"`
	Status    Status    `firestore:"status" json:"status"`
	Result    string    `firestore:"result,omitempty" json:"result,omitempty"`
	Error     string    `firestore:"error,omitempty" json:"error,omitempty"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt" json:"updatedAt"`
	// ExpireAt feeds a Firestore TTL policy when retention is configured.
	ExpireAt time.Time `firestore:"expireAt,omitempty" json:"-"`
}

// IsTerminal reports whether the record has left IN_PROGRESS.
func (s Submission) IsTerminal() bool {
	return s.Status == StatusDone || s.Status == StatusFailed
}
