package types

import "time"

// Interview lifecycle event kinds.
const (
	EventInterviewScheduled = "interview.scheduled"
	EventInterviewUpdated   = "interview.updated"
	EventInterviewCompleted = "interview.completed"
	EventInterviewCancelled = "interview.cancelled"
	EventFeedbackRecorded   = "interview.feedback_recorded"
)

// InterviewEvent is published to the broker after an interview changes.
type InterviewEvent struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	InterviewID string          `json:"interviewId"`
	UserID      string          `json:"userId"`
	ActorID     string          `json:"actorId"`
	Status      InterviewStatus `json:"status"`
	OccurredAt  time.Time       `json:"occurredAt"`
}
