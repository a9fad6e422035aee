package types

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// InterviewType identifies the interview track.
type InterviewType string

const (
	InterviewBehavioral InterviewType = "behavioral"
	InterviewFullstack  InterviewType = "fullstack"
	InterviewFrontend   InterviewType = "frontend"
	InterviewBackend    InterviewType = "backend"
	InterviewDSA        InterviewType = "dsa"
)

// InterviewTypes lists every valid interview type.
var InterviewTypes = []InterviewType{
	InterviewBehavioral,
	InterviewFullstack,
	InterviewFrontend,
	InterviewBackend,
	InterviewDSA,
}

// InterviewStatus is the lifecycle state of an interview.
//
//	upcoming -> ongoing | completed | cancelled
//	ongoing  -> completed | cancelled
//
// completed and cancelled are terminal. Nothing moves an interview into
// ongoing automatically; it is reserved for a live-session feature and can
// only be set explicitly through an update.
type InterviewStatus string

const (
	StatusUpcoming  InterviewStatus = "upcoming"
	StatusOngoing   InterviewStatus = "ongoing"
	StatusCompleted InterviewStatus = "completed"
	StatusCancelled InterviewStatus = "cancelled"
)

// InterviewStatuses lists every valid interview status.
var InterviewStatuses = []InterviewStatus{StatusUpcoming, StatusOngoing, StatusCompleted, StatusCancelled}

// InterviewResult is the outcome recorded by an interviewer.
type InterviewResult string

const (
	ResultPassed  InterviewResult = "passed"
	ResultFailed  InterviewResult = "failed"
	ResultPending InterviewResult = "pending"
)

// InterviewResults lists every valid interview result.
var InterviewResults = []InterviewResult{ResultPassed, ResultFailed, ResultPending}

// DefaultInterviewDuration is used when a create request has no duration.
const DefaultInterviewDuration = 60

// ClockPattern matches a 24h HH:MM time of day. A single-digit hour is accepted.
var ClockPattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

// Interview is a scheduled mock interview owned by one account.
type Interview struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"userId" db:"user_id"`

	Type InterviewType `json:"type" db:"type"`

	// Date is the scheduled day. Time holds the time of day as HH:MM.
	Date time.Time `json:"date" db:"date"`
	Time string    `json:"time" db:"time"`

	// Interviewer is free text; InterviewerID is set when it resolves to an account.
	Interviewer   string  `json:"interviewer" db:"interviewer"`
	InterviewerID *string `json:"interviewerId" db:"interviewer_id"`

	Status InterviewStatus `json:"status" db:"status"`

	Feedback *string `json:"feedback" db:"feedback"`
	// Score is only meaningful once Result is no longer pending.
	Score  *int            `json:"score" db:"score"`
	Result InterviewResult `json:"result" db:"result"`

	Resources []InterviewResource `json:"resources" db:"resources"`
	Questions []InterviewQuestion `json:"questions" db:"questions"`

	MeetingLink  *string `json:"meetingLink" db:"meeting_link"`
	RecordingURL *string `json:"recordingUrl" db:"recording_url"`
	Notes        *string `json:"notes" db:"notes"`

	// Duration is expressed in minutes.
	Duration int `json:"duration" db:"duration"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// InterviewResource is a preparation link attached to an interview.
type InterviewResource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type"`
}

// InterviewQuestion is a question asked during an interview and its rating.
type InterviewQuestion struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Rating   int    `json:"rating"`
}

// ParseClock splits an HH:MM string into hour and minute.
func ParseClock(value string) (hour, minute int, ok bool) {
	if !ClockPattern.MatchString(value) {
		return 0, 0, false
	}
	parts := strings.SplitN(value, ":", 2)
	hour, _ = strconv.Atoi(parts[0])
	minute, _ = strconv.Atoi(parts[1])
	return hour, minute, true
}

// ScheduledAt combines Date and Time into a single instant in Date's location.
func (i Interview) ScheduledAt() (time.Time, bool) {
	if i.Date.IsZero() {
		return time.Time{}, false
	}
	hour, minute, ok := ParseClock(i.Time)
	if !ok {
		return time.Time{}, false
	}
	y, m, d := i.Date.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, i.Date.Location()), true
}

// MarkElapsed moves an upcoming interview whose scheduled time has passed to
// completed. It reports whether the status changed.
func (i *Interview) MarkElapsed(now time.Time) bool {
	if i.Status != StatusUpcoming {
		return false
	}
	at, ok := i.ScheduledAt()
	if !ok || !at.Before(now) {
		return false
	}
	i.Status = StatusCompleted
	return true
}

// SweepCursor is the (date, id) of the last row a sweep batch returned.
// The zero value starts from the oldest row.
type SweepCursor struct {
	Date time.Time
	ID   string
}

// InterviewFilter narrows interview listings for one owner.
type InterviewFilter struct {
	UserID string
	Status InterviewStatus
	Type   InterviewType
}

// InterviewGroupStat is one row of a grouped interview aggregate.
type InterviewGroupStat struct {
	Key          string   `json:"_id"`
	Count        int      `json:"count"`
	AverageScore *float64 `json:"averageScore"`
}

// InterviewStatsSummary groups an account's interviews by status and by type.
type InterviewStatsSummary struct {
	StatusStats []InterviewGroupStat `json:"statusStats"`
	TypeStats   []InterviewGroupStat `json:"typeStats"`
}
