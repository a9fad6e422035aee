package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/mockly/apiserver/internal/lock"
	"github.com/mockly/apiserver/internal/store"
	"github.com/mockly/apiserver/types"
)

const (
	sweepBatchSize        = 500
	defaultPublishTimeout = 5 * time.Second
)

// dateLayouts are tried in order when parsing a scheduled date.
var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// InterviewRepository defines persistence operations for interviews.
type InterviewRepository interface {
	List(ctx context.Context, filter types.InterviewFilter, offset, limit int) ([]types.Interview, int, error)
	ListUpcomingBefore(ctx context.Context, t time.Time, after types.SweepCursor, limit int) ([]types.Interview, error)
	Get(ctx context.Context, id string) (types.Interview, error)
	HasActiveAt(ctx context.Context, userID string, date time.Time, clock string) (bool, error)
	Create(ctx context.Context, interview types.Interview) (types.Interview, error)
	Update(ctx context.Context, interview types.Interview) (types.Interview, error)
	GroupStats(ctx context.Context, userID, column string) ([]types.InterviewGroupStat, error)
}

// SlotLocker serializes creates that target the same scheduling slot.
type SlotLocker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type noopLocker struct{}

func (noopLocker) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}

// InterviewService implements the interview lifecycle.
type InterviewService struct {
	repo          InterviewRepository
	locker        SlotLocker
	events        EventPublisher
	eventsChannel string
	recordings    ObjectStore
	now           func() time.Time
	logger        *slog.Logger

	sweepBatch     int
	publishTimeout time.Duration
}

// InterviewOption configures optional collaborators of an InterviewService.
type InterviewOption func(*InterviewService)

func WithSlotLocker(locker SlotLocker) InterviewOption {
	return func(s *InterviewService) {
		if locker != nil {
			s.locker = locker
		}
	}
}

func WithEvents(publisher EventPublisher, channel string) InterviewOption {
	return func(s *InterviewService) {
		s.events = publisher
		s.eventsChannel = channel
	}
}

// WithPublishTimeout bounds how long a mutation waits on the broker for its event.
func WithPublishTimeout(d time.Duration) InterviewOption {
	return func(s *InterviewService) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

func WithRecordings(objects ObjectStore) InterviewOption {
	return func(s *InterviewService) {
		s.recordings = objects
	}
}

func WithClock(now func() time.Time) InterviewOption {
	return func(s *InterviewService) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) InterviewOption {
	return func(s *InterviewService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewInterviewService(repo InterviewRepository, opts ...InterviewOption) *InterviewService {
	s := &InterviewService{
		repo:           repo,
		locker:         noopLocker{},
		now:            time.Now,
		logger:         slog.Default(),
		sweepBatch:     sweepBatchSize,
		publishTimeout: defaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InterviewListQuery narrows a caller's interview listing.
type InterviewListQuery struct {
	Status string
	Type   string
	Page   int
	Limit  int
}

// InterviewList is one page of interviews.
type InterviewList struct {
	Interviews  []types.Interview `json:"interviews"`
	TotalPages  int               `json:"totalPages"`
	CurrentPage int               `json:"currentPage"`
	Total       int               `json:"total"`
}

// List returns one page of the caller's interviews. Elapsed upcoming
// interviews on the page are moved to completed and persisted first.
func (s *InterviewService) List(ctx context.Context, userID string, query InterviewListQuery) (InterviewList, error) {
	page := NewPage(query.Page, query.Limit, defaultLimit)
	filter := types.InterviewFilter{
		UserID: userID,
		Status: types.InterviewStatus(strings.TrimSpace(query.Status)),
		Type:   types.InterviewType(strings.TrimSpace(query.Type)),
	}

	interviews, total, err := s.repo.List(ctx, filter, page.Offset(), page.Limit)
	if err != nil {
		return InterviewList{}, err
	}

	now := s.now()
	for i := range interviews {
		if !interviews[i].MarkElapsed(now) {
			continue
		}
		updated, err := s.repo.Update(ctx, interviews[i])
		if err != nil {
			return InterviewList{}, err
		}
		interviews[i] = updated
	}

	return InterviewList{
		Interviews:  interviews,
		TotalPages:  page.TotalPages(total),
		CurrentPage: page.Page,
		Total:       total,
	}, nil
}

// Get returns an interview owned by userID.
func (s *InterviewService) Get(ctx context.Context, userID, id string) (types.Interview, error) {
	interview, err := s.load(ctx, id)
	if err != nil {
		return types.Interview{}, err
	}
	if interview.UserID != userID {
		return types.Interview{}, ErrNotFound
	}
	return interview, nil
}

func (s *InterviewService) load(ctx context.Context, id string) (types.Interview, error) {
	if _, err := uuid.Parse(id); err != nil {
		return types.Interview{}, ErrNotFound
	}
	interview, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Interview{}, ErrNotFound
		}
		return types.Interview{}, err
	}
	return interview, nil
}

// CreateInterviewInput is the payload for scheduling an interview.
type CreateInterviewInput struct {
	Type        string                    `json:"type"`
	Date        string                    `json:"date"`
	Time        string                    `json:"time"`
	Interviewer string                    `json:"interviewer"`
	Duration    *int                      `json:"duration"`
	Notes       *string                   `json:"notes"`
	MeetingLink *string                   `json:"meetingLink"`
	Resources   []types.InterviewResource `json:"resources"`
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("Invalid date format")
}

// validate checks the payload against now and returns the parsed date.
func (in *CreateInterviewInput) validate(now time.Time) (time.Time, error) {
	in.Type = strings.TrimSpace(in.Type)
	in.Time = strings.TrimSpace(in.Time)
	in.Interviewer = strings.TrimSpace(in.Interviewer)

	var date time.Time
	futureDate := validation.By(func(value any) error {
		raw, _ := value.(string)
		parsed, err := parseDate(raw)
		if err != nil {
			return err
		}
		if !parsed.After(now) {
			return errors.New("Interview date must be in the future")
		}
		date = parsed
		return nil
	})

	err := validation.ValidateStruct(in,
		validation.Field(&in.Type,
			validation.Required.Error("Interview type is required"),
			validation.In(stringValues(types.InterviewTypes)...).Error("Invalid interview type"),
		),
		validation.Field(&in.Date, validation.Required.Error("Date is required"), futureDate),
		validation.Field(&in.Time,
			validation.Required.Error("Time is required"),
			validation.Match(types.ClockPattern).Error("Invalid time format (HH:MM)"),
		),
		validation.Field(&in.Interviewer, validation.Required.Error("Interviewer name is required")),
		validation.Field(&in.Duration, validation.Min(1).Error("Duration must be a positive number of minutes")),
	)
	if err := validationFailure(err); err != nil {
		return time.Time{}, err
	}
	return date, nil
}

func slotKey(userID string, date time.Time, clock string) string {
	return fmt.Sprintf("interview-slot:%s:%s:%s", userID, date.UTC().Format(time.RFC3339), clock)
}

// Create schedules a new interview for userID.
func (s *InterviewService) Create(ctx context.Context, userID string, in CreateInterviewInput) (types.Interview, error) {
	date, err := in.validate(s.now())
	if err != nil {
		return types.Interview{}, err
	}

	release, err := s.locker.Acquire(ctx, slotKey(userID, date, in.Time))
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			return types.Interview{}, ErrSchedulingConflict
		}
		return types.Interview{}, err
	}
	defer release()

	taken, err := s.repo.HasActiveAt(ctx, userID, date, in.Time)
	if err != nil {
		return types.Interview{}, err
	}
	if taken {
		return types.Interview{}, ErrSchedulingConflict
	}

	interview := types.Interview{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        types.InterviewType(in.Type),
		Date:        date,
		Time:        in.Time,
		Interviewer: in.Interviewer,
		Status:      types.StatusUpcoming,
		Result:      types.ResultPending,
		Resources:   in.Resources,
		Notes:       in.Notes,
		MeetingLink: in.MeetingLink,
		Duration:    types.DefaultInterviewDuration,
	}
	if in.Duration != nil && *in.Duration > 0 {
		interview.Duration = *in.Duration
	}
	if len(interview.Resources) == 0 {
		interview.Resources = DefaultResources(interview.Type)
	}

	created, err := s.repo.Create(ctx, interview)
	if err != nil {
		return types.Interview{}, err
	}
	s.publish(ctx, types.EventInterviewScheduled, created, userID)
	return created, nil
}

// UpdateInterviewInput replaces the provided fields of an interview.
type UpdateInterviewInput struct {
	Date        *string `json:"date"`
	Time        *string `json:"time"`
	Interviewer *string `json:"interviewer"`
	Notes       *string `json:"notes"`
	Status      *string `json:"status"`
}

// Update applies in to an interview owned by userID. Completed interviews
// cannot be edited. Only the date format and status value are checked.
func (s *InterviewService) Update(ctx context.Context, userID, id string, in UpdateInterviewInput) (types.Interview, error) {
	interview, err := s.Get(ctx, userID, id)
	if err != nil {
		return types.Interview{}, err
	}
	if interview.Status == types.StatusCompleted {
		return types.Interview{}, ErrUpdateCompleted
	}

	if in.Date != nil {
		date, err := parseDate(*in.Date)
		if err != nil {
			return types.Interview{}, fieldError("date", err.Error())
		}
		interview.Date = date
	}
	if in.Time != nil {
		interview.Time = strings.TrimSpace(*in.Time)
	}
	if in.Interviewer != nil {
		interview.Interviewer = strings.TrimSpace(*in.Interviewer)
	}
	if in.Notes != nil {
		interview.Notes = in.Notes
	}
	if in.Status != nil {
		status := strings.TrimSpace(*in.Status)
		if err := validation.Validate(status, validation.Required, validation.In(stringValues(types.InterviewStatuses)...)); err != nil {
			return types.Interview{}, fieldError("status", "Invalid status")
		}
		interview.Status = types.InterviewStatus(status)
	}

	updated, err := s.repo.Update(ctx, interview)
	if err != nil {
		return types.Interview{}, translateNotFound(err)
	}
	s.publish(ctx, types.EventInterviewUpdated, updated, userID)
	return updated, nil
}

// Complete marks an interview owned by userID as completed.
func (s *InterviewService) Complete(ctx context.Context, userID, id string) (types.Interview, error) {
	interview, err := s.Get(ctx, userID, id)
	if err != nil {
		return types.Interview{}, err
	}

	interview.Status = types.StatusCompleted
	updated, err := s.repo.Update(ctx, interview)
	if err != nil {
		return types.Interview{}, translateNotFound(err)
	}
	s.publish(ctx, types.EventInterviewCompleted, updated, userID)
	return updated, nil
}

// Cancel soft-cancels an interview owned by userID.
func (s *InterviewService) Cancel(ctx context.Context, userID, id string) (types.Interview, error) {
	interview, err := s.Get(ctx, userID, id)
	if err != nil {
		return types.Interview{}, err
	}
	if interview.Status == types.StatusCompleted {
		return types.Interview{}, ErrCancelCompleted
	}

	interview.Status = types.StatusCancelled
	updated, err := s.repo.Update(ctx, interview)
	if err != nil {
		return types.Interview{}, translateNotFound(err)
	}
	s.publish(ctx, types.EventInterviewCancelled, updated, userID)
	return updated, nil
}

// StatsSummary groups the caller's interviews by status and by type.
func (s *InterviewService) StatsSummary(ctx context.Context, userID string) (types.InterviewStatsSummary, error) {
	byStatus, err := s.repo.GroupStats(ctx, userID, store.GroupByStatus)
	if err != nil {
		return types.InterviewStatsSummary{}, err
	}
	byType, err := s.repo.GroupStats(ctx, userID, store.GroupByType)
	if err != nil {
		return types.InterviewStatsSummary{}, err
	}
	return types.InterviewStatsSummary{StatusStats: byStatus, TypeStats: byType}, nil
}

// SweepElapsed completes elapsed upcoming interviews across all accounts and
// returns how many were changed. Rows that are not yet due, or whose time
// cannot be parsed, are stepped over by the cursor.
func (s *InterviewService) SweepElapsed(ctx context.Context) (int, error) {
	now := s.now()
	changed := 0
	var cursor types.SweepCursor
	for {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		batch, err := s.repo.ListUpcomingBefore(ctx, now, cursor, s.sweepBatch)
		if err != nil {
			return changed, err
		}

		for _, interview := range batch {
			if !interview.MarkElapsed(now) {
				continue
			}
			updated, err := s.repo.Update(ctx, interview)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					continue
				}
				return changed, err
			}
			changed++
			s.publish(ctx, types.EventInterviewCompleted, updated, "")
		}

		if len(batch) == 0 || len(batch) < s.sweepBatch {
			return changed, nil
		}
		last := batch[len(batch)-1]
		cursor = types.SweepCursor{Date: last.Date, ID: last.ID}
	}
}

func translateNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
