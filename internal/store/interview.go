package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mockly/apiserver/types"
)

const interviewColumns = `id, user_id, type, date, time, interviewer, interviewer_id, status,
	feedback, score, result, resources, questions, meeting_link, recording_url, notes,
	duration, created_at, updated_at`

// Interview aggregates can be grouped by these columns only.
const (
	GroupByStatus = "status"
	GroupByType   = "type"
)

// InterviewRepository handles persistence for interviews.
type InterviewRepository struct {
	db *sql.DB
}

func NewInterviewRepository(db *sql.DB) *InterviewRepository {
	return &InterviewRepository{db: db}
}

func scanInterview(row rowScanner) (types.Interview, error) {
	var interview types.Interview
	var resourcesJSON, questionsJSON []byte
	if err := row.Scan(
		&interview.ID,
		&interview.UserID,
		&interview.Type,
		&interview.Date,
		&interview.Time,
		&interview.Interviewer,
		&interview.InterviewerID,
		&interview.Status,
		&interview.Feedback,
		&interview.Score,
		&interview.Result,
		&resourcesJSON,
		&questionsJSON,
		&interview.MeetingLink,
		&interview.RecordingURL,
		&interview.Notes,
		&interview.Duration,
		&interview.CreatedAt,
		&interview.UpdatedAt,
	); err != nil {
		return types.Interview{}, err
	}

	if err := decodeJSONColumn("interviews.resources", resourcesJSON, &interview.Resources); err != nil {
		return types.Interview{}, err
	}
	if err := decodeJSONColumn("interviews.questions", questionsJSON, &interview.Questions); err != nil {
		return types.Interview{}, err
	}
	return interview, nil
}

func marshalInterviewLists(interview types.Interview) (resources, questions []byte, err error) {
	if interview.Resources == nil {
		interview.Resources = []types.InterviewResource{}
	}
	if interview.Questions == nil {
		interview.Questions = []types.InterviewQuestion{}
	}
	resources, err = json.Marshal(interview.Resources)
	if err != nil {
		return nil, nil, err
	}
	questions, err = json.Marshal(interview.Questions)
	if err != nil {
		return nil, nil, err
	}
	return resources, questions, nil
}

// List returns one owner's interviews, newest date first, and the total match count.
func (r *InterviewRepository) List(ctx context.Context, filter types.InterviewFilter, offset, limit int) ([]types.Interview, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 10
	}

	conds := []string{"user_id = $1"}
	args := []any{filter.UserID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}
	where := " WHERE " + strings.Join(conds, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM interviews`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := fmt.Sprintf(`SELECT %s FROM interviews%s ORDER BY date DESC OFFSET $%d LIMIT $%d`,
		interviewColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, listQuery, append(args, offset, limit)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	interviews := make([]types.Interview, 0, limit)
	for rows.Next() {
		interview, err := scanInterview(rows)
		if err != nil {
			return nil, 0, err
		}
		interviews = append(interviews, interview)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return interviews, total, nil
}

// ListUpcomingBefore returns upcoming interviews whose date is before t and
// that sort after the cursor, ordered by (date, id).
func (r *InterviewRepository) ListUpcomingBefore(ctx context.Context, t time.Time, after types.SweepCursor, limit int) ([]types.Interview, error) {
	conds := "status = 'upcoming' AND date < $1"
	args := []any{t}
	if after.ID != "" {
		args = append(args, after.Date, after.ID)
		conds += " AND (date, id) > ($2, $3::uuid)"
	}
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT %s FROM interviews WHERE %s ORDER BY date, id LIMIT $%d`,
		interviewColumns, conds, len(args))
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var interviews []types.Interview
	for rows.Next() {
		interview, err := scanInterview(rows)
		if err != nil {
			return nil, err
		}
		interviews = append(interviews, interview)
	}
	return interviews, rows.Err()
}

func (r *InterviewRepository) Get(ctx context.Context, id string) (types.Interview, error) {
	query := `SELECT ` + interviewColumns + ` FROM interviews WHERE id = $1`
	interview, err := scanInterview(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Interview{}, ErrNotFound
		}
		return types.Interview{}, err
	}
	return interview, nil
}

// HasActiveAt reports whether the owner holds a non-cancelled interview at the exact date and time.
func (r *InterviewRepository) HasActiveAt(ctx context.Context, userID string, date time.Time, clock string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM interviews
			WHERE user_id = $1 AND date = $2 AND time = $3 AND status <> 'cancelled'
		)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, date, clock).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *InterviewRepository) Create(ctx context.Context, interview types.Interview) (types.Interview, error) {
	now := time.Now()
	interview.CreatedAt = now
	interview.UpdatedAt = now

	resourcesJSON, questionsJSON, err := marshalInterviewLists(interview)
	if err != nil {
		return types.Interview{}, err
	}

	const query = `
		INSERT INTO interviews (
			id, user_id, type, date, time, interviewer, interviewer_id, status,
			feedback, score, result, resources, questions, meeting_link, recording_url, notes,
			duration, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		interview.ID,
		interview.UserID,
		interview.Type,
		interview.Date,
		interview.Time,
		interview.Interviewer,
		interview.InterviewerID,
		interview.Status,
		interview.Feedback,
		interview.Score,
		interview.Result,
		resourcesJSON,
		questionsJSON,
		interview.MeetingLink,
		interview.RecordingURL,
		interview.Notes,
		interview.Duration,
		interview.CreatedAt,
		interview.UpdatedAt,
	); err != nil {
		return types.Interview{}, translateError(err)
	}
	return interview, nil
}

// Update writes every mutable column of the interview.
func (r *InterviewRepository) Update(ctx context.Context, interview types.Interview) (types.Interview, error) {
	interview.UpdatedAt = time.Now()

	resourcesJSON, questionsJSON, err := marshalInterviewLists(interview)
	if err != nil {
		return types.Interview{}, err
	}

	const query = `
		UPDATE interviews
		SET date = $1,
			time = $2,
			interviewer = $3,
			interviewer_id = $4,
			status = $5,
			feedback = $6,
			score = $7,
			result = $8,
			resources = $9,
			questions = $10,
			meeting_link = $11,
			recording_url = $12,
			notes = $13,
			duration = $14,
			updated_at = $15
		WHERE id = $16`
	result, err := r.db.ExecContext(
		ctx,
		query,
		interview.Date,
		interview.Time,
		interview.Interviewer,
		interview.InterviewerID,
		interview.Status,
		interview.Feedback,
		interview.Score,
		interview.Result,
		resourcesJSON,
		questionsJSON,
		interview.MeetingLink,
		interview.RecordingURL,
		interview.Notes,
		interview.Duration,
		interview.UpdatedAt,
		interview.ID,
	)
	if err != nil {
		return types.Interview{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Interview{}, err
	}
	if affected == 0 {
		return types.Interview{}, ErrNotFound
	}
	return interview, nil
}

// GroupStats counts one owner's interviews and averages their scores per distinct value of column.
func (r *InterviewRepository) GroupStats(ctx context.Context, userID, column string) ([]types.InterviewGroupStat, error) {
	if column != GroupByStatus && column != GroupByType {
		return nil, fmt.Errorf("unsupported group column %q", column)
	}

	query := fmt.Sprintf(`
		SELECT %[1]s, COUNT(1), AVG(score)::float8
		FROM interviews
		WHERE user_id = $1
		GROUP BY %[1]s
		ORDER BY %[1]s`, column)
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []types.InterviewGroupStat{}
	for rows.Next() {
		var stat types.InterviewGroupStat
		var avg sql.NullFloat64
		if err := rows.Scan(&stat.Key, &stat.Count, &avg); err != nil {
			return nil, err
		}
		if avg.Valid {
			value := avg.Float64
			stat.AverageScore = &value
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

// AccountStats summarizes every interview owned by userID.
func (r *InterviewRepository) AccountStats(ctx context.Context, userID string) (types.AccountStats, error) {
	const query = `
		SELECT COUNT(1),
			COUNT(1) FILTER (WHERE status = 'completed'),
			AVG(score)::float8
		FROM interviews
		WHERE user_id = $1`
	var stats types.AccountStats
	var avg sql.NullFloat64
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&stats.TotalInterviews, &stats.CompletedInterviews, &avg); err != nil {
		return types.AccountStats{}, err
	}
	if avg.Valid {
		value := avg.Float64
		stats.AverageScore = &value
	}
	return stats, nil
}
