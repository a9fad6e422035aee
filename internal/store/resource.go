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

const resourceColumns = `id, title, category, type, content, url, author, difficulty, tags,
	views, likes, is_active, is_premium, estimated_time, questions, created_by, created_at, updated_at`

var resourceSortColumns = map[string]string{
	"createdAt": "created_at",
	"views":     "views",
	"likes":     "likes",
	"title":     "title",
}

// ResourceRepository handles persistence for learning resources.
type ResourceRepository struct {
	db *sql.DB
}

func NewResourceRepository(db *sql.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

func scanResource(row rowScanner) (types.Resource, error) {
	var resource types.Resource
	var tagsJSON, questionsJSON []byte
	if err := row.Scan(
		&resource.ID,
		&resource.Title,
		&resource.Category,
		&resource.Type,
		&resource.Content,
		&resource.URL,
		&resource.Author,
		&resource.Difficulty,
		&tagsJSON,
		&resource.Views,
		&resource.Likes,
		&resource.IsActive,
		&resource.IsPremium,
		&resource.EstimatedTime,
		&questionsJSON,
		&resource.CreatedBy,
		&resource.CreatedAt,
		&resource.UpdatedAt,
	); err != nil {
		return types.Resource{}, err
	}

	if err := decodeJSONColumn("resources.tags", tagsJSON, &resource.Tags); err != nil {
		return types.Resource{}, err
	}
	if err := decodeJSONColumn("resources.questions", questionsJSON, &resource.Questions); err != nil {
		return types.Resource{}, err
	}
	return resource, nil
}

func marshalResourceLists(resource types.Resource) (tags, questions []byte, err error) {
	if resource.Tags == nil {
		resource.Tags = []string{}
	}
	if resource.Questions == nil {
		resource.Questions = []types.BankQuestion{}
	}
	tags, err = json.Marshal(resource.Tags)
	if err != nil {
		return nil, nil, err
	}
	questions, err = json.Marshal(resource.Questions)
	if err != nil {
		return nil, nil, err
	}
	return tags, questions, nil
}

func resourceWhere(filter types.ResourceFilter) (string, []any) {
	conds := []string{"is_active"}
	var args []any
	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if filter.Type != "" {
		add("type = $%d", filter.Type)
	}
	if filter.Difficulty != "" {
		add("difficulty = $%d", filter.Difficulty)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		add("(title ILIKE $%[1]d OR content ILIKE $%[1]d OR tags::text ILIKE $%[1]d)", "%"+search+"%")
	}
	if !filter.IncludePremium {
		conds = append(conds, "NOT is_premium")
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns active resources matching filter and the total match count.
func (r *ResourceRepository) List(ctx context.Context, filter types.ResourceFilter, offset, limit int) ([]types.Resource, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 10
	}

	where, args := resourceWhere(filter)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM resources`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortColumn, ok := resourceSortColumns[filter.SortBy]
	if !ok {
		sortColumn = "created_at"
	}
	direction := "DESC"
	if filter.Ascending {
		direction = "ASC"
	}

	listQuery := fmt.Sprintf(`SELECT %s FROM resources%s ORDER BY %s %s, id OFFSET $%d LIMIT $%d`,
		resourceColumns, where, sortColumn, direction, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, listQuery, append(args, offset, limit)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	resources := make([]types.Resource, 0, limit)
	for rows.Next() {
		resource, err := scanResource(rows)
		if err != nil {
			return nil, 0, err
		}
		resources = append(resources, resource)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return resources, total, nil
}

// ListQuestionBanks returns the category and question bank of every active resource.
func (r *ResourceRepository) ListQuestionBanks(ctx context.Context, category string) ([]types.Resource, error) {
	query := `SELECT id, category, questions FROM resources WHERE is_active`
	var args []any
	if category != "" {
		query += ` AND category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var resources []types.Resource
	for rows.Next() {
		var resource types.Resource
		var questionsJSON []byte
		if err := rows.Scan(&resource.ID, &resource.Category, &questionsJSON); err != nil {
			return nil, err
		}
		if err := decodeJSONColumn("resources.questions", questionsJSON, &resource.Questions); err != nil {
			return nil, err
		}
		resources = append(resources, resource)
	}
	return resources, rows.Err()
}

func (r *ResourceRepository) Get(ctx context.Context, id string) (types.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE id = $1`
	resource, err := scanResource(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Resource{}, ErrNotFound
		}
		return types.Resource{}, err
	}
	return resource, nil
}

func (r *ResourceRepository) Create(ctx context.Context, resource types.Resource) (types.Resource, error) {
	now := time.Now()
	resource.CreatedAt = now
	resource.UpdatedAt = now

	tagsJSON, questionsJSON, err := marshalResourceLists(resource)
	if err != nil {
		return types.Resource{}, err
	}

	const query = `
		INSERT INTO resources (
			id, title, category, type, content, url, author, difficulty, tags,
			views, likes, is_active, is_premium, estimated_time, questions, created_by, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		resource.ID,
		resource.Title,
		resource.Category,
		resource.Type,
		resource.Content,
		resource.URL,
		resource.Author,
		resource.Difficulty,
		tagsJSON,
		resource.Views,
		resource.Likes,
		resource.IsActive,
		resource.IsPremium,
		resource.EstimatedTime,
		questionsJSON,
		resource.CreatedBy,
		resource.CreatedAt,
		resource.UpdatedAt,
	); err != nil {
		return types.Resource{}, translateError(err)
	}
	return resource, nil
}

// Update writes the editable columns. Counters and creation metadata are left alone.
func (r *ResourceRepository) Update(ctx context.Context, resource types.Resource) (types.Resource, error) {
	resource.UpdatedAt = time.Now()

	tagsJSON, questionsJSON, err := marshalResourceLists(resource)
	if err != nil {
		return types.Resource{}, err
	}

	const query = `
		UPDATE resources
		SET title = $1,
			category = $2,
			type = $3,
			content = $4,
			url = $5,
			author = $6,
			difficulty = $7,
			tags = $8,
			is_active = $9,
			is_premium = $10,
			estimated_time = $11,
			questions = $12,
			updated_at = $13
		WHERE id = $14`
	result, err := r.db.ExecContext(
		ctx,
		query,
		resource.Title,
		resource.Category,
		resource.Type,
		resource.Content,
		resource.URL,
		resource.Author,
		resource.Difficulty,
		tagsJSON,
		resource.IsActive,
		resource.IsPremium,
		resource.EstimatedTime,
		questionsJSON,
		resource.UpdatedAt,
		resource.ID,
	)
	if err != nil {
		return types.Resource{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Resource{}, err
	}
	if affected == 0 {
		return types.Resource{}, ErrNotFound
	}
	return resource, nil
}

// IncrementViews bumps the view counter and returns the new value.
func (r *ResourceRepository) IncrementViews(ctx context.Context, id string) (int, error) {
	return r.increment(ctx, "views", id)
}

// IncrementLikes bumps the like counter and returns the new value.
func (r *ResourceRepository) IncrementLikes(ctx context.Context, id string) (int, error) {
	return r.increment(ctx, "likes", id)
}

func (r *ResourceRepository) increment(ctx context.Context, column, id string) (int, error) {
	query := fmt.Sprintf(`UPDATE resources SET %[1]s = %[1]s + 1 WHERE id = $1 RETURNING %[1]s`, column)
	var value int
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return value, nil
}

// Overview rolls up counters over all active resources.
func (r *ResourceRepository) Overview(ctx context.Context) (types.ResourceOverview, error) {
	const totalsQuery = `
		SELECT COUNT(1), COALESCE(SUM(views), 0), COALESCE(SUM(likes), 0)
		FROM resources
		WHERE is_active`
	var overview types.ResourceOverview
	if err := r.db.QueryRowContext(ctx, totalsQuery).Scan(&overview.Total, &overview.TotalViews, &overview.TotalLikes); err != nil {
		return types.ResourceOverview{}, err
	}

	const categoryQuery = `
		SELECT category, COUNT(1)
		FROM resources
		WHERE is_active
		GROUP BY category
		ORDER BY category`
	rows, err := r.db.QueryContext(ctx, categoryQuery)
	if err != nil {
		return types.ResourceOverview{}, err
	}
	defer rows.Close()

	overview.CategoryStats = []types.CategoryStat{}
	for rows.Next() {
		var stat types.CategoryStat
		if err := rows.Scan(&stat.Category, &stat.Count); err != nil {
			return types.ResourceOverview{}, err
		}
		overview.CategoryStats = append(overview.CategoryStats, stat)
	}
	if err := rows.Err(); err != nil {
		return types.ResourceOverview{}, err
	}
	return overview, nil
}
