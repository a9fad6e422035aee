package services

import (
	"context"
	"errors"
	"math/rand/v2"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/mockly/apiserver/internal/store"
	"github.com/mockly/apiserver/types"
)

const (
	defaultBlogLimit      = 5
	maxResourceTitleRunes = 200
)

var resourceURLPattern = regexp.MustCompile(`^https?://.+`)

// ErrPremiumContent is returned when an unauthenticated caller opens a premium resource.
var ErrPremiumContent = errors.New("premium content requires authentication")

// ResourceRepository defines persistence operations for learning resources.
type ResourceRepository interface {
	List(ctx context.Context, filter types.ResourceFilter, offset, limit int) ([]types.Resource, int, error)
	ListQuestionBanks(ctx context.Context, category string) ([]types.Resource, error)
	Get(ctx context.Context, id string) (types.Resource, error)
	Create(ctx context.Context, resource types.Resource) (types.Resource, error)
	Update(ctx context.Context, resource types.Resource) (types.Resource, error)
	IncrementViews(ctx context.Context, id string) (int, error)
	IncrementLikes(ctx context.Context, id string) (int, error)
	Overview(ctx context.Context) (types.ResourceOverview, error)
}

// ResourceService serves the learning resource catalogue.
type ResourceService struct {
	repo    ResourceRepository
	shuffle func(n int, swap func(i, j int))
}

func NewResourceService(repo ResourceRepository) *ResourceService {
	return &ResourceService{repo: repo, shuffle: rand.Shuffle}
}

// ResourceListQuery narrows the public resource listing.
type ResourceListQuery struct {
	Category   string
	Type       string
	Difficulty string
	Search     string
	SortBy     string
	Order      string
	Page       int
	Limit      int
}

// ResourceList is one page of resources.
type ResourceList struct {
	Resources   []types.Resource `json:"resources"`
	TotalPages  int              `json:"totalPages"`
	CurrentPage int              `json:"currentPage"`
	Total       int              `json:"total"`
}

// List returns active resources. Premium resources are only listed for
// authenticated callers.
func (s *ResourceService) List(ctx context.Context, query ResourceListQuery, authenticated bool) (ResourceList, error) {
	page := NewPage(query.Page, query.Limit, defaultLimit)
	filter := types.ResourceFilter{
		Category:       strings.TrimSpace(query.Category),
		Type:           strings.TrimSpace(query.Type),
		Difficulty:     strings.TrimSpace(query.Difficulty),
		Search:         strings.TrimSpace(query.Search),
		IncludePremium: authenticated,
		SortBy:         strings.TrimSpace(query.SortBy),
		Ascending:      strings.EqualFold(strings.TrimSpace(query.Order), "asc"),
	}

	resources, total, err := s.repo.List(ctx, filter, page.Offset(), page.Limit)
	if err != nil {
		return ResourceList{}, err
	}
	return ResourceList{
		Resources:   resources,
		TotalPages:  page.TotalPages(total),
		CurrentPage: page.Page,
		Total:       total,
	}, nil
}

// BlogList is one page of blog resources.
type BlogList struct {
	Blogs       []types.Resource `json:"blogs"`
	TotalPages  int              `json:"totalPages"`
	CurrentPage int              `json:"currentPage"`
	Total       int              `json:"total"`
}

// Blogs lists active blog resources, newest first.
func (s *ResourceService) Blogs(ctx context.Context, category string, pageNum, limit int) (BlogList, error) {
	page := NewPage(pageNum, limit, defaultBlogLimit)
	filter := types.ResourceFilter{
		Category:       strings.TrimSpace(category),
		Type:           types.ResourceTypeBlog,
		IncludePremium: true,
	}

	blogs, total, err := s.repo.List(ctx, filter, page.Offset(), page.Limit)
	if err != nil {
		return BlogList{}, err
	}
	return BlogList{
		Blogs:       blogs,
		TotalPages:  page.TotalPages(total),
		CurrentPage: page.Page,
		Total:       total,
	}, nil
}

// QuestionQuery narrows the flattened question bank.
type QuestionQuery struct {
	Category   string
	Difficulty string
	Random     bool
	Limit      int
}

// QuestionList is a slice of the flattened question bank.
type QuestionList struct {
	Questions []types.CategorizedQuestion `json:"questions"`
	Total     int                         `json:"total"`
}

// Questions flattens the question banks of active resources, tagging each
// question with its resource's category.
func (s *ResourceService) Questions(ctx context.Context, query QuestionQuery) (QuestionList, error) {
	banks, err := s.repo.ListQuestionBanks(ctx, strings.TrimSpace(query.Category))
	if err != nil {
		return QuestionList{}, err
	}

	difficulty := strings.TrimSpace(query.Difficulty)
	questions := []types.CategorizedQuestion{}
	for _, bank := range banks {
		for _, question := range bank.Questions {
			if difficulty != "" && question.Difficulty != difficulty {
				continue
			}
			questions = append(questions, types.CategorizedQuestion{BankQuestion: question, Category: bank.Category})
		}
	}

	if query.Random {
		s.shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
	}

	limit := query.Limit
	if limit < 1 {
		limit = defaultLimit
	}
	if len(questions) > limit {
		questions = questions[:limit]
	}
	return QuestionList{Questions: questions, Total: len(questions)}, nil
}

// Open returns an active resource and counts the view.
func (s *ResourceService) Open(ctx context.Context, id string, authenticated bool) (types.Resource, error) {
	resource, err := s.load(ctx, id)
	if err != nil {
		return types.Resource{}, err
	}
	if !resource.IsActive {
		return types.Resource{}, ErrNotFound
	}
	if resource.IsPremium && !authenticated {
		return types.Resource{}, ErrPremiumContent
	}

	views, err := s.repo.IncrementViews(ctx, resource.ID)
	if err != nil {
		return types.Resource{}, translateNotFound(err)
	}
	resource.Views = views
	return resource, nil
}

func (s *ResourceService) load(ctx context.Context, id string) (types.Resource, error) {
	if _, err := uuid.Parse(id); err != nil {
		return types.Resource{}, ErrNotFound
	}
	resource, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Resource{}, translateNotFound(err)
	}
	return resource, nil
}

// ResourceInput carries the editable fields of a resource. Nil fields are
// left unchanged on update.
type ResourceInput struct {
	Title         *string              `json:"title"`
	Category      *string              `json:"category"`
	Type          *string              `json:"type"`
	Content       *string              `json:"content"`
	URL           *string              `json:"url"`
	Author        *string              `json:"author"`
	Difficulty    *string              `json:"difficulty"`
	Tags          []string             `json:"tags"`
	IsPremium     *bool                `json:"isPremium"`
	IsActive      *bool                `json:"isActive"`
	EstimatedTime *int                 `json:"estimatedTime"`
	Questions     []types.BankQuestion `json:"questions"`
}

func (in *ResourceInput) validate(creating bool) error {
	required := func(msg string) validation.Rule {
		if creating {
			return validation.Required.Error(msg)
		}
		return validation.NilOrNotEmpty.Error(msg)
	}
	return validationFailure(validation.ValidateStruct(in,
		validation.Field(&in.Title,
			required("Title is required"),
			validation.RuneLength(0, maxResourceTitleRunes).Error("Title must be at most 200 characters"),
		),
		validation.Field(&in.Category,
			required("Category is required"),
			validation.In(stringValues(types.ResourceCategories)...).Error("Invalid category"),
		),
		validation.Field(&in.Type,
			required("Type is required"),
			validation.In(stringValues(types.ResourceTypes)...).Error("Invalid type"),
		),
		validation.Field(&in.Content, required("Content is required")),
		validation.Field(&in.URL, validation.Match(resourceURLPattern).Error("Please use a valid URL")),
		validation.Field(&in.Difficulty, validation.In(stringValues(types.Difficulties)...).Error("Invalid difficulty")),
		validation.Field(&in.EstimatedTime, validation.Min(0).Error("Estimated time cannot be negative")),
		validation.Field(&in.Questions, validation.Each(validation.By(validateBankQuestion))),
	))
}

func validateBankQuestion(value any) error {
	question, ok := value.(types.BankQuestion)
	if !ok {
		return nil
	}
	return validation.ValidateStruct(&question,
		validation.Field(&question.Question, validation.Required.Error("Question is required")),
		validation.Field(&question.Answer, validation.Required.Error("Answer is required")),
		validation.Field(&question.Difficulty, validation.In(stringValues(types.QuestionDifficulties)...).Error("Invalid difficulty")),
	)
}

func (in ResourceInput) apply(resource *types.Resource) {
	if in.Title != nil {
		resource.Title = strings.TrimSpace(*in.Title)
	}
	if in.Category != nil {
		resource.Category = *in.Category
	}
	if in.Type != nil {
		resource.Type = *in.Type
	}
	if in.Content != nil {
		resource.Content = *in.Content
	}
	if in.URL != nil {
		resource.URL = strings.TrimSpace(*in.URL)
	}
	if in.Author != nil {
		resource.Author = strings.TrimSpace(*in.Author)
	}
	if in.Difficulty != nil && *in.Difficulty != "" {
		resource.Difficulty = *in.Difficulty
	}
	if in.Tags != nil {
		resource.Tags = in.Tags
	}
	if in.IsPremium != nil {
		resource.IsPremium = *in.IsPremium
	}
	if in.IsActive != nil {
		resource.IsActive = *in.IsActive
	}
	if in.EstimatedTime != nil {
		resource.EstimatedTime = in.EstimatedTime
	}
	if in.Questions != nil {
		resource.Questions = in.Questions
	}
}

// Create adds a resource authored by creatorID.
func (s *ResourceService) Create(ctx context.Context, creatorID string, in ResourceInput) (types.Resource, error) {
	if err := in.validate(true); err != nil {
		return types.Resource{}, err
	}

	resource := types.Resource{
		ID:         uuid.NewString(),
		Difficulty: types.DefaultDifficulty,
		IsActive:   true,
	}
	in.apply(&resource)
	if creatorID != "" {
		resource.CreatedBy = &creatorID
	}
	return s.repo.Create(ctx, resource)
}

// Update replaces the provided fields. Identity, creation metadata and the
// view and like counters are never changed here.
func (s *ResourceService) Update(ctx context.Context, id string, in ResourceInput) (types.Resource, error) {
	if err := in.validate(false); err != nil {
		return types.Resource{}, err
	}

	resource, err := s.load(ctx, id)
	if err != nil {
		return types.Resource{}, err
	}
	in.apply(&resource)

	updated, err := s.repo.Update(ctx, resource)
	if err != nil {
		return types.Resource{}, translateNotFound(err)
	}
	return updated, nil
}

// Delete soft-deletes a resource.
func (s *ResourceService) Delete(ctx context.Context, id string) error {
	resource, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	resource.IsActive = false
	_, err = s.repo.Update(ctx, resource)
	return translateNotFound(err)
}

// Like counts a like and returns the new total.
func (s *ResourceService) Like(ctx context.Context, id string) (int, error) {
	if _, err := uuid.Parse(id); err != nil {
		return 0, ErrNotFound
	}
	likes, err := s.repo.IncrementLikes(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return likes, nil
}

func (s *ResourceService) Overview(ctx context.Context) (types.ResourceOverview, error) {
	return s.repo.Overview(ctx)
}
