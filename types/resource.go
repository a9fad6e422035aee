package types

import "time"

// Resource categories.
const (
	CategoryFrontend     = "frontend"
	CategoryBackend      = "backend"
	CategoryFullstack    = "fullstack"
	CategoryBehavioral   = "behavioral"
	CategoryDSA          = "dsa"
	CategorySystemDesign = "system-design"
)

// ResourceCategories lists every valid resource category.
var ResourceCategories = []string{
	CategoryFrontend, CategoryBackend, CategoryFullstack,
	CategoryBehavioral, CategoryDSA, CategorySystemDesign,
}

// ResourceTypeBlog is the resource type served by the blog listing.
const ResourceTypeBlog = "blog"

// ResourceTypes lists every valid resource type.
var ResourceTypes = []string{"article", "video", "tutorial", ResourceTypeBlog, "book", "course", "practice"}

// Difficulties lists the difficulty levels of a resource.
var Difficulties = []string{"beginner", "intermediate", "advanced"}

// DefaultDifficulty is applied when a resource is created without one.
const DefaultDifficulty = "intermediate"

// QuestionDifficulties lists the difficulty levels of a bank question.
var QuestionDifficulties = []string{"easy", "medium", "hard"}

// Resource is a piece of learning material: an article, video, blog post and so on.
// It may embed a bank of interview questions.
type Resource struct {
	// ID is the opaque identifier of the resource.
	ID string `json:"id" db:"id"`

	// Title is the human-readable name of the resource, at most 200 characters.
	Title string `json:"title" db:"title"`

	// Category is the interview track the resource belongs to.
	Category string `json:"category" db:"category"`

	// Type is the kind of material (article, video, blog...).
	Type string `json:"type" db:"type"`

	// Content is the body of the resource.
	Content string `json:"content" db:"content"`

	// URL optionally points at the external material and must be http(s).
	URL string `json:"url,omitempty" db:"url"`

	Author     string   `json:"author,omitempty" db:"author"`
	Difficulty string   `json:"difficulty" db:"difficulty"`
	Tags       []string `json:"tags" db:"tags"`

	// Views and Likes only ever grow.
	Views int `json:"views" db:"views"`
	Likes int `json:"likes" db:"likes"`

	// IsActive is false once the resource has been soft-deleted.
	IsActive bool `json:"isActive" db:"is_active"`

	// IsPremium resources are hidden from unauthenticated callers.
	IsPremium bool `json:"isPremium" db:"is_premium"`

	// EstimatedTime is the expected reading/watching time in minutes.
	EstimatedTime *int `json:"estimatedTime" db:"estimated_time"`

	Questions []BankQuestion `json:"questions" db:"questions"`

	// CreatedBy is the id of the admin account that created the resource.
	CreatedBy *string `json:"createdBy" db:"created_by"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// BankQuestion is an interview question embedded in a resource.
type BankQuestion struct {
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Difficulty string   `json:"difficulty,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// CategorizedQuestion is a bank question annotated with its resource's category.
type CategorizedQuestion struct {
	BankQuestion
	Category string `json:"category"`
}

// ResourceFilter narrows resource listings. Inactive resources are never listed.
type ResourceFilter struct {
	Category       string
	Type           string
	Difficulty     string
	Search         string
	IncludePremium bool
	SortBy         string
	Ascending      bool
}

// CategoryStat counts active resources in one category.
type CategoryStat struct {
	Category string `json:"_id"`
	Count    int    `json:"count"`
}

// ResourceOverview rolls up counters over all active resources.
type ResourceOverview struct {
	Total         int            `json:"total"`
	TotalViews    int            `json:"totalViews"`
	TotalLikes    int            `json:"totalLikes"`
	CategoryStats []CategoryStat `json:"categoryStats"`
}
