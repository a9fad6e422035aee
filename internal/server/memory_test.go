package server

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mockly/apiserver/internal/store"
	"github.com/mockly/apiserver/types"
)

// memoryStore backs every repository interface with maps so the router can
// be exercised end to end without Postgres.
type memoryStore struct {
	mu         sync.Mutex
	accounts   map[string]types.Account
	interviews map[string]types.Interview
	resources  map[string]types.Resource
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		accounts:   map[string]types.Account{},
		interviews: map[string]types.Interview{},
		resources:  map[string]types.Resource{},
	}
}

type memoryAccounts struct{ *memoryStore }

func (m memoryAccounts) GetByID(ctx context.Context, id string) (types.Account, error) {
	account, err := m.GetCredentialsByID(ctx, id)
	account.PasswordHash = ""
	return account, err
}

func (m memoryAccounts) GetCredentialsByID(_ context.Context, id string) (types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return types.Account{}, store.ErrNotFound
	}
	return account, nil
}

func (m memoryAccounts) GetCredentialsByEmail(_ context.Context, email string) (types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, account := range m.accounts {
		if strings.EqualFold(account.Email, email) {
			return account, nil
		}
	}
	return types.Account{}, store.ErrNotFound
}

func (m memoryAccounts) Create(_ context.Context, account types.Account) (types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	m.accounts[account.ID] = account
	account.PasswordHash = ""
	return account, nil
}

func (m memoryAccounts) Update(_ context.Context, account types.Account) (types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.accounts[account.ID]
	if !ok {
		return types.Account{}, store.ErrNotFound
	}
	account.PasswordHash = existing.PasswordHash
	m.accounts[account.ID] = account
	account.PasswordHash = ""
	return account, nil
}

func (m memoryAccounts) UpdatePassword(_ context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return store.ErrNotFound
	}
	account.PasswordHash = passwordHash
	m.accounts[id] = account
	return nil
}

func (m memoryAccounts) List(_ context.Context, filter types.AccountFilter, offset, limit int) ([]types.Account, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []types.Account{}
	for _, account := range m.accounts {
		if filter.Role != "" && account.Role != filter.Role {
			continue
		}
		account.PasswordHash = ""
		out = append(out, account)
	}
	return window(out, offset, limit), len(out), nil
}

func (m memoryAccounts) ListInterviewers(_ context.Context) ([]types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []types.Account{}
	for _, account := range m.accounts {
		if account.IsActive && account.HasRole(types.RoleInterviewer, types.RoleAdmin) {
			out = append(out, account)
		}
	}
	return out, nil
}

type memoryInterviews struct{ *memoryStore }

func (m memoryInterviews) List(_ context.Context, filter types.InterviewFilter, offset, limit int) ([]types.Interview, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []types.Interview{}
	for _, interview := range m.interviews {
		if interview.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && interview.Status != filter.Status {
			continue
		}
		out = append(out, interview)
	}
	return window(out, offset, limit), len(out), nil
}

func (m memoryInterviews) ListUpcomingBefore(_ context.Context, t time.Time, after types.SweepCursor, limit int) ([]types.Interview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []types.Interview{}
	for _, interview := range m.interviews {
		if interview.Status != types.StatusUpcoming || !interview.Date.Before(t) {
			continue
		}
		if after.ID != "" && (interview.Date.Before(after.Date) || interview.Date.Equal(after.Date) && interview.ID <= after.ID) {
			continue
		}
		out = append(out, interview)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return window(out, 0, limit), nil
}

func (m memoryInterviews) Get(_ context.Context, id string) (types.Interview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	interview, ok := m.interviews[id]
	if !ok {
		return types.Interview{}, store.ErrNotFound
	}
	return interview, nil
}

func (m memoryInterviews) HasActiveAt(_ context.Context, userID string, date time.Time, clock string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, interview := range m.interviews {
		if interview.UserID == userID && interview.Date.Equal(date) && interview.Time == clock && interview.Status != types.StatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (m memoryInterviews) Create(_ context.Context, interview types.Interview) (types.Interview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	interview.CreatedAt = time.Now()
	interview.UpdatedAt = interview.CreatedAt
	m.interviews[interview.ID] = interview
	return interview, nil
}

func (m memoryInterviews) Update(_ context.Context, interview types.Interview) (types.Interview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.interviews[interview.ID]; !ok {
		return types.Interview{}, store.ErrNotFound
	}
	interview.UpdatedAt = time.Now()
	m.interviews[interview.ID] = interview
	return interview, nil
}

func (m memoryInterviews) GroupStats(context.Context, string, string) ([]types.InterviewGroupStat, error) {
	return []types.InterviewGroupStat{}, nil
}

func (m memoryInterviews) AccountStats(_ context.Context, userID string) (types.AccountStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stats types.AccountStats
	for _, interview := range m.interviews {
		if interview.UserID != userID {
			continue
		}
		stats.TotalInterviews++
		if interview.Status == types.StatusCompleted {
			stats.CompletedInterviews++
		}
	}
	return stats, nil
}

type memoryResources struct{ *memoryStore }

func (m memoryResources) List(_ context.Context, filter types.ResourceFilter, offset, limit int) ([]types.Resource, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []types.Resource{}
	for _, resource := range m.resources {
		if !resource.IsActive || (resource.IsPremium && !filter.IncludePremium) {
			continue
		}
		if filter.Type != "" && resource.Type != filter.Type {
			continue
		}
		out = append(out, resource)
	}
	return window(out, offset, limit), len(out), nil
}

func (m memoryResources) ListQuestionBanks(_ context.Context, category string) ([]types.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []types.Resource{}
	for _, resource := range m.resources {
		if resource.IsActive && (category == "" || resource.Category == category) {
			out = append(out, resource)
		}
	}
	return out, nil
}

func (m memoryResources) Get(_ context.Context, id string) (types.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	resource, ok := m.resources[id]
	if !ok {
		return types.Resource{}, store.ErrNotFound
	}
	return resource, nil
}

func (m memoryResources) Create(_ context.Context, resource types.Resource) (types.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resources[resource.ID] = resource
	return resource, nil
}

func (m memoryResources) Update(_ context.Context, resource types.Resource) (types.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.resources[resource.ID]; !ok {
		return types.Resource{}, store.ErrNotFound
	}
	m.resources[resource.ID] = resource
	return resource, nil
}

func (m memoryResources) IncrementViews(_ context.Context, id string) (int, error) {
	return m.increment(id, func(r *types.Resource) int { r.Views++; return r.Views })
}

func (m memoryResources) IncrementLikes(_ context.Context, id string) (int, error) {
	return m.increment(id, func(r *types.Resource) int { r.Likes++; return r.Likes })
}

func (m memoryResources) increment(id string, bump func(*types.Resource) int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	resource, ok := m.resources[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	n := bump(&resource)
	m.resources[id] = resource
	return n, nil
}

func (m memoryResources) Overview(context.Context) (types.ResourceOverview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	overview := types.ResourceOverview{CategoryStats: []types.CategoryStat{}}
	for _, resource := range m.resources {
		if resource.IsActive {
			overview.Total++
		}
	}
	return overview, nil
}

func window[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}
