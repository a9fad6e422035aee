package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mockly/apiserver/internal/storage"
	"github.com/mockly/apiserver/internal/store"
	"github.com/mockly/apiserver/types"
)

type fakeAccounts struct {
	mu       sync.Mutex
	accounts map[string]types.Account
}

func newFakeAccounts(accounts ...types.Account) *fakeAccounts {
	f := &fakeAccounts{accounts: make(map[string]types.Account)}
	for _, account := range accounts {
		f.accounts[account.ID] = account
	}
	return f
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (types.Account, error) {
	account, err := f.GetCredentialsByID(context.Background(), id)
	account.PasswordHash = ""
	return account, err
}

func (f *fakeAccounts) GetCredentialsByID(_ context.Context, id string) (types.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return types.Account{}, store.ErrNotFound
	}
	return account, nil
}

func (f *fakeAccounts) GetCredentialsByEmail(_ context.Context, email string) (types.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, account := range f.accounts {
		if strings.EqualFold(account.Email, email) {
			return account, nil
		}
	}
	return types.Account{}, store.ErrNotFound
}

func (f *fakeAccounts) Create(_ context.Context, account types.Account) (types.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.accounts {
		if strings.EqualFold(existing.Email, account.Email) {
			return types.Account{}, store.ErrConflict
		}
	}
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	f.accounts[account.ID] = account
	account.PasswordHash = ""
	return account, nil
}

func (f *fakeAccounts) Update(_ context.Context, account types.Account) (types.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.accounts[account.ID]
	if !ok {
		return types.Account{}, store.ErrNotFound
	}
	account.PasswordHash = existing.PasswordHash
	f.accounts[account.ID] = account
	account.PasswordHash = ""
	return account, nil
}

func (f *fakeAccounts) UpdatePassword(_ context.Context, id, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return store.ErrNotFound
	}
	account.PasswordHash = passwordHash
	f.accounts[id] = account
	return nil
}

func (f *fakeAccounts) List(_ context.Context, filter types.AccountFilter, offset, limit int) ([]types.Account, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []types.Account
	for _, account := range f.accounts {
		if filter.Role != "" && account.Role != filter.Role {
			continue
		}
		if filter.IsActive != nil && account.IsActive != *filter.IsActive {
			continue
		}
		account.PasswordHash = ""
		matched = append(matched, account)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return paginate(matched, offset, limit), len(matched), nil
}

func (f *fakeAccounts) ListInterviewers(_ context.Context) ([]types.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Account
	for _, account := range f.accounts {
		if account.IsActive && account.HasRole(types.RoleInterviewer, types.RoleAdmin) {
			out = append(out, account)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type fakeInterviews struct {
	mu           sync.Mutex
	interviews   map[string]types.Interview
	updates      int
	sweepQueries int
}

func newFakeInterviews(interviews ...types.Interview) *fakeInterviews {
	f := &fakeInterviews{interviews: make(map[string]types.Interview)}
	for _, interview := range interviews {
		f.interviews[interview.ID] = interview
	}
	return f
}

func (f *fakeInterviews) List(_ context.Context, filter types.InterviewFilter, offset, limit int) ([]types.Interview, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []types.Interview
	for _, interview := range f.interviews {
		if interview.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && interview.Status != filter.Status {
			continue
		}
		if filter.Type != "" && interview.Type != filter.Type {
			continue
		}
		matched = append(matched, interview)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Date.After(matched[j].Date) })
	return paginate(matched, offset, limit), len(matched), nil
}

func (f *fakeInterviews) ListUpcomingBefore(_ context.Context, t time.Time, after types.SweepCursor, limit int) ([]types.Interview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweepQueries++
	var out []types.Interview
	for _, interview := range f.interviews {
		if interview.Status == types.StatusUpcoming && interview.Date.Before(t) && afterCursor(interview, after) {
			out = append(out, interview)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func afterCursor(interview types.Interview, after types.SweepCursor) bool {
	if after.ID == "" {
		return true
	}
	if !interview.Date.Equal(after.Date) {
		return interview.Date.After(after.Date)
	}
	return interview.ID > after.ID
}

func (f *fakeInterviews) Get(_ context.Context, id string) (types.Interview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	interview, ok := f.interviews[id]
	if !ok {
		return types.Interview{}, store.ErrNotFound
	}
	return interview, nil
}

func (f *fakeInterviews) HasActiveAt(_ context.Context, userID string, date time.Time, clock string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, interview := range f.interviews {
		if interview.UserID == userID && interview.Date.Equal(date) && interview.Time == clock && interview.Status != types.StatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeInterviews) Create(_ context.Context, interview types.Interview) (types.Interview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	interview.CreatedAt = time.Now()
	interview.UpdatedAt = interview.CreatedAt
	f.interviews[interview.ID] = interview
	return interview, nil
}

func (f *fakeInterviews) Update(_ context.Context, interview types.Interview) (types.Interview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.interviews[interview.ID]; !ok {
		return types.Interview{}, store.ErrNotFound
	}
	interview.UpdatedAt = time.Now()
	f.interviews[interview.ID] = interview
	f.updates++
	return interview, nil
}

func (f *fakeInterviews) GroupStats(_ context.Context, userID, column string) ([]types.InterviewGroupStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	type acc struct {
		count  int
		scores []int
	}
	groups := map[string]*acc{}
	for _, interview := range f.interviews {
		if interview.UserID != userID {
			continue
		}
		key := string(interview.Status)
		if column == store.GroupByType {
			key = string(interview.Type)
		}
		g, ok := groups[key]
		if !ok {
			g = &acc{}
			groups[key] = g
		}
		g.count++
		if interview.Score != nil {
			g.scores = append(g.scores, *interview.Score)
		}
	}

	stats := []types.InterviewGroupStat{}
	for key, g := range groups {
		stat := types.InterviewGroupStat{Key: key, Count: g.count}
		if len(g.scores) > 0 {
			sum := 0
			for _, score := range g.scores {
				sum += score
			}
			avg := float64(sum) / float64(len(g.scores))
			stat.AverageScore = &avg
		}
		stats = append(stats, stat)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Key < stats[j].Key })
	return stats, nil
}

func (f *fakeInterviews) AccountStats(_ context.Context, userID string) (types.AccountStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var stats types.AccountStats
	sum, scored := 0, 0
	for _, interview := range f.interviews {
		if interview.UserID != userID {
			continue
		}
		stats.TotalInterviews++
		if interview.Status == types.StatusCompleted {
			stats.CompletedInterviews++
		}
		if interview.Score != nil {
			sum += *interview.Score
			scored++
		}
	}
	if scored > 0 {
		avg := float64(sum) / float64(scored)
		stats.AverageScore = &avg
	}
	return stats, nil
}

func (f *fakeInterviews) stored(id string) types.Interview {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.interviews[id]
}

type fakeResources struct {
	mu        sync.Mutex
	resources map[string]types.Resource
}

func newFakeResources(resources ...types.Resource) *fakeResources {
	f := &fakeResources{resources: make(map[string]types.Resource)}
	for _, resource := range resources {
		f.resources[resource.ID] = resource
	}
	return f
}

func (f *fakeResources) List(_ context.Context, filter types.ResourceFilter, offset, limit int) ([]types.Resource, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []types.Resource
	for _, resource := range f.resources {
		if !resource.IsActive {
			continue
		}
		if filter.Category != "" && resource.Category != filter.Category {
			continue
		}
		if filter.Type != "" && resource.Type != filter.Type {
			continue
		}
		if filter.Difficulty != "" && resource.Difficulty != filter.Difficulty {
			continue
		}
		if !filter.IncludePremium && resource.IsPremium {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(resource.Title+" "+resource.Content), strings.ToLower(filter.Search)) {
			continue
		}
		matched = append(matched, resource)
	}
	sort.Slice(matched, func(i, j int) bool {
		if filter.Ascending {
			return matched[i].Title < matched[j].Title
		}
		return matched[i].Title > matched[j].Title
	})
	return paginate(matched, offset, limit), len(matched), nil
}

func (f *fakeResources) ListQuestionBanks(_ context.Context, category string) ([]types.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Resource
	for _, resource := range f.resources {
		if !resource.IsActive || (category != "" && resource.Category != category) {
			continue
		}
		out = append(out, types.Resource{ID: resource.ID, Category: resource.Category, Questions: resource.Questions})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeResources) Get(_ context.Context, id string) (types.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	resource, ok := f.resources[id]
	if !ok {
		return types.Resource{}, store.ErrNotFound
	}
	return resource, nil
}

func (f *fakeResources) Create(_ context.Context, resource types.Resource) (types.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resources[resource.ID] = resource
	return resource, nil
}

func (f *fakeResources) Update(_ context.Context, resource types.Resource) (types.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.resources[resource.ID]
	if !ok {
		return types.Resource{}, store.ErrNotFound
	}
	resource.Views = existing.Views
	resource.Likes = existing.Likes
	resource.CreatedAt = existing.CreatedAt
	resource.CreatedBy = existing.CreatedBy
	f.resources[resource.ID] = resource
	return resource, nil
}

func (f *fakeResources) IncrementViews(_ context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	resource, ok := f.resources[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	resource.Views++
	f.resources[id] = resource
	return resource.Views, nil
}

func (f *fakeResources) IncrementLikes(_ context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	resource, ok := f.resources[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	resource.Likes++
	f.resources[id] = resource
	return resource.Likes, nil
}

func (f *fakeResources) Overview(_ context.Context) (types.ResourceOverview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	overview := types.ResourceOverview{CategoryStats: []types.CategoryStat{}}
	counts := map[string]int{}
	for _, resource := range f.resources {
		if !resource.IsActive {
			continue
		}
		overview.Total++
		overview.TotalViews += resource.Views
		overview.TotalLikes += resource.Likes
		counts[resource.Category]++
	}
	for category, count := range counts {
		overview.CategoryStats = append(overview.CategoryStats, types.CategoryStat{Category: category, Count: count})
	}
	sort.Slice(overview.CategoryStats, func(i, j int) bool {
		return overview.CategoryStats[i].Category < overview.CategoryStats[j].Category
	})
	return overview, nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

type publishedMessage struct {
	channel string
	data    []byte
	attrs   map[string]string
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
	err      error
	// stall makes Publish wait for its context to end.
	stall bool
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if f.stall {
		<-ctx.Done()
		return "", ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.messages = append(f.messages, publishedMessage{channel: channel, data: data, attrs: attrs})
	return "msg", nil
}

func (f *fakePublisher) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	kinds := make([]string, 0, len(f.messages))
	for _, msg := range f.messages {
		kinds = append(kinds, msg.attrs["kind"])
	}
	return kinds
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (f *fakeObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeLocker struct {
	err      error
	acquired []string
	released int
}

func (f *fakeLocker) Acquire(_ context.Context, key string) (func(), error) {
	if f.err != nil {
		return nil, f.err
	}
	f.acquired = append(f.acquired, key)
	return func() { f.released++ }, nil
}

var errBoom = errors.New("boom")
