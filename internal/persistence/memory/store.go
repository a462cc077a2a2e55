// Package memory keeps users, activities, streaks and badges in process
// memory for local development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"example.com/dashboard/internal/dashboard"
	"example.com/dashboard/internal/domain"
	"example.com/dashboard/internal/streaks"
)

// Store implements domain.ActivityRepository, dashboard.Store and streaks.Store.
type Store struct {
	mu          sync.RWMutex
	users       map[string]dashboard.FitnessProfile
	activities  map[string][]domain.ActivityRecord
	idempotency map[string]string
	streaks     map[string]streaks.State
	seen        map[string]map[string]struct{}
	badges      map[string]map[string]time.Time
	onCreate    func(domain.ActivityRecord)
}

// Option configures a Store.
type Option func(*Store)

// WithCreateHook registers fn to run after each new activity is stored.
func WithCreateHook(fn func(domain.ActivityRecord)) Option {
	return func(s *Store) { s.onCreate = fn }
}

// NewStore constructs an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		users:       make(map[string]dashboard.FitnessProfile),
		activities:  make(map[string][]domain.ActivityRecord),
		idempotency: make(map[string]string),
		streaks:     make(map[string]streaks.State),
		seen:        make(map[string]map[string]struct{}),
		badges:      make(map[string]map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PutUser creates or replaces a user profile.
func (s *Store) PutUser(userID string, weeklyGoal *int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = dashboard.FitnessProfile{WeeklyGoalWorkouts: weeklyGoal}
}

// PutStreak overwrites a user's streak counters.
func (s *Store) PutStreak(userID string, state streaks.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaks[userID] = state
}

// AwardBadge grants a badge if the user does not hold it yet.
func (s *Store) AwardBadge(userID, code string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.awardLocked(userID, code, at)
}

func (s *Store) awardLocked(userID, code string, at time.Time) {
	held, ok := s.badges[userID]
	if !ok {
		held = make(map[string]time.Time)
		s.badges[userID] = held
	}
	if _, exists := held[code]; !exists {
		held[code] = at
	}
}

// Badges returns the badge codes a user holds, sorted.
func (s *Store) Badges(userID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.badges[userID]))
	for code := range s.badges[userID] {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// FindByIdempotency implements domain.ActivityRepository.
func (s *Store) FindByIdempotency(ctx context.Context, userID, idempotencyKey string) (*domain.ActivityRecord, error) {
	if idempotencyKey == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.idempotency[userID+"|"+idempotencyKey]
	if !ok {
		return nil, nil
	}
	return s.findLocked(userID, id), nil
}

// Create implements domain.ActivityRepository.
func (s *Store) Create(ctx context.Context, record domain.ActivityRecord, idempotencyKey string) error {
	s.mu.Lock()
	if _, ok := s.users[record.UserID]; !ok {
		s.mu.Unlock()
		return domain.ErrUserNotFound
	}
	key := record.UserID + "|" + idempotencyKey
	if idempotencyKey != "" {
		if _, taken := s.idempotency[key]; taken {
			s.mu.Unlock()
			return domain.ErrDuplicateIdempotencyKey
		}
		s.idempotency[key] = record.ID
	}
	s.activities[record.UserID] = append(s.activities[record.UserID], record)
	hook := s.onCreate
	s.mu.Unlock()

	if hook != nil {
		hook(record)
	}
	return nil
}

// Get implements domain.ActivityRepository.
func (s *Store) Get(ctx context.Context, userID, activityID string) (*domain.ActivityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(userID, activityID), nil
}

func (s *Store) findLocked(userID, activityID string) *domain.ActivityRecord {
	for _, record := range s.activities[userID] {
		if record.ID == activityID {
			r := record
			return &r
		}
	}
	return nil
}

// ListByUser implements domain.ActivityRepository.
func (s *Store) ListByUser(ctx context.Context, userID string, cursor *domain.Cursor, limit int) ([]domain.ActivityRecord, *domain.Cursor, error) {
	if limit <= 0 {
		limit = 20
	}
	sorted := s.sortedDesc(userID)
	out := make([]domain.ActivityRecord, 0, limit)
	for _, record := range sorted {
		if cursor != nil && !olderThan(record, *cursor) {
			continue
		}
		out = append(out, record)
		if len(out) == limit {
			break
		}
	}
	var next *domain.Cursor
	if len(out) == limit {
		last := out[len(out)-1]
		next = &domain.Cursor{Date: last.Date, ID: last.ID}
	}
	return out, next, nil
}

// olderThan reports whether record sorts after the cursor in (date, id) descending order.
func olderThan(record domain.ActivityRecord, c domain.Cursor) bool {
	if record.Date.Equal(c.Date) {
		return record.ID < c.ID
	}
	return record.Date.Before(c.Date)
}

func (s *Store) sortedDesc(userID string) []domain.ActivityRecord {
	s.mu.RLock()
	out := make([]domain.ActivityRecord, len(s.activities[userID]))
	copy(out, s.activities[userID])
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID > out[j].ID
		}
		return out[i].Date.After(out[j].Date)
	})
	return out
}

// GetUserProfile implements dashboard.Store.
func (s *Store) GetUserProfile(ctx context.Context, userID string) (dashboard.FitnessProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.users[userID]
	if !ok {
		return dashboard.FitnessProfile{}, domain.ErrUserNotFound
	}
	return profile, nil
}

// AggregateActivityTotals implements dashboard.Store.
func (s *Store) AggregateActivityTotals(ctx context.Context, userID string, from, to time.Time) (dashboard.ActivityTotals, error) {
	records, err := s.ListActivities(ctx, userID, from, to)
	if err != nil {
		return dashboard.ActivityTotals{}, err
	}
	var totals dashboard.ActivityTotals
	for _, record := range records {
		totals.Count++
		totals.SumDuration += record.DurationMin
		totals.SumCalories += record.Calories
	}
	return totals, nil
}

// ListActivities implements dashboard.Store. Both bounds are inclusive.
func (s *Store) ListActivities(ctx context.Context, userID string, from, to time.Time) ([]domain.ActivityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ActivityRecord, 0)
	for _, record := range s.activities[userID] {
		if record.Date.Before(from) || record.Date.After(to) {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

// GetStreak implements dashboard.Store.
func (s *Store) GetStreak(ctx context.Context, userID string) (*dashboard.StreakRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.streaks[userID]
	if !ok {
		return nil, nil
	}
	return &dashboard.StreakRecord{Current: state.Current, Best: state.Best, LastActivityDate: state.LastActivityDate}, nil
}

// CountBadges implements dashboard.Store.
func (s *Store) CountBadges(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.badges[userID]), nil
}

// ListRecentActivities implements dashboard.Store.
func (s *Store) ListRecentActivities(ctx context.Context, userID string, limit int) ([]domain.ActivityRecord, error) {
	sorted := s.sortedDesc(userID)
	if limit >= 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

// Record implements streaks.Store.
func (s *Store) Record(ctx context.Context, evt streaks.Event, fn func(prev *streaks.State) streaks.Transition) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen, ok := s.seen[evt.UserID]
	if !ok {
		seen = make(map[string]struct{})
		s.seen[evt.UserID] = seen
	}
	if _, dup := seen[evt.ActivityID]; dup {
		return false, nil
	}
	seen[evt.ActivityID] = struct{}{}

	var prev *streaks.State
	if state, exists := s.streaks[evt.UserID]; exists {
		prev = &state
	}
	transition := fn(prev)
	s.streaks[evt.UserID] = transition.Next

	now := time.Now().UTC()
	for _, code := range transition.Badges {
		s.awardLocked(evt.UserID, code, now)
	}
	return true, nil
}
