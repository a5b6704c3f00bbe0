// Package service provides business logic for subscription management and review.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/subscriptions/repository"
)

// ErrInvalidSubscription wraps validation failures on create and update
var ErrInvalidSubscription = errors.New("invalid subscription")

const (
	// duplicateThreshold is the minimum name similarity (0-100) for two
	// subscriptions to be flagged as duplicates
	duplicateThreshold = 85

	// newWindowDays is how long a subscription counts as newly added
	newWindowDays = 30

	// unusedWindowDays is the usage lookback for the unused review reason
	unusedWindowDays = 60

	// highCostMonthly is the monthly-equivalent price above which a
	// subscription is flagged for review
	highCostMonthly = 50.0
)

// ReviewReason represents why a subscription should be reviewed
type ReviewReason string

const (
	ReviewReasonDuplicate ReviewReason = "duplicate"
	ReviewReasonNew       ReviewReason = "new"
	ReviewReasonUnused    ReviewReason = "unused"
	ReviewReasonHighCost  ReviewReason = "high_cost"
)

// ReviewItem represents a subscription that needs review
type ReviewItem struct {
	Subscription      *repository.Subscription `json:"subscription"`
	Reason            ReviewReason             `json:"reason"`
	Message           string                   `json:"message"`
	RecommendedCancel bool                     `json:"recommended_cancel"`
}

// ReviewChecklist is the full review result for a user
type ReviewChecklist struct {
	Items            []*ReviewItem `json:"items"`
	PotentialSavings float64       `json:"potential_savings"`
}

// DuplicateGroup is a set of subscriptions with near-identical names
type DuplicateGroup struct {
	Subscriptions []*repository.Subscription `json:"subscriptions"`
}

// Service provides subscription management business logic
type Service struct {
	repo   repository.SubscriptionRepository
	search *SearchIndex
	logger *slog.Logger

	// tracks users whose subscriptions have been loaded into the search index
	warmed sync.Map
}

// NewService creates a new subscriptions service
func NewService(repo repository.SubscriptionRepository, search *SearchIndex, logger *slog.Logger) *Service {
	return &Service{repo: repo, search: search, logger: logger}
}

// CreateSubscription validates, defaults, and persists a new subscription
func (s *Service) CreateSubscription(ctx context.Context, sub *repository.Subscription) (*repository.Subscription, error) {
	sub.Name = strings.TrimSpace(sub.Name)
	if sub.CycleUnit == "" {
		sub.CycleUnit = repository.CycleMonthly
	}
	if sub.CycleInterval == 0 {
		sub.CycleInterval = 1
	}
	if sub.Status == "" {
		sub.Status = repository.StatusActive
	}
	if sub.StartDate.IsZero() {
		sub.StartDate = time.Now()
	}

	if err := validateSubscription(sub); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, err
	}
	s.indexSubscription(sub)
	return sub, nil
}

// GetSubscription retrieves a subscription owned by the given user
func (s *Service) GetSubscription(ctx context.Context, userID, id uuid.UUID) (*repository.Subscription, error) {
	return s.repo.GetByID(ctx, userID, id)
}

// ListSubscriptions retrieves a user's subscriptions, optionally filtered by status
func (s *Service) ListSubscriptions(ctx context.Context, userID uuid.UUID, statusFilter *repository.Status) ([]*repository.Subscription, error) {
	return s.repo.ListByUserID(ctx, userID, statusFilter)
}

// UpdateSubscription validates and persists changes to an existing subscription
func (s *Service) UpdateSubscription(ctx context.Context, sub *repository.Subscription) (*repository.Subscription, error) {
	sub.Name = strings.TrimSpace(sub.Name)
	if err := validateSubscription(sub); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, err
	}
	s.indexSubscription(sub)
	return sub, nil
}

// DeleteSubscription removes a subscription
func (s *Service) DeleteSubscription(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	if err := s.search.DeleteSubscription(id); err != nil {
		s.logger.Warn("failed to remove subscription from search index",
			slog.String("subscription_id", id.String()),
			slog.Any("error", err))
	}
	return nil
}

// UpdateStatus updates the status of a subscription and returns the fresh row
func (s *Service) UpdateStatus(ctx context.Context, userID, id uuid.UUID, status repository.Status) (*repository.Subscription, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidSubscription, status)
	}
	if err := s.repo.UpdateStatus(ctx, userID, id, status); err != nil {
		return nil, err
	}
	sub, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	s.indexSubscription(sub)
	return sub, nil
}

// RecordUsage records one use of a subscription. A zero occurredAt means now.
func (s *Service) RecordUsage(ctx context.Context, userID, subscriptionID uuid.UUID, occurredAt time.Time) (*repository.UsageEvent, error) {
	// Verify the subscription exists and belongs to the user
	if _, err := s.repo.GetByID(ctx, userID, subscriptionID); err != nil {
		return nil, err
	}

	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	event := &repository.UsageEvent{
		UserID:         userID,
		SubscriptionID: subscriptionID,
		OccurredAt:     occurredAt,
	}
	if err := s.repo.RecordUsage(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// UsageCounts returns per-subscription usage counts over the trailing window
func (s *Service) UsageCounts(ctx context.Context, userID uuid.UUID, days int) (map[uuid.UUID]int, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)
	return s.repo.UsageCounts(ctx, userID, since)
}

// TotalMonthlyCost sums the monthly-equivalent cost of active subscriptions
func (s *Service) TotalMonthlyCost(ctx context.Context, userID uuid.UUID) (float64, int, error) {
	status := repository.StatusActive
	subs, err := s.repo.ListByUserID(ctx, userID, &status)
	if err != nil {
		return 0, 0, err
	}

	var total float64
	for _, sub := range subs {
		total += monthlyCost(sub)
	}
	return round2(total), len(subs), nil
}

// FindDuplicates groups a user's non-cancelled subscriptions by name similarity
func (s *Service) FindDuplicates(ctx context.Context, userID uuid.UUID) ([]*DuplicateGroup, error) {
	subs, err := s.repo.ListByUserID(ctx, userID, nil)
	if err != nil {
		return nil, err
	}

	var candidates []*repository.Subscription
	for _, sub := range subs {
		if sub.Status != repository.StatusCancelled {
			candidates = append(candidates, sub)
		}
	}
	return groupDuplicates(candidates), nil
}

// GetReviewChecklist returns subscriptions that should be reviewed, with the
// monthly savings available if every recommended cancellation is taken
func (s *Service) GetReviewChecklist(ctx context.Context, userID uuid.UUID) (*ReviewChecklist, error) {
	subs, err := s.repo.ListByUserID(ctx, userID, nil)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	// Usage counts are advisory; review still works when tracking is off
	usage, err := s.repo.UsageCounts(ctx, userID, now.AddDate(0, 0, -unusedWindowDays))
	if err != nil {
		s.logger.Warn("failed to load usage counts for review",
			slog.String("user_id", userID.String()),
			slog.Any("error", err))
		usage = nil
	}

	var active []*repository.Subscription
	for _, sub := range subs {
		if sub.Status != repository.StatusCancelled {
			active = append(active, sub)
		}
	}

	// Duplicate members flagged for cancellation: everything in a group
	// except its cheapest subscription
	duplicateOf := make(map[uuid.UUID]*repository.Subscription)
	cancelDuplicate := make(map[uuid.UUID]bool)
	for _, group := range groupDuplicates(active) {
		members := make([]*repository.Subscription, len(group.Subscriptions))
		copy(members, group.Subscriptions)
		sort.SliceStable(members, func(i, j int) bool {
			return monthlyCost(members[i]) < monthlyCost(members[j])
		})
		keep := members[0]
		for _, member := range members {
			if member.ID == keep.ID {
				duplicateOf[member.ID] = members[1]
				continue
			}
			duplicateOf[member.ID] = keep
			cancelDuplicate[member.ID] = true
		}
	}

	checklist := &ReviewChecklist{Items: make([]*ReviewItem, 0)}
	for _, sub := range active {
		item := evaluateForReview(sub, now, usage, duplicateOf, cancelDuplicate)
		if item == nil {
			continue
		}
		checklist.Items = append(checklist.Items, item)
		if item.RecommendedCancel {
			checklist.PotentialSavings += monthlyCost(sub)
		}
	}
	checklist.PotentialSavings = round2(checklist.PotentialSavings)
	return checklist, nil
}

// SearchSubscriptions runs a fuzzy name search scoped to the user. The
// user's rows are loaded into the in-memory index on first call.
func (s *Service) SearchSubscriptions(ctx context.Context, userID uuid.UUID, query string, limit int) ([]SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return []SearchHit{}, nil
	}

	if _, ok := s.warmed.Load(userID); !ok {
		if err := s.reindexUser(ctx, userID); err != nil {
			return nil, err
		}
		s.warmed.Store(userID, struct{}{})
	}

	return s.search.Search(userID, query, limit)
}

// reindexUser loads all of a user's subscriptions into the search index
func (s *Service) reindexUser(ctx context.Context, userID uuid.UUID) error {
	subs, err := s.repo.ListByUserID(ctx, userID, nil)
	if err != nil {
		return fmt.Errorf("failed to load subscriptions for indexing: %w", err)
	}
	if err := s.search.IndexBatch(subs); err != nil {
		return err
	}
	return nil
}

// indexSubscription keeps the search index current after a write
func (s *Service) indexSubscription(sub *repository.Subscription) {
	if err := s.search.IndexSubscription(sub); err != nil {
		s.logger.Warn("failed to index subscription for search",
			slog.String("subscription_id", sub.ID.String()),
			slog.Any("error", err))
	}
}

// evaluateForReview checks a subscription against the review reasons in
// priority order and returns at most one item
func evaluateForReview(sub *repository.Subscription, now time.Time, usage map[uuid.UUID]int, duplicateOf map[uuid.UUID]*repository.Subscription, cancelDuplicate map[uuid.UUID]bool) *ReviewItem {
	if other, ok := duplicateOf[sub.ID]; ok {
		return &ReviewItem{
			Subscription:      sub,
			Reason:            ReviewReasonDuplicate,
			Message:           fmt.Sprintf("Looks like a duplicate of %s. Check for overlapping plans.", other.Name),
			RecommendedCancel: cancelDuplicate[sub.ID],
		}
	}

	if sub.CreatedAt.After(now.AddDate(0, 0, -newWindowDays)) {
		return &ReviewItem{
			Subscription:      sub,
			Reason:            ReviewReasonNew,
			Message:           "New subscription detected. Confirm this is expected.",
			RecommendedCancel: false,
		}
	}

	// Unused only fires when the user records usage at all
	if len(usage) > 0 && sub.Status == repository.StatusActive && usage[sub.ID] == 0 {
		return &ReviewItem{
			Subscription:      sub,
			Reason:            ReviewReasonUnused,
			Message:           fmt.Sprintf("No usage recorded in %d days. May no longer be needed.", unusedWindowDays),
			RecommendedCancel: true,
		}
	}

	if cost := monthlyCost(sub); cost > highCostMonthly {
		return &ReviewItem{
			Subscription:      sub,
			Reason:            ReviewReasonHighCost,
			Message:           fmt.Sprintf("Costs %.2f per month. Worth reviewing.", cost),
			RecommendedCancel: false,
		}
	}

	return nil
}

// groupDuplicates clusters subscriptions whose normalized names score at or
// above the duplicate threshold. Only groups with more than one member are
// returned.
func groupDuplicates(subs []*repository.Subscription) []*DuplicateGroup {
	var groups []*DuplicateGroup
	assigned := make(map[int]bool)

	for i, sub := range subs {
		if assigned[i] {
			continue
		}

		group := &DuplicateGroup{Subscriptions: []*repository.Subscription{sub}}
		assigned[i] = true

		for j := i + 1; j < len(subs); j++ {
			if assigned[j] {
				continue
			}
			score := nameSimilarity(normalizeName(sub.Name), normalizeName(subs[j].Name))
			if score >= duplicateThreshold {
				group.Subscriptions = append(group.Subscriptions, subs[j])
				assigned[j] = true
			}
		}

		if len(group.Subscriptions) > 1 {
			groups = append(groups, group)
		}
	}
	return groups
}

// nameSimilarity scores two normalized names from 0 to 100 using containment
// checks and Levenshtein distance
func nameSimilarity(a, b string) int {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}

	// Containment covers plan variants like "NETFLIX" vs "NETFLIX PREMIUM"
	if strings.Contains(a, b) {
		return 75 + 25*len(b)/len(a)
	}
	if strings.Contains(b, a) {
		return 75 + 25*len(a)/len(b)
	}

	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	distance := fuzzy.LevenshteinDistance(a, b)
	return 100 * (maxLen - distance) / maxLen
}

// normalizeName uppercases and collapses whitespace for name comparison
func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToUpper(name)), " ")
}

// monthlyCost converts a subscription's price to its monthly equivalent
func monthlyCost(sub *repository.Subscription) float64 {
	interval := float64(sub.CycleInterval)
	switch sub.CycleUnit {
	case repository.CycleDaily:
		return sub.Price * interval * 30
	case repository.CycleWeekly:
		return sub.Price * (30.0 / 7.0) * interval
	case repository.CycleMonthly:
		return sub.Price * interval
	case repository.CycleYearly:
		return sub.Price / 12 * interval
	default:
		return sub.Price
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func validateSubscription(sub *repository.Subscription) error {
	if sub.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSubscription)
	}
	if sub.Price < 0 {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidSubscription)
	}
	if sub.CycleInterval < 1 {
		return fmt.Errorf("%w: cycle interval must be at least 1", ErrInvalidSubscription)
	}
	if !sub.CycleUnit.Valid() {
		return fmt.Errorf("%w: unknown cycle unit %q", ErrInvalidSubscription, sub.CycleUnit)
	}
	if !sub.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidSubscription, sub.Status)
	}
	return nil
}

// IsNotFound reports whether an error from this service means the
// subscription does not exist for the user
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
