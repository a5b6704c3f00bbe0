// Package seed writes coherent demo data for development accounts: a
// set of subscriptions, their payment history, and recent usage events.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	importrepo "github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/import/repository"
	subsrepo "github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/subscriptions/repository"
)

const paymentSource = "seed"

// usageWindowDays matches the analytics value-score window so seeded
// usage is visible there.
const usageWindowDays = 30

type catalogEntry struct {
	name     string
	price    float64
	unit     subsrepo.CycleUnit
	interval int
	used     bool
}

// catalog is the pool of services a demo account subscribes to. used
// controls whether usage events are generated, so some services score
// well and others look abandoned.
var catalog = []catalogEntry{
	{"Netflix", 15.99, subsrepo.CycleMonthly, 1, true},
	{"Spotify", 9.99, subsrepo.CycleMonthly, 1, true},
	{"iCloud Storage", 2.99, subsrepo.CycleMonthly, 1, true},
	{"Notion", 8.00, subsrepo.CycleMonthly, 1, true},
	{"Adobe Creative Cloud", 54.99, subsrepo.CycleMonthly, 1, false},
	{"Crunch Gym", 39.90, subsrepo.CycleMonthly, 1, false},
	{"Amazon Prime", 139.00, subsrepo.CycleYearly, 1, true},
	{"Disney+", 13.99, subsrepo.CycleMonthly, 1, false},
	{"YouTube Premium", 13.99, subsrepo.CycleMonthly, 1, true},
	{"NY Times", 17.00, subsrepo.CycleMonthly, 1, false},
	{"Dropbox", 11.99, subsrepo.CycleMonthly, 1, false},
	{"Audible", 14.95, subsrepo.CycleMonthly, 1, true},
}

// Result reports what one seeding run wrote.
type Result struct {
	Subscriptions int `json:"subscriptions"`
	Payments      int `json:"payments"`
	UsageEvents   int `json:"usage_events"`
}

// Seeder generates demo fixtures using gofakeit.
type Seeder struct {
	faker         *gofakeit.Faker
	subscriptions subsrepo.SubscriptionRepository
	payments      importrepo.ImportRepository
	logger        *slog.Logger
}

// New creates a Seeder with a random seed.
func New(subscriptions subsrepo.SubscriptionRepository, payments importrepo.ImportRepository, logger *slog.Logger) *Seeder {
	return NewWithSeed(subscriptions, payments, logger, 0)
}

// NewWithSeed pins the generator for reproducible fixtures.
func NewWithSeed(subscriptions subsrepo.SubscriptionRepository, payments importrepo.ImportRepository, logger *slog.Logger, seed int64) *Seeder {
	return &Seeder{
		faker:         gofakeit.New(seed),
		subscriptions: subscriptions,
		payments:      payments,
		logger:        logger,
	}
}

// SeedUser writes roughly months of history for one user: 6-9
// subscriptions, per-cycle payments (with one deliberate price spike
// two months back, so anomaly detection has something to find), one
// cancelled service, and usage events for the services marked as used.
func (s *Seeder) SeedUser(ctx context.Context, userID uuid.UUID, months int) (*Result, error) {
	if months <= 0 {
		months = 12
	}

	now := time.Now().UTC()
	picks := s.pickServices(s.faker.Number(6, 9))
	result := &Result{}

	var pending []*importrepo.Payment
	spiked := false

	for i, entry := range picks {
		sub := &subsrepo.Subscription{
			ID:            uuid.New(),
			UserID:        userID,
			Name:          entry.name,
			Price:         entry.price,
			CycleUnit:     entry.unit,
			CycleInterval: entry.interval,
			Status:        subsrepo.StatusActive,
			StartDate:     now.AddDate(0, -(months + s.faker.Number(0, 6)), -s.faker.Number(0, 20)),
		}

		// The last pick is a cancelled service whose payments dried up.
		cancelled := i == len(picks)-1
		paidUntil := now
		if cancelled {
			sub.Status = subsrepo.StatusCancelled
			paidUntil = now.AddDate(0, -2, 0)
		}

		if err := s.subscriptions.Create(ctx, sub); err != nil {
			return nil, fmt.Errorf("failed to seed subscription %q: %w", entry.name, err)
		}
		result.Subscriptions++

		cutoff := now.AddDate(0, -(months + 1), 0)
		for date := sub.StartDate; !date.After(paidUntil); date = nextCycle(date, entry.unit, entry.interval) {
			if date.Before(cutoff) {
				continue
			}

			amount := entry.price
			if !spiked && !cancelled && entry.unit == subsrepo.CycleMonthly && withinMonth(date, now.AddDate(0, -2, 0)) {
				amount = round2(amount * 2.2)
				spiked = true
			}

			pending = append(pending, &importrepo.Payment{
				UserID:         userID,
				SubscriptionID: sub.ID,
				Amount:         amount,
				PaidAt:         date,
				Status:         importrepo.StatusPaid,
				Source:         paymentSource,
			})
		}

		if entry.used && !cancelled {
			n := s.faker.Number(3, 18)
			for j := 0; j < n; j++ {
				event := &subsrepo.UsageEvent{
					ID:             uuid.New(),
					UserID:         userID,
					SubscriptionID: sub.ID,
					OccurredAt:     s.faker.DateRange(now.AddDate(0, 0, -usageWindowDays), now),
				}
				if err := s.subscriptions.RecordUsage(ctx, event); err != nil {
					return nil, fmt.Errorf("failed to seed usage for %q: %w", entry.name, err)
				}
				result.UsageEvents++
			}
		}
	}

	stats, err := s.payments.InsertPayments(ctx, pending)
	if err != nil {
		return nil, fmt.Errorf("failed to seed payments: %w", err)
	}
	result.Payments = stats.Inserted

	s.logger.Info("demo data seeded",
		slog.String("user_id", userID.String()),
		slog.Int("subscriptions", result.Subscriptions),
		slog.Int("payments", result.Payments),
		slog.Int("usage_events", result.UsageEvents),
	)
	return result, nil
}

// pickServices returns count distinct catalog entries in random order.
func (s *Seeder) pickServices(count int) []catalogEntry {
	if count > len(catalog) {
		count = len(catalog)
	}

	indexes := make([]int, len(catalog))
	for i := range indexes {
		indexes[i] = i
	}
	s.faker.ShuffleInts(indexes)

	picks := make([]catalogEntry, count)
	for i := 0; i < count; i++ {
		picks[i] = catalog[indexes[i]]
	}
	return picks
}

func nextCycle(date time.Time, unit subsrepo.CycleUnit, interval int) time.Time {
	if interval <= 0 {
		interval = 1
	}
	switch unit {
	case subsrepo.CycleDaily:
		return date.AddDate(0, 0, interval)
	case subsrepo.CycleWeekly:
		return date.AddDate(0, 0, 7*interval)
	case subsrepo.CycleYearly:
		return date.AddDate(interval, 0, 0)
	default:
		return date.AddDate(0, interval, 0)
	}
}

func withinMonth(date, reference time.Time) bool {
	return date.Year() == reference.Year() && date.Month() == reference.Month()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
