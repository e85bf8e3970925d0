package reporting

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
)

// Bundler loads the statistics of one farm over an inclusive date range.
type Bundler interface {
	Bundle(ctx context.Context, farmID uuid.UUID, start, end models.Date) (models.AnalyticsBundle, error)
}

// Reductions totals bird reductions per reason.
type Reductions interface {
	ReductionsBetween(ctx context.Context, farmID uuid.UUID, start, end models.Date) (map[models.ReductionReason]int, error)
}

// Service builds the short weekly digest sent to the farm manager over WhatsApp.
type Service struct {
	bundler    Bundler
	reductions Reductions
	logger     *zap.Logger
}

func NewService(bundler Bundler, reductions Reductions, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{bundler: bundler, reductions: reductions, logger: logger}
}

// WeeklyDigest covers the seven days ending on end and compares them with the
// seven days before.
func (s *Service) WeeklyDigest(ctx context.Context, farmID uuid.UUID, end models.Date) (string, error) {
	start := end.AddDays(-6)
	current, err := s.bundler.Bundle(ctx, farmID, start, end)
	if err != nil {
		return "", fmt.Errorf("load week: %w", err)
	}
	previous, err := s.bundler.Bundle(ctx, farmID, start.AddDays(-7), start.AddDays(-1))
	if err != nil {
		return "", fmt.Errorf("load previous week: %w", err)
	}
	reduced, err := s.reductions.ReductionsBetween(ctx, farmID, start, end)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*%s weekly digest*\n", current.Farm)
	fmt.Fprintf(&b, "%s to %s\n", start, end)
	fmt.Fprintf(&b, "Milk: %s L (%s), %d cows milked\n",
		current.Milk.TotalProduction.StringFixed(2),
		change(current.Milk.TotalProduction, previous.Milk.TotalProduction),
		current.Milk.CowsMilked)
	fmt.Fprintf(&b, "Eggs: %d collected (%s), breakage %.2f%%\n",
		current.Eggs.TotalCollected,
		change(decimal.NewFromInt(int64(current.Eggs.TotalCollected)), decimal.NewFromInt(int64(previous.Eggs.TotalCollected))),
		current.Eggs.BreakageRate)
	fmt.Fprintf(&b, "Feed: %s kg\n", current.Feed.TotalFeedKg.Add(current.Feed.ChickenFeedKg).StringFixed(2))
	fmt.Fprintf(&b, "Income %s, expenses %s, net %s (%s)\n",
		current.Financial.TotalIncome.StringFixed(2),
		current.Financial.TotalExpenses.StringFixed(2),
		current.Financial.NetProfit.StringFixed(2),
		change(current.Financial.NetProfit, previous.Financial.NetProfit))
	b.WriteString(reductionLine(reduced))

	s.logger.Debug("weekly digest built", zap.String("farm_id", farmID.String()), zap.String("end", end.String()))
	return b.String(), nil
}

func reductionLine(reduced map[models.ReductionReason]int) string {
	if len(reduced) == 0 {
		return "Birds: no reductions"
	}
	reasons := make([]string, 0, len(reduced))
	for reason := range reduced {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)
	parts := make([]string, 0, len(reasons))
	for _, reason := range reasons {
		parts = append(parts, fmt.Sprintf("%d %s", reduced[models.ReductionReason(reason)], reason))
	}
	return "Birds: " + strings.Join(parts, ", ")
}

// change renders the week-over-week difference as a signed percentage.
func change(current, previous decimal.Decimal) string {
	if previous.IsZero() {
		if current.IsZero() {
			return "no change"
		}
		return "new"
	}
	pct := current.Sub(previous).Div(previous.Abs()).Mul(decimal.NewFromInt(100)).Round(1)
	if pct.IsPositive() {
		return "+" + pct.StringFixed(1) + "%"
	}
	return pct.StringFixed(1) + "%"
}
