package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
)

// ErrInvalidArguments indicates the command payload could not be parsed.
var ErrInvalidArguments = errors.New("invalid command arguments")

// ErrUnsupportedCommand indicates the text matched no command.
var ErrUnsupportedCommand = errors.New("unsupported command")

// ArgumentError names the command whose arguments were malformed.
type ArgumentError struct {
	Command models.CommandType
	Usage   string
	Reason  string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: %s (usage: %s)", e.Command, e.Reason, e.Usage)
}

func (e *ArgumentError) Unwrap() error { return ErrInvalidArguments }

type Livestock interface {
	FindCowByTag(ctx context.Context, farmID uuid.UUID, tag string) (*models.Cow, error)
	FindBatchByName(ctx context.Context, farmID uuid.UUID, name string) (*models.ChickenBatch, error)
	GetBatch(ctx context.Context, id uuid.UUID) (*models.ChickenBatch, error)
	ReduceBatch(ctx context.Context, batchID uuid.UUID, in models.ReductionInput) (*models.ChickenReduction, error)
}

type Production interface {
	CreateMilk(ctx context.Context, in models.MilkProductionInput) (*models.MilkProduction, error)
	CreateMilkSale(ctx context.Context, in models.MilkSaleInput) (*models.MilkSale, error)
	CreateEggs(ctx context.Context, in models.EggProductionInput) (*models.EggProduction, error)
}

type Ledger interface {
	Create(ctx context.Context, in models.TransactionInput) (*models.Transaction, error)
}

// Analytics supplies the week-to-date figures appended to every confirmation.
type Analytics interface {
	MilkProductionStats(ctx context.Context, farmID uuid.UUID, start, end models.Date) (models.MilkStats, error)
	EggProductionStats(ctx context.Context, farmID uuid.UUID, start, end models.Date) (models.EggStats, error)
	FinancialSummary(ctx context.Context, farmID uuid.UUID, start, end models.Date) (models.FinancialStats, error)
}

// Translator maps free text onto the command grammar.
type Translator interface {
	TranslateToCommand(ctx context.Context, input string) (string, error)
}

// Service executes worker commands against the configured farm.
type Service struct {
	farmID     uuid.UUID
	livestock  Livestock
	production Production
	ledger     Ledger
	analytics  Analytics
	translator Translator
	logger     *zap.Logger
	now        func() time.Time
}

func NewService(farmID uuid.UUID, livestock Livestock, production Production, ledger Ledger, analytics Analytics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		farmID:     farmID,
		livestock:  livestock,
		production: production,
		ledger:     ledger,
		analytics:  analytics,
		logger:     logger,
		now:        time.Now,
	}
}

// SetTranslator installs the fallback used for text that matches no command.
func (s *Service) SetTranslator(t Translator) {
	s.translator = t
}

// Handle parses the text, falling back to the translator for unknown input, and runs it.
func (s *Service) Handle(ctx context.Context, text, sender string) (models.AutomationReply, error) {
	cmd := models.ParseCommand(text)
	if cmd.Type == models.CommandUnknown && s.translator != nil && strings.TrimSpace(text) != "" {
		translated, err := s.translator.TranslateToCommand(ctx, text)
		if err != nil {
			s.logger.Debug("translation failed", zap.String("sender", sender), zap.Error(err))
		} else {
			s.logger.Info("message translated", zap.String("sender", sender), zap.String("command", translated))
			cmd = models.ParseCommand(translated)
			cmd.Raw = text
		}
	}
	return s.HandleCommand(ctx, cmd, sender)
}

// HandleCommand runs a parsed command and builds the reply sent back to the worker.
func (s *Service) HandleCommand(ctx context.Context, cmd models.Command, sender string) (models.AutomationReply, error) {
	if s.farmID == uuid.Nil {
		return models.AutomationReply{}, errors.New("no default farm configured for messaging")
	}
	now := s.now()
	today := models.Today(now)
	week := weekStart(today)

	s.logger.Debug("dispatching command", zap.String("command", string(cmd.Type)), zap.String("sender", sender), zap.Strings("args", cmd.Args))

	switch cmd.Type {
	case models.CommandMilk:
		return s.milk(ctx, cmd, sender, today, week)
	case models.CommandEggs:
		return s.eggs(ctx, cmd, today, week)
	case models.CommandMortality:
		return s.mortality(ctx, cmd, today)
	case models.CommandSale:
		return s.sale(ctx, cmd, today, week)
	case models.CommandExpense:
		return s.expense(ctx, cmd, sender, today, week)
	case models.CommandSummary:
		return s.summary(ctx, today, week), nil
	case models.CommandHelp:
		return models.AutomationReply{Title: "Commands", Message: strings.Join(models.CommandUsage, "\n")}, nil
	default:
		return models.AutomationReply{}, ErrUnsupportedCommand
	}
}

func (s *Service) milk(ctx context.Context, cmd models.Command, sender string, today, week models.Date) (models.AutomationReply, error) {
	const usage = "milk <tag> <morning|afternoon|evening> <liters>"
	if len(cmd.Args) < 3 {
		return models.AutomationReply{}, &ArgumentError{Command: cmd.Type, Usage: usage, Reason: "expected tag, session and liters"}
	}
	session, ok := parseSession(cmd.Args[1])
	if !ok {
		return models.AutomationReply{}, &ArgumentError{Command: cmd.Type, Usage: usage, Reason: fmt.Sprintf("unknown session %q", cmd.Args[1])}
	}
	liters, err := parseAmount(cmd.Args[2])
	if err != nil {
		return models.AutomationReply{}, &ArgumentError{Command: cmd.Type, Usage: usage, Reason: fmt.Sprintf("liters %q is not a number", cmd.Args[2])}
	}

	cow, err := s.livestock.FindCowByTag(ctx, s.farmID, cmd.Args[0])
	if err != nil {
		return models.AutomationReply{}, err
	}
	rec, err := s.production.CreateMilk(ctx, models.MilkProductionInput{
		CowID:          cow.ID,
		Date:           today,
		Session:        session,
		QuantityLiters: liters,
		QualityGrade:   models.GradeA,
		RecordedBy:     sender,
	})
	if err != nil {
		return models.AutomationReply{}, err
	}

	msg := fmt.Sprintf("%s (%s) %s: %s L on %s.", cow.Name, cow.TagNumber, rec.Session, rec.QuantityLiters.StringFixed(2), rec.Date)
	return s.reply("Milk recorded", msg, s.milkLine(ctx, week, today)), nil
}

func (s *Service) eggs(ctx context.Context, cmd models.Command, today, week models.Date) (models.AutomationReply, error) {
	const usage = "eggs <batch> <collected> [broken]"
	if len(cmd.Args) < 2 {
		return models.AutomationReply{}, &ArgumentError{Command: cmd.Type, Usage: usage, Reason: "expected batch and collected eggs"}
	}
	collected, err := strconv.Atoi(cmd.Args[1])
	if err != nil {
		return models.AutomationReply{}, &ArgumentError{Command: cmd.Type, Usage: usage, Reason: fmt.Sprintf("collected %q is not a whole number", cmd.Args[1])}
	}
	broken := 0
	if len(cmd.Args) > 2 {
		if broken, err = strconv.Atoi(cmd.Args[2]); err != nil {
			return models.AutomationReply{}, &ArgumentError{Command: cmd.Type, Usage: usage, Reason: fmt.Sprintf("broken %q is not a whole number", cmd.Args[2])}
		}
	}

	batch, err := s.livestock.FindBatchByName(ctx, s.farmID, cmd.Args[0])
	if err != nil {
		return models.AutomationReply{}, err
	}
	rec, err := s.production.CreateEggs(ctx, models.EggProductionInput{
		BatchID:       batch.ID,
		Date:          today,
		EggsCollected: collected,
		BrokenEggs:    broken,
	})
	if err != nil {
		return models.AutomationReply{}, err
	}

	msg := fmt.Sprintf("%s: %d eggs collected, %d broken, %d usable on %s.", batch.BatchName, rec.EggsCollected, rec.BrokenEggs, rec.UsableEggs(), rec.Date)
	return s.reply("Eggs recorded", msg, s.eggLine(ctx, week, today)), nil
}

func (s *Service) mortality(ctx context.Context, cmd models.Command, today models.Date) (models.AutomationReply, error) {
	const usage = "mortality <batch> <count> [reason]"
	if len(cmd.Args) < 2 {
		return models.AutomationReply{}, &ArgumentError{Command: cmd.Type, Usage: usage, Reason: "expected batch and count"}
	}
	count, err := strconv.Atoi(cmd.Args[1])
	if err != nil {
		return models.AutomationReply{}, &ArgumentError{Command: cmd.Type, Usage: usage, Reason: fmt.Sprintf("count %q is not a whole number", cmd.Args[1])}
	}
	reason := models.ReductionDeath
	notes := ""
	if len(cmd.Args) > 2 {
		if r, ok := parseReason(cmd.Args[2]); ok {
			reason = r
			notes = strings.Join(cmd.Args[3:], " ")
		} else {
			notes = strings.Join(cmd.Args[2:], " ")
		}
	}

	batch, err := s.livestock.FindBatchByName(ctx, s.farmID, cmd.Args[0])
	if err != nil {
		return models.AutomationReply{}, err
	}
	if _, err := s.livestock.ReduceBatch(ctx, batch.ID, models.ReductionInput{Count: count, Reason: reason, Date: today, Notes: notes}); err != nil {
		return models.AutomationReply{}, err
	}

	msg := fmt.Sprintf("%s: %d birds removed (%s).", batch.BatchName, count, reason)
	extra := ""
	if after, err := s.livestock.GetBatch(ctx, batch.ID); err == nil {
		extra = fmt.Sprintf("%d birds left, mortality %.2f%% since acquisition.", after.CurrentCount, after.MortalityRate())
	}
	return s.reply("Reduction recorded", msg, extra), nil
}

func (s *Service) sale(ctx context.Context, cmd models.Command, today, week models.Date) (models.AutomationReply, error) {
	const usage = "sale <liters> <price_per_liter> [buyer]"
	if len(cmd.Args) < 2 {
		return models.AutomationReply{}, &ArgumentError{Command: cmd.Type, Usage: usage, Reason: "expected liters and price"}
	}
	liters, err := parseAmount(cmd.Args[0])
	if err != nil {
		return models.AutomationReply{}, &ArgumentError{Command: cmd.Type, Usage: usage, Reason: fmt.Sprintf("liters %q is not a number", cmd.Args[0])}
	}
	price, err := parseAmount(cmd.Args[1])
	if err != nil {
		return models.AutomationReply{}, &ArgumentError{Command: cmd.Type, Usage: usage, Reason: fmt.Sprintf("price %q is not a number", cmd.Args[1])}
	}
	buyer := "Walk-in"
	if len(cmd.Args) > 2 {
		buyer = strings.Join(cmd.Args[2:], " ")
	}

	sale, err := s.production.CreateMilkSale(ctx, models.MilkSaleInput{
		FarmID:         s.farmID,
		Date:           today,
		QuantityLiters: liters,
		PricePerLiter:  price,
		BuyerName:      buyer,
		PaymentMethod:  models.PaymentCash,
	})
	if err != nil {
		return models.AutomationReply{}, err
	}

	msg := fmt.Sprintf("%s L sold to %s @ %s = %s.", sale.QuantityLiters.StringFixed(2), sale.BuyerName, sale.PricePerLiter.StringFixed(2), sale.TotalAmount.StringFixed(2))
	return s.reply("Milk sale recorded", msg, s.financeLine(ctx, week, today)), nil
}

func (s *Service) expense(ctx context.Context, cmd models.Command, sender string, today, week models.Date) (models.AutomationReply, error) {
	const usage = "expense <amount> <category> [description]"
	if len(cmd.Args) < 2 {
		return models.AutomationReply{}, &ArgumentError{Command: cmd.Type, Usage: usage, Reason: "expected amount and category"}
	}
	amount, err := parseAmount(cmd.Args[0])
	if err != nil {
		return models.AutomationReply{}, &ArgumentError{Command: cmd.Type, Usage: usage, Reason: fmt.Sprintf("amount %q is not a number", cmd.Args[0])}
	}
	category := models.TransactionCategory(strings.ToLower(cmd.Args[1]))
	description := strings.Join(cmd.Args[2:], " ")
	if description == "" {
		description = "Recorded by message"
	}

	tx, err := s.ledger.Create(ctx, models.TransactionInput{
		FarmID:          s.farmID,
		TransactionType: models.TransactionExpense,
		Category:        category,
		Date:            today,
		Amount:          amount,
		Description:     description,
		PaymentMethod:   models.PaymentCash,
		RecordedBy:      sender,
	})
	if err != nil {
		return models.AutomationReply{}, err
	}

	msg := fmt.Sprintf("%s %s: %s on %s.", tx.Category, tx.Amount.StringFixed(2), tx.Description, tx.Date)
	return s.reply("Expense recorded", msg, s.financeLine(ctx, week, today)), nil
}

func (s *Service) summary(ctx context.Context, today, week models.Date) models.AutomationReply {
	lines := []string{fmt.Sprintf("Week %s to %s", week, today)}
	for _, l := range []string{s.milkLine(ctx, week, today), s.eggLine(ctx, week, today), s.financeLine(ctx, week, today)} {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return models.AutomationReply{Title: "Weekly summary", Message: strings.Join(lines, "\n")}
}

func (s *Service) reply(title, msg, extra string) models.AutomationReply {
	if extra != "" {
		msg += "\n" + extra
	}
	return models.AutomationReply{Title: title, Message: msg}
}

func (s *Service) milkLine(ctx context.Context, start, end models.Date) string {
	if s.analytics == nil {
		return ""
	}
	st, err := s.analytics.MilkProductionStats(ctx, s.farmID, start, end)
	if err != nil {
		s.logger.Debug("milk summary failed", zap.Error(err))
		return ""
	}
	return fmt.Sprintf("Milk this week: %s L from %d cows, %s L/day.", st.TotalProduction.StringFixed(2), st.CowsMilked, st.AveragePerDay.StringFixed(2))
}

func (s *Service) eggLine(ctx context.Context, start, end models.Date) string {
	if s.analytics == nil {
		return ""
	}
	st, err := s.analytics.EggProductionStats(ctx, s.farmID, start, end)
	if err != nil {
		s.logger.Debug("egg summary failed", zap.Error(err))
		return ""
	}
	return fmt.Sprintf("Eggs this week: %d collected, breakage %.2f%%.", st.TotalCollected, st.BreakageRate)
}

func (s *Service) financeLine(ctx context.Context, start, end models.Date) string {
	if s.analytics == nil {
		return ""
	}
	st, err := s.analytics.FinancialSummary(ctx, s.farmID, start, end)
	if err != nil {
		s.logger.Debug("financial summary failed", zap.Error(err))
		return ""
	}
	return fmt.Sprintf("Money this week: income %s, expenses %s, net %s.", st.TotalIncome.StringFixed(2), st.TotalExpenses.StringFixed(2), st.NetProfit.StringFixed(2))
}

var sessionAliases = map[string]models.Session{
	"morning":   models.SessionMorning,
	"am":        models.SessionMorning,
	"matin":     models.SessionMorning,
	"afternoon": models.SessionAfternoon,
	"noon":      models.SessionAfternoon,
	"midi":      models.SessionAfternoon,
	"evening":   models.SessionEvening,
	"pm":        models.SessionEvening,
	"soir":      models.SessionEvening,
}

func parseSession(s string) (models.Session, bool) {
	session, ok := sessionAliases[strings.ToLower(s)]
	return session, ok
}

func parseReason(s string) (models.ReductionReason, bool) {
	switch r := models.ReductionReason(strings.ToLower(s)); r {
	case models.ReductionDeath, models.ReductionSale, models.ReductionConsumption, models.ReductionTransfer, models.ReductionOther:
		return r, true
	}
	return "", false
}

// parseAmount accepts a comma as decimal separator.
func parseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
}

// weekStart returns the Monday of the week holding day.
func weekStart(day models.Date) models.Date {
	daysSinceMonday := (int(day.Weekday()) + 6) % 7
	return day.AddDays(-daysSinceMonday)
}
