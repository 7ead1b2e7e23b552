package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"expense-tracker-bot-go/internal/normalize"
	"expense-tracker-bot-go/internal/quickentry"
	"expense-tracker-bot-go/internal/report"
	"expense-tracker-bot-go/internal/store"

	"go.uber.org/zap"
)

func (h *Handler) handleQuick(ctx context.Context, log *zap.Logger, msg Message, payload string) error {
	entry, err := quickentry.Parse(payload, h.now())
	if err != nil {
		log.Debug("Rejected quick entry", zap.String("payload", payload), zap.Error(err))
		return h.reply(ctx, msg, MessageQuickUsage)
	}

	_, err = h.store.Insert(ctx, store.InsertParams{
		UserId:      msg.UserId,
		Category:    entry.Category,
		Amount:      entry.Amount,
		DateText:    normalize.FormatDate(entry.Date),
		Description: entry.Description,
	})
	if err != nil {
		log.Error("Failed to save quick entry", zap.Error(err))
		return h.reply(ctx, msg, MessageFailure)
	}

	return h.reply(ctx, msg, fmt.Sprintf("Saved: %s %s on %s ✅",
		entry.Category, report.FormatAmount(entry.Amount), normalize.FormatDate(entry.Date)))
}

func (h *Handler) handleList(ctx context.Context, log *zap.Logger, msg Message, args string) error {
	limit := ListLimit(args, h.listMaxLimit)

	rows, err := h.store.ListRecent(ctx, msg.UserId, limit)
	if err != nil {
		log.Error("Failed to list transactions", zap.Int("limit", limit), zap.Error(err))
		return h.reply(ctx, msg, MessageFailure)
	}
	return h.reply(ctx, msg, report.FormatList(rows))
}

func (h *Handler) handleSummary(ctx context.Context, log *zap.Logger, msg Message, args string) error {
	period, start := SummaryStart(args, h.now())

	totals, err := h.store.SummarizeByCategory(ctx, msg.UserId, start)
	if err != nil {
		log.Error("Failed to summarize transactions", zap.String("period", period), zap.Error(err))
		return h.reply(ctx, msg, MessageFailure)
	}
	return h.reply(ctx, msg, report.FormatSummary(totals))
}

func (h *Handler) handleExport(ctx context.Context, log *zap.Logger, msg Message) error {
	rows, err := h.store.ExportAll(ctx, msg.UserId)
	if err != nil {
		log.Error("Failed to export transactions", zap.Error(err))
		return h.reply(ctx, msg, MessageFailure)
	}

	data, err := report.ExportCSV(rows)
	if errors.Is(err, report.ErrNoData) {
		return h.reply(ctx, msg, report.NoDataReply)
	}
	if err != nil {
		log.Error("Failed to render export", zap.Error(err))
		return h.reply(ctx, msg, MessageFailure)
	}

	log.Info("Sending export", zap.Int("rows", len(rows)), zap.Int("bytes", len(data)))
	if err := h.transport.SendFile(ctx, msg.ChatId, report.CSVFilename, data); err != nil {
		return fmt.Errorf("unable to send export to chat %d: %w", msg.ChatId, err)
	}
	return nil
}

// ListLimit reads the optional /list count. Anything that is not a positive
// integer falls back to the default. The result never exceeds max.
func ListLimit(args string, max int) int {
	n := DefaultListLimit
	if fields := strings.Fields(args); len(fields) > 0 {
		if parsed, err := strconv.Atoi(fields[0]); err == nil && parsed > 0 {
			n = parsed
		}
	}
	return min(n, max)
}

// SummaryStart resolves the /summary period to its inclusive start date.
// "all" has no lower bound; unknown periods mean the current month.
func SummaryStart(args string, now time.Time) (string, *time.Time) {
	period := "month"
	if fields := strings.Fields(args); len(fields) > 0 {
		period = strings.ToLower(fields[0])
	}

	today := normalize.DateOf(now)
	var start time.Time
	switch period {
	case "today":
		start = today
	case "week":
		start = today.AddDate(0, 0, -7)
	case "all":
		return period, nil
	default:
		period = "month"
		start = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return period, &start
}
