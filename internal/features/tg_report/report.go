package tg_report

// Sends the result of a snapshot run to a Telegram chat: a summary message,
// the CSV as a document and, when rendered, the chart as a photo.

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"token-holders/internal/features/holders"
	"token-holders/internal/features/tg_charts"
	logging "token-holders/internal/infra/log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender is the part of *tgbotapi.BotAPI the reporter uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Reporter struct {
	bot    Sender
	chatID int64
}

// NewReporter connects to the Bot API. endpoint may be empty for the public
// API; it is a format string with the token and method, as tgbotapi.APIEndpoint.
func NewReporter(token string, chatID int64, endpoint string, client *http.Client) (*Reporter, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	logging.LogInfo("Telegram bot authorized", zap.String("username", bot.Self.UserName))
	return NewReporterWithSender(bot, chatID), nil
}

func NewReporterWithSender(bot Sender, chatID int64) *Reporter {
	return &Reporter{bot: bot, chatID: chatID}
}

// SendSnapshot delivers the report. Every part is attempted; the returned
// error joins the failures.
func (r *Reporter) SendSnapshot(res *holders.Result, csvPath, chartPath string) error {
	var errs []error

	msg := tgbotapi.NewMessage(r.chatID, FormatSummary(res))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := r.bot.Send(msg); err != nil {
		logging.LogError("Failed to send snapshot summary", zap.Error(err))
		errs = append(errs, fmt.Errorf("summary: %w", err))
	}

	if csvPath != "" {
		if _, err := os.Stat(csvPath); err != nil {
			errs = append(errs, fmt.Errorf("csv: %w", err))
		} else {
			doc := tgbotapi.NewDocument(r.chatID, tgbotapi.FilePath(csvPath))
			doc.Caption = fmt.Sprintf("%d holders", len(res.Holders))
			if _, err := r.bot.Send(doc); err != nil {
				logging.LogError("Failed to send holders csv", zap.String("path", csvPath), zap.Error(err))
				errs = append(errs, fmt.Errorf("csv: %w", err))
			}
		}
	}

	if chartPath != "" {
		if _, err := os.Stat(chartPath); os.IsNotExist(err) {
			logging.LogWarn("Chart file does not exist", zap.String("chartPath", chartPath))
		} else {
			photo := tgbotapi.NewPhoto(r.chatID, tgbotapi.FilePath(chartPath))
			if _, err := r.bot.Send(photo); err != nil {
				logging.LogError("Failed to send holders chart", zap.Error(err))
				errs = append(errs, fmt.Errorf("chart: %w", err))
			}
		}
	}

	if len(errs) == 0 {
		logging.LogInfo("Snapshot report sent", zap.Int64("chatID", r.chatID))
	}
	return errors.Join(errs...)
}

// FormatSummary renders the run statistics as Telegram HTML.
func FormatSummary(res *holders.Result) string {
	var b strings.Builder
	b.WriteString("<b>Holder snapshot</b>\n\n")
	fmt.Fprintf(&b, "Token: <code>%s</code>\n", res.Token)
	fmt.Fprintf(&b, "Source: %s (%s)\n", res.Source, res.Mode)
	fmt.Fprintf(&b, "Transfers: %d\n", res.Transfers)
	fmt.Fprintf(&b, "Addresses seen: %d\n", res.Candidates)
	fmt.Fprintf(&b, "Holders: <b>%d</b>\n", len(res.Holders))
	if res.Mode == holders.ModeLive && res.Enrich.Failed > 0 {
		fmt.Fprintf(&b, "Skipped lookups: %d\n", res.Enrich.Failed)
	}

	if top := tg_charts.TopHolders(res.Holders, 1); len(top) == 1 {
		fmt.Fprintf(&b, "Top holder: <code>%s</code> %s\n", top[0].Address, tg_charts.FormatBalance(top[0].Balance))
	}
	fmt.Fprintf(&b, "Duration: %s", res.Duration.Round(time.Millisecond))
	return b.String()
}
