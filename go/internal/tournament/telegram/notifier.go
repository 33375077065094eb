package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/models"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/events"
)

// MessageSender is the part of tgbotapi.BotAPI the notifier uses.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier announces level changes, the bonus deadline and final results to
// a Telegram chat. Events without a message are ignored.
type Notifier struct {
	bot    MessageSender
	chatID int64
	log    zerolog.Logger
}

// NewBot connects to the Bot API with token.
func NewBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect telegram bot: %w", err)
	}
	return bot, nil
}

// NewNotifier creates a notifier posting to chatID.
func NewNotifier(bot MessageSender, chatID int64, logger zerolog.Logger) *Notifier {
	return &Notifier{
		bot:    bot,
		chatID: chatID,
		log:    logger.With().Str("component", "telegram").Int64("chat_id", chatID).Logger(),
	}
}

// Notify sends the message for ev, if it has one.
func (n *Notifier) Notify(ctx context.Context, ev events.Event) error {
	text, err := Format(ev)
	if err != nil {
		return err
	}
	if text == "" {
		return nil
	}
	return n.send(ctx, text, ev.Type)
}

// RecordHistory posts the results of a finalized session.
func (n *Notifier) RecordHistory(ctx context.Context, rec models.HistoryRecord) error {
	return n.send(ctx, FormatHistory(rec), events.EventTypeSessionFinalized)
}

func (n *Notifier) send(ctx context.Context, text string, eventType events.EventType) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := n.bot.Send(tgbotapi.NewMessage(n.chatID, text)); err != nil {
		return fmt.Errorf("failed to send %s message: %w", eventType, err)
	}
	n.log.Debug().Str("event_type", string(eventType)).Msg("telegram message sent")
	return nil
}

// Format renders the chat message for ev. An empty string means the event
// is not announced.
func Format(ev events.Event) (string, error) {
	switch ev.Type {
	case events.EventTypeSessionStarted, events.EventTypeLevelAdvanced, events.EventTypePunctualityBonusExpiring:
	default:
		return "", nil
	}

	payload, err := events.ParsePayload(ev)
	if err != nil {
		return "", err
	}
	switch p := payload.(type) {
	case events.SessionStartedPayload:
		return fmt.Sprintf("🃏 %s started (%d levels)", p.TemplateName, p.TotalLevels), nil
	case events.LevelAdvancedPayload:
		msg := fmt.Sprintf("⏫ Level %d: blinds %d/%d", p.ToLevel, p.SmallBlind, p.BigBlind)
		if p.Ante > 0 {
			msg += fmt.Sprintf(", ante %d", p.Ante)
		}
		return msg, nil
	case events.PunctualityBonusExpiringPayload:
		return fmt.Sprintf("⏰ Punctuality bonus ends in %d seconds", p.TimeLeftSeconds), nil
	}
	return "", nil
}

// FormatHistory renders the results summary of a finalized session.
func FormatHistory(rec models.HistoryRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏆 %s finished at level %d\n", rec.TemplateName, rec.FinalLevel)
	fmt.Fprintf(&b, "Players: %d, entries: %d\n", rec.Ledger.TotalPlayersEverEntered, rec.Ledger.Entries)
	fmt.Fprintf(&b, "Prize pool: %d", rec.Pot.RealPot)
	if rec.BubblePrize > 0 {
		fmt.Fprintf(&b, "\nBubble: %d", rec.BubblePrize)
	}
	for _, p := range rec.Prizes {
		fmt.Fprintf(&b, "\n%d. %d", p.Rank, p.Amount)
	}
	return b.String()
}
