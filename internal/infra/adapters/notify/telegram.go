package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"socials-billing/internal/domain/model"
	"socials-billing/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*TelegramNotifier)(nil)

// TelegramNotifier posts a short summary of each event to an operator chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

// NewTelegramNotifierWithBot uses an already-configured bot client.
func NewTelegramNotifierWithBot(bot *tgbotapi.BotAPI, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, chatID: chatID}
}

func (n *TelegramNotifier) Name() string { return "telegram" }

func (n *TelegramNotifier) Notify(ctx context.Context, ev *model.SubscriptionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, formatEvent(ev))
	msg.DisableWebPagePreview = true
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func formatEvent(ev *model.SubscriptionEvent) string {
	var b strings.Builder
	switch ev.Status {
	case string(model.SubscriptionStatusActive):
		b.WriteString("✅ Subscription activated\n")
	case string(model.SubscriptionStatusFailed):
		b.WriteString("❌ Payment failed\n")
	default:
		fmt.Fprintf(&b, "ℹ️ Subscription %s\n", ev.Status)
	}
	fmt.Fprintf(&b, "Account: %s\n", ev.AccountID)
	fmt.Fprintf(&b, "Plan: %s (%s)\n", ev.PlanID, ev.BillingInterval)
	fmt.Fprintf(&b, "Amount: %s %s\n", decimal.New(ev.Amount, -2).StringFixed(2), ev.Currency)
	fmt.Fprintf(&b, "Txn: %s", ev.ProviderTxnID)
	return b.String()
}
