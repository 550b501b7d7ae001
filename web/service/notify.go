package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/satyogainstitute/portal/database/model"
	"github.com/satyogainstitute/portal/logger"
)

// NotifyService sends admin notices over Telegram when the bot is
// enabled in settings. Every send is best effort.
type NotifyService struct {
	settingService SettingService

	bot *telego.Bot
}

// Init creates the bot when enabled and configured. Safe to call with
// the bot disabled; sends become no-ops.
func (s *NotifyService) Init() {
	enabled, err := s.settingService.GetTgBotEnabled()
	if err != nil || !enabled {
		return
	}
	token, err := s.settingService.GetTgBotToken()
	if err != nil || token == "" {
		logger.Warning("telegram notifier enabled but no token configured")
		return
	}

	bot, err := telego.NewBot(token)
	if err != nil {
		logger.Warning("telegram notifier init:", err)
		return
	}
	s.bot = bot
}

func (s *NotifyService) send(text string) {
	if s.bot == nil {
		return
	}
	chatIds, err := s.settingService.GetTgBotChatId()
	if err != nil || chatIds == "" {
		return
	}

	ctx := context.Background()
	for _, raw := range strings.Split(chatIds, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			continue
		}
		params := telego.SendMessageParams{
			ChatID: tu.ID(id),
			Text:   text,
		}
		if _, err := s.bot.SendMessage(ctx, &params); err != nil {
			logger.Warning("telegram send:", err)
		}
	}
}

// AdminLoginNotify reports an admin login with its source address.
func (s *NotifyService) AdminLoginNotify(email, ip string, success bool) {
	notify, err := s.settingService.GetTgBotLoginNotify()
	if err != nil || !notify {
		return
	}
	outcome := "succeeded"
	if !success {
		outcome = "FAILED"
	}
	s.send(fmt.Sprintf("Admin login %s: %s from %s", outcome, email, ip))
}

// PaymentNotify reports a settled payment.
func (s *NotifyService) PaymentNotify(record *model.PaymentRecord) {
	s.send(fmt.Sprintf("Payment %s: order %s, %d %s (%s)",
		record.Status, record.OrderId, record.AmountCents, record.Currency, record.Purpose))
}
