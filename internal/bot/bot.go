package bot

import (
	"context"
	"strings"
	"time"

	"referral_contest/internal/service"
	"referral_contest/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// botAPI is the subset of *tgbotapi.BotAPI the bot uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Config struct {
	Token           string        `yaml:"token"`
	BotUsername     string        `yaml:"botUsername"`
	ChannelUsername string        `yaml:"channelUsername"`
	ChannelLink     string        `yaml:"channelLink"`
	SupportUsername string        `yaml:"supportUsername"`
	AdminIDs        []int64       `yaml:"adminIDs"`
	UpdateTimeout   int           `yaml:"updateTimeout"`
	SessionTTL      time.Duration `yaml:"sessionTTL"`
	Debug           bool          `yaml:"debug"`
}

type Bot struct {
	api       botAPI
	ledger    *service.LedgerService
	contests  *service.ContestService
	antiCheat *service.AntiCheatService
	sessions  *sessions
	admins    map[int64]bool
	cfg       Config
}

func New(api botAPI, svc *service.Service, cfg Config) *Bot {
	admins := make(map[int64]bool, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		admins[id] = true
	}

	return &Bot{
		api:       api,
		ledger:    svc.LedgerService,
		contests:  svc.ContestService,
		antiCheat: svc.AntiCheatService,
		sessions:  newSessions(cfg.SessionTTL),
		admins:    admins,
		cfg:       cfg,
	}
}

// NewAPI authorizes the token against Telegram.
func NewAPI(cfg Config) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	api.Debug = cfg.Debug

	logger.Logger().Info("Bot authorized", zap.String("username", api.Self.UserName))
	return api, nil
}

// Run processes updates one at a time until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.UpdateTimeout
	if u.Timeout <= 0 {
		u.Timeout = 60
	}
	u.AllowedUpdates = []string{"message", "callback_query"}

	updates := b.api.GetUpdatesChan(u)
	logger.Logger().Info("Bot is running")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			logger.Logger().Error("Panic while handling update",
				zap.Int("update_id", update.UpdateID),
				zap.Any("panic", r),
			)
		}
	}()

	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.handleStart(ctx, msg)
		case "menu":
			b.showMenu(ctx, msg.Chat.ID, 0, msg.From.ID)
		case "admin":
			if b.isAdmin(msg.From.ID) {
				b.showAdmin(msg.Chat.ID, 0)
			}
		case "cancel":
			b.handleCancel(msg)
		}
		return
	}

	if b.isAdmin(msg.From.ID) {
		b.handleAdminText(ctx, msg)
	}
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.Message == nil || q.From == nil {
		return
	}

	cb, ok := parseCallback(q.Data)
	if !ok {
		b.answer(q, textUnknownOption)
		return
	}
	if cb.AdminOnly() && !b.isAdmin(q.From.ID) {
		logger.Logger().Info("Unauthorized admin action",
			zap.Int64("telegram_id", q.From.ID),
			zap.String("action", cb.Action),
		)
		b.answer(q, textNotAuthorized)
		return
	}

	b.answer(q, "")

	if cb.AdminOnly() {
		b.routeAdmin(ctx, q, cb)
		return
	}
	b.routeUser(ctx, q, cb)
}

func (b *Bot) isAdmin(userID int64) bool {
	return b.admins[userID]
}

func (b *Bot) send(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := b.api.Send(msg); err != nil {
		logger.Logger().Warn("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// reply edits messageID in place, or sends a new message when it is zero.
func (b *Bot) reply(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	if messageID == 0 {
		b.send(chatID, text, markup)
		return
	}

	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ReplyMarkup = markup
	if _, err := b.api.Send(edit); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return
		}
		logger.Logger().Warn("Failed to edit message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) answer(q *tgbotapi.CallbackQuery, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(q.ID, text)); err != nil {
		logger.Logger().Debug("Failed to answer callback", zap.Error(err))
	}
}

func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		logger.Logger().Debug("Failed to delete message", zap.Error(err))
	}
}
