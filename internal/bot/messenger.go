package bot

import (
	"context"
	"fmt"
	"strings"

	"referral_contest/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var memberStatuses = map[string]bool{
	"member":        true,
	"administrator": true,
	"creator":       true,
}

// TelegramMessenger implements service.Messenger on the Bot API.
type TelegramMessenger struct {
	api     botAPI
	channel string
}

func NewMessenger(api botAPI, channelUsername string) *TelegramMessenger {
	channel := channelUsername
	if channel != "" && !strings.HasPrefix(channel, "@") {
		channel = "@" + channel
	}
	return &TelegramMessenger{api: api, channel: channel}
}

func (m *TelegramMessenger) IsChannelMember(_ context.Context, userID int64) (bool, error) {
	member, err := m.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			SuperGroupUsername: m.channel,
			UserID:             userID,
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to get chat member: %w", err)
	}
	return memberStatuses[member.Status], nil
}

func (m *TelegramMessenger) SendMessage(_ context.Context, userID int64, text string, button *model.Button) error {
	msg := tgbotapi.NewMessage(userID, text)
	if markup := buttonMarkup(button); markup != nil {
		msg.ReplyMarkup = markup
	}

	if _, err := m.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
