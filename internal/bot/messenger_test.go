package bot

import (
	"context"
	"testing"

	"referral_contest/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessenger_IsChannelMember(t *testing.T) {
	tests := []struct {
		status   string
		expected bool
	}{
		{status: "member", expected: true},
		{status: "administrator", expected: true},
		{status: "creator", expected: true},
		{status: "left", expected: false},
		{status: "kicked", expected: false},
		{status: "restricted", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			api := newFakeAPI()
			api.member = tgbotapi.ChatMember{Status: tt.status}
			m := NewMessenger(api, "contest_channel")

			ok, err := m.IsChannelMember(context.Background(), 42)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ok)

			require.Len(t, api.memberConfigs, 1)
			assert.Equal(t, "@contest_channel", api.memberConfigs[0].SuperGroupUsername)
			assert.Equal(t, int64(42), api.memberConfigs[0].UserID)
		})
	}
}

func TestMessenger_IsChannelMemberError(t *testing.T) {
	api := newFakeAPI()
	api.memberErr = errTelegram
	m := NewMessenger(api, "@contest_channel")

	ok, err := m.IsChannelMember(context.Background(), 42)
	assert.ErrorIs(t, err, errTelegram)
	assert.False(t, ok)
	assert.Equal(t, "@contest_channel", api.memberConfigs[0].SuperGroupUsername)
}

func TestMessenger_SendMessage(t *testing.T) {
	api := newFakeAPI()
	m := NewMessenger(api, "contest_channel")

	require.NoError(t, m.SendMessage(context.Background(), 7, "🎉 New contest", model.ContestDetailsButton(3)))
	require.NoError(t, m.SendMessage(context.Background(), 8, "plain", nil))

	require.Len(t, api.sent, 2)

	withButton, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(7), withButton.ChatID)
	markup, ok := withButton.ReplyMarkup.(*tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "view_contest_3", *markup.InlineKeyboard[0][0].CallbackData)

	plain, ok := api.sent[1].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Nil(t, plain.ReplyMarkup)

	api.sendErr = errTelegram
	assert.ErrorIs(t, m.SendMessage(context.Background(), 9, "blocked", nil), errTelegram)
}
