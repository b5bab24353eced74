package bot

import (
	"errors"
	"sync"
	"testing"

	"referral_contest/internal/events"
	"referral_contest/internal/service"
	"referral_contest/internal/service/mocks"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	testAdmin = int64(900)
	testUser  = int64(1)
)

type fakeAPI struct {
	mu sync.Mutex

	sent          []tgbotapi.Chattable
	requests      []tgbotapi.Chattable
	memberConfigs []tgbotapi.GetChatMemberConfig

	member    tgbotapi.ChatMember
	memberErr error
	sendErr   error

	updates chan tgbotapi.Update
	stopped bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.memberConfigs = append(f.memberConfigs, config)
	return f.member, f.memberErr
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

// texts returns the text of every sent or edited message, in order.
func (f *fakeAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, 0, len(f.sent))
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeAPI) lastText() string {
	texts := f.texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

// callbackAnswers returns the texts of answered callback queries.
func (f *fakeAPI) callbackAnswers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []string
	for _, c := range f.requests {
		if cb, ok := c.(tgbotapi.CallbackConfig); ok {
			out = append(out, cb.Text)
		}
	}
	return out
}

type harness struct {
	api       *fakeAPI
	users     *mocks.MockUserRepository
	cheats    *mocks.MockCheatRepository
	contests  *mocks.MockContestRepository
	messenger *mocks.MockMessenger
	bot       *Bot
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		api:       newFakeAPI(),
		users:     &mocks.MockUserRepository{},
		cheats:    &mocks.MockCheatRepository{},
		contests:  &mocks.MockContestRepository{},
		messenger: &mocks.MockMessenger{},
	}

	noop := events.Noop{}
	dispatcher := service.NewDispatcher(h.users, h.messenger, noop)
	antiCheat := service.NewAntiCheatService(h.users, h.cheats, dispatcher, noop, service.AntiCheatConfig{
		MaxJoinAttempts: service.DefaultMaxJoinAttempts,
		AdminIDs:        []int64{testAdmin},
	})
	ledger := service.NewLedgerService(h.users, antiCheat, h.messenger, dispatcher, noop, service.LedgerConfig{
		PointsPerReferral: service.DefaultPointsPerReferral,
		BotUsername:       "contest_bot",
	})

	scheduler := service.NewScheduler()
	t.Cleanup(scheduler.Stop)

	contests := service.NewContestService(h.contests, h.users, ledger, dispatcher, scheduler, noop, []int64{testAdmin})

	h.bot = New(h.api, service.NewService(ledger, contests, antiCheat, dispatcher), Config{
		ChannelLink:     "https://t.me/contest_channel",
		SupportUsername: "@support",
		AdminIDs:        []int64{testAdmin},
	})
	return h
}

func command(from int64, body string) tgbotapi.Update {
	length := len(body)
	for i, r := range body {
		if r == ' ' {
			length = i
			break
		}
	}

	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			MessageID: 10,
			From:      &tgbotapi.User{ID: from, FirstName: "Ann", LastName: "Lee", UserName: "ann"},
			Chat:      &tgbotapi.Chat{ID: from},
			Text:      body,
			Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
		},
	}
}

func text(from int64, body string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			MessageID: 11,
			From:      &tgbotapi.User{ID: from, FirstName: "Ann"},
			Chat:      &tgbotapi.Chat{ID: from},
			Text:      body,
		},
	}
}

func press(from int64, data string) tgbotapi.Update {
	return tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "q1",
			From: &tgbotapi.User{ID: from},
			Data: data,
			Message: &tgbotapi.Message{
				MessageID: 20,
				Chat:      &tgbotapi.Chat{ID: from},
			},
		},
	}
}

var errTelegram = errors.New("Forbidden: bot was blocked by the user")
