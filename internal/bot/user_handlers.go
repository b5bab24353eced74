package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"referral_contest/internal/model"
	"referral_contest/internal/service"
	"referral_contest/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func (b *Bot) routeUser(ctx context.Context, q *tgbotapi.CallbackQuery, cb callback) {
	chatID, messageID, userID := q.Message.Chat.ID, q.Message.MessageID, q.From.ID

	switch cb.Action {
	case cbVerify:
		b.handleVerify(ctx, chatID, messageID, userID)
	case cbBackMain:
		b.showMenu(ctx, chatID, messageID, userID)
	case cbActiveContests:
		b.showActiveContests(ctx, chatID, messageID)
	case cbProfile:
		b.showProfile(ctx, chatID, messageID, userID)
	case cbSupport:
		b.reply(chatID, messageID, fmt.Sprintf(textSupport, b.cfg.SupportUsername), backKeyboard(cbBackMain))
	case cbEarnPoints:
		text := fmt.Sprintf(textEarnPoints, b.ledger.PointsPerReferral(), b.ledger.ReferralLink(userID))
		b.reply(chatID, messageID, text, backKeyboard(cbBackMain))
	case cbViewContest:
		b.showContest(ctx, chatID, messageID, cb.ContestID)
	}
}

// parseReferrer reads the deep-link payload of /start. Anything that is not
// a user id is ignored.
func parseReferrer(args string) *int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

func fullName(u *tgbotapi.User) string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if b.isAdmin(msg.From.ID) {
		b.showAdmin(chatID, 0)
		return
	}

	res, err := b.ledger.Start(ctx, service.StartRequest{
		UserID:     msg.From.ID,
		Username:   msg.From.UserName,
		FullName:   fullName(msg.From),
		ReferrerID: parseReferrer(msg.CommandArguments()),
	})
	if err != nil {
		logger.Logger().Error("Failed to start user", zap.Int64("telegram_id", msg.From.ID), zap.Error(err))
		b.send(chatID, textSomethingWrong, nil)
		return
	}

	switch {
	case res.MutualCheat:
		// Both parties were already told by the anti-cheat detector.
		return
	case res.Banned:
		b.send(chatID, textBanned, nil)
		return
	case res.SelfReferral:
		b.send(chatID, textOwnLink, nil)
	}

	if !res.IsMember {
		b.send(chatID, textJoinChannel, joinChannelKeyboard(b.cfg.ChannelLink, btnVerify))
		return
	}
	b.reply(chatID, 0, menuText(res.User), mainMenuKeyboard())
}

func (b *Bot) handleVerify(ctx context.Context, chatID int64, messageID int, userID int64) {
	res, err := b.ledger.Verify(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			b.reply(chatID, messageID, textStartFirst, nil)
			return
		}
		logger.Logger().Error("Failed to verify user", zap.Int64("telegram_id", userID), zap.Error(err))
		b.reply(chatID, messageID, textSomethingWrong, nil)
		return
	}

	switch res.Outcome {
	case service.VerifyBanned, service.VerifyRejoinBanned:
		b.reply(chatID, messageID, service.RejoinBanMessage(), nil)
	case service.VerifyNotMember:
		b.reply(chatID, messageID, textNotSubscribed, joinChannelKeyboard(b.cfg.ChannelLink, btnRetryVerify))
	default:
		b.showMenu(ctx, chatID, messageID, userID)
	}
}

func (b *Bot) showMenu(ctx context.Context, chatID int64, messageID int, userID int64) {
	user, ok := b.activeUser(ctx, chatID, messageID, userID)
	if !ok {
		return
	}
	b.reply(chatID, messageID, menuText(user), mainMenuKeyboard())
}

// activeUser loads the user and answers with a rejection when the user is
// unknown or banned.
func (b *Bot) activeUser(ctx context.Context, chatID int64, messageID int, userID int64) (*model.User, bool) {
	user, err := b.ledger.GetUser(ctx, userID)
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		b.reply(chatID, messageID, textStartFirst, nil)
		return nil, false
	case err != nil:
		logger.Logger().Error("Failed to get user", zap.Int64("telegram_id", userID), zap.Error(err))
		b.reply(chatID, messageID, textSomethingWrong, nil)
		return nil, false
	case user.Banned:
		b.reply(chatID, messageID, service.RejoinBanMessage(), nil)
		return nil, false
	}
	return user, true
}

func (b *Bot) showProfile(ctx context.Context, chatID int64, messageID int, userID int64) {
	if _, ok := b.activeUser(ctx, chatID, messageID, userID); !ok {
		return
	}

	profile, err := b.ledger.Profile(ctx, userID)
	if err != nil {
		logger.Logger().Error("Failed to build profile", zap.Int64("telegram_id", userID), zap.Error(err))
		b.reply(chatID, messageID, textSomethingWrong, backKeyboard(cbBackMain))
		return
	}
	b.reply(chatID, messageID, profileText(profile), backKeyboard(cbBackMain))
}

// showActiveContests posts one card per running contest and removes the menu.
func (b *Bot) showActiveContests(ctx context.Context, chatID int64, messageID int) {
	contests, err := b.contests.Active(ctx)
	if err != nil {
		logger.Logger().Error("Failed to list active contests", zap.Error(err))
		b.reply(chatID, messageID, textSomethingWrong, backKeyboard(cbBackMain))
		return
	}
	if len(contests) == 0 {
		b.reply(chatID, messageID, textNoContests, backKeyboard(cbBackMain))
		return
	}

	for _, c := range contests {
		b.send(chatID, contestText(c), backKeyboard(cbBackMain))
	}
	b.deleteMessage(chatID, messageID)
}

func (b *Bot) showContest(ctx context.Context, chatID int64, messageID int, contestID int64) {
	contest, err := b.contests.Get(ctx, contestID)
	if err != nil {
		if !errors.Is(err, service.ErrContestNotFound) {
			logger.Logger().Error("Failed to get contest", zap.Int64("contest_id", contestID), zap.Error(err))
		}
		b.reply(chatID, messageID, textContestNotFound, backKeyboard(cbBackMain))
		return
	}
	b.reply(chatID, messageID, contestText(contest), backKeyboard(cbBackMain))
}
