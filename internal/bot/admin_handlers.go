package bot

import (
	"context"
	"errors"
	"fmt"

	"referral_contest/internal/model"
	"referral_contest/internal/service"
	"referral_contest/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func (b *Bot) routeAdmin(ctx context.Context, q *tgbotapi.CallbackQuery, cb callback) {
	chatID, messageID, adminID := q.Message.Chat.ID, q.Message.MessageID, q.From.ID

	switch cb.Action {
	case cbBackAdmin:
		b.showAdmin(chatID, messageID)
	case cbManageContests:
		b.reply(chatID, messageID, textManageContests, manageContestsKeyboard())
	case cbNewContest:
		b.sessions.start(adminID, NewCreateSession())
		b.reply(chatID, messageID, textAskDescription, nil)
	case cbUnitHours, cbPostponeUnitHours:
		b.chooseUnit(chatID, messageID, adminID, model.UnitHours)
	case cbUnitDays, cbPostponeUnitDays:
		b.chooseUnit(chatID, messageID, adminID, model.UnitDays)
	case cbAdminActive:
		b.listContests(ctx, chatID, messageID, model.ContestActive)
	case cbAdminPostponed:
		b.listContests(ctx, chatID, messageID, model.ContestPostponed)
	case cbAdminFinished:
		b.listContests(ctx, chatID, messageID, model.ContestFinished)
	case cbAdminCancelled:
		b.listContests(ctx, chatID, messageID, model.ContestCancelled)
	case cbDelete:
		b.deleteContest(ctx, chatID, messageID, cb.ContestID)
	case cbCancel:
		b.cancelContest(ctx, chatID, messageID, cb.ContestID)
	case cbPostpone:
		b.sessions.start(adminID, NewPostponeSession(cb.ContestID))
		b.reply(chatID, messageID, textAskPostponeUnit, unitKeyboard(true))
	case cbResume:
		b.resumeContest(ctx, chatID, messageID, cb.ContestID)
	case cbViewWinners:
		b.showContestWinners(ctx, chatID, messageID, cb.ContestID, false)
	case cbManageWinners:
		b.manageWinners(ctx, chatID, messageID)
	case cbAnnounceWinners:
		b.showContestWinners(ctx, chatID, messageID, cb.ContestID, true)
	case cbNotifyWinners:
		b.notifyWinners(ctx, chatID, messageID, cb.ContestID)
	case cbShowWinners:
		b.showLatestWinners(ctx, chatID, messageID)
	case cbSendEnded:
		b.sendEnded(ctx, chatID, messageID)
	case cbSendWinners:
		b.sendLatestWinners(ctx, chatID, messageID)
	case cbStatistics:
		b.showStatistics(ctx, chatID, messageID)
	case cbResetConfirm:
		b.reply(chatID, messageID, textResetConfirm, resetConfirmKeyboard())
	case cbDoReset:
		b.resetPoints(ctx, chatID, messageID)
	case cbAntiCheat:
		b.reply(chatID, messageID, textAntiCheat, antiCheatKeyboard())
	case cbCheatLogs:
		b.showCheatLogs(ctx, chatID, messageID)
	}
}

func (b *Bot) showAdmin(chatID int64, messageID int) {
	b.reply(chatID, messageID, textAdminPanel, adminKeyboard())
}

// errorText maps a service error to what the admin is told.
func errorText(err error) string {
	switch {
	case errors.Is(err, service.ErrContestNotFound):
		return textContestNotFound
	case errors.Is(err, service.ErrInvalidTransition):
		return textNotAllowed
	case errors.Is(err, service.ErrInvalidDuration),
		errors.Is(err, service.ErrInvalidDurationUnit),
		errors.Is(err, service.ErrInvalidWinnerCount):
		return "❌ " + err.Error()
	default:
		return textSomethingWrong
	}
}

func (b *Bot) adminError(chatID int64, messageID int, back string, op string, err error) {
	if errorText(err) == textSomethingWrong {
		logger.Logger().Error("Admin action failed", zap.String("op", op), zap.Error(err))
	}
	b.reply(chatID, messageID, errorText(err), backKeyboard(back))
}

func (b *Bot) handleCancel(msg *tgbotapi.Message) {
	if b.sessions.drop(msg.From.ID) {
		b.send(msg.Chat.ID, textWizardCancelled, backKeyboard(cbBackAdmin))
		return
	}
	b.send(msg.Chat.ID, textNothingToCancel, nil)
}

func (b *Bot) handleAdminText(ctx context.Context, msg *tgbotapi.Message) {
	adminID, chatID := msg.From.ID, msg.Chat.ID

	session := b.sessions.get(adminID)
	if session == nil {
		return
	}

	done, err := session.Input(msg.Text)
	switch {
	case errors.Is(err, ErrUnexpectedInput):
		b.send(chatID, textUseButtons, nil)
		return
	case errors.Is(err, ErrEmptyInput):
		b.sessions.drop(adminID)
		b.send(chatID, textEmptyDescription, backKeyboard(cbBackAdmin))
		return
	case err != nil:
		b.sessions.drop(adminID)
		b.send(chatID, textInvalidNumber, backKeyboard(cbBackAdmin))
		return
	}

	if !done {
		var markup *tgbotapi.InlineKeyboardMarkup
		if session.Step == StepAwaitingDurationUnit {
			markup = unitKeyboard(false)
		}
		b.send(chatID, promptFor(session), markup)
		return
	}

	b.sessions.drop(adminID)

	switch session.Kind {
	case SessionCreateContest:
		b.createContest(ctx, chatID, session)
	case SessionPostponeContest:
		b.postponeContest(ctx, chatID, session)
	}
}

func (b *Bot) chooseUnit(chatID int64, messageID int, adminID int64, unit model.DurationUnit) {
	session := b.sessions.get(adminID)
	if session == nil {
		b.reply(chatID, messageID, textSessionExpired, backKeyboard(cbBackAdmin))
		return
	}

	if err := session.ChooseUnit(unit); err != nil {
		b.send(chatID, promptFor(session), nil)
		return
	}
	b.reply(chatID, messageID, promptFor(session), nil)
}

func (b *Bot) createContest(ctx context.Context, chatID int64, session *Session) {
	contest, err := b.contests.Create(ctx, session.CreateRequest())
	if err != nil {
		b.adminError(chatID, 0, cbBackAdmin, "create contest", err)
		return
	}
	b.send(chatID, fmt.Sprintf(textContestPublished, contest.WinnerCount), backKeyboard(cbBackAdmin))
}

func (b *Bot) postponeContest(ctx context.Context, chatID int64, session *Session) {
	contest, err := b.contests.Postpone(ctx, session.ContestID, session.DurationValue, session.Unit)
	if err != nil {
		b.adminError(chatID, 0, cbBackAdmin, "postpone contest", err)
		return
	}
	b.send(chatID, fmt.Sprintf(textContestPostponed, contest.EndTime.Format(service.EndTimeLayout)), backKeyboard(cbBackAdmin))
}

// listContests posts one card per contest with the actions its status allows.
func (b *Bot) listContests(ctx context.Context, chatID int64, messageID int, status model.ContestStatus) {
	contests, err := b.contests.ListByStatus(ctx, status)
	if err != nil {
		b.adminError(chatID, messageID, cbManageContests, "list contests", err)
		return
	}
	if len(contests) == 0 {
		b.reply(chatID, messageID, fmt.Sprintf(textNoContestsInList, status), backKeyboard(cbManageContests))
		return
	}

	b.reply(chatID, messageID, fmt.Sprintf(textContestList, statusLabel(status), len(contests)), nil)
	for _, c := range contests {
		b.send(chatID, adminContestText(c), contestActionsKeyboard(c))
	}
}

func (b *Bot) deleteContest(ctx context.Context, chatID int64, messageID int, id int64) {
	if err := b.contests.Delete(ctx, id); err != nil {
		b.adminError(chatID, messageID, cbManageContests, "delete contest", err)
		return
	}
	b.reply(chatID, messageID, textContestDeleted, backKeyboard(cbManageContests))
}

func (b *Bot) cancelContest(ctx context.Context, chatID int64, messageID int, id int64) {
	if _, err := b.contests.Cancel(ctx, id); err != nil {
		b.adminError(chatID, messageID, cbManageContests, "cancel contest", err)
		return
	}
	b.reply(chatID, messageID, textContestCancelled, backKeyboard(cbManageContests))
}

func (b *Bot) resumeContest(ctx context.Context, chatID int64, messageID int, id int64) {
	contest, err := b.contests.Resume(ctx, id)
	if err != nil {
		b.adminError(chatID, messageID, cbManageContests, "resume contest", err)
		return
	}
	b.reply(chatID, messageID, fmt.Sprintf(textContestResumed, contest.EndTime.Format(service.EndTimeLayout)), backKeyboard(cbManageContests))
}

func (b *Bot) manageWinners(ctx context.Context, chatID int64, messageID int) {
	contests, err := b.contests.ListByStatus(ctx, model.ContestFinished)
	if err != nil {
		b.adminError(chatID, messageID, cbBackAdmin, "list finished contests", err)
		return
	}
	if len(contests) == 0 {
		b.reply(chatID, messageID, textNoFinished, backKeyboard(cbBackAdmin))
		return
	}
	b.reply(chatID, messageID, textChooseAnnounce, manageWinnersKeyboard(contests))
}

// showContestWinners lists the stored winners of a finished contest.
func (b *Bot) showContestWinners(ctx context.Context, chatID int64, messageID int, id int64, announce bool) {
	back := cbManageContests
	if announce {
		back = cbManageWinners
	}

	contest, err := b.contests.Get(ctx, id)
	if err != nil {
		b.adminError(chatID, messageID, back, "get contest", err)
		return
	}
	if contest.Status != model.ContestFinished {
		b.reply(chatID, messageID, textNotFinished, backKeyboard(back))
		return
	}

	winners, err := b.contests.Winners(ctx, id)
	if err != nil {
		b.adminError(chatID, messageID, back, "get winners", err)
		return
	}
	if len(winners) == 0 {
		b.reply(chatID, messageID, textNoWinners, backKeyboard(back))
		return
	}

	markup := backKeyboard(back)
	if announce {
		markup = announceKeyboard(id)
	}
	b.reply(chatID, messageID, winnersText(contest, winners), markup)
}

func (b *Bot) notifyWinners(ctx context.Context, chatID int64, messageID int, id int64) {
	deliveries, err := b.contests.NotifyWinners(ctx, id)
	if err != nil {
		b.adminError(chatID, messageID, cbManageWinners, "notify winners", err)
		return
	}
	sent, failed := model.CountDeliveries(deliveries)
	b.reply(chatID, messageID, fmt.Sprintf(textWinnersNotified, sent, failed), backKeyboard(cbManageWinners))
}

// showLatestWinners finishes the most recent contest and shows its winners.
func (b *Bot) showLatestWinners(ctx context.Context, chatID int64, messageID int) {
	contest, winners, err := b.contests.FinalizeLatest(ctx)
	if err != nil {
		b.adminError(chatID, messageID, cbBackAdmin, "finalize latest contest", err)
		return
	}
	if len(winners) == 0 {
		b.reply(chatID, messageID, textNoWinners, backKeyboard(cbBackAdmin))
		return
	}
	b.reply(chatID, messageID, winnersText(contest, winners), latestWinnersKeyboard())
}

func (b *Bot) sendEnded(ctx context.Context, chatID int64, messageID int) {
	deliveries, err := b.contests.AnnounceEnded(ctx)
	if err != nil {
		b.adminError(chatID, messageID, cbBackAdmin, "announce ended", err)
		return
	}
	sent, failed := model.CountDeliveries(deliveries)
	b.reply(chatID, messageID, fmt.Sprintf(textSent, sent, failed), backKeyboard(cbBackAdmin))
}

func (b *Bot) sendLatestWinners(ctx context.Context, chatID int64, messageID int) {
	contest, _, err := b.contests.FinalizeLatest(ctx)
	if err != nil {
		b.adminError(chatID, messageID, cbBackAdmin, "finalize latest contest", err)
		return
	}

	deliveries, err := b.contests.NotifyWinners(ctx, contest.ID)
	if err != nil {
		b.adminError(chatID, messageID, cbBackAdmin, "notify winners", err)
		return
	}
	sent, failed := model.CountDeliveries(deliveries)
	b.reply(chatID, messageID, fmt.Sprintf(textSent, sent, failed), backKeyboard(cbBackAdmin))
}

func (b *Bot) showStatistics(ctx context.Context, chatID int64, messageID int) {
	stats, err := b.contests.Statistics(ctx)
	if err != nil {
		b.adminError(chatID, messageID, cbBackAdmin, "statistics", err)
		return
	}
	b.reply(chatID, messageID, statisticsText(stats), backKeyboard(cbBackAdmin))
}

func (b *Bot) resetPoints(ctx context.Context, chatID int64, messageID int) {
	if err := b.contests.ResetPoints(ctx); err != nil {
		b.adminError(chatID, messageID, cbBackAdmin, "reset points", err)
		return
	}
	b.reply(chatID, messageID, textResetDone, backKeyboard(cbBackAdmin))
}

func (b *Bot) showCheatLogs(ctx context.Context, chatID int64, messageID int) {
	logs, err := b.antiCheat.CheatLogs(ctx, service.DefaultCheatLogLimit)
	if err != nil {
		b.adminError(chatID, messageID, cbAntiCheat, "cheat logs", err)
		return
	}
	if len(logs) == 0 {
		b.reply(chatID, messageID, textNoCheatLogs, backKeyboard(cbAntiCheat))
		return
	}
	b.reply(chatID, messageID, cheatLogsText(logs), backKeyboard(cbAntiCheat))
}
