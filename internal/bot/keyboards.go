package bot

import (
	"fmt"
	"strconv"
	"strings"

	"referral_contest/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data of inline buttons.
const (
	cbVerify         = "verify"
	cbBackMain       = "back_main"
	cbActiveContests = "view_active_contests"
	cbProfile        = "view_profile"
	cbSupport        = "support"
	cbEarnPoints     = "earn_points"

	cbBackAdmin         = "back_admin"
	cbManageContests    = "manage_contests"
	cbNewContest        = "new_contest"
	cbUnitHours         = "unit_hours"
	cbUnitDays          = "unit_days"
	cbPostponeUnitHours = "postpone_unit_hours"
	cbPostponeUnitDays  = "postpone_unit_days"
	cbAdminActive       = "view_active_contests_admin"
	cbAdminPostponed    = "view_postponed_contests"
	cbAdminFinished     = "view_finished_contests"
	cbAdminCancelled    = "view_cancelled_contests"
	cbStatistics        = "view_statistics"
	cbAntiCheat         = "anti_cheat_menu"
	cbCheatLogs         = "view_cheat_logs"
	cbManageWinners     = "manage_winners"
	cbShowWinners       = "show_winners_admin"
	cbSendEnded         = "send_ended"
	cbSendWinners       = "send_winners_q"
	cbResetConfirm      = "reset_confirm"
	cbDoReset           = "do_reset"
)

// Prefixes followed by a contest id.
const (
	cbViewContest     = model.CallbackViewContest
	cbDelete          = "delete_"
	cbCancel          = "cancel_"
	cbPostpone        = "postpone_"
	cbResume          = "resume_contest_"
	cbViewWinners     = "view_winners_of_"
	cbAnnounceWinners = "announce_winners_"
	cbNotifyWinners   = "notify_winners_"
)

var fixedCallbacks = map[string]bool{
	cbVerify: true, cbBackMain: true, cbActiveContests: true, cbProfile: true,
	cbSupport: true, cbEarnPoints: true, cbBackAdmin: true, cbManageContests: true,
	cbNewContest: true, cbUnitHours: true, cbUnitDays: true, cbPostponeUnitHours: true,
	cbPostponeUnitDays: true, cbAdminActive: true, cbAdminPostponed: true,
	cbAdminFinished: true, cbAdminCancelled: true, cbStatistics: true, cbAntiCheat: true,
	cbCheatLogs: true, cbManageWinners: true, cbShowWinners: true, cbSendEnded: true,
	cbSendWinners: true, cbResetConfirm: true, cbDoReset: true,
}

var idCallbacks = []string{
	cbViewContest, cbDelete, cbCancel, cbPostpone, cbResume,
	cbViewWinners, cbAnnounceWinners, cbNotifyWinners,
}

var userCallbacks = map[string]bool{
	cbVerify: true, cbBackMain: true, cbActiveContests: true, cbProfile: true,
	cbSupport: true, cbEarnPoints: true, cbViewContest: true,
}

type callback struct {
	Action    string
	ContestID int64
}

// AdminOnly reports whether the action belongs to the admin panel.
func (c callback) AdminOnly() bool {
	return !userCallbacks[c.Action]
}

// parseCallback splits button data into an action and, for per-contest
// buttons, the contest id.
func parseCallback(data string) (callback, bool) {
	if fixedCallbacks[data] {
		return callback{Action: data}, true
	}

	for _, prefix := range idCallbacks {
		rest, ok := strings.CutPrefix(data, prefix)
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || id <= 0 {
			return callback{}, false
		}
		return callback{Action: prefix, ContestID: id}, true
	}

	return callback{}, false
}

func withID(prefix string, id int64) string {
	return prefix + strconv.FormatInt(id, 10)
}

func backRow(data string) []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnBack, data))
}

func backKeyboard(data string) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(backRow(data))
	return &kb
}

// buttonMarkup converts the transport-neutral button of an outgoing message.
func buttonMarkup(button *model.Button) *tgbotapi.InlineKeyboardMarkup {
	if button == nil {
		return nil
	}

	var b tgbotapi.InlineKeyboardButton
	if button.URL != "" {
		b = tgbotapi.NewInlineKeyboardButtonURL(button.Text, button.URL)
	} else {
		b = tgbotapi.NewInlineKeyboardButtonData(button.Text, button.Data)
	}

	kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(b))
	return &kb
}

func joinChannelKeyboard(channelLink, verifyText string) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if channelLink != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(btnJoinChannel, channelLink)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(verifyText, cbVerify)))

	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func mainMenuKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnActiveContests, cbActiveContests)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnProfile, cbProfile)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnSupport, cbSupport),
			tgbotapi.NewInlineKeyboardButtonData(btnEarnPoints, cbEarnPoints),
		),
	)
	return &kb
}

func adminKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnManageContests, cbManageContests)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnStatistics, cbStatistics)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnAntiCheat, cbAntiCheat)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnManageWinners, cbManageWinners)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnShowWinners, cbShowWinners)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnResetPoints, cbResetConfirm)),
	)
	return &kb
}

func manageContestsKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnNewContest, cbNewContest)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnListActive, cbAdminActive)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnListPostponed, cbAdminPostponed)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnListFinished, cbAdminFinished)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnListCancelled, cbAdminCancelled)),
		backRow(cbBackAdmin),
	)
	return &kb
}

// unitKeyboard asks for hours or days, for a new contest or a postponement.
func unitKeyboard(postpone bool) *tgbotapi.InlineKeyboardMarkup {
	hours, days := cbUnitHours, cbUnitDays
	if postpone {
		hours, days = cbPostponeUnitHours, cbPostponeUnitDays
	}

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnHours, hours)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnDays, days)),
	)
	return &kb
}

// contestActionsKeyboard offers the actions the contest's status allows.
func contestActionsKeyboard(c *model.Contest) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	switch c.Status {
	case model.ContestActive:
		rows = append(rows,
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(btnDelete, withID(cbDelete, c.ID)),
				tgbotapi.NewInlineKeyboardButtonData(btnCancel, withID(cbCancel, c.ID)),
			),
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnPostpone, withID(cbPostpone, c.ID))),
		)
	case model.ContestPostponed:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnResume, withID(cbResume, c.ID))))
	case model.ContestFinished:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnViewWinners, withID(cbViewWinners, c.ID))))
	}
	rows = append(rows, backRow(cbManageContests))

	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func manageWinnersKeyboard(contests []*model.Contest) *tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(contests)+1)
	for _, c := range contests {
		label := fmt.Sprintf("%s (%s)", c.Title, c.EndTime.Format(dateLayout))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, withID(cbAnnounceWinners, c.ID))))
	}
	rows = append(rows, backRow(cbBackAdmin))

	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func announceKeyboard(contestID int64) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnNotifyWinners, withID(cbNotifyWinners, contestID))),
		backRow(cbManageWinners),
	)
	return &kb
}

func latestWinnersKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnSendEnded, cbSendEnded)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnSendWinners, cbSendWinners)),
		backRow(cbBackAdmin),
	)
	return &kb
}

func resetConfirmKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnYes, cbDoReset),
			tgbotapi.NewInlineKeyboardButtonData(btnNo, cbBackAdmin),
		),
	)
	return &kb
}

func antiCheatKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnCheatLogs, cbCheatLogs)),
		backRow(cbBackAdmin),
	)
	return &kb
}
