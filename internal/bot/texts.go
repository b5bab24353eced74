package bot

import (
	"fmt"
	"strings"

	"referral_contest/internal/model"
	"referral_contest/internal/service"
)

const (
	btnBack           = "🔙 Back"
	btnJoinChannel    = "📢 Join the channel"
	btnVerify         = "✅ Check subscription"
	btnRetryVerify    = "🔄 Check again"
	btnActiveContests = "🏆 Current contests"
	btnProfile        = "👤 My profile"
	btnSupport        = "🛠️ Support"
	btnEarnPoints     = "💎 Earn points"

	btnManageContests = "📢 Manage contests"
	btnStatistics     = "📊 Statistics"
	btnAntiCheat      = "🛡️ Anti-cheat"
	btnManageWinners  = "🏅 Manage winners"
	btnShowWinners    = "🏁 Finish latest contest"
	btnResetPoints    = "🧹 Reset points"
	btnNewContest     = "➕ Publish a contest"
	btnListActive     = "📋 Active"
	btnListPostponed  = "⏳ Postponed"
	btnListFinished   = "🏁 Finished"
	btnListCancelled  = "❌ Cancelled"
	btnHours          = "⏱️ In hours"
	btnDays           = "📅 In days"
	btnDelete         = "🗑️ Delete"
	btnCancel         = "🚫 Cancel"
	btnPostpone       = "⏳ Postpone"
	btnResume         = "⏹️ End postponement"
	btnViewWinners    = "👁️ View winners"
	btnNotifyWinners  = "📤 Notify the winners"
	btnSendEnded      = "📢 Send: the contest has ended!"
	btnSendWinners    = "🏆 Send: who are the winners?"
	btnCheatLogs      = "👁️ View the log"
	btnYes            = "Yes"
	btnNo             = "No"
)

const (
	textBanned           = "🚫 You have been permanently banned from the contests for cheating."
	textOwnLink          = "❌ You cannot use your own referral link!"
	textJoinChannel      = "🔒 Please subscribe to the channel first."
	textNotSubscribed    = "❌ You are not subscribed yet!"
	textStartFirst       = "Please send /start first."
	textNoContests       = "📭 There are no contests right now."
	textContestNotFound  = "❌ The contest was not found."
	textSupport          = "🛠️ For support, message the admin: %s"
	textEarnPoints       = "💎 Every successful referral = %d points!\n🔗 Your link: %s"
	textUnknownOption    = "❌ Unknown option."
	textNotAuthorized    = "🚫 You are not authorized."
	textSomethingWrong   = "❌ Something went wrong, please try again later."
	textSessionExpired   = "⌛ This wizard has expired. Start again from the admin panel."
	textWizardCancelled  = "❎ The wizard was cancelled."
	textNothingToCancel  = "There is nothing to cancel."
	textUseButtons       = "👆 Please use the buttons above."
	textInvalidNumber    = "❌ A positive whole number is required. The wizard was cancelled, start again from the admin panel."
	textEmptyDescription = "❌ The description must not be empty. The wizard was cancelled, start again from the admin panel."

	textAdminPanel       = "👑 Admin panel"
	textManageContests   = "📁 Manage contests"
	textAskDescription   = "Send the full contest description:"
	textAskUnit          = "Choose the duration unit:"
	textAskHours         = "Enter the number of hours:"
	textAskDays          = "Enter the number of days:"
	textAskWinnerCount   = "Enter the number of winners (any positive number):"
	textAskPostponeUnit  = "Choose the postponement unit:"
	textContestPublished = "✅ The contest has been published!\nNumber of winners: %d"
	textContestPostponed = "⏳ The contest has been postponed. It now ends at %s."
	textContestResumed   = "▶️ The postponement has ended. The contest ends at %s."
	textContestDeleted   = "🗑️ The contest has been deleted."
	textContestCancelled = "🚫 The contest has been cancelled."
	textNoContestsInList = "📭 There are no %s contests."
	textContestList      = "📋 %s contests: %d"
	textNoFinished       = "📭 There are no finished contests to announce winners for."
	textChooseAnnounce   = "🎯 Choose a contest to announce its winners:"
	textNotFinished      = "❌ This contest has not finished yet."
	textNoWinners        = "📭 There are no eligible winners."
	textWinnersNotified  = "✅ Winner notifications sent: %d delivered, %d failed."
	textSent             = "✅ Sent: %d delivered, %d failed."
	textResetConfirm     = "⚠️ Reset all points?"
	textResetDone        = "✅ All points have been reset."
	textAntiCheat        = "🛡️ Anti-cheat panel"
	textNoCheatLogs      = "✅ There are no cheat records."
	textNotAllowed       = "❌ This action is not allowed for the contest's current status."

	dateLayout = "2006-01-02"
)

func menuText(u *model.User) string {
	var b strings.Builder
	b.WriteString("✨ Welcome to the referral contest bot ✨\n")
	b.WriteString("━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&b, "👤 Name: %s\n", u.FullName)
	fmt.Fprintf(&b, "🆔 ID: %d\n", u.TelegramID)
	fmt.Fprintf(&b, "🏷️ Username: %s\n", u.DisplayHandle("not available"))
	fmt.Fprintf(&b, "⭐ Points: %d\n", u.Points)
	fmt.Fprintf(&b, "✅ Successful referrals: %d\n", u.SuccessfulReferrals)
	fmt.Fprintf(&b, "❌ Failed referrals: %d\n", u.FailedReferrals)
	b.WriteString("━━━━━━━━━━━━━━━━━━━━\n")
	b.WriteString("🏆 Status: in the race")
	return b.String()
}

func profileText(p *model.Profile) string {
	u := p.User

	var b strings.Builder
	b.WriteString("👤 Your profile\n")
	b.WriteString("━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&b, "Name: %s\n", u.FullName)
	fmt.Fprintf(&b, "Username: %s\n", u.DisplayHandle("not available"))
	fmt.Fprintf(&b, "Points: %d\n", u.Points)
	fmt.Fprintf(&b, "Successful referrals: %d\n", u.SuccessfulReferrals)
	b.WriteString("\n📊 Performance\n")
	fmt.Fprintf(&b, "Compared to the leader: %s %.1f%%\n", service.ProgressBar(p.Percentage), p.Percentage)

	if p.NextCompetitor != nil {
		fmt.Fprintf(&b, "\n🏃 Closest competitor: %s (ahead of you by %d points)",
			p.NextCompetitor.DisplayHandle(p.NextCompetitor.FullName), p.Gap)
	} else {
		b.WriteString("\n🏆 You are in the lead!")
	}
	return b.String()
}

func contestText(c *model.Contest) string {
	return fmt.Sprintf("📌 %s\n\n%s\n\n⏰ Ends: %s", c.Title, c.Description, c.EndTime.Format(service.EndTimeLayout))
}

func adminContestText(c *model.Contest) string {
	return fmt.Sprintf("#%d %s\n%s\n⏰ Ends: %s\n🏅 Winners: %d\n📍 Status: %s",
		c.ID, c.Title, c.Description, c.EndTime.Format(service.EndTimeLayout), c.WinnerCount, c.Status)
}

// winnersText is the detailed list admins see, with points.
func winnersText(c *model.Contest, winners []model.Winner) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏆 Winners of %s\n(%d of %d places)\n\n", c.Title, len(winners), c.WinnerCount)
	for _, w := range winners {
		u := model.User{Username: w.Username}
		fmt.Fprintf(&b, "%d. %s (%s), points: %d\n", w.Rank, w.FullName, u.DisplayHandle("not available"), w.Points)
	}
	return b.String()
}

func statisticsText(s *model.Statistics) string {
	return fmt.Sprintf("📊 System statistics:\n"+
		"━━━━━━━━━━━━━━━━\n"+
		"👥 Total users: %d\n"+
		"🚫 Banned: %d\n"+
		"⭐ Total points: %d\n"+
		"🏆 Contests: %d",
		s.TotalUsers, s.BannedUsers, s.TotalPoints, s.TotalContests)
}

func cheatLogsText(logs []*model.CheatLog) string {
	var b strings.Builder
	b.WriteString("⚠️ Latest cheating attempts:\n\n")
	for _, l := range logs {
		second := "-"
		if l.SecondUserID != nil {
			second = fmt.Sprint(*l.SecondUserID)
		}
		fmt.Fprintf(&b, "📅 %s | %s | %d ↔ %s\n", l.DetectedAt.Format(service.EndTimeLayout), l.Type, l.FirstUserID, second)
	}
	return b.String()
}

func statusLabel(status model.ContestStatus) string {
	switch status {
	case model.ContestActive:
		return "Active"
	case model.ContestPostponed:
		return "Postponed"
	case model.ContestFinished:
		return "Finished"
	case model.ContestCancelled:
		return "Cancelled"
	default:
		return string(status)
	}
}

// promptFor is the question asked at a wizard step.
func promptFor(s *Session) string {
	switch s.Step {
	case StepAwaitingDescription:
		return textAskDescription
	case StepAwaitingDurationUnit:
		return textAskUnit
	case StepAwaitingPostponeUnit:
		return textAskPostponeUnit
	case StepAwaitingDurationValue, StepAwaitingPostponeValue:
		if s.Unit == model.UnitDays {
			return textAskDays
		}
		return textAskHours
	case StepAwaitingWinnerCount:
		return textAskWinnerCount
	default:
		return textUseButtons
	}
}
