package service

const (
	msgPointsReset      = "🧹 Points have been reset because a new contest is starting."
	msgAdminPointsReset = "🧹 All points have been reset by the administrators."
	msgContestStarted   = "🎉 A new contest has started!"
	msgOneHourLeft      = "⏳ One hour left until the contest ends! Finish your referrals now!"
	msgTenMinutesLeft   = "🚨 Only 10 minutes left! Are you in the lead? 🏆"
	msgContestEnded     = "🏁 The contest has ended! Thank you for taking part, winners will be announced soon."
	msgContestResumed   = "▶️ The contest has resumed! It now ends at %s."
	msgContestPostponed = "⏳ The contest has been postponed by %d %s."
	msgWinnerCongrats   = "🎉 Congratulations! You are one of the winners! 🏆\n\nThank you for your participation and support!"
	msgWinnersHeader    = "🏆 The winners of %s:\n\n"
	msgReferralJoined   = "🎉 Someone new joined through your link!\nYour balance is now %d points."
	msgMutualAdminAlert = "⚠️ Mutual referral detected!\nAccounts: %d and %d\nBoth were banned automatically."
	msgAutoFinalized    = "🏁 Contest #%d \"%s\" reached its end time and was finalized with %d winner(s)."
)

// Rotated rejection texts for users caught cheating.
var (
	mutualCheatMessages = []string{
		"🕵️‍♂️ We know what you are trying, but cheating does not pay!",
		"🤖 Your account is suspended for behaviour review. Are you really human?",
		"🚫 Unusual activity detected. The account is banned.",
		"✋ Cheating spoils the spirit of the competition. You have been banned.",
	}
	rejoinCheatMessages = []string{
		"🕵️‍♂️ Repeated cheating attempts detected!",
		"🤖 Your behaviour looks like a bot. You have been banned.",
		"🚫 You have been banned for repeatedly leaving and rejoining.",
	}
)

// EndTimeLayout is how contest deadlines are shown to users.
const EndTimeLayout = "2006-01-02 15:04"
