package model

import "strconv"

// Button is an optional inline button attached to an outgoing message.
// Exactly one of Data or URL is set.
type Button struct {
	Text string
	Data string
	URL  string
}

type Delivery struct {
	UserID int64
	Err    error
}

func (d Delivery) Delivered() bool {
	return d.Err == nil
}

func CountDeliveries(deliveries []Delivery) (sent, failed int) {
	for _, d := range deliveries {
		if d.Delivered() {
			sent++
		} else {
			failed++
		}
	}
	return sent, failed
}

const CallbackViewContest = "view_contest_"

// ContestDetailsButton opens the detail view of a contest in the bot.
func ContestDetailsButton(contestID int64) *Button {
	return &Button{
		Text: "📋 View details",
		Data: CallbackViewContest + strconv.FormatInt(contestID, 10),
	}
}
