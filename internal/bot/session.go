package bot

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"referral_contest/internal/model"
	"referral_contest/internal/service"
)

type Step string

const (
	StepAwaitingDescription   Step = "awaiting_description"
	StepAwaitingDurationUnit  Step = "awaiting_duration_unit"
	StepAwaitingDurationValue Step = "awaiting_duration_value"
	StepAwaitingWinnerCount   Step = "awaiting_winner_count"
	StepAwaitingPostponeUnit  Step = "awaiting_postpone_unit"
	StepAwaitingPostponeValue Step = "awaiting_postpone_value"
)

type SessionKind string

const (
	SessionCreateContest   SessionKind = "create_contest"
	SessionPostponeContest SessionKind = "postpone_contest"
)

const DefaultSessionTTL = 30 * time.Minute

var (
	// ErrUnexpectedInput means the input does not belong to the current step,
	// e.g. free text while a unit button is expected.
	ErrUnexpectedInput = errors.New("unexpected input for the current step")
	ErrInvalidNumber   = errors.New("a positive whole number is required")
	ErrEmptyInput      = errors.New("input must not be empty")
)

// Session is one admin's wizard state.
type Session struct {
	Kind          SessionKind
	Step          Step
	ContestID     int64
	Description   string
	Unit          model.DurationUnit
	DurationValue int
	WinnerCount   int
	UpdatedAt     time.Time
}

func NewCreateSession() *Session {
	return &Session{Kind: SessionCreateContest, Step: StepAwaitingDescription}
}

func NewPostponeSession(contestID int64) *Session {
	return &Session{Kind: SessionPostponeContest, Step: StepAwaitingPostponeUnit, ContestID: contestID}
}

// Input feeds a text message into the session. done is true once the last
// step has been filled. A validation error leaves the session untouched; the
// bot then discards the whole session. ErrUnexpectedInput is not a validation
// error, the session stays usable.
func (s *Session) Input(text string) (done bool, err error) {
	text = strings.TrimSpace(text)

	switch s.Step {
	case StepAwaitingDescription:
		if text == "" {
			return false, ErrEmptyInput
		}
		s.Description = text
		s.Step = StepAwaitingDurationUnit
		return false, nil

	case StepAwaitingDurationValue:
		n, err := parsePositive(text)
		if err != nil {
			return false, err
		}
		s.DurationValue = n
		s.Step = StepAwaitingWinnerCount
		return false, nil

	case StepAwaitingWinnerCount:
		n, err := parsePositive(text)
		if err != nil {
			return false, err
		}
		s.WinnerCount = n
		return true, nil

	case StepAwaitingPostponeValue:
		n, err := parsePositive(text)
		if err != nil {
			return false, err
		}
		s.DurationValue = n
		return true, nil

	default:
		return false, ErrUnexpectedInput
	}
}

// ChooseUnit handles the hours/days buttons.
func (s *Session) ChooseUnit(unit model.DurationUnit) error {
	if _, ok := unit.Duration(1); !ok {
		return service.ErrInvalidDurationUnit
	}

	switch s.Step {
	case StepAwaitingDurationUnit:
		s.Unit = unit
		s.Step = StepAwaitingDurationValue
	case StepAwaitingPostponeUnit:
		s.Unit = unit
		s.Step = StepAwaitingPostponeValue
	default:
		return ErrUnexpectedInput
	}
	return nil
}

func (s *Session) CreateRequest() service.CreateContestRequest {
	return service.CreateContestRequest{
		Description:   s.Description,
		DurationValue: s.DurationValue,
		DurationUnit:  s.Unit,
		WinnerCount:   s.WinnerCount,
	}
}

func parsePositive(text string) (int, error) {
	n, err := strconv.Atoi(text)
	if err != nil || n <= 0 {
		return 0, ErrInvalidNumber
	}
	return n, nil
}

// sessions keeps at most one wizard per admin. Idle sessions expire.
type sessions struct {
	mu  sync.Mutex
	m   map[int64]*Session
	ttl time.Duration
	now func() time.Time
}

func newSessions(ttl time.Duration) *sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &sessions{
		m:   make(map[int64]*Session),
		ttl: ttl,
		now: time.Now,
	}
}

func (s *sessions) start(userID int64, session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session.UpdatedAt = s.now()
	s.m[userID] = session
}

// get returns the live session of userID and refreshes its deadline.
func (s *sessions) get(userID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.m[userID]
	if !ok {
		return nil
	}

	now := s.now()
	if now.Sub(session.UpdatedAt) > s.ttl {
		delete(s.m, userID)
		return nil
	}
	session.UpdatedAt = now
	return session
}

func (s *sessions) drop(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.m[userID]
	delete(s.m, userID)
	return ok
}
