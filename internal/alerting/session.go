package alerting

import (
	"fmt"
	"slices"

	"github.com/rateintel/rateintel-go/internal/datastore/entities"
)

// SessionState tracks where an alert-settings session is in its
// lifecycle.
type SessionState int

const (
	// StateClosed means no draft is in progress.
	StateClosed SessionState = iota
	// StateAdding means a new rule is being drafted; all tabs enabled.
	StateAdding
	// StateEditing means an existing rule is being modified; only the
	// rule's own tab is enabled.
	StateEditing
)

// Notifier receives the transient user-facing message raised when
// validation rejects a draft.
type Notifier interface {
	Notify(message string)
}

// ADRDraft is the in-progress state of the ADR tab.
type ADRDraft struct {
	AlertOn    string
	AlertRule  string
	ValueMode  string
	Threshold  float64
	WRTAlertOn string
	Currency   string
	Compset    []uint
	WRTCompset []uint
}

// ParityOptionDraft is the per-option namespace inside the parity tab.
// Switching options must not destroy sibling-option entries, so each
// option keeps its own copy; only the selected option's namespace is
// read at submission time.
type ParityOptionDraft struct {
	AlertOn   string
	Score     *float64
	ScoreBy   string
	Threshold *float64
}

// ParityDraft is the in-progress state of the parity tab.
type ParityDraft struct {
	SelectedOption int
	Options        map[int]*ParityOptionDraft
	// Channels is the live channel selection, meaningful for the
	// channel sub-option only.
	Channels    []uint
	AllChannels bool
	Currency    string
}

// RankDraft is the in-progress state of the OTA ranking tab.
type RankDraft struct {
	AlertOn   string
	AlertRule string
	Threshold float64
	Channel   uint
	// CompetitorID holds the single selected ranking competitor. The
	// model supports exactly one, never a list.
	CompetitorID uint
}

// Session owns the in-progress draft for one alert-settings dialog.
// All mutation happens from a single goroutine by contract, mirroring
// the event-driven surface it backs; the session has no internal
// locking.
type Session struct {
	state        SessionState
	activeTab    string
	disabledTabs map[string]bool

	adr    ADRDraft
	parity ParityDraft
	rank   RankDraft

	// editing is the source record hydrated by BeginEdit, nil when
	// adding.
	editing *entities.AlertDefinition

	// Cross-option memory for the parity channel selection: cleared
	// from the live draft when leaving the channel option, restored
	// when returning to it.
	cachedChannels    []uint
	cachedAllChannels bool
	channelsCached    bool

	lookups  *Lookups
	notifier Notifier
	sid      uint
	user     string
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithNotifier wires the transient-notice sink for validation failures.
func WithNotifier(n Notifier) SessionOption {
	return func(s *Session) { s.notifier = n }
}

// WithUser attributes submissions to the given user.
func WithUser(user string) SessionOption {
	return func(s *Session) { s.user = user }
}

// NewSession creates a closed session bound to a subscriber and its
// lookup tables.
func NewSession(sid uint, lookups *Lookups, opts ...SessionOption) *Session {
	s := &Session{
		state:   StateClosed,
		lookups: lookups,
		sid:     sid,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.resetDrafts()
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState { return s.state }

// ActiveTab returns the alert type currently being drafted.
func (s *Session) ActiveTab() string { return s.activeTab }

// TabDisabled reports whether a tab is disabled in the current state.
func (s *Session) TabDisabled(tab string) bool { return s.disabledTabs[tab] }

// ADR returns the ADR draft for inspection.
func (s *Session) ADR() ADRDraft { return s.adr }

// Parity returns the parity draft for inspection.
func (s *Session) Parity() ParityDraft { return s.parity }

// Rank returns the ranking draft for inspection.
func (s *Session) Rank() RankDraft { return s.rank }

// resetDrafts restores every draft to its defaults.
func (s *Session) resetDrafts() {
	s.adr = ADRDraft{
		AlertOn:    SubjectSubscriber,
		AlertRule:  RuleIncreased,
		ValueMode:  ValueAbsolute,
		WRTAlertOn: SubjectSubscriber,
	}
	s.parity = ParityDraft{
		SelectedOption: ParityOptionChannel,
		Options: map[int]*ParityOptionDraft{
			ParityOptionChannel:  {},
			ParityOptionScore:    {},
			ParityOptionMovement: {},
		},
	}
	s.rank = RankDraft{
		AlertOn:   SubjectSubscriber,
		AlertRule: RuleIncreased,
	}
	s.editing = nil
	s.cachedChannels = nil
	s.cachedAllChannels = false
	s.channelsCached = false
	s.activeTab = TypeADR
	s.disabledTabs = map[string]bool{}
}

// BeginAdd opens a fresh draft with every tab enabled.
func (s *Session) BeginAdd() {
	s.resetDrafts()
	s.state = StateAdding
}

// Cancel discards the draft and closes the session.
func (s *Session) Cancel() {
	s.resetDrafts()
	s.state = StateClosed
}

// complete closes the session after a successful submission.
func (s *Session) complete() {
	s.resetDrafts()
	s.state = StateClosed
}

// SelectTab switches the active alert type. Disabled tabs (edit mode)
// reject the switch.
func (s *Session) SelectTab(tab string) error {
	switch tab {
	case TypeADR, TypeParity, TypeRank:
	default:
		return fmt.Errorf("unknown alert type %q", tab)
	}
	if s.disabledTabs[tab] {
		return fmt.Errorf("tab %q is disabled while editing", tab)
	}
	s.activeTab = tab
	return nil
}

// SelectParityOption switches the parity sub-option without losing
// sibling-option entries. Leaving the channel option caches the channel
// selection; returning to it restores the edited record's list first,
// then the cached in-session selection, then empty.
func (s *Session) SelectParityOption(option int) error {
	if option < ParityOptionChannel || option > ParityOptionMovement {
		return fmt.Errorf("unknown parity option %d", option)
	}
	if option == s.parity.SelectedOption {
		return nil
	}

	if s.parity.SelectedOption == ParityOptionChannel {
		// Channel selection is irrelevant to the score options: clear it
		// from the live draft but remember it for a round trip.
		s.cachedChannels = s.parity.Channels
		s.cachedAllChannels = s.parity.AllChannels
		s.channelsCached = true
		s.parity.Channels = nil
		s.parity.AllChannels = false
	}

	if option == ParityOptionChannel {
		switch {
		case s.editing != nil && s.editing.ChannelList != "":
			ids := s.editing.ChannelIDs()
			s.parity.Channels = ids
			s.parity.AllChannels = len(ids) == len(s.lookups.Channels)
		case s.channelsCached:
			s.parity.Channels = s.cachedChannels
			s.parity.AllChannels = s.cachedAllChannels
		default:
			s.parity.Channels = nil
			s.parity.AllChannels = false
		}
	}

	s.parity.SelectedOption = option
	return nil
}

// parityOption returns the namespace for the given option, creating it
// when a hydrated session lacks one.
func (s *Session) parityOption(option int) *ParityOptionDraft {
	opt, ok := s.parity.Options[option]
	if !ok {
		opt = &ParityOptionDraft{}
		s.parity.Options[option] = opt
	}
	return opt
}

// SetADRAlertOn selects the primary ADR subject and its compset
// selection (meaningful for the Competitor subject).
func (s *Session) SetADRAlertOn(subject string, compset []uint) {
	s.adr.AlertOn = subject
	s.adr.Compset = slices.Clone(compset)
}

// SetADRRule selects the ADR comparison rule. Choosing Crossed defines
// the rule as "absolute value crossed relative to the same subject", so
// it forces the absolute value mode and snaps the with-respect-to axis
// onto the primary subject. Leaving Crossed does not reverse the snap.
func (s *Session) SetADRRule(rule string) {
	s.adr.AlertRule = rule
	if rule == RuleCrossed {
		s.adr.ValueMode = ValueAbsolute
		s.adr.WRTAlertOn = s.adr.AlertOn
		s.adr.WRTCompset = slices.Clone(s.adr.Compset)
	}
}

// SetADRValueMode selects absolute or percentage thresholds.
func (s *Session) SetADRValueMode(mode string) {
	s.adr.ValueMode = mode
}

// SetADRThreshold sets the ADR threshold value.
func (s *Session) SetADRThreshold(value float64) {
	s.adr.Threshold = value
}

// SetADRWithRespectTo selects the comparison subject and its compset
// selection.
func (s *Session) SetADRWithRespectTo(subject string, compset []uint) {
	s.adr.WRTAlertOn = subject
	s.adr.WRTCompset = slices.Clone(compset)
}

// SetADRCurrency sets the ADR threshold currency.
func (s *Session) SetADRCurrency(currency string) {
	s.adr.Currency = currency
}

// SetParityAlertOn sets the alert criteria for the selected parity
// option only.
func (s *Session) SetParityAlertOn(value string) {
	s.parityOption(s.parity.SelectedOption).AlertOn = value
}

// SetParityScore sets the parity score for the selected option. A nil
// value clears the entry.
func (s *Session) SetParityScore(value *float64) {
	s.parityOption(s.parity.SelectedOption).Score = value
}

// SetParityScoreBy selects absolute or percentage scoring for the
// selected option.
func (s *Session) SetParityScoreBy(mode string) {
	s.parityOption(s.parity.SelectedOption).ScoreBy = mode
}

// SetParityThreshold sets the movement threshold for the selected
// option. A nil value clears the entry.
func (s *Session) SetParityThreshold(value *float64) {
	s.parityOption(s.parity.SelectedOption).Threshold = value
}

// SetParityChannels replaces the live channel selection.
func (s *Session) SetParityChannels(ids []uint) {
	s.parity.Channels = slices.Clone(ids)
	s.parity.AllChannels = len(ids) > 0 && len(ids) == len(s.lookups.Channels)
}

// SetRankAlertOn selects the ranking subject and, for the Competitor
// subject, the single watched competitor.
func (s *Session) SetRankAlertOn(subject string, competitorID uint) {
	s.rank.AlertOn = subject
	if subject == SubjectSubscriber {
		s.rank.CompetitorID = 0
	} else {
		s.rank.CompetitorID = competitorID
	}
}

// SetRankRule selects the ranking comparison rule.
func (s *Session) SetRankRule(rule string) {
	s.rank.AlertRule = rule
}

// SetRankThreshold sets the ranking threshold.
func (s *Session) SetRankThreshold(value float64) {
	s.rank.Threshold = value
}

// SetRankChannel selects the ranking channel.
func (s *Session) SetRankChannel(cid uint) {
	s.rank.Channel = cid
}

// BeginEdit hydrates the drafts from a persisted rule and restricts the
// session to that rule's tab.
func (s *Session) BeginEdit(alert *entities.AlertDefinition) error {
	switch alert.AlertType {
	case TypeADR, TypeParity, TypeRank:
	default:
		return fmt.Errorf("cannot edit alert of unknown type %q", alert.AlertType)
	}

	s.resetDrafts()
	record := *alert
	s.editing = &record
	s.state = StateEditing
	s.activeTab = alert.AlertType

	// Edit mode is a restricted single-tab session.
	for _, tab := range []string{TypeADR, TypeParity, TypeRank} {
		s.disabledTabs[tab] = tab != alert.AlertType
	}

	switch alert.AlertType {
	case TypeADR:
		s.hydrateADR(alert)
	case TypeParity:
		s.hydrateParity(alert)
	case TypeRank:
		s.hydrateRank(alert)
	}
	return nil
}

func (s *Session) hydrateADR(alert *entities.AlertDefinition) {
	mode := ValueAbsolute
	if alert.IsPercentage {
		mode = ValuePercentage
	}
	s.adr = ADRDraft{
		AlertOn:    alert.AlertOn,
		AlertRule:  alert.AlertRule,
		ValueMode:  mode,
		Threshold:  alert.ThresholdValue,
		WRTAlertOn: alert.WithRespectTo,
		Currency:   alert.Currency,
	}
	if alert.AlertOn == SubjectCompetitor {
		s.adr.Compset = alert.CompsetIDs()
	}
	if alert.WithRespectTo == SubjectCompetitor {
		s.adr.WRTCompset = alert.WRTCompsetIDs()
	}
}

func (s *Session) hydrateParity(alert *entities.AlertDefinition) {
	option := alert.SelectedOption
	if option < ParityOptionChannel || option > ParityOptionMovement {
		option = ParityOptionChannel
	}
	s.parity.SelectedOption = option
	draft := s.parityOption(option)
	draft.AlertOn = alert.AlertOn

	switch option {
	case ParityOptionChannel:
		ids := alert.ChannelIDs()
		s.parity.Channels = ids
		s.parity.AllChannels = len(ids) > 0 && len(ids) == len(s.lookups.Channels)
	case ParityOptionScore:
		score := alert.ThresholdValue
		draft.Score = &score
		if alert.IsPercentage {
			draft.ScoreBy = ValuePercentage
		} else {
			draft.ScoreBy = ValueAbsolute
		}
	case ParityOptionMovement:
		threshold := alert.ThresholdValue
		draft.Threshold = &threshold
	}
}

func (s *Session) hydrateRank(alert *entities.AlertDefinition) {
	s.rank = RankDraft{
		AlertOn:   alert.AlertOn,
		AlertRule: alert.AlertRule,
		Threshold: alert.ThresholdValue,
		Channel:   alert.Channel,
	}
	if alert.AlertOn != SubjectSubscriber {
		s.rank.CompetitorID = alert.CompID
	}
}

// notify raises the transient validation notice, if a sink is wired.
func (s *Session) notify(message string) {
	if s.notifier != nil {
		s.notifier.Notify(message)
	}
}
