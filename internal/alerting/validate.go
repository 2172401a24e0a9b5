package alerting

import (
	"github.com/rateintel/rateintel-go/internal/observability/metrics"
)

// Validation messages. Checks run in fixed priority order and the first
// failure is the one surfaced; messages never stack.
const (
	MsgADRCompsetRequired    = `Please select compset from "Competitor ADR" list`
	MsgADRWRTCompsetRequired = `Please select compset from "With Respect To" list`
	MsgADRThresholdTooLow    = `"By" Value cannot be less than 1`

	MsgParityCriteriaAndChannel = "Please select alert criteria and channel"
	MsgParityCriteriaRequired   = "Please select alert criteria"
	MsgParityChannelRequired    = "Please select channel"
	MsgParityScoreRequired      = "Please enter parity score"
	MsgParityScoreByRequired    = "Please select score type"
	MsgParityThresholdRequired  = "Please enter threshold value"

	MsgRankCompetitorRequired = "Please select competitor hotel"
	MsgRankChannelRequired    = "Please select channel"
	MsgRankThresholdTooLow    = `"By" Value cannot be less than 1`
)

// ValidationError carries the single user-facing message for a rejected
// draft.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validate gates submission of the active tab's draft. It returns nil
// when the draft may be submitted; otherwise the first failing rule's
// message, which has also been raised through the notifier.
func (s *Session) Validate() error {
	var message string
	switch s.activeTab {
	case TypeADR:
		message = s.validateADR()
	case TypeParity:
		message = s.validateParity()
	case TypeRank:
		message = s.validateRank()
	}
	if message == "" {
		return nil
	}
	metrics.IncValidationFailure(s.activeTab)
	s.notify(message)
	return &ValidationError{Message: message}
}

func (s *Session) validateADR() string {
	if s.adr.AlertOn == SubjectCompetitor && len(s.adr.Compset) == 0 {
		return MsgADRCompsetRequired
	}
	if s.adr.WRTAlertOn == SubjectCompetitor && len(s.adr.WRTCompset) == 0 {
		return MsgADRWRTCompsetRequired
	}
	if s.adr.Threshold <= 0 {
		return MsgADRThresholdTooLow
	}
	return ""
}

func (s *Session) validateParity() string {
	option := s.parityOption(s.parity.SelectedOption)
	switch s.parity.SelectedOption {
	case ParityOptionChannel:
		if option.AlertOn == "" && len(s.parity.Channels) == 0 {
			return MsgParityCriteriaAndChannel
		}
		if option.AlertOn == "" {
			return MsgParityCriteriaRequired
		}
		if len(s.parity.Channels) == 0 {
			return MsgParityChannelRequired
		}
	case ParityOptionScore:
		if option.AlertOn == "" {
			return MsgParityCriteriaRequired
		}
		if option.Score == nil {
			return MsgParityScoreRequired
		}
		if option.ScoreBy == "" {
			return MsgParityScoreByRequired
		}
	case ParityOptionMovement:
		if option.AlertOn == "" {
			return MsgParityCriteriaRequired
		}
		if option.Threshold == nil {
			return MsgParityThresholdRequired
		}
	}
	return ""
}

func (s *Session) validateRank() string {
	if s.rank.AlertOn != SubjectSubscriber && s.rank.CompetitorID == 0 {
		return MsgRankCompetitorRequired
	}
	if s.rank.Channel == 0 {
		return MsgRankChannelRequired
	}
	if s.rank.Threshold <= 0 {
		return MsgRankThresholdTooLow
	}
	return ""
}
