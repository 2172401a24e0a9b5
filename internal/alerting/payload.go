package alerting

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/rateintel/rateintel-go/internal/datastore/entities"
)

// Submit validates the active tab's draft and shapes it into the wire
// record the persistence boundary expects. The draft survives a
// validation failure so the user can correct and retry; it is discarded
// only once the caller reports successful persistence via Complete.
func (s *Session) Submit() (*entities.AlertDefinition, error) {
	if s.state == StateClosed {
		return nil, fmt.Errorf("no draft in progress")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	alert := &entities.AlertDefinition{
		AlertID:   uuid.NewString(),
		SID:       s.sid,
		AlertType: s.activeTab,
		CreatedBy: s.user,
		IsActive:  true,
	}
	if s.editing != nil {
		alert.AlertID = s.editing.AlertID
		alert.CreatedOn = s.editing.CreatedOn
		alert.IsActive = s.editing.IsActive
		if s.user == "" {
			alert.CreatedBy = s.editing.CreatedBy
		}
	}

	switch s.activeTab {
	case TypeADR:
		s.shapeADR(alert)
	case TypeParity:
		s.shapeParity(alert)
	case TypeRank:
		s.shapeRank(alert)
	}
	return alert, nil
}

// Complete discards the draft after the caller has persisted the
// submitted record.
func (s *Session) Complete() {
	s.complete()
}

// shapeADR derives the ADR wire fields. Both compset lists follow the
// same three-way rule keyed on their subject: the subscriber's own id,
// the user's competitor selection, or the whole non-subscriber compset.
func (s *Session) shapeADR(alert *entities.AlertDefinition) {
	alert.AlertOn = s.adr.AlertOn
	alert.AlertRule = s.adr.AlertRule
	alert.ThresholdValue = s.adr.Threshold
	alert.IsPercentage = s.adr.ValueMode != ValueAbsolute
	alert.WithRespectTo = s.adr.WRTAlertOn
	alert.Currency = s.adr.Currency
	alert.CompsetList = entities.JoinIDList(s.subjectCompset(s.adr.AlertOn, s.adr.Compset))
	alert.WRTCompsetList = entities.JoinIDList(s.subjectCompset(s.adr.WRTAlertOn, s.adr.WRTCompset))
}

func (s *Session) subjectCompset(subject string, selection []uint) []uint {
	switch subject {
	case SubjectCompetitor:
		return selection
	case SubjectAvgCompset:
		return s.lookups.CompetitorIDs()
	default:
		if sub := s.lookups.Subscriber(); sub != nil {
			return []uint{sub.PropertyID}
		}
		return nil
	}
}

// shapeParity derives the parity wire fields from the selected option's
// namespace. The channel option carries the user's channel selection
// and a forced zero threshold; the score options carry their value and
// scope to every channel.
func (s *Session) shapeParity(alert *entities.AlertDefinition) {
	option := s.parityOption(s.parity.SelectedOption)
	alert.SelectedOption = s.parity.SelectedOption
	alert.AlertOn = option.AlertOn
	alert.Currency = s.parity.Currency

	switch s.parity.SelectedOption {
	case ParityOptionChannel:
		alert.ThresholdValue = 0
		alert.ChannelList = entities.JoinIDList(s.parity.Channels)
	case ParityOptionScore:
		if option.Score != nil {
			alert.ThresholdValue = *option.Score
		}
		alert.IsPercentage = option.ScoreBy == ValuePercentage
		alert.ChannelList = entities.JoinIDList(s.allChannelIDs())
	case ParityOptionMovement:
		if option.Threshold != nil {
			alert.ThresholdValue = *option.Threshold
		}
		alert.ChannelList = entities.JoinIDList(s.allChannelIDs())
	}
}

func (s *Session) allChannelIDs() []uint {
	ids := make([]uint, 0, len(s.lookups.Channels))
	for i := range s.lookups.Channels {
		ids = append(ids, s.lookups.Channels[i].CID)
	}
	return ids
}

// shapeRank derives the ranking wire fields. CompID is the subscriber's
// own property for subscriber rules, otherwise the single selected
// competitor.
func (s *Session) shapeRank(alert *entities.AlertDefinition) {
	alert.AlertOn = s.rank.AlertOn
	alert.AlertRule = s.rank.AlertRule
	alert.ThresholdValue = s.rank.Threshold
	alert.Channel = s.rank.Channel
	if s.rank.AlertOn == SubjectSubscriber {
		if sub := s.lookups.Subscriber(); sub != nil {
			alert.CompID = sub.PropertyID
		}
	} else {
		alert.CompID = s.rank.CompetitorID
	}
}
