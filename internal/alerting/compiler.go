package alerting

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rateintel/rateintel-go/internal/datastore/entities"
)

// Row is the display read-model for one alert: the compiled rule
// sentence plus the columns the settings table shows.
type Row struct {
	// DisplayIndex is positional, 1-based, and recomputed on every list
	// call. It is not an identity; AlertID is.
	DisplayIndex int    `json:"id"`
	Type         string `json:"type"`
	Rule         string `json:"rule"`
	CreatedBy    string `json:"createdBy"`
	CreatedOn    string `json:"createdOn"`
	Status       bool   `json:"status"`
	AlertID      string `json:"AlertID"`
	Action       string `json:"Action,omitempty"`
}

// CompileRows renders persisted alert rules into display rows. Rules
// with an unrecognized AlertType are dropped: legacy data may carry
// tags this build does not know, and a best-effort table beats an
// error. Compilation never fails; missing lookups degrade to empty
// substrings.
func CompileRows(alerts []entities.AlertDefinition, lookups *Lookups) []Row {
	rows := make([]Row, 0, len(alerts))
	for i := range alerts {
		row, ok := compileRow(&alerts[i], len(rows)+1, lookups)
		if !ok {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// CompileChanges renders change-history entries through the same
// grammar as live rules, carrying the Action column.
func CompileChanges(changes []entities.AlertChange, lookups *Lookups) []Row {
	rows := make([]Row, 0, len(changes))
	for i := range changes {
		def := changes[i].Definition()
		row, ok := compileRow(&def, len(rows)+1, lookups)
		if !ok {
			continue
		}
		row.Action = changes[i].Action
		rows = append(rows, row)
	}
	return rows
}

func compileRow(alert *entities.AlertDefinition, index int, lookups *Lookups) (Row, bool) {
	switch alert.AlertType {
	case TypeADR:
		return CompileADR(alert, index, lookups.Properties), true
	case TypeParity:
		return CompileParity(alert, index, lookups.Channels), true
	case TypeRank:
		return CompileRank(alert, index, lookups.Channels, lookups.Properties), true
	default:
		return Row{}, false
	}
}

// CompileADR renders an ADR rule, e.g.
// "Competitor Grand Hotel ADR < 13 %".
func CompileADR(alert *entities.AlertDefinition, index int, properties []entities.Property) Row {
	var b strings.Builder
	b.WriteString(alert.WithRespectTo)
	if alert.WithRespectTo == SubjectCompetitor {
		if names := propertyNames(properties, alert.WRTCompsetIDs()); names != "" {
			b.WriteString(" ")
			b.WriteString(names)
		}
	}
	b.WriteString(" ADR ")
	b.WriteString(comparisonGlyph(alert.AlertRule))
	b.WriteString(roundedThreshold(alert.ThresholdValue))
	if alert.IsPercentage {
		b.WriteString(" %")
	}
	return newRow(alert, index, b.String())
}

// CompileParity renders a parity rule. The sentence branches on the
// stored sub-option; unknown options fall back to a literal.
func CompileParity(alert *entities.AlertDefinition, index int, channels []entities.Channel) Row {
	var rule string
	switch alert.SelectedOption {
	case ParityOptionChannel:
		rule = "Subscriber " + alert.AlertOn + " on " + channelNames(channels, alert.ChannelIDs())
	case ParityOptionScore:
		rule = "Subscriber Parity Score " + comparisonGlyph(alert.AlertRule) + roundedThreshold(alert.ThresholdValue)
		if alert.IsPercentage {
			rule += " %"
		}
	case ParityOptionMovement:
		// No percent suffix here regardless of IsPercentage. The legacy
		// renderer never appended one for movement rules and stored data
		// depends on the exact sentence.
		rule = "Subscriber Parity Score " + alert.AlertOn + " " + roundedThreshold(alert.ThresholdValue)
	default:
		rule = "Parity rule"
	}
	return newRow(alert, index, rule)
}

// CompileRank renders an OTA ranking rule, e.g.
// "Subscriber Ranking > 3 on Booking.com".
func CompileRank(alert *entities.AlertDefinition, index int, channels []entities.Channel, properties []entities.Property) Row {
	var b strings.Builder
	if alert.AlertOn == SubjectSubscriber {
		b.WriteString("Subscriber Ranking ")
	} else {
		// Silently empty subject when the competitor left the compset.
		if name := propertyName(properties, alert.CompID); name != "" {
			b.WriteString(name)
			b.WriteString(" ")
		}
		b.WriteString("Ranking ")
	}
	b.WriteString(comparisonGlyph(alert.AlertRule))
	b.WriteString(roundedThreshold(alert.ThresholdValue))

	if ids := alert.ChannelIDs(); len(ids) > 0 {
		b.WriteString(" on ")
		b.WriteString(channelNames(channels, ids))
	} else if alert.Channel != 0 {
		b.WriteString(" on ")
		b.WriteString(channelName(channels, alert.Channel))
	}
	return newRow(alert, index, b.String())
}

func newRow(alert *entities.AlertDefinition, index int, rule string) Row {
	createdBy := alert.CreatedBy
	if createdBy == "" {
		createdBy = fallbackCreator
	}
	createdOn := alert.CreatedOn
	if createdOn.IsZero() {
		createdOn = time.Now()
	}
	return Row{
		DisplayIndex: index,
		Type:         alert.AlertType,
		Rule:         rule,
		CreatedBy:    createdBy,
		CreatedOn:    createdOn.Format(shortDateLayout),
		Status:       alert.IsActive,
		AlertID:      alert.AlertID,
	}
}

// comparisonGlyph maps a comparison rule to its sentence glyph.
// Everything that is not Decreased renders as "> ", including Crossed
// and records with no rule at all.
func comparisonGlyph(rule string) string {
	if rule == RuleDecreased {
		return glyphBelow
	}
	return glyphAbove
}

// roundedThreshold renders a threshold rounded to the nearest integer.
// Compiled sentences never show decimal places.
func roundedThreshold(value float64) string {
	return strconv.FormatInt(int64(math.Round(value)), 10)
}
