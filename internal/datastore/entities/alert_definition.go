package entities

import (
	"strconv"
	"strings"
	"time"
)

// AlertDefinition is the canonical persisted shape of one alert rule.
// The union of type-specific fields is discriminated by AlertType:
// ADR rules use AlertRule, WithRespectTo, CompsetList and WRTCompsetList;
// Parity rules use SelectedOption, ChannelList and the threshold fields;
// OTA Ranking rules use AlertRule, CompID and a channel scope.
type AlertDefinition struct {
	ID uint `gorm:"primaryKey" json:"-"`
	// AlertID is the durable identity of the rule. The positional id in
	// compiled table rows is display-only and recomputed on every list.
	AlertID        string    `gorm:"size:36;not null;uniqueIndex" json:"AlertId"`
	SID            uint      `gorm:"column:sid;not null;index" json:"SID"`
	AlertType      string    `gorm:"size:20;not null;index" json:"AlertType"`
	AlertOn        string    `gorm:"size:50;default:''" json:"AlertOn"`
	AlertRule      string    `gorm:"size:20;default:''" json:"AlertRule"`
	SelectedOption int       `gorm:"default:0" json:"SelectedOption"`
	ThresholdValue float64   `gorm:"default:0" json:"ThresholdValue"`
	IsPercentage   bool      `gorm:"default:false" json:"IsPercentage"`
	WithRespectTo  string    `gorm:"size:50;default:''" json:"WithRespectTo"`
	CompsetList    string    `gorm:"size:500;default:''" json:"CompsetList"`
	WRTCompsetList string    `gorm:"size:500;default:''" json:"WRTCompsetList"`
	ChannelList    string    `gorm:"size:500;default:''" json:"ChannelList"`
	Channel        uint      `gorm:"default:0" json:"Channel"`
	CompID         uint      `gorm:"default:0" json:"CompID"`
	Currency       string    `gorm:"size:10;default:''" json:"Currency"`
	EventDay       string    `gorm:"size:50;default:''" json:"EventDay"`
	CreatedBy      string    `gorm:"size:100;default:''" json:"CreatedBy"`
	IsActive       bool      `gorm:"not null;default:true;index" json:"IsActive"`
	Deleted        bool      `gorm:"not null;default:false;index" json:"-"`
	CreatedOn      time.Time `gorm:"autoCreateTime" json:"CreatedOn"`
	UpdatedOn      time.Time `gorm:"autoUpdateTime" json:"-"`
}

// TableName returns the table name for GORM.
func (AlertDefinition) TableName() string {
	return "alert_definitions"
}

// CompsetIDs returns the parsed CompsetList.
func (a *AlertDefinition) CompsetIDs() []uint {
	return SplitIDList(a.CompsetList)
}

// WRTCompsetIDs returns the parsed WRTCompsetList.
func (a *AlertDefinition) WRTCompsetIDs() []uint {
	return SplitIDList(a.WRTCompsetList)
}

// ChannelIDs returns the parsed ChannelList.
func (a *AlertDefinition) ChannelIDs() []uint {
	return SplitIDList(a.ChannelList)
}

// SplitIDList parses a comma-joined id list as stored on the wire.
// Malformed entries are skipped rather than reported: persisted records
// from the legacy system are rendered best-effort.
func SplitIDList(s string) []uint {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]uint, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 32)
		if err != nil {
			continue
		}
		out = append(out, uint(v))
	}
	return out
}

// JoinIDList renders ids in the comma-joined wire shape.
func JoinIDList(ids []uint) string {
	if len(ids) == 0 {
		return ""
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ",")
}
