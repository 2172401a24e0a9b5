package entities

import "time"

// Change actions recorded in the alert change history.
const (
	ActionCreate   = "Create"
	ActionModified = "Modified"
	ActionDeleted  = "Deleted"
)

// AlertChange records one entry in the alert change history: a snapshot
// of the rule at the moment it was created, modified, toggled or
// deleted. History rows render through the same compiler as live rules.
type AlertChange struct {
	ID             uint      `gorm:"primaryKey" json:"-"`
	AlertID        string    `gorm:"size:36;not null;index" json:"AlertId"`
	SID            uint      `gorm:"column:sid;not null;index" json:"SID"`
	Action         string    `gorm:"size:20;not null" json:"Action"`
	AlertType      string    `gorm:"size:20;not null" json:"AlertType"`
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
	IsActive       bool      `gorm:"default:true" json:"IsActive"`
	CreatedBy      string    `gorm:"size:100;default:''" json:"CreatedBy"`
	ChangedOn      time.Time `gorm:"autoCreateTime;index" json:"CreatedOn"`
}

// TableName returns the table name for GORM.
func (AlertChange) TableName() string {
	return "alert_changes"
}

// SnapshotOf builds a history entry from the current state of a rule.
func SnapshotOf(a *AlertDefinition, action string) *AlertChange {
	return &AlertChange{
		AlertID:        a.AlertID,
		SID:            a.SID,
		Action:         action,
		AlertType:      a.AlertType,
		AlertOn:        a.AlertOn,
		AlertRule:      a.AlertRule,
		SelectedOption: a.SelectedOption,
		ThresholdValue: a.ThresholdValue,
		IsPercentage:   a.IsPercentage,
		WithRespectTo:  a.WithRespectTo,
		CompsetList:    a.CompsetList,
		WRTCompsetList: a.WRTCompsetList,
		ChannelList:    a.ChannelList,
		Channel:        a.Channel,
		CompID:         a.CompID,
		IsActive:       a.IsActive,
		CreatedBy:      a.CreatedBy,
	}
}

// Definition rebuilds the rule snapshot in AlertDefinition shape so the
// compiler can render history entries without a second code path.
func (c *AlertChange) Definition() AlertDefinition {
	return AlertDefinition{
		AlertID:        c.AlertID,
		SID:            c.SID,
		AlertType:      c.AlertType,
		AlertOn:        c.AlertOn,
		AlertRule:      c.AlertRule,
		SelectedOption: c.SelectedOption,
		ThresholdValue: c.ThresholdValue,
		IsPercentage:   c.IsPercentage,
		WithRespectTo:  c.WithRespectTo,
		CompsetList:    c.CompsetList,
		WRTCompsetList: c.WRTCompsetList,
		ChannelList:    c.ChannelList,
		Channel:        c.Channel,
		CompID:         c.CompID,
		IsActive:       c.IsActive,
		CreatedBy:      c.CreatedBy,
		CreatedOn:      c.ChangedOn,
	}
}
