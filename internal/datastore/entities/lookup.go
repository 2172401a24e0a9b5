package entities

// Property is one hotel in a subscriber's competitive set, including the
// subscriber's own property. PropertyID is the canonical identity used
// throughout the service. HMID is the legacy hotel-market id that older
// form clients still send; it is translated to PropertyID at the API
// boundary and never threaded through the model.
type Property struct {
	PropertyID   uint   `gorm:"primaryKey" json:"propertyID"`
	SID          uint   `gorm:"column:sid;not null;index" json:"-"`
	HMID         uint   `gorm:"column:hmid;index" json:"hmid,omitempty"`
	Name         string `gorm:"size:255;not null" json:"name"`
	IsSubscriber bool   `gorm:"not null;default:false" json:"isSubscriber"`
}

// TableName returns the table name for GORM.
func (Property) TableName() string {
	return "properties"
}

// Channel is an OTA or distribution channel a subscriber tracks rates
// on. Channels are scoped per subscriber, same as properties.
type Channel struct {
	CID  uint   `gorm:"column:cid;primaryKey" json:"cid"`
	SID  uint   `gorm:"column:sid;not null;index" json:"-"`
	Name string `gorm:"size:255;not null" json:"name"`
	// OTA marks channels that support ranking alerts.
	OTA bool `gorm:"not null;default:false" json:"-"`
}

// TableName returns the table name for GORM.
func (Channel) TableName() string {
	return "channels"
}
