package models

import "time"

// ClaimRecord 领取记录，只追加不修改
type ClaimRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	ClaimNo   string    `gorm:"type:varchar(40);uniqueIndex;not null" json:"claim_no"`
	CardID    uint      `gorm:"index;not null" json:"card_id"`
	Channel   string    `gorm:"type:varchar(16);index;not null" json:"channel"` // email / sms
	Contact   string    `gorm:"type:varchar(255);index;not null" json:"contact"`
	Locale    string    `gorm:"type:varchar(16);not null;default:''" json:"locale"`
	ClientIP  string    `gorm:"type:varchar(64);not null;default:''" json:"client_ip"`
	ClaimedAt time.Time `gorm:"index;not null" json:"claimed_at"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	Card         *Card              `gorm:"foreignKey:CardID" json:"card,omitempty"`
	Notification *ClaimNotification `gorm:"foreignKey:ClaimRecordID" json:"notification,omitempty"`
}

// TableName 指定表名
func (ClaimRecord) TableName() string {
	return "claim_records"
}
