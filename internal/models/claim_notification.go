package models

import "time"

// ClaimNotification 领取通知投递状态
// 每条领取记录至多一行，status=sent 后不再重复投递。
type ClaimNotification struct {
	ID            uint       `gorm:"primarykey" json:"id"`
	ClaimRecordID uint       `gorm:"uniqueIndex;not null" json:"claim_record_id"`
	CardID        uint       `gorm:"index;not null" json:"card_id"`
	Channel       string     `gorm:"type:varchar(16);not null" json:"channel"`
	Contact       string     `gorm:"type:varchar(255);not null" json:"contact"`
	Locale        string     `gorm:"type:varchar(16);not null;default:''" json:"locale"`
	Status        string     `gorm:"type:varchar(16);index;not null" json:"status"`
	Attempts      int        `gorm:"not null;default:0" json:"attempts"`
	LastError     string     `gorm:"type:text" json:"last_error"`
	SentAt        *time.Time `json:"sent_at"`
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"index" json:"updated_at"`
}

// TableName 指定表名
func (ClaimNotification) TableName() string {
	return "claim_notifications"
}
