package repository

import "time"

// CardListFilter 卡片列表过滤条件
type CardListFilter struct {
	Page     int
	PageSize int
	Keyword  string
	Status   string
	// Expired 为 nil 时不过滤；true 只看已过期；false 只看未过期
	Expired *bool
	// SoldOut 为 true 时只看数量为 0 的卡片
	SoldOut bool
	Now     time.Time
}

// ClaimRecordListFilter 领取记录过滤条件
type ClaimRecordListFilter struct {
	Page        int
	PageSize    int
	CardID      uint
	Contact     string
	Channel     string
	ClaimNo     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// AuditLogListFilter 审计日志过滤条件
type AuditLogListFilter struct {
	Page            int
	PageSize        int
	OperatorAdminID uint
	Action          string
	TargetType      string
	TargetID        uint
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
}
