package models

import (
	"time"

	"gorm.io/gorm"
)

// NoticeReadStatus tracks per-(notice,user) acknowledgment. Rows are created
// lazily the first time a tenant retrieves a notice and are never deleted.
type NoticeReadStatus struct {
	gorm.Model
	NoticeID uint       `json:"noticeID" gorm:"uniqueIndex:idx_notice_user;index"`
	UserID   uint       `json:"userID" gorm:"uniqueIndex:idx_notice_user;index"`
	IsRead   bool       `json:"isRead" gorm:"default:false"`
	ReadAt   *time.Time `json:"readAt"`

	Notice Notice `json:"notice,omitempty" gorm:"foreignKey:NoticeID;references:ID"`
	User   User   `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID"`
}

// MarkAsRead transitions unread -> read exactly once. Re-acknowledging a read
// row is a no-op, ReadAt is never overwritten.
func (s *NoticeReadStatus) MarkAsRead(tx *gorm.DB) error {
	if s.IsRead {
		return nil
	}
	now := time.Now()
	s.IsRead = true
	s.ReadAt = &now
	return tx.Model(s).Select("is_read", "read_at").Updates(map[string]interface{}{
		"is_read": true,
		"read_at": now,
	}).Error
}
