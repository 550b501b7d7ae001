package service

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/satyogainstitute/portal/database"
	"github.com/satyogainstitute/portal/database/model"
)

// AuditService records admin actions taken through this portal into the
// local audit table.
type AuditService struct{}

// LogAction appends one audit entry. details is marshaled to JSON.
func (s *AuditService) LogAction(userId int, email, action, resource, resourceId, ip, userAgent string, details map[string]any) error {
	blob := ""
	if details != nil {
		if b, err := json.Marshal(details); err == nil {
			blob = string(b)
		}
	}

	entry := &model.AuditEntry{
		UserId:     userId,
		Email:      email,
		Action:     action,
		Resource:   resource,
		ResourceId: resourceId,
		Ip:         ip,
		UserAgent:  userAgent,
		Details:    blob,
	}
	db := database.GetDB()
	return db.Create(entry).Error
}

// List returns one page of audit entries, newest first.
func (s *AuditService) List(page, pageSize int) ([]*model.AuditEntry, int64, error) {
	db := database.GetDB()

	var total int64
	if err := db.Model(model.AuditEntry{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []*model.AuditEntry
	err := db.Order("created_at desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entries).Error
	return entries, total, err
}

// Cleanup deletes entries older than retainDays. Returns rows removed.
func (s *AuditService) Cleanup(retainDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retainDays)
	db := database.GetDB()
	result := db.Where("created_at < ?", cutoff).Delete(&model.AuditEntry{})
	return result.RowsAffected, result.Error
}
