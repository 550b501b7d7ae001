package job

import (
	"github.com/satyogainstitute/portal/logger"
	"github.com/satyogainstitute/portal/web/service"
)

// AuditCleanupJob prunes audit entries past the retention window.
type AuditCleanupJob struct {
	auditService   service.AuditService
	settingService service.SettingService
}

func NewAuditCleanupJob() *AuditCleanupJob {
	return &AuditCleanupJob{}
}

func (j *AuditCleanupJob) Run() {
	retainDays, err := j.settingService.GetAuditRetainDays()
	if err != nil || retainDays <= 0 {
		retainDays = 90
	}

	removed, err := j.auditService.Cleanup(retainDays)
	if err != nil {
		logger.Warning("audit cleanup:", err)
		return
	}
	if removed > 0 {
		logger.Debugf("audit cleanup removed %d entries (retention: %d days)", removed, retainDays)
	}
}
