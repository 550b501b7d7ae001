// Package job holds the portal's scheduled background jobs.
package job

import (
	"context"
	"time"

	"github.com/satyogainstitute/portal/logger"
	"github.com/satyogainstitute/portal/web/service"
)

// CacheWarmJob periodically refreshes the hot CMS collections so public
// pages keep serving through short CMS outages.
type CacheWarmJob struct {
	cms *service.CMSClient
}

func NewCacheWarmJob(cms *service.CMSClient) *CacheWarmJob {
	return &CacheWarmJob{cms: cms}
}

func (j *CacheWarmJob) Run() {
	logger.Debug("cache warm job started")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	j.cms.WarmCache(ctx)
	logger.Debug("cache warm job finished")
}
