package service

import (
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/satyogainstitute/portal/caching"
	"github.com/satyogainstitute/portal/logger"
)

// Status is the admin system status snapshot.
type Status struct {
	CPUPercent float64 `json:"cpuPercent"`
	MemUsed    uint64  `json:"memUsed"`
	MemTotal   uint64  `json:"memTotal"`
	Uptime     uint64  `json:"uptime"`

	CacheHits    int64 `json:"cacheHits"`
	CacheMisses  int64 `json:"cacheMisses"`
	CacheEntries int   `json:"cacheEntries"`
}

// StatusService gathers host metrics for the admin status page.
type StatusService struct {
	cache *caching.Cache
}

func NewStatusService(cache *caching.Cache) *StatusService {
	return &StatusService{cache: cache}
}

// GetStatus samples CPU, memory, uptime and cache counters. Individual
// probe failures are logged and leave zeroes.
func (s *StatusService) GetStatus() *Status {
	status := &Status{}

	percents, err := cpu.Percent(time.Second, false)
	if err != nil {
		logger.Warning("status: cpu:", err)
	} else if len(percents) > 0 {
		status.CPUPercent = percents[0]
	}

	memInfo, err := mem.VirtualMemory()
	if err != nil {
		logger.Warning("status: mem:", err)
	} else {
		status.MemUsed = memInfo.Used
		status.MemTotal = memInfo.Total
	}

	uptime, err := host.Uptime()
	if err != nil {
		logger.Warning("status: uptime:", err)
	} else {
		status.Uptime = uptime
	}

	status.CacheHits, status.CacheMisses, status.CacheEntries = s.cache.Stats()
	return status
}
