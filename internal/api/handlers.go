package api

import (
	"net/http"
	"time"

	"hostmon/internal/cache"
	"hostmon/internal/collector"
	"hostmon/internal/scheduler"
	"hostmon/internal/zabbix"
	"hostmon/pkg/profiler"
)

// SystemResponse срез системы в ответе API
type SystemResponse struct {
	collector.Snapshot
	Cached    bool            `json:"cached"`
	CacheInfo *cache.Metadata `json:"cache_info,omitempty"`
}

// AllResponse сводный ответ для дашбордов
type AllResponse struct {
	System    SystemResponse  `json:"system"`
	Cache     *cache.Metadata `json:"cache"`
	Scheduler scheduler.Stats `json:"scheduler"`
	Timestamp time.Time       `json:"timestamp"`
}

// HealthResponse ответ проверки состояния
type HealthResponse struct {
	Status        string                 `json:"status"`
	Timestamp     time.Time              `json:"timestamp"`
	InstanceID    string                 `json:"instance_id"`
	State         string                 `json:"state"`
	UptimeSeconds int64                  `json:"uptime_seconds"`
	Scheduler     scheduler.Stats        `json:"scheduler"`
	Zabbix        *zabbix.ExporterStats  `json:"zabbix,omitempty"`
	Runtime       *profiler.RuntimeStats `json:"runtime,omitempty"`
}

// system возвращает кэшированный срез или, при холодном кэше, мгновенный
func (s *Server) system(r *http.Request) SystemResponse {
	if entry, ok := s.monitor.CachedSnapshot(); ok {
		meta := entry.Metadata
		return SystemResponse{Snapshot: entry.Snapshot, Cached: true, CacheInfo: &meta}
	}
	return SystemResponse{Snapshot: s.monitor.InstantSnapshot(r.Context())}
}

func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.system(r))
}

func (s *Server) handleInstant(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, SystemResponse{Snapshot: s.monitor.InstantSnapshot(r.Context())})
}

func (s *Server) handleAll(w http.ResponseWriter, r *http.Request) {
	system := s.system(r)
	s.writeJSON(w, http.StatusOK, AllResponse{
		System:    system,
		Cache:     system.CacheInfo,
		Scheduler: s.monitor.Stats(),
		Timestamp: time.Now(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := s.monitor.State()

	resp := HealthResponse{
		Status:        "healthy",
		Timestamp:     time.Now(),
		InstanceID:    s.instanceID,
		State:         state.String(),
		UptimeSeconds: int64(time.Since(s.startedAt) / time.Second),
		Scheduler:     s.monitor.Stats(),
	}
	if s.exporter != nil {
		stats := s.exporter.Stats()
		resp.Zabbix = &stats
	}
	if s.profiler != nil && s.profiler.Enabled() {
		stats := s.profiler.Stats()
		resp.Runtime = &stats
	}

	status := http.StatusOK
	if state == scheduler.StateStopped {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, resp)
}
