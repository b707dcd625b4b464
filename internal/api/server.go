package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"hostmon/internal/cache"
	"hostmon/internal/collector"
	"hostmon/internal/config"
	"hostmon/internal/scheduler"
	"hostmon/internal/zabbix"
	"hostmon/pkg/profiler"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Monitor ядро, которое обслуживает HTTP слой
type Monitor interface {
	CachedSnapshot() (cache.Entry, bool)
	InstantSnapshot(ctx context.Context) collector.Snapshot
	State() scheduler.State
	Stats() scheduler.Stats
}

// ExportReporter источник статистики экспорта в Zabbix
type ExportReporter interface {
	Stats() zabbix.ExporterStats
}

// Server HTTP API поверх опубликованных срезов
type Server struct {
	config     *config.Config
	monitor    Monitor
	exporter   ExportReporter
	profiler   *profiler.Profiler
	logger     *zap.Logger
	instanceID string
	startedAt  time.Time

	// streamInterval период опроса кэша для websocket клиентов
	streamInterval time.Duration

	mux        *http.ServeMux
	httpServer *http.Server
	listener   net.Listener

	// closing закрывается при остановке, websocket потоки его слушают
	closing   chan struct{}
	closeOnce sync.Once
	streamsMu sync.Mutex
	streams   sync.WaitGroup
}

// Option настраивает сервер
type Option func(*Server)

// WithExporter добавляет статистику экспорта в /health
func WithExporter(e ExportReporter) Option {
	return func(s *Server) {
		s.exporter = e
	}
}

// WithProfiler монтирует pprof и добавляет статистику рантайма в /health
func WithProfiler(p *profiler.Profiler) Option {
	return func(s *Server) {
		s.profiler = p
	}
}

// WithStreamInterval задает период опроса кэша для /api/stream
func WithStreamInterval(d time.Duration) Option {
	return func(s *Server) {
		s.streamInterval = d
	}
}

// New создает новый HTTP сервер
func New(cfg *config.Config, monitor Monitor, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{
		config:         cfg,
		monitor:        monitor,
		logger:         logger,
		instanceID:     uuid.New().String(),
		startedAt:      time.Now(),
		streamInterval: cfg.Interval,
		closing:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.streamInterval <= 0 {
		s.streamInterval = time.Second
	}

	s.mux = http.NewServeMux()
	s.routes()
	return s
}

// routes регистрирует обработчики
func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/system", s.handleSystem)
	s.mux.HandleFunc("GET /api/system/instant", s.handleInstant)
	s.mux.HandleFunc("GET /api/all", s.handleAll)
	s.mux.HandleFunc("GET /api/stream", s.handleStream)
	s.mux.HandleFunc("GET /health", s.handleHealth)

	if s.profiler != nil {
		s.profiler.Mount(s.mux)
	}
}

// Handler возвращает корневой обработчик
func (s *Server) Handler() http.Handler {
	return s.mux
}

// InstanceID идентификатор экземпляра процесса
func (s *Server) InstanceID() string {
	return s.instanceID
}

// Start открывает порт и начинает обслуживать запросы.
// Ошибка привязки возвращается сразу.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddr, err)
	}
	s.listener = l

	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		s.logger.Info("Starting HTTP server",
			zap.String("addr", l.Addr().String()),
			zap.String("instance_id", s.instanceID))

		if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Addr фактический адрес после Start
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.config.ListenAddr
	}
	return s.listener.Addr().String()
}

// Shutdown останавливает сервер, дожидаясь активных запросов
func (s *Server) Shutdown(ctx context.Context) error {
	// Перехваченные websocket соединения http.Server не закрывает
	s.streamsMu.Lock()
	s.closeOnce.Do(func() { close(s.closing) })
	s.streamsMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.streams.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("failed to close streams: %w", ctx.Err())
	}

	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("Stopping HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}

// writeJSON сериализует ответ
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("Failed to write response", zap.Error(err))
	}
}
