package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const streamWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 8192,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleStream отправляет клиенту каждый новый опубликованный срез.
// Мгновенные срезы в поток не попадают.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if !s.trackStream() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer s.streams.Done()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		s.logger.Debug("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	s.logger.Debug("Stream client connected", zap.String("remote", r.RemoteAddr))

	// Читаем входящие сообщения только чтобы заметить отключение клиента
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.streamInterval)
	defer ticker.Stop()

	var lastSequence uint64
	push := func() bool {
		entry, ok := s.monitor.CachedSnapshot()
		if !ok || entry.Snapshot.Sequence <= lastSequence {
			return true
		}
		meta := entry.Metadata
		msg := SystemResponse{Snapshot: entry.Snapshot, Cached: true, CacheInfo: &meta}

		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			s.logger.Debug("Stream write failed", zap.Error(err))
			return false
		}
		lastSequence = entry.Snapshot.Sequence
		return true
	}

	if !push() {
		return
	}
	for {
		select {
		case <-ticker.C:
			if !push() {
				return
			}
		case <-closed:
			s.logger.Debug("Stream client disconnected", zap.String("remote", r.RemoteAddr))
			return
		case <-s.closing:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			return
		case <-r.Context().Done():
			return
		}
	}
}

// trackStream регистрирует поток, пока сервер не начал останавливаться.
// Add и закрытие closing идут под одним мьютексом, поэтому Wait в
// Shutdown не пересекается с регистрацией нового потока.
func (s *Server) trackStream() bool {
	s.streamsMu.Lock()
	defer s.streamsMu.Unlock()

	select {
	case <-s.closing:
		return false
	default:
	}
	s.streams.Add(1)
	return true
}
