package zabbix

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

// fakeServer принимает пакеты Zabbix Sender и отвечает заданным ответом
type fakeServer struct {
	t        *testing.T
	listener net.Listener

	mu       sync.Mutex
	requests []SenderRequest
	// dropFirst сколько первых соединений закрыть без ответа
	dropFirst int
	response  SenderResponse
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &fakeServer{
		t:        t,
		listener: l,
		response: SenderResponse{Response: "success", Info: "processed: 2; failed: 0; total: 2; seconds spent: 0.000040"},
	}
	t.Cleanup(func() { l.Close() })

	go s.serve()
	return s
}

func (s *fakeServer) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.handle(conn)
	}
}

func (s *fakeServer) handle(conn net.Conn) {
	defer conn.Close()

	payload, err := readResponse(conn)
	if err != nil {
		s.t.Logf("fake server: %v", err)
		return
	}

	var req SenderRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.t.Logf("fake server: bad json: %v", err)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	drop := s.dropFirst > 0
	if drop {
		s.dropFirst--
	}
	resp := s.response
	s.mu.Unlock()

	if drop {
		return
	}

	body, _ := json.Marshal(resp)
	_, _ = conn.Write(buildPacket(body))
}

func (s *fakeServer) hostPort() (string, int) {
	addr := s.listener.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func (s *fakeServer) received() []SenderRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SenderRequest(nil), s.requests...)
}

func (s *fakeServer) sender(t *testing.T) *Sender {
	host, port := s.hostPort()
	return NewSender(host, port, 2*time.Second, zaptest.NewLogger(t))
}

func TestBuildPacket(t *testing.T) {
	packet := buildPacket([]byte(`{"a":1}`))

	if !bytes.HasPrefix(packet, []byte("ZBXD\x01")) {
		t.Fatalf("missing header: %q", packet[:5])
	}
	if n := binary.LittleEndian.Uint64(packet[5:13]); n != 7 {
		t.Errorf("length = %d, want 7", n)
	}
	if string(packet[13:]) != `{"a":1}` {
		t.Errorf("payload = %q", packet[13:])
	}
}

func TestReadResponse(t *testing.T) {
	got, err := readResponse(bytes.NewReader(buildPacket([]byte("hello"))))
	if err != nil {
		t.Fatalf("readResponse: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("payload = %q", got)
	}

	if _, err := readResponse(bytes.NewReader([]byte("HTTP/1.1 400"))); err == nil {
		t.Error("expected error for foreign header")
	}

	truncated := buildPacket([]byte("hello"))[:15]
	if _, err := readResponse(bytes.NewReader(truncated)); err == nil {
		t.Error("expected error for truncated payload")
	}

	huge := append([]byte(senderHeader), make([]byte, 8)...)
	binary.LittleEndian.PutUint64(huge[5:], maxResponseSize+1)
	if _, err := readResponse(bytes.NewReader(huge)); err == nil {
		t.Error("expected error for oversized response")
	}
}

func TestParseInfo(t *testing.T) {
	r := parseInfo("processed: 18; failed: 2; total: 20; seconds spent: 0.000055")
	if r.Processed != 18 || r.Failed != 2 || r.Total != 20 {
		t.Errorf("parseInfo = %+v", r)
	}

	if r := parseInfo("garbage"); r != (SendResult{}) {
		t.Errorf("parseInfo(garbage) = %+v", r)
	}
}

func TestSendData(t *testing.T) {
	srv := newFakeServer(t)
	s := srv.sender(t)

	data := []SenderData{
		{Host: "web-1", Key: "system.cpu.util", Value: "12.50", Clock: 100},
		{Host: "web-1", Key: "system.uptime", Value: "3600", Clock: 100},
	}
	result, err := s.SendData(context.Background(), data)
	if err != nil {
		t.Fatalf("SendData: %v", err)
	}
	if result.Processed != 2 || result.Failed != 0 {
		t.Errorf("result = %+v", result)
	}

	reqs := srv.received()
	if len(reqs) != 1 {
		t.Fatalf("server got %d requests", len(reqs))
	}
	if reqs[0].Request != "sender data" || len(reqs[0].Data) != 2 {
		t.Errorf("request = %+v", reqs[0])
	}
	if reqs[0].Data[0] != data[0] {
		t.Errorf("item = %+v, want %+v", reqs[0].Data[0], data[0])
	}
}

func TestSendDataEmpty(t *testing.T) {
	s := NewSender("127.0.0.1", 1, time.Second, zaptest.NewLogger(t))
	if _, err := s.SendData(context.Background(), nil); err != nil {
		t.Errorf("empty send must be a no-op, got %v", err)
	}
}

func TestSendDataServerFailure(t *testing.T) {
	srv := newFakeServer(t)
	srv.mu.Lock()
	srv.response = SenderResponse{Response: "failed", Info: "host not monitored"}
	srv.mu.Unlock()

	_, err := srv.sender(t).SendData(context.Background(), []SenderData{{Host: "h", Key: "k", Value: "1"}})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestSendDataConnectionRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	s := NewSender("127.0.0.1", port, time.Second, zaptest.NewLogger(t))
	if _, err := s.SendData(context.Background(), []SenderData{{Host: "h", Key: "k", Value: "1"}}); err == nil {
		t.Fatal("expected connection error")
	}
	if s.Address() != "127.0.0.1:"+strconv.Itoa(port) {
		t.Errorf("address = %q", s.Address())
	}
}
