package zabbix

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	// Zabbix Sender протокол
	senderHeader  = "ZBXD\x01"
	senderDataLen = 8

	maxResponseSize = 1024 * 1024
)

// SenderData представляет данные для отправки через Zabbix Sender
type SenderData struct {
	Host  string `json:"host"`
	Key   string `json:"key"`
	Value string `json:"value"`
	Clock int64  `json:"clock,omitempty"`
}

// SenderRequest представляет запрос Zabbix Sender
type SenderRequest struct {
	Request string       `json:"request"`
	Data    []SenderData `json:"data"`
	Clock   int64        `json:"clock,omitempty"`
}

// SenderResponse представляет ответ Zabbix Sender
type SenderResponse struct {
	Response string `json:"response"`
	Info     string `json:"info,omitempty"`
}

// SendResult итог обработки пакета сервером
type SendResult struct {
	Processed int
	Failed    int
	Total     int
}

// Sender реализует Zabbix Sender протокол
type Sender struct {
	address string
	timeout time.Duration
	logger  *zap.Logger
}

// NewSender создает новый Zabbix Sender
func NewSender(serverHost string, serverPort int, timeout time.Duration, logger *zap.Logger) *Sender {
	return &Sender{
		address: net.JoinHostPort(serverHost, strconv.Itoa(serverPort)),
		timeout: timeout,
		logger:  logger,
	}
}

// Address адрес сервера или прокси
func (s *Sender) Address() string {
	return s.address
}

// SendData отправляет данные через Zabbix Sender протокол
func (s *Sender) SendData(ctx context.Context, data []SenderData) (SendResult, error) {
	if len(data) == 0 {
		return SendResult{}, nil
	}

	s.logger.Debug("Sending data via Zabbix Sender",
		zap.String("address", s.address),
		zap.Int("items", len(data)))

	request := SenderRequest{
		Request: "sender data",
		Data:    data,
		Clock:   time.Now().Unix(),
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return SendResult{}, fmt.Errorf("failed to marshal sender request: %w", err)
	}

	response, err := s.sendPacket(ctx, buildPacket(jsonData))
	if err != nil {
		return SendResult{}, fmt.Errorf("failed to send packet: %w", err)
	}

	var senderResp SenderResponse
	if err := json.Unmarshal(response, &senderResp); err != nil {
		return SendResult{}, fmt.Errorf("failed to parse sender response: %w", err)
	}

	if senderResp.Response != "success" {
		return SendResult{}, fmt.Errorf("zabbix sender error: %s", senderResp.Info)
	}

	result := parseInfo(senderResp.Info)
	if result.Failed > 0 {
		// Сервер принял пакет, но часть элементов не существует или не trapper
		s.logger.Warn("Zabbix rejected some items",
			zap.Int("processed", result.Processed),
			zap.Int("failed", result.Failed),
			zap.Int("total", result.Total))
	}

	s.logger.Debug("Successfully sent data via Zabbix Sender",
		zap.String("info", senderResp.Info))

	return result, nil
}

// parseInfo разбирает строку вида
// "processed: 18; failed: 0; total: 18; seconds spent: 0.000055"
func parseInfo(info string) SendResult {
	var r SendResult
	// Если формат неизвестен, возвращаем то, что успели разобрать
	_, _ = fmt.Sscanf(info, "processed: %d; failed: %d; total: %d", &r.Processed, &r.Failed, &r.Total)
	return r
}

// buildPacket создает пакет согласно протоколу Zabbix Sender
func buildPacket(data []byte) []byte {
	packet := make([]byte, 0, len(senderHeader)+senderDataLen+len(data))
	packet = append(packet, senderHeader...)
	// Длина данных (little-endian uint64)
	packet = binary.LittleEndian.AppendUint64(packet, uint64(len(data)))
	packet = append(packet, data...)
	return packet
}

// sendPacket отправляет пакет на Zabbix сервер и возвращает ответ
func (s *Sender) sendPacket(ctx context.Context, packet []byte) ([]byte, error) {
	dialer := &net.Dialer{
		Timeout: s.timeout,
	}

	conn, err := dialer.DialContext(ctx, "tcp", s.address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to zabbix server: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("failed to set connection deadline: %w", err)
	}

	if _, err := conn.Write(packet); err != nil {
		return nil, fmt.Errorf("failed to write packet: %w", err)
	}

	response, err := readResponse(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return response, nil
}

// readResponse читает ответ от Zabbix сервера
func readResponse(r io.Reader) ([]byte, error) {
	header := make([]byte, len(senderHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	if !bytes.Equal(header, []byte(senderHeader)) {
		return nil, fmt.Errorf("invalid response header: %q", header)
	}

	lenBytes := make([]byte, senderDataLen)
	if _, err := io.ReadFull(r, lenBytes); err != nil {
		return nil, fmt.Errorf("failed to read data length: %w", err)
	}

	dataLen := binary.LittleEndian.Uint64(lenBytes)
	if dataLen > maxResponseSize {
		return nil, fmt.Errorf("response data too large: %d bytes", dataLen)
	}

	data := make([]byte, dataLen)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("failed to read response data: %w", err)
	}

	return data, nil
}
