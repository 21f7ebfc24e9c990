package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/paper-kospi/backend/internal/contracts"
	"github.com/wonny/paper-kospi/backend/internal/market"
	"github.com/wonny/paper-kospi/backend/pkg/logger"
)

const (
	// MaxStreamCodes limits the codes one connection may subscribe to
	MaxStreamCodes = 20

	defaultStreamInterval = 2 * time.Second
	writeWait             = 10 * time.Second
	pongWait              = 60 * time.Second
	pingPeriod            = (pongWait * 9) / 10
)

// QuoteFrame is one push to a stream subscriber
type QuoteFrame struct {
	Quotes map[string]contracts.Quote `json:"quotes"`
	Errors map[string]string          `json:"errors,omitempty"`
	SentAt time.Time                  `json:"sent_at"`
}

// StreamHandler pushes quotes over a websocket. Every push reads through the
// quote coordinator, so N subscribers on one code share one upstream call
// per freshness window.
type StreamHandler struct {
	quotes   *market.QuoteService
	logger   *logger.Logger
	interval time.Duration
	upgrader websocket.Upgrader
}

// NewStreamHandler creates a new stream handler. interval <= 0 uses 2s.
func NewStreamHandler(quotes *market.QuoteService, interval time.Duration, log *logger.Logger) *StreamHandler {
	if interval <= 0 {
		interval = defaultStreamInterval
	}
	return &StreamHandler{
		quotes:   quotes,
		logger:   log.Component("quote_stream"),
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeQuotes upgrades the connection and streams quotes for ?codes=
// GET /ws/quotes?codes=005930,000660
func (h *StreamHandler) ServeQuotes(w http.ResponseWriter, r *http.Request) {
	codes, err := parseCodes(r.URL.Query().Get("codes"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	log := h.logger.WithField("codes", strings.Join(codes, ","))
	log.Info("Quote stream opened")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// 읽기 루프: pong 처리 + 클라이언트 종료 감지
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.WithError(err).Warn("Quote stream read error")
				}
				return
			}
		}
	}()

	push := time.NewTicker(h.interval)
	defer push.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	if err := h.send(ctx, conn, codes); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("Quote stream closed")
			return
		case <-push.C:
			if err := h.send(ctx, conn, codes); err != nil {
				log.WithError(err).Debug("Quote stream write failed")
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *StreamHandler) send(ctx context.Context, conn *websocket.Conn, codes []string) error {
	quotes, errs := h.quotes.GetMany(ctx, codes)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	frame := QuoteFrame{Quotes: quotes, SentAt: time.Now()}
	if len(errs) > 0 {
		frame.Errors = make(map[string]string, len(errs))
		for code, err := range errs {
			if statusFor(err) == http.StatusBadGateway {
				frame.Errors[code] = "upstream market data unavailable"
				continue
			}
			frame.Errors[code] = err.Error()
		}
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(frame)
}

// parseCodes splits and de-duplicates a comma separated code list
func parseCodes(raw string) ([]string, error) {
	seen := make(map[string]bool)
	var codes []string
	for _, c := range strings.Split(raw, ",") {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		if !contracts.ValidCode(c) {
			return nil, fmt.Errorf("invalid stock code %q", c)
		}
		seen[c] = true
		codes = append(codes, c)
	}
	if len(codes) == 0 {
		return nil, errors.New("codes is required")
	}
	if len(codes) > MaxStreamCodes {
		return nil, fmt.Errorf("at most %d codes per stream", MaxStreamCodes)
	}
	return codes, nil
}
