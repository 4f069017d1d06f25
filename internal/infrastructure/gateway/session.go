package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tavern-bot/internal/domain"
	"tavern-bot/pkg/logger"
	"tavern-bot/pkg/utils"
)

const ackTimeout = 10 * time.Second

// frame is the wire envelope for everything crossing the gateway socket.
type frame struct {
	Op        string `json:"op"`
	Nonce     string `json:"nonce,omitempty"`
	GuildID   string `json:"guild_id,omitempty"`
	ChannelID string `json:"channel_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	AuthorID  string `json:"author_id,omitempty"`
	Emoji     string `json:"emoji,omitempty"`
	Body      string `json:"body,omitempty"`
	Error     string `json:"error,omitempty"`
}

// MessageHandler receives every inbound chat message seen on the socket.
type MessageHandler func(msg *domain.InboundMessage)

// Session is one live websocket connection to the chat platform. Writes are
// serialized under a mutex; request/ack pairs correlate on a nonce.
type Session struct {
	conn  *websocket.Conn
	botID string
	log   logger.Logger

	handlerMu sync.Mutex
	handler   MessageHandler

	writeMu sync.Mutex

	ackMu   sync.Mutex
	pending map[string]chan frame

	done chan struct{}
}

// Dial connects to the gateway and starts the read pump. Inbound messages are
// dropped until SetHandler installs a handler.
func Dial(ctx context.Context, url, token, botID string, log logger.Logger) (*Session, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bot "+token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("dial gateway: %w", err)
	}

	s := &Session{
		conn:    conn,
		botID:   botID,
		log:     log,
		pending: make(map[string]chan frame),
		done:    make(chan struct{}),
	}

	go s.readPump()

	log.Info("Gateway connected", "url", url)
	return s, nil
}

// SetHandler installs the inbound-message handler. The read pump runs from
// Dial onward, so the handler is read under a lock.
func (s *Session) SetHandler(handler MessageHandler) {
	s.handlerMu.Lock()
	s.handler = handler
	s.handlerMu.Unlock()
}

func (s *Session) SendMessage(ctx context.Context, channelID, body string) (string, error) {
	ack, err := s.request(ctx, frame{
		Op:        "send_message",
		ChannelID: channelID,
		Body:      body,
	})
	if err != nil {
		return "", err
	}
	return ack.MessageID, nil
}

func (s *Session) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	_, err := s.request(ctx, frame{
		Op:        "delete_message",
		ChannelID: channelID,
		MessageID: messageID,
	})
	return err
}

func (s *Session) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	_, err := s.request(ctx, frame{
		Op:        "add_reaction",
		ChannelID: channelID,
		MessageID: messageID,
		Emoji:     emoji,
	})
	return err
}

// Deliver implements domain.MessageDeliverer for the scheduler.
func (s *Session) Deliver(ctx context.Context, guildID, channelID, body string) error {
	_, err := s.SendMessage(ctx, channelID, body)
	return err
}

func (s *Session) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return s.conn.Close()
}

func (s *Session) request(ctx context.Context, f frame) (frame, error) {
	f.Nonce = utils.GenerateID("req")

	ch := make(chan frame, 1)
	s.ackMu.Lock()
	s.pending[f.Nonce] = ch
	s.ackMu.Unlock()

	defer func() {
		s.ackMu.Lock()
		delete(s.pending, f.Nonce)
		s.ackMu.Unlock()
	}()

	s.writeMu.Lock()
	err := s.conn.WriteJSON(f)
	s.writeMu.Unlock()
	if err != nil {
		return frame{}, err
	}

	timer := time.NewTimer(ackTimeout)
	defer timer.Stop()

	select {
	case ack := <-ch:
		if ack.Error != "" {
			return frame{}, fmt.Errorf("gateway %s failed: %s", f.Op, ack.Error)
		}
		return ack, nil
	case <-timer.C:
		return frame{}, fmt.Errorf("gateway %s timed out", f.Op)
	case <-ctx.Done():
		return frame{}, ctx.Err()
	case <-s.done:
		return frame{}, fmt.Errorf("gateway session closed")
	}
}

func (s *Session) readPump() {
	for {
		var f frame
		if err := s.conn.ReadJSON(&f); err != nil {
			select {
			case <-s.done:
			default:
				s.log.Error("Gateway read failed", "error", err)
				close(s.done)
			}
			return
		}

		switch f.Op {
		case "ack":
			s.ackMu.Lock()
			ch, exists := s.pending[f.Nonce]
			s.ackMu.Unlock()
			if exists {
				ch <- f
			}
		case "message_create":
			s.handlerMu.Lock()
			handler := s.handler
			s.handlerMu.Unlock()
			if f.AuthorID == s.botID || handler == nil {
				continue
			}
			handler(&domain.InboundMessage{
				MessageID: f.MessageID,
				GuildID:   f.GuildID,
				ChannelID: f.ChannelID,
				AuthorID:  f.AuthorID,
				Content:   f.Body,
			})
		default:
			s.log.Debug("Ignoring gateway frame", "op", f.Op)
		}
	}
}
