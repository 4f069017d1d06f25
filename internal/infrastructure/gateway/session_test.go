package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tavern-bot/internal/domain"
	"tavern-bot/pkg/logger"
)

var upgrader = websocket.Upgrader{}

// startGateway serves one websocket endpoint and hands the server side of
// each connection to serve. Returns the ws:// URL to dial.
func startGateway(t *testing.T, serve func(conn *websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serve(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestSession_MessagesBeforeHandlerAreDropped(t *testing.T) {
	ready := make(chan *websocket.Conn, 1)
	url := startGateway(t, func(conn *websocket.Conn) { ready <- conn })

	session, err := Dial(context.Background(), url, "", "bot", logger.NewNop())
	require.NoError(t, err)
	defer session.Close()

	server := <-ready

	// No handler is installed yet; the read pump must drop this quietly.
	require.NoError(t, server.WriteJSON(frame{
		Op: "message_create", MessageID: "m1", AuthorID: "u1", Body: "early",
	}))

	// Frames are processed in order, so a completed request round-trip
	// proves the pump survived the unhandled message.
	go func() {
		var f frame
		if server.ReadJSON(&f) == nil {
			_ = server.WriteJSON(frame{Op: "ack", Nonce: f.Nonce, MessageID: "m9"})
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	id, err := session.SendMessage(ctx, "chan1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "m9", id)
}

func TestSession_SetHandlerAfterDialReceivesMessages(t *testing.T) {
	ready := make(chan *websocket.Conn, 1)
	url := startGateway(t, func(conn *websocket.Conn) { ready <- conn })

	session, err := Dial(context.Background(), url, "", "bot", logger.NewNop())
	require.NoError(t, err)
	defer session.Close()

	received := make(chan *domain.InboundMessage, 2)
	session.SetHandler(func(msg *domain.InboundMessage) { received <- msg })

	server := <-ready
	require.NoError(t, server.WriteJSON(frame{
		Op: "message_create", MessageID: "m1", GuildID: "g1",
		ChannelID: "chan1", AuthorID: "bot", Body: "own echo",
	}))
	require.NoError(t, server.WriteJSON(frame{
		Op: "message_create", MessageID: "m2", GuildID: "g1",
		ChannelID: "chan1", AuthorID: "u1", Body: "!price rope",
	}))

	select {
	case msg := <-received:
		assert.Equal(t, "m2", msg.MessageID, "the bot's own messages are filtered out")
		assert.Equal(t, "u1", msg.AuthorID)
		assert.Equal(t, "!price rope", msg.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("handler never saw the inbound message")
	}
	assert.Empty(t, received)
}

func TestSession_RequestTimesOutWithoutAck(t *testing.T) {
	url := startGateway(t, func(conn *websocket.Conn) {
		// Swallow everything and never ack.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	session, err := Dial(context.Background(), url, "", "bot", logger.NewNop())
	require.NoError(t, err)
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = session.SendMessage(ctx, "chan1", "hello")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
