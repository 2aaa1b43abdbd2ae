package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := NewHub(nil, logger.NewNopLogger())
	go h.Run(ctx)
	return h
}

func connect(h *Hub, userID uuid.UUID, buffer int) *Client {
	c := &Client{Hub: h, UserID: userID, Send: make(chan []byte, buffer)}
	h.register <- c
	return c
}

func receive(t *testing.T, c *Client) map[string]interface{} {
	t.Helper()
	select {
	case data := <-c.Send:
		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &got))
		return got
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return nil
	}
}

func TestHubNotifyReachesEveryDeviceOfUser(t *testing.T) {
	h := startHub(t)
	owner := uuid.New()
	phone := connect(h, owner, 4)
	laptop := connect(h, owner, 4)
	other := connect(h, uuid.New(), 4)

	require.Eventually(t, func() bool { return h.Connected(owner) == 2 }, time.Second, 5*time.Millisecond)

	event := events.MessageCreated("room-1", "msg-2", "msg-1", "Hi", false, time.Now())
	require.NoError(t, h.Notify(context.Background(), owner, event))

	assert.Equal(t, "message.created", receive(t, phone)["type"])
	assert.Equal(t, "message.created", receive(t, laptop)["type"])
	assert.Len(t, other.Send, 0)
}

func TestHubDropsClientWithFullBuffer(t *testing.T) {
	h := startHub(t)
	owner := uuid.New()
	stuck := connect(h, owner, 0)

	require.Eventually(t, func() bool { return h.Connected(owner) == 1 }, time.Second, 5*time.Millisecond)

	event := events.MessageCreated("room-1", "msg-2", "msg-1", "Hi", false, time.Now())
	require.NoError(t, h.Notify(context.Background(), owner, event))

	require.Eventually(t, func() bool { return h.Connected(owner) == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-stuck.Send
	assert.False(t, open)
}

func TestHubDispatchSkipsOwnMessages(t *testing.T) {
	h := startHub(t)
	owner := uuid.New()
	c := connect(h, owner, 4)
	require.Eventually(t, func() bool { return h.Connected(owner) == 1 }, time.Second, 5*time.Millisecond)

	event := events.MessageCreated("room-1", "msg-2", "msg-1", "Hi", false, time.Now())

	_, own, err := encode(h.origin, owner, event)
	require.NoError(t, err)
	h.dispatch(own)
	assert.Len(t, c.Send, 0)

	_, remote, err := encode("another-instance", owner, event)
	require.NoError(t, err)
	h.dispatch(remote)
	got := receive(t, c)
	assert.Equal(t, "msg-1", got["data"].(map[string]interface{})["replyToId"])
}
