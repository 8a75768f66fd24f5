package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-events/backend/internal/auth"
	"github.com/aura-events/backend/internal/models"
)

// loopback stands in for Redis: publishing delivers to every subscriber.
type loopback struct {
	handlers map[uuid.UUID][]func(string, []byte)
}

func (l *loopback) PublishEventMessage(eventID uuid.UUID, event string, payload []byte) error {
	for _, h := range l.handlers[eventID] {
		h(event, payload)
	}
	return nil
}

func (l *loopback) SubscribeEvent(eventID uuid.UUID, handler func(string, []byte)) (func(), error) {
	l.handlers[eventID] = append(l.handlers[eventID], handler)
	return func() { delete(l.handlers, eventID) }, nil
}

func newTestClient(hub *Hub, eventID uuid.UUID) *Client {
	return &Client{ID: uuid.NewString(), EventID: eventID, hub: hub, send: make(chan WSMessage, 4)}
}

func TestPublishDeliversOncePerClient(t *testing.T) {
	bus := &loopback{handlers: map[uuid.UUID][]func(string, []byte){}}
	hub := NewHub(nil, bus, bus)
	eventID := uuid.New()
	c := newTestClient(hub, eventID)
	other := newTestClient(hub, uuid.New())
	hub.Register(c)
	hub.Register(other)

	rec := &models.AttendanceRecord{ID: uuid.New(), EventID: eventID}
	hub.PublishAttendance(eventID, "attendance_check_in", rec)

	require.Len(t, c.send, 1)
	msg := <-c.send
	assert.Equal(t, "attendance_check_in", msg.Event)
	var got models.AttendanceRecord
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, rec.ID, got.ID)
	assert.Empty(t, other.send)

	hub.Unregister(c)
	assert.Equal(t, 0, hub.Viewers(eventID))
	assert.NotContains(t, bus.handlers, eventID)
}

func TestBroadcastWithoutRedis(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	eventID := uuid.New()
	c := newTestClient(hub, eventID)
	hub.Register(c)
	hub.Publish(eventID, "attendance_check_out", map[string]string{"k": "v"})
	assert.Len(t, c.send, 1)
	assert.Equal(t, 1, hub.Viewers(eventID))
}

func TestServeWs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtSvc := auth.NewJWTService("secret", 1)
	hub := NewHub(nil, nil, nil)
	r := gin.New()
	r.GET("/ws", ServeWs(hub, nil, jwtSvc.Validate))
	srv := httptest.NewServer(r)
	defer srv.Close()

	eventID := uuid.New()
	participant, err := jwtSvc.Generate(uuid.New(), "p@campus.edu", models.RoleParticipant)
	require.NoError(t, err)
	organizer, err := jwtSvc.Generate(uuid.New(), "o@campus.edu", models.RoleOrganizer)
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/ws?event_id=" + eventID.String() + "&token=" + participant)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?event_id=" + eventID.String() + "&token=" + organizer
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Viewers(eventID) == 1 }, time.Second, 10*time.Millisecond)
	hub.Publish(eventID, "attendance_check_in", map[string]int{"n": 1})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "attendance_check_in", msg.Event)
}

// gatedSubscriber blocks subscriptions for one event until release is closed.
type gatedSubscriber struct {
	blocked uuid.UUID
	release chan struct{}
	entered chan struct{}
}

func (g *gatedSubscriber) SubscribeEvent(eventID uuid.UUID, _ func(string, []byte)) (func(), error) {
	if eventID == g.blocked {
		close(g.entered)
		<-g.release
	}
	return func() {}, nil
}

func TestSlowSubscribeDoesNotBlockOtherEvents(t *testing.T) {
	slow, fast := uuid.New(), uuid.New()
	sub := &gatedSubscriber{blocked: slow, release: make(chan struct{}), entered: make(chan struct{})}
	hub := NewHub(nil, nil, sub)

	fastClient := newTestClient(hub, fast)
	hub.Register(fastClient)

	registered := make(chan struct{})
	go func() {
		hub.Register(newTestClient(hub, slow))
		close(registered)
	}()
	<-sub.entered

	done := make(chan struct{})
	go func() {
		hub.Broadcast(fast, "attendance_check_in", []byte(`{}`))
		hub.Register(newTestClient(hub, fast))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub blocked while another event was subscribing")
	}
	assert.Len(t, fastClient.send, 1)

	close(sub.release)
	<-registered
	assert.Equal(t, 1, hub.Viewers(slow))
	hub.mu.RLock()
	_, ok := hub.subs[slow]
	hub.mu.RUnlock()
	assert.True(t, ok)
}
