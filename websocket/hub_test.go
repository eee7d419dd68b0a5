package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"codegalaxy/db"
	"codegalaxy/models"
	"codegalaxy/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFeedServer(t *testing.T) (*Hub, string, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("test-secret")

	store := db.NewMemoryStore()
	user := &models.User{
		Name: "Ada", Email: "ada@example.com", Role: models.RoleUser,
		Status: models.StatusActive, AuthProvider: models.ProviderEmail, SignupDate: time.Now(),
	}
	require.NoError(t, store.CreateUser(context.Background(), user))
	token, err := utils.GenerateJWTToken(user.ID.Hex(), user.Email, user.Role, time.Hour)
	require.NoError(t, err)

	hub := NewHub(nil)
	r := gin.New()
	r.GET("/ws", Handler(store, hub, nil))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws", token
}

func connect(t *testing.T, url, token string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var hello map[string]interface{}
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, "connected", hello["type"])
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) models.ActivityEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event models.ActivityEvent
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestHubBroadcast(t *testing.T) {
	hub, url, token := newFeedServer(t)
	conn := connect(t, url, token)
	assert.Equal(t, 1, hub.Count())

	hub.Publish(models.ActivityEvent{Type: models.ActivityCodeGenerated, UserName: "Ada", Timestamp: time.Now()})

	event := readEvent(t, conn)
	assert.Equal(t, models.ActivityCodeGenerated, event.Type)
	assert.Equal(t, "Ada", event.UserName)
}

func TestPublishDoesNotBlockOnStalledClient(t *testing.T) {
	hub, url, token := newFeedServer(t)
	connect(t, url, token)
	require.Equal(t, 1, hub.Count())

	payload := strings.Repeat("x", 256<<10)
	start := time.Now()
	for i := 0; i < 200 && hub.Count() > 0; i++ {
		hub.Publish(models.ActivityEvent{Type: models.ActivityCodeGenerated, Message: payload, Timestamp: time.Now()})
	}
	assert.Less(t, time.Since(start), writeWait)
	assert.Eventually(t, func() bool { return hub.Count() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestHandlerRejectsMissingToken(t *testing.T) {
	_, url, _ := newFeedServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(url+"?token=bogus", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRelayForwardsStreamEntries(t *testing.T) {
	hub, url, token := newFeedServer(t)
	conn := connect(t, url, token)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	relay := NewRelay(rdb, hub, nil)

	relay.Publish(models.ActivityEvent{Type: models.ActivityReviewApproved, Message: "approved", Timestamp: time.Now()})

	n, err := rdb.XLen(context.Background(), activityStream).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	last, err := relay.drain(context.Background(), "0", -1)
	require.NoError(t, err)
	assert.NotEqual(t, "0", last)

	event := readEvent(t, conn)
	assert.Equal(t, models.ActivityReviewApproved, event.Type)
	assert.Equal(t, "approved", event.Message)
}

func TestRelayFallsBackToLocalDelivery(t *testing.T) {
	hub, url, token := newFeedServer(t)
	conn := connect(t, url, token)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	mr.Close()

	NewRelay(rdb, hub, nil).Publish(models.ActivityEvent{Type: models.ActivityUserJoined, Timestamp: time.Now()})

	assert.Equal(t, models.ActivityUserJoined, readEvent(t, conn).Type)
}
