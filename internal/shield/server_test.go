package shield

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/mindtussle/internal/domain"
)

func newTestShield(t *testing.T, src *fakeSource) (*httptest.Server, *Poller, *Hub) {
	t.Helper()
	hub := NewHub()
	badge := &Badge{}
	p := NewPoller(src, hub, badge, nil, time.Second, zap.NewNop())
	srv := httptest.NewServer(NewServer(p, hub, badge, nil, nil, zap.NewNop()))
	t.Cleanup(srv.Close)
	return srv, p, hub
}

func dialTab(t *testing.T, srv *httptest.Server, pageURL string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/tabs?url=" + pageURL
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func TestTabAsksForMissionStatus(t *testing.T) {
	srv, p, _ := newTestShield(t, &fakeSource{state: activeMission()})
	require.NoError(t, p.Tick(context.Background()))

	conn := dialTab(t, srv, "https://leetcode.com/problems")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, wsjson.Write(ctx, conn, domain.TabMessage{Type: domain.MsgGetMissionStatus}))

	var reply domain.TabMessage
	require.NoError(t, wsjson.Read(ctx, conn, &reply))
	assert.Equal(t, domain.MsgMissionStatus, reply.Type)
	assert.True(t, reply.IsActive)
	assert.Equal(t, []string{"leetcode.com"}, reply.AllowedSites)
}

func TestTabReceivesBroadcast(t *testing.T) {
	srv, p, hub := newTestShield(t, &fakeSource{state: activeMission()})

	conn := dialTab(t, srv, "https://www.youtube.com")
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, p.Tick(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var msg domain.TabMessage
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, domain.MsgMissionUpdate, msg.Type)
	assert.Equal(t, domain.ModeStrict, msg.State().Mode)
}

func TestTabDisconnectUnregisters(t *testing.T) {
	srv, _, hub := newTestShield(t, &fakeSource{state: activeMission()})

	conn := dialTab(t, srv, "https://a.com")
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "bye"))
	require.Eventually(t, func() bool { return hub.Count() == 0 }, time.Second, 5*time.Millisecond)
}

func TestBadgeEndpoint(t *testing.T) {
	srv, p, _ := newTestShield(t, &fakeSource{state: activeMission()})
	require.NoError(t, p.Tick(context.Background()))

	resp, err := http.Get(srv.URL + "/badge")
	require.NoError(t, err)
	defer resp.Body.Close()

	var badge BadgeState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&badge))
	assert.Equal(t, BadgeActiveText, badge.Text)
	assert.Equal(t, BadgeActiveColor, badge.Color)
}
