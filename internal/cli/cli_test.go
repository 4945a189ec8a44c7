package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/mindtussle/internal/domain"
	"github.com/xela07ax/mindtussle/internal/monitor"
)

func TestTabURL(t *testing.T) {
	assert.Equal(t,
		"ws://127.0.0.1:3131/tabs?url=https%3A%2F%2Fwww.youtube.com%2Fwatch",
		tabURL("127.0.0.1:3131", "https://www.youtube.com/watch"))
	assert.Equal(t,
		"wss://shield.local/base/tabs?url=github.com",
		tabURL("wss://shield.local/base/", "github.com"))
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "", maskKey(""))
	assert.Equal(t, "****", maskKey("abcd"))
	assert.Equal(t, "AIzaSyAB...", maskKey("AIzaSyABCDEFGHIJ"))
}

func TestFrameSource(t *testing.T) {
	_, err := frameSource("", "", false)
	assert.Error(t, err)

	_, err = frameSource("frames", "shot.png", false)
	assert.Error(t, err)

	src, err := frameSource("", "shot.png", false)
	require.NoError(t, err)
	assert.Equal(t, monitor.FileSource{Path: "shot.png"}, src)

	_, err = frameSource(filepath.Join(t.TempDir(), "missing"), "", false)
	assert.Error(t, err)
}

func TestRunTab_ShowsAndDismissesBanner(t *testing.T) {
	got := make(chan domain.TabMessage, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()

		var req domain.TabMessage
		if err := wsjson.Read(r.Context(), conn, &req); err != nil {
			return
		}
		got <- req
		_ = wsjson.Write(r.Context(), conn, domain.TabMessage{
			Type:         domain.MsgMissionStatus,
			IsActive:     true,
			AllowedSites: []string{"github.com"},
			Mode:         domain.ModeStrict,
		})
		// Держим соединение, пока вкладка не закроется
		_, _, _ = conn.Read(r.Context())
	}))
	defer srv.Close()

	var out bytes.Buffer
	a := &app{out: &out, logger: zap.NewNop()}

	// Вкладка успевает получить MISSION_STATUS до команд
	in := &delayedReader{delay: 200 * time.Millisecond, data: "d\nq\n"}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/tabs?url=youtube.com"
	require.NoError(t, a.runTab(ctx, wsURL, "https://www.youtube.com/", in))

	assert.Equal(t, domain.MsgGetMissionStatus, (<-got).Type)
	assert.Contains(t, out.String(), "Tab open: www.youtube.com")
	assert.Contains(t, out.String(), "You're Distracted from Your Mission!")
	assert.Contains(t, out.String(), "YouTube")
	assert.Contains(t, out.String(), "Banner hidden.")
}

// delayedReader отдает данные один раз после паузы.
type delayedReader struct {
	delay time.Duration
	data  string
	done  bool
}

func (r *delayedReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, io.EOF
	}
	time.Sleep(r.delay)
	r.done = true
	return copy(p, r.data), nil
}
