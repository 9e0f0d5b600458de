package websocketPkg

import (
	"CrackDetection/internal/entity"
	"CrackDetection/pkg/metrics"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

// fakeModelServer answers each binary frame according to its content.
func fakeModelServer(t *testing.T, connections *int32) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		atomic.AddInt32(connections, 1)

		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var reply string
			switch string(message) {
			case "none":
				reply = `{"boxes": null}`
			case "empty":
				reply = `{"boxes": []}`
			case "fail":
				reply = `{"error": "corrupt frame"}`
			case "short":
				reply = `{"boxes": [[1, 2, 3]]}`
			case "garbage":
				reply = `not json`
			case "close":
				return
			case "slow":
				time.Sleep(500 * time.Millisecond)
				reply = `{"boxes": []}`
			default:
				reply = `{"boxes": [[0, 0, 100, 50], [10, 20, 30, 40]], "conf": [0.9, 0.7], "inference_time_ms": 250}`
			}

			if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
				return
			}
		}
	}))
}

func newTestClient(t *testing.T, server *httptest.Server) *webSocketClient {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	client := newClient(Config{
		URL:         "ws" + strings.TrimPrefix(server.URL, "http"),
		ReadTimeout: 2 * time.Second,
	}, logger)
	t.Cleanup(client.CloseConnections)

	return client
}

func TestDetectCracks_ReturnsBoxes(t *testing.T) {
	var connections int32
	server := fakeModelServer(t, &connections)
	defer server.Close()

	client := newTestClient(t, server)
	inferenceBefore := testutil.ToFloat64(metrics.ModelInferenceSeconds)

	boxes, err := client.DetectCracks(context.Background(), []byte("frame"))
	require.NoError(t, err)

	assert.InDelta(t, inferenceBefore+0.25, testutil.ToFloat64(metrics.ModelInferenceSeconds), 1e-9)
	assert.Equal(t, []entity.Box{
		{X1: 0, Y1: 0, X2: 100, Y2: 50},
		{X1: 10, Y1: 20, X2: 30, Y2: 40},
	}, boxes)
	assert.True(t, client.IsConnected())
}

func TestDetectCracks_NullAndEmptyAreEquivalent(t *testing.T) {
	var connections int32
	server := fakeModelServer(t, &connections)
	defer server.Close()

	client := newTestClient(t, server)

	none, err := client.DetectCracks(context.Background(), []byte("none"))
	require.NoError(t, err)
	empty, err := client.DetectCracks(context.Background(), []byte("empty"))
	require.NoError(t, err)

	assert.NotNil(t, none)
	assert.Empty(t, none)
	assert.Equal(t, empty, none)
}

func TestDetectCracks_ServiceErrors(t *testing.T) {
	var connections int32
	server := fakeModelServer(t, &connections)
	defer server.Close()

	client := newTestClient(t, server)

	_, err := client.DetectCracks(context.Background(), []byte("fail"))
	assert.ErrorContains(t, err, "corrupt frame")

	_, err = client.DetectCracks(context.Background(), []byte("short"))
	assert.ErrorIs(t, err, ErrMalformedReply)

	_, err = client.DetectCracks(context.Background(), []byte("garbage"))
	assert.ErrorIs(t, err, ErrMalformedReply)

	// Service level errors keep the connection.
	assert.Equal(t, int32(1), atomic.LoadInt32(&connections))
}

func TestDetectCracks_RedialsAfterBrokenConnection(t *testing.T) {
	var connections int32
	server := fakeModelServer(t, &connections)
	defer server.Close()

	client := newTestClient(t, server)

	_, err := client.DetectCracks(context.Background(), []byte("close"))
	require.Error(t, err)
	assert.False(t, client.IsConnected())

	boxes, err := client.DetectCracks(context.Background(), []byte("frame"))
	require.NoError(t, err)
	assert.Len(t, boxes, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&connections))
}

func TestDetectCracks_HonoursContextDeadline(t *testing.T) {
	var connections int32
	server := fakeModelServer(t, &connections)
	defer server.Close()

	client := newTestClient(t, server)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := client.DetectCracks(ctx, []byte("slow"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDetectCracks_Unreachable(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	client := newClient(Config{URL: "ws://127.0.0.1:1/crack/ws"}, logger)

	_, err := client.DetectCracks(context.Background(), []byte("frame"))
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestToBoxes(t *testing.T) {
	boxes, err := toBoxes(entity.CrackDetectionResult{Boxes: [][]float64{{1, 2, 3, 4}}})
	require.NoError(t, err)
	assert.Equal(t, []entity.Box{{X1: 1, Y1: 2, X2: 3, Y2: 4}}, boxes)

	_, err = toBoxes(entity.CrackDetectionResult{Error: "boom"})
	assert.Error(t, err)
}
