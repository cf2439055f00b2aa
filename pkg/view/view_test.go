package view

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensorview/pkg/colormap"
	"sensorview/pkg/pcd"
)

func rgb(v float64) [3]uint8 {
	c := colormap.Turbo(v)
	return [3]uint8{c.R, c.G, c.B}
}

func TestParseColorBy(t *testing.T) {
	by, ok := ParseColorBy("cluster")
	assert.True(t, ok)
	assert.True(t, by.Cluster)

	by, ok = ParseColorBy("field:vision_class")
	assert.True(t, ok)
	assert.Equal(t, "vision_class", by.Field)

	by, ok = ParseColorBy("none")
	assert.True(t, ok)
	assert.Equal(t, ColorBy{}, by)

	_, ok = ParseColorBy("field:")
	assert.False(t, ok)
	_, ok = ParseColorBy("rainbow")
	assert.False(t, ok)
}

func TestNewFrameCluster(t *testing.T) {
	points := []pcd.DecodedPoint{
		{X: 1, Y: 2, Z: 3, ID: 2, HasID: true},
		{X: 4, ID: 4, HasID: true},
	}
	f := NewFrame("rt/lidar/clusters", points, ColorBy{Cluster: true})
	assert.Equal(t, [][3]float32{{1, 2, 3}, {4, 0, 0}}, f.Positions)
	assert.Equal(t, [][3]uint8{rgb(0.5), rgb(1)}, f.Colors)
}

func TestNewFrameField(t *testing.T) {
	points := []pcd.DecodedPoint{
		{Fields: map[string]float64{"vision_class": 0}},
		{Fields: map[string]float64{"vision_class": 3}},
		{},
	}
	f := NewFrame("rt/fusion/occupancy", points, ColorBy{Field: "vision_class"})
	assert.Equal(t, [][3]uint8{rgb(0), rgb(1), rgb(0)}, f.Colors)

	// all zero classes still divide by one
	f = NewFrame("rt/fusion/occupancy", points[:1], ColorBy{Field: "vision_class"})
	assert.Equal(t, [][3]uint8{rgb(0)}, f.Colors)

	f = NewFrame("rt/lidar/points", points, ColorBy{})
	assert.Nil(t, f.Colors)
	assert.Len(t, f.Positions, 3)
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(golog.NewTestLogger(t))
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	want := NewFrame("rt/lidar/clusters", []pcd.DecodedPoint{{X: 1, ID: 1, HasID: true}}, ColorBy{Cluster: true})
	assert.Equal(t, 1, hub.Broadcast(want))

	var got Frame
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, want, got)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 5*time.Millisecond)
}
