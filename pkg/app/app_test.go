package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/edaniels/golog"
	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensorview/pkg/bus"
	"sensorview/pkg/config"
	"sensorview/pkg/pcd"
)

func TestOptionsFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sensorview.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bus:\n  url: nats://bus:4222\nqueue_size: 5\n"), 0o644))

	var o Options
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	o.Bind(cmd)
	cmd.SetArgs([]string{"-c", path, "-t", "0.5"})
	require.NoError(t, cmd.Execute())

	_, cfg, err := o.Setup("test")
	require.NoError(t, err)
	assert.Equal(t, "nats://bus:4222", cfg.Bus.URL)
	assert.Equal(t, 5, cfg.QueueSize)
	assert.Equal(t, 0.5, o.Timeout)

	o.URL = "nats://override:4222"
	_, cfg, err = o.Setup("test")
	require.NoError(t, err)
	assert.Equal(t, "nats://override:4222", cfg.Bus.URL)

	o.ConfigPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, _, err = o.Setup("test")
	assert.Error(t, err)
}

func TestOptionsContextTimeout(t *testing.T) {
	o := Options{Timeout: 0.01}
	ctx, cancel := o.Context()
	defer cancel()
	select {
	case <-ctx.Done():
		assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("context did not time out")
	}

	o.Timeout = 0
	ctx, cancel = o.Context()
	assert.NoError(t, ctx.Err())
	cancel()
	assert.Error(t, ctx.Err())
}

func TestPointDecoder(t *testing.T) {
	fields := []pcd.PointField{
		{Name: "x", Offset: 0, Datatype: pcd.FLOAT32, Count: 1},
		{Name: "track", Offset: 4, Datatype: pcd.UINT16, Count: 1},
	}
	msg, err := pcd.EncodePoints(fields, false, []pcd.DecodedPoint{{X: 2, ID: 9, HasID: true}}, "track")
	require.NoError(t, err)
	payload := pcd.MarshalCDR(msg)

	cfg := config.Default()
	cfg.Decoder.IDFields = []string{"track"}
	points, err := PointDecoder(&cfg)(payload)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, int64(9), points[0].ID)
	assert.True(t, points[0].HasID)

	_, err = PointDecoder(&cfg)(payload[:8])
	assert.Error(t, err)
}

func TestConsumeLatest(t *testing.T) {
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	s := natsserver.RunServer(&opts)
	defer s.Shutdown()

	logger := golog.NewTestLogger(t)
	cfg := config.Default().Bus
	cfg.URL = s.ClientURL()
	conn, err := bus.Connect(cfg, logger)
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var bad int
	var got bus.Message
	done := make(chan error, 1)
	go func() {
		done <- ConsumeLatest(ctx, conn, "rt/lidar/clusters", 10, logger, func(m bus.Message) error {
			if string(m.Payload) == "bad" {
				bad++
				return errors.New("undecodable")
			}
			got = m
			cancel()
			return nil
		})
	}()

	// the subscription is set up asynchronously, keep publishing until it
	// has taken a good message
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for i := 0; ctx.Err() == nil; i++ {
		payload := "bad"
		if i > 0 && i%5 == 0 {
			payload = "good"
		}
		require.NoError(t, conn.Publish("rt/lidar/clusters", pcd.PointCloud2Schema, []byte(payload)))
		select {
		case <-ctx.Done():
		case <-tick.C:
		}
	}

	require.NoError(t, <-done)
	assert.Equal(t, "good", string(got.Payload))
	assert.Equal(t, "rt/lidar/clusters", got.Topic)
	assert.Equal(t, pcd.PointCloud2Schema, got.Schema)
	assert.NotErrorIs(t, ctx.Err(), context.DeadlineExceeded)
}
