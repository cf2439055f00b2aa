package bus

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/edaniels/golog"
	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensorview/pkg/config"
)

func TestSubjectTopic(t *testing.T) {
	cases := []struct {
		topic, subject string
	}{
		{"rt/lidar/clusters", "rt.lidar.clusters"},
		{"rt/**", "rt.>"},
		{"rt/*/targets", "rt.*.targets"},
		{"/rt/imu/", "rt.imu"},
	}
	for _, c := range cases {
		assert.Equal(t, c.subject, Subject(c.topic), c.topic)
	}
	assert.Equal(t, "rt/lidar/clusters", Topic("rt.lidar.clusters"))
	assert.Equal(t, "rt/**", Topic("rt.>"))
}

func msgN(i int) Message {
	return Message{Topic: "rt/lidar/points", Payload: []byte(fmt.Sprint(i))}
}

func TestDrainDropsOldest(t *testing.T) {
	d := NewDrain(3)
	for i := 0; i < 5; i++ {
		d.Push(msgN(i))
	}
	received, dropped := d.Stats()
	assert.EqualValues(t, 5, received)
	assert.EqualValues(t, 2, dropped)

	m, err := d.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2", string(m.Payload))
}

func TestDrainLatest(t *testing.T) {
	d := NewDrain(10)
	for i := 0; i < 4; i++ {
		d.Push(msgN(i))
	}
	m, err := d.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "3", string(m.Payload))
	_, dropped := d.Stats()
	assert.EqualValues(t, 3, dropped)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = d.Latest(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDrainConcurrentPush(t *testing.T) {
	d := NewDrain(8)
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				d.Push(msgN(i))
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var got int
	go func() {
		defer close(done)
		for {
			if _, err := d.Next(ctx); err != nil {
				return
			}
			got++
		}
	}()
	wg.Wait()
	cancel()
	<-done

	received, dropped := d.Stats()
	assert.EqualValues(t, 400, received)
	assert.EqualValues(t, received, uint64(got)+dropped+uint64(len(d.ch)))
}

func runServer(t *testing.T) string {
	t.Helper()
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	s := natsserver.RunServer(&opts)
	t.Cleanup(s.Shutdown)
	return s.ClientURL()
}

func TestConnPublishSubscribe(t *testing.T) {
	cfg := config.Default().Bus
	cfg.URL = runServer(t)
	conn, err := Connect(cfg, golog.NewTestLogger(t))
	require.NoError(t, err)
	defer conn.Close()

	got := make(chan Message, 4)
	sub, err := conn.Subscribe("rt/**", func(m Message) { got <- m })
	require.NoError(t, err)
	defer sub.Unsubscribe()
	require.NoError(t, conn.Flush())

	require.NoError(t, conn.Publish("rt/lidar/clusters", "sensor_msgs/msg/PointCloud2", []byte{1, 2, 3}))
	require.NoError(t, conn.Publish("rt/imu", "", []byte("raw")))

	select {
	case m := <-got:
		assert.Equal(t, Message{Topic: "rt/lidar/clusters", Schema: "sensor_msgs/msg/PointCloud2", Payload: []byte{1, 2, 3}}, m)
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
	}
	select {
	case m := <-got:
		assert.Equal(t, "rt/imu", m.Topic)
		assert.Empty(t, m.Schema)
		assert.Equal(t, "raw", string(m.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
	}
}

func TestConnectFails(t *testing.T) {
	cfg := config.Default().Bus
	cfg.URL = "nats://127.0.0.1:1"
	cfg.ConnectWait = 100 * time.Millisecond
	_, err := Connect(cfg, golog.NewTestLogger(t))
	assert.Error(t, err)
}
