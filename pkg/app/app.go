// Package app holds the flag, logger and subscription plumbing shared by the
// sensorview commands.
package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edaniels/golog"
	"github.com/spf13/cobra"

	"sensorview/pkg/bus"
	"sensorview/pkg/config"
	"sensorview/pkg/pcd"
	"sensorview/pkg/view"
)

// Options are the flags every bus command accepts.
type Options struct {
	ConfigPath string
	URL        string
	Debug      bool
	Timeout    float64
}

func (o *Options) Bind(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&o.ConfigPath, "config", "c", "", "sensorview yaml config")
	cmd.PersistentFlags().StringVarP(&o.URL, "remote", "r", "", "bus url, overrides the config file")
	cmd.PersistentFlags().BoolVar(&o.Debug, "debug", false, "debug logging")
	cmd.PersistentFlags().Float64VarP(&o.Timeout, "timeout", "t", 0, "seconds to run before exiting, 0 runs until interrupted")
}

// Setup builds the logger and loads the config with flag overrides applied.
func (o *Options) Setup(name string) (golog.Logger, *config.Config, error) {
	logger := golog.NewLogger(name)
	if o.Debug {
		logger = golog.NewDebugLogger(name)
	}
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	if o.URL != "" {
		cfg.Bus.URL = o.URL
	}
	return logger, cfg, nil
}

// Context is cancelled on SIGINT/SIGTERM or after the timeout.
func (o *Options) Context() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if o.Timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(o.Timeout*float64(time.Second)))
	return ctx, func() {
		cancel()
		stop()
	}
}

// ConsumeLatest subscribes to topic and hands handle the newest message each
// time it is free, until ctx ends. Handler errors are logged and skipped.
func ConsumeLatest(ctx context.Context, conn *bus.Conn, topic string, queueSize int, logger golog.Logger, handle func(bus.Message) error) error {
	drain := bus.NewDrain(queueSize)
	sub, err := conn.Subscribe(topic, drain.Push)
	if err != nil {
		return err
	}
	defer func() {
		_ = sub.Unsubscribe()
		received, dropped := drain.Stats()
		logger.Infow("subscription closed", "topic", topic, "received", received, "dropped", dropped)
	}()

	for {
		msg, err := drain.Latest(ctx)
		if err != nil {
			return nil
		}
		if err := handle(msg); err != nil {
			logger.Warnw("skipping message", "topic", msg.Topic, "error", err)
		}
	}
}

// PointDecoder decodes CDR PointCloud2 payloads with the configured id
// field names.
func PointDecoder(cfg *config.Config) func([]byte) ([]pcd.DecodedPoint, error) {
	dec := pcd.Decoder{IDFields: cfg.Decoder.IDFields}
	return func(payload []byte) ([]pcd.DecodedPoint, error) {
		msg, err := pcd.UnmarshalCDR(payload)
		if err != nil {
			return nil, err
		}
		return dec.Decode(msg)
	}
}

// ServeViewer serves hub on addr until ctx ends. An empty addr returns a nil
// hub and serves nothing.
func ServeViewer(ctx context.Context, addr string, logger golog.Logger) *view.Hub {
	if addr == "" {
		return nil
	}
	hub := view.NewHub(logger)
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infow("viewer listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorw("viewer stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		hub.Close()
		_ = srv.Close()
	}()
	return hub
}
