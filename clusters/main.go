package main

import (
	"github.com/spf13/cobra"

	"sensorview/pkg/app"
	"sensorview/pkg/bus"
	"sensorview/pkg/pcd"
	"sensorview/pkg/view"
)

var cfg struct {
	app.Options
	topic  string
	source string
	serve  string
}

var cmd = &cobra.Command{
	Use:   "clusters",
	Short: "log and view clustered lidar or radar points",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	cfg.Bind(cmd)
	cmd.PersistentFlags().StringVar(&cfg.topic, "topic", "", "cluster topic, overrides --source")
	cmd.PersistentFlags().StringVar(&cfg.source, "source", "lidar-clusters", "configured topic to watch, e.g. radar-clusters or fusion-lidar")
	cmd.PersistentFlags().StringVar(&cfg.serve, "serve", "", "viewer listen address, e.g. :8080")
}

func main() {
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}

func run() error {
	logger, conf, err := cfg.Setup("clusters")
	if err != nil {
		return err
	}
	topic := cfg.topic
	if topic == "" {
		if topic, err = conf.Topics.Source(cfg.source); err != nil {
			return err
		}
	}
	serve := cfg.serve
	if serve == "" {
		serve = conf.Viewer.Listen
	}

	ctx, cancel := cfg.Context()
	defer cancel()

	conn, err := bus.Connect(conf.Bus, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	hub := app.ServeViewer(ctx, serve, logger)
	decode := app.PointDecoder(conf)
	return app.ConsumeLatest(ctx, conn, topic, conf.QueueSize, logger, func(m bus.Message) error {
		points, err := decode(m.Payload)
		if err != nil {
			return err
		}
		clustered := pcd.Clustered(points)
		logger.Infow("clusters",
			"topic", m.Topic,
			"points", len(points),
			"clustered", len(clustered),
			"max_id", pcd.MaxID(clustered))
		if hub != nil {
			hub.Broadcast(view.NewFrame(m.Topic, clustered, view.ColorBy{Cluster: true}))
		}
		return nil
	})
}
