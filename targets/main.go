package main

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"sensorview/pkg/app"
	"sensorview/pkg/bus"
	"sensorview/pkg/config"
	"sensorview/pkg/pcd"
	"sensorview/pkg/view"
)

var cfg struct {
	app.Options
	topic  string
	source string
	color  string
	serve  string
}

var cmd = &cobra.Command{
	Use:   "targets",
	Short: "log radar target ranges, or view fusion grids coloured by a field",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	cfg.Bind(cmd)
	cmd.PersistentFlags().StringVar(&cfg.topic, "topic", "", "target topic, overrides --source")
	cmd.PersistentFlags().StringVar(&cfg.source, "source", "radar-targets", "configured topic to watch, e.g. fusion-occupancy")
	cmd.PersistentFlags().StringVar(&cfg.color, "color", "none", "viewer colouring: cluster, field:<name> or none")
	cmd.PersistentFlags().StringVar(&cfg.serve, "serve", "", "viewer listen address, e.g. :8080")
}

func main() {
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}

func ranges(s pcd.Summary) []interface{} {
	kv := []interface{}{
		"x", s.X.String(),
		"y", s.Y.String(),
		"z", s.Z.String(),
	}
	for _, name := range sortedKeys(s.Fields) {
		kv = append(kv, name, s.Fields[name].String())
	}
	return kv
}

func sortedKeys(m map[string]pcd.Range) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolve picks the topic and colouring from the flags.
func resolve(conf *config.Config) (string, view.ColorBy, error) {
	by, ok := view.ParseColorBy(cfg.color)
	if !ok {
		return "", by, errors.Errorf("invalid --color %q", cfg.color)
	}
	if cfg.topic != "" {
		return cfg.topic, by, nil
	}
	topic, err := conf.Topics.Source(cfg.source)
	return topic, by, err
}

func run() error {
	logger, conf, err := cfg.Setup("targets")
	if err != nil {
		return err
	}
	topic, by, err := resolve(conf)
	if err != nil {
		return err
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
		s := pcd.Summarize(points)
		if s.Points == 0 {
			logger.Infow("targets", "topic", m.Topic, "points", 0)
		} else {
			kv := append([]interface{}{"topic", m.Topic, "points", s.Points}, ranges(s)...)
			logger.Infow("targets", kv...)
		}
		if by.Field != "" {
			if _, ok := s.Fields[by.Field]; !ok && s.Points > 0 {
				return errors.Errorf("no %q field in %s", by.Field, m.Topic)
			}
		}
		if hub != nil {
			hub.Broadcast(view.NewFrame(m.Topic, points, by))
		}
		return nil
	})
}
