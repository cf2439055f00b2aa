package main

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"sensorview/pkg/app"
	"sensorview/pkg/bus"
	"sensorview/pkg/pcd"
)

var cfg struct {
	app.Options
	topic string
	frame string
	rate  float64
	loop  bool
}

var cmd = &cobra.Command{
	Use:   "replay [file or dir]...",
	Short: "publish .pcd, .bin or .cdr files as PointCloud2 messages",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(args)
	},
}

func init() {
	cfg.Bind(cmd)
	cmd.PersistentFlags().StringVar(&cfg.topic, "topic", "", "publish topic, defaults to topics.lidar_points")
	cmd.PersistentFlags().StringVar(&cfg.frame, "frame", "", "frame_id stamped on messages that carry none")
	cmd.PersistentFlags().Float64Var(&cfg.rate, "rate", 10, "messages per second")
	cmd.PersistentFlags().BoolVar(&cfg.loop, "loop", false, "start over after the last file")
}

func main() {
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}

// collect expands directories into the point cloud files they hold, sorted
// by name.
func collect(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		st, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !st.IsDir() {
			files = append(files, arg)
			continue
		}
		ds, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		var names []string
		for _, d := range ds {
			switch filepath.Ext(d.Name()) {
			case ".pcd", ".bin", ".cdr":
				names = append(names, filepath.Join(arg, d.Name()))
			}
		}
		sort.Strings(names)
		files = append(files, names...)
	}
	if len(files) == 0 {
		return nil, errors.New("no point cloud files to replay")
	}
	return files, nil
}

func stamp(t time.Time) pcd.Time {
	return pcd.Time{Sec: int32(t.Unix()), Nanosec: uint32(t.Nanosecond())}
}

func run(args []string) error {
	logger, conf, err := cfg.Setup("replay")
	if err != nil {
		return err
	}
	if cfg.rate <= 0 {
		return errors.Errorf("invalid rate %v", cfg.rate)
	}
	topic := cfg.topic
	if topic == "" {
		topic = conf.Topics.LidarPoints
	}
	frame := cfg.frame
	if frame == "" {
		frame = "replay-" + uuid.NewString()[:8]
	}
	files, err := collect(args)
	if err != nil {
		return err
	}

	ctx, cancel := cfg.Context()
	defer cancel()

	conn, err := bus.Connect(conf.Bus, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(time.Duration(float64(time.Second) / cfg.rate))
	defer ticker.Stop()

	var sent int
	for {
		pass := sent
		for _, file := range files {
			msg, err := pcd.LoadFile(file)
			if err != nil {
				logger.Warnw("skipping file", "file", file, "error", err)
				continue
			}
			if msg.Header.FrameID == "" {
				msg.Header.FrameID = frame
			}
			msg.Header.Stamp = stamp(time.Now())
			if err := conn.Publish(topic, pcd.PointCloud2Schema, pcd.MarshalCDR(msg)); err != nil {
				return err
			}
			sent++
			logger.Debugw("published", "file", file, "topic", topic, "points", msg.PointCount())

			select {
			case <-ctx.Done():
				logger.Infow("replay stopped", "sent", sent)
				return conn.Flush()
			case <-ticker.C:
			}
		}
		if sent == pass {
			return errors.New("no file could be loaded")
		}
		if !cfg.loop {
			logger.Infow("replay done", "sent", sent)
			return conn.Flush()
		}
	}
}
