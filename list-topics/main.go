package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sensorview/pkg/app"
	"sensorview/pkg/bus"
)

var cfg struct {
	app.Options
	pattern string
}

var cmd = &cobra.Command{
	Use:   "list-topics",
	Short: "print every topic seen on the bus once, with its schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	cfg.Bind(cmd)
	cmd.PersistentFlags().StringVarP(&cfg.pattern, "pattern", "p", "rt/**", "topic pattern to watch")
}

func main() {
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}

// schemaName drops an encoding prefix such as "application/cdr;".
func schemaName(s string) string {
	if i := strings.IndexByte(s, ';'); i >= 0 {
		return s[i+1:]
	}
	return s
}

func run() error {
	logger, conf, err := cfg.Setup("list-topics")
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

	drain := bus.NewDrain(conf.QueueSize)
	sub, err := conn.Subscribe(cfg.pattern, drain.Push)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	seen := map[string]bool{}
	for {
		m, err := drain.Next(ctx)
		if err != nil {
			logger.Debugw("stopped", "topics", len(seen))
			return nil
		}
		if seen[m.Topic] {
			continue
		}
		seen[m.Topic] = true
		fmt.Printf("topic: %s -> %s\n", m.Topic, schemaName(m.Schema))
	}
}
