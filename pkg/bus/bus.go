// Package bus carries sensor topics over NATS. Topics use the slash
// separated ROS style names ("rt/lidar/clusters"); they are mapped to dotted
// NATS subjects on the wire.
package bus

import (
	"strings"

	"github.com/edaniels/golog"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"sensorview/pkg/config"
)

// SchemaHeader names the message header carrying the payload type name.
const SchemaHeader = "Schema"

// Subject maps a topic to its NATS subject. "**" becomes ">".
func Subject(topic string) string {
	parts := strings.Split(strings.Trim(topic, "/"), "/")
	for i, p := range parts {
		if p == "**" {
			parts[i] = ">"
		}
	}
	return strings.Join(parts, ".")
}

// Topic maps a NATS subject back to its topic.
func Topic(subject string) string {
	parts := strings.Split(subject, ".")
	for i, p := range parts {
		if p == ">" {
			parts[i] = "**"
		}
	}
	return strings.Join(parts, "/")
}

type Message struct {
	Topic   string
	Schema  string
	Payload []byte
}

type Conn struct {
	nc     *nats.Conn
	logger golog.Logger
}

func Connect(cfg config.BusConfig, logger golog.Logger) (*Conn, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warnw("bus disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infow("bus reconnected", "url", nc.ConnectedUrl())
		}),
	}
	if cfg.ConnectWait > 0 {
		opts = append(opts, nats.Timeout(cfg.ConnectWait))
	}
	if cfg.ReconnectWait > 0 {
		opts = append(opts, nats.ReconnectWait(cfg.ReconnectWait))
	}
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "connect %s", cfg.URL)
	}
	logger.Infow("bus connected", "url", nc.ConnectedUrl())
	return &Conn{nc: nc, logger: logger}, nil
}

// Subscribe calls handler for every message on topic. handler runs on the
// subscription's delivery goroutine.
func (c *Conn) Subscribe(topic string, handler func(Message)) (*nats.Subscription, error) {
	sub, err := c.nc.Subscribe(Subject(topic), func(m *nats.Msg) {
		msg := Message{Topic: Topic(m.Subject), Payload: m.Data}
		if m.Header != nil {
			msg.Schema = m.Header.Get(SchemaHeader)
		}
		handler(msg)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "subscribe %s", topic)
	}
	c.logger.Debugw("subscribed", "topic", topic, "subject", sub.Subject)
	return sub, nil
}

func (c *Conn) Publish(topic, schema string, payload []byte) error {
	m := nats.NewMsg(Subject(topic))
	m.Data = payload
	if schema != "" {
		m.Header.Set(SchemaHeader, schema)
	}
	return errors.Wrapf(c.nc.PublishMsg(m), "publish %s", topic)
}

func (c *Conn) Flush() error {
	return c.nc.Flush()
}

// Close drains pending messages and closes the connection.
func (c *Conn) Close() {
	if err := c.nc.Drain(); err != nil {
		c.logger.Debugw("drain failed", "error", err)
		c.nc.Close()
	}
}
