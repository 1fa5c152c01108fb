package notify

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

var errConnNotInitialized = errors.New("NATS connection not initialized")

// NATSConfig represents NATS configuration.
type NATSConfig struct {
	Servers       []string `mapstructure:"servers"`
	Stream        string   `mapstructure:"stream"`
	SubjectPrefix string   `mapstructure:"subjectPrefix"`
	Username      string   `mapstructure:"username"`
	Password      string   `mapstructure:"password"`
}

// JetStream is the subset of nats.JetStreamContext used for publishing.
type JetStream interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// NATSNotifier publishes events to a JetStream stream.
type NATSNotifier struct {
	nc     *nats.Conn
	js     JetStream
	prefix string
}

// NewNATSNotifier publishes through js under subjects starting with prefix.
func NewNATSNotifier(js JetStream, prefix string) *NATSNotifier {
	return &NATSNotifier{js: js, prefix: cmp.Or(prefix, "fluentrest")}
}

// ConnectNATS connects to the first reachable server, ensures the stream
// exists and returns a notifier publishing to it.
func ConnectNATS(cfg NATSConfig) (*NATSNotifier, error) {
	if len(cfg.Servers) == 0 {
		cfg.Servers = []string{nats.DefaultURL}
	}
	cfg.SubjectPrefix = cmp.Or(cfg.SubjectPrefix, "fluentrest")
	cfg.Stream = cmp.Or(cfg.Stream, fmt.Sprintf("%s-stream", cfg.SubjectPrefix))

	opts := []nats.Option{
		nats.Name("fluentrest"),
		nats.Timeout(5 * time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	var (
		nc  *nats.Conn
		err error
	)
	for _, server := range cfg.Servers {
		nc, err = nats.Connect(server, opts...)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to NATS server: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	if _, err := js.StreamInfo(cfg.Stream); err != nil {
		if !errors.Is(err, nats.ErrStreamNotFound) {
			nc.Close()
			return nil, fmt.Errorf("stream info: %w", err)
		}
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     cfg.Stream,
			Subjects: []string{cfg.SubjectPrefix + ".>"},
			Storage:  nats.FileStorage,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("add stream: %w", err)
		}
	}

	n := NewNATSNotifier(js, cfg.SubjectPrefix)
	n.nc = nc
	return n, nil
}

// Subject returns the subject an event is published on.
func (n *NATSNotifier) Subject(event Event) string {
	return strings.Join([]string{n.prefix, subjectToken(event.Resource), string(event.Op)}, ".")
}

// Notify publishes event as JSON.
func (n *NATSNotifier) Notify(ctx context.Context, event Event) error {
	if n == nil || n.js == nil {
		return errConnNotInitialized
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := n.js.Publish(n.Subject(event), data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// Close drains and closes the underlying connection, if owned.
func (n *NATSNotifier) Close() error {
	if n.nc == nil {
		return nil
	}
	return n.nc.Drain()
}

// subjectToken replaces characters NATS does not allow in a subject token.
func subjectToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
