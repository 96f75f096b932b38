package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"
)

// NATS publishes overlay events as JSON messages on "<prefix>.<event>".
//
// Message body:
//
//	{"event": "p1:toggled", "plugin": "p1", "ts": "...", "payload": {"state": true}}
type NATS struct {
	conn   *nats.Conn
	prefix string
	logger *zap.Logger
	owned  bool
	now    func() time.Time
}

// NewNATS creates a bridge on an existing connection. The caller keeps
// ownership of conn. A nil conn creates a bridge that drops every event.
func NewNATS(conn *nats.Conn, prefix string, logger *zap.Logger) *NATS {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATS{
		conn:   conn,
		prefix: prefix,
		logger: logger,
		now:    time.Now,
	}
}

// Dial connects to the NATS server at url and returns a bridge owning the
// connection. Connection attempts are retried in the background, so the
// host starts even if the server is not up yet.
func Dial(url, prefix string, logger *zap.Logger) (*NATS, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.Name("devbar"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Debug("bridge disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Debug("bridge reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}

	b := NewNATS(nc, prefix, logger)
	b.owned = true
	return b, nil
}

// Subject returns the subject an event is published on.
func (b *NATS) Subject(event string) string {
	return b.prefix + "." + subjectToken(event)
}

// Notify implements overlay.Notifier. It never blocks on the network; a
// disconnected bridge drops the event.
func (b *NATS) Notify(event string, payload any) {
	if b == nil || b.conn == nil || b.conn.IsClosed() {
		return
	}

	data, err := encode(event, payload, b.now())
	if err != nil {
		b.logger.Debug("failed to encode bridge event", zap.String("event", event), zap.Error(err))
		return
	}
	if err := b.conn.Publish(b.Subject(event), data); err != nil {
		b.logger.Debug("failed to publish bridge event", zap.String("event", event), zap.Error(err))
	}
}

// Flush waits until pending events reached the server or ctx is done.
func (b *NATS) Flush(ctx context.Context) error {
	if b == nil || b.conn == nil {
		return ErrNotConnected
	}
	return b.conn.FlushWithContext(ctx)
}

// Watch delivers every overlay event published under the bridge prefix to fn
// until ctx is done. Malformed messages are logged and skipped.
func (b *NATS) Watch(ctx context.Context, fn func(Message)) error {
	if b == nil || b.conn == nil {
		return ErrNotConnected
	}

	sub, err := b.conn.Subscribe(b.prefix+".>", func(m *nats.Msg) {
		msg, err := Decode(m.Subject, m.Data)
		if err != nil {
			b.logger.Debug("skipping bridge message", zap.String("subject", m.Subject), zap.Error(err))
			return
		}
		fn(msg)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s.>: %w", b.prefix, err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	<-ctx.Done()
	return ctx.Err()
}

// Close closes the connection if the bridge owns it.
func (b *NATS) Close() {
	if b == nil || b.conn == nil || !b.owned {
		return
	}
	b.conn.Close()
}

func encode(event string, payload any, ts time.Time) ([]byte, error) {
	plugin, _ := splitEvent(event)

	body := []byte(`{}`)
	var err error
	if body, err = sjson.SetBytes(body, "event", event); err != nil {
		return nil, err
	}
	if body, err = sjson.SetBytes(body, "plugin", plugin); err != nil {
		return nil, err
	}
	if body, err = sjson.SetBytes(body, "ts", ts.UTC().Format(time.RFC3339Nano)); err != nil {
		return nil, err
	}
	if payload != nil {
		if body, err = sjson.SetBytes(body, "payload", payload); err != nil {
			return nil, err
		}
	}
	return body, nil
}

// Decode parses a bridge message body.
func Decode(subject string, data []byte) (Message, error) {
	if !gjson.ValidBytes(data) {
		return Message{}, fmt.Errorf("%w: malformed JSON", ErrInvalidMessage)
	}

	fields := gjson.GetManyBytes(data, "event", "ts", "payload")
	if !fields[0].Exists() || fields[0].String() == "" {
		return Message{}, fmt.Errorf("%w: missing event", ErrInvalidMessage)
	}

	msg := Message{
		Subject: subject,
		Event:   fields[0].String(),
		Payload: fields[2].Raw,
	}
	msg.Plugin, msg.Kind = splitEvent(msg.Event)
	if fields[1].Exists() {
		ts, err := time.Parse(time.RFC3339Nano, fields[1].String())
		if err != nil {
			return Message{}, fmt.Errorf("%w: bad timestamp: %v", ErrInvalidMessage, err)
		}
		msg.Time = ts
	}
	return msg, nil
}

// State returns the "state" flag carried by a toggled event payload.
func (m Message) State() (bool, bool) {
	r := gjson.Get(m.Payload, "state")
	if !r.Exists() {
		return false, false
	}
	return r.Bool(), true
}
