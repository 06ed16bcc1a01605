package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/five82/pase/internal/backend"
)

// EventHandler receives raw push events. It is called from the channel's own
// goroutines.
type EventHandler func(kind backend.EventKind, data []byte)

// Channel is a live push connection.
type Channel interface {
	// Join subscribes to the room's events, leaving any previous room, and
	// announces the client.
	Join(room string, handler EventHandler) error
	// Heartbeat checks the connection end to end.
	Heartbeat(ctx context.Context) error
	Close()
}

// Hooks report connection changes that happen after Dial returns.
type Hooks struct {
	// Disconnected fires when the connection drops and automatic
	// reconnection starts.
	Disconnected func(err error)
	// Reconnected fires when automatic reconnection succeeds.
	Reconnected func()
	// Closed fires when the connection gives up for good.
	Closed func()
}

// Dialer opens push channels.
type Dialer interface {
	Dial(ctx context.Context, hooks Hooks) (Channel, error)
}

// ErrUnexpectedAck is returned when the heartbeat reply is not an ack.
var ErrUnexpectedAck = errors.New("unexpected heartbeat reply")

const (
	defaultSubjectPrefix = "cocina"
	heartbeatAck         = "heartbeat-ack"
	dialTimeout          = 5 * time.Second
	reconnectBase        = time.Second
	defaultMaxReconnects = 5
)

// NATSDialer dials a NATS server. Subjects are rooted at Prefix:
//
//	<prefix>.fecha-<day>.<event>   room events
//	<prefix>.join-fecha            join announcements
//	<prefix>.heartbeat             request/reply liveness check
type NATSDialer struct {
	URL           string
	Prefix        string
	ClientID      string
	MaxReconnects int
}

var _ Dialer = NATSDialer{}

// Dial connects to NATS with bounded automatic reconnection.
func (d NATSDialer) Dial(ctx context.Context, hooks Hooks) (Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	maxReconnects := d.MaxReconnects
	if maxReconnects == 0 {
		maxReconnects = defaultMaxReconnects
	}
	opts := []nats.Option{
		nats.Name("pase-" + d.ClientID),
		nats.Timeout(dialTimeout),
		nats.MaxReconnects(maxReconnects),
		nats.ReconnectWait(reconnectBase),
		nats.CustomReconnectDelay(func(attempts int) time.Duration {
			return calculateBackoff(attempts-1, reconnectBase)
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if hooks.Disconnected != nil {
				hooks.Disconnected(err)
			}
		}),
		nats.ReconnectHandler(func(*nats.Conn) {
			if hooks.Reconnected != nil {
				hooks.Reconnected()
			}
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			if hooks.Closed != nil {
				hooks.Closed()
			}
		}),
	}
	nc, err := nats.Connect(d.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	prefix := strings.Trim(strings.TrimSpace(d.Prefix), ".")
	if prefix == "" {
		prefix = defaultSubjectPrefix
	}
	return &natsChannel{conn: nc, prefix: prefix, clientID: d.ClientID}, nil
}

type natsChannel struct {
	conn     *nats.Conn
	prefix   string
	clientID string

	mu  sync.Mutex
	sub *nats.Subscription
}

type joinMessage struct {
	Day      string `json:"fecha"`
	ClientID string `json:"clientId"`
}

func (c *natsChannel) Join(room string, handler EventHandler) error {
	roomSubject := c.prefix + ".fecha-" + room
	sub, err := c.conn.Subscribe(roomSubject+".>", func(msg *nats.Msg) {
		kind := msg.Subject[strings.LastIndex(msg.Subject, ".")+1:]
		handler(backend.EventKind(kind), msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", roomSubject, err)
	}

	c.mu.Lock()
	prev := c.sub
	c.sub = sub
	c.mu.Unlock()
	if prev != nil {
		_ = prev.Unsubscribe()
	}

	payload, err := json.Marshal(joinMessage{Day: room, ClientID: c.clientID})
	if err != nil {
		return fmt.Errorf("encode join: %w", err)
	}
	if err := c.conn.Publish(c.prefix+".join-fecha", payload); err != nil {
		return fmt.Errorf("publish join: %w", err)
	}
	return nil
}

func (c *natsChannel) Heartbeat(ctx context.Context) error {
	msg, err := c.conn.RequestWithContext(ctx, c.prefix+".heartbeat", []byte(c.clientID))
	if err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}
	if !strings.Contains(string(msg.Data), heartbeatAck) {
		return fmt.Errorf("%w: %q", ErrUnexpectedAck, msg.Data)
	}
	return nil
}

func (c *natsChannel) Close() {
	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()
	if sub != nil {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
