package ipc

import (
	"errors"
	"log/slog"
	"net"
	"sync"
)

// ErrCloseSession, wrapped in a handler error, makes ReadLoop report the
// error to the host and drop the connection.
var ErrCloseSession = errors.New("session closed")

// Handler processes a received envelope. Return nil to send no reply.
type Handler func(env Envelope) (*Envelope, error)

// Connection represents a single host game talking to the sidecar.
// Each player gets its own connection, identified after the hello handshake.
type Connection struct {
	conn     net.Conn
	writeMu  sync.Mutex
	handlers map[string]Handler
	Player   string
}

func NewConnection(conn net.Conn, handlers map[string]Handler) *Connection {
	if handlers == nil {
		handlers = make(map[string]Handler)
	}
	return &Connection{
		conn:     conn,
		handlers: handlers,
	}
}

func (c *Connection) RegisterHandler(msgType string, handler Handler) {
	c.handlers[msgType] = handler
}

// Send writes one envelope. Commands issued mid-tick go out before the ack.
func (c *Connection) Send(msgType string, data any) error {
	env, err := NewEnvelope(msgType, data)
	if err != nil {
		return err
	}
	return c.write(env)
}

func (c *Connection) write(env Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return WriteEnvelope(c.conn, env)
}

// ReadLoop blocks until the connection closes or errors. It owns the conn lifetime
// so callers don't need to track cleanup.
func (c *Connection) ReadLoop() {
	defer c.conn.Close()

	for {
		env, err := ReadEnvelope(c.conn)
		if err != nil {
			slog.Info("connection read ended", "player", c.Player, "error", err)
			return
		}

		handler, ok := c.handlers[env.Type]
		if !ok {
			slog.Warn("no handler for message type", "type", env.Type)
			continue
		}

		resp, err := handler(env)
		if errors.Is(err, ErrCloseSession) {
			slog.Error("closing session", "type", env.Type, "player", c.Player, "error", err)
			if sendErr := c.Send(TypeError, ErrorMessage{Reason: err.Error()}); sendErr != nil {
				slog.Warn("failed to report session error", "error", sendErr)
			}
			return
		}
		if err != nil {
			slog.Error("handler error", "type", env.Type, "error", err)
			continue
		}

		if resp != nil {
			if err := c.write(*resp); err != nil {
				slog.Error("failed to send response", "type", resp.Type, "error", err)
				return
			}
			slog.Debug("sent response", "type", resp.Type, "player", c.Player)
		}
	}
}
