package wire

import (
	"context"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/marmos91/sdbus/pkg/busobj"
)

// Dial connects to the bus identified by address: the bare names "system"
// and "session" select the well-known transports, anything else is passed
// to dbus.Dial as a literal address (unix:path=..., tcp:host=...,port=...).
// The returned connection has already completed SASL auth and the Hello
// call; Serve is the only thing that should touch it afterward.
func Dial(address string) (*dbus.Conn, error) {
	var conn *dbus.Conn
	var err error

	switch strings.ToLower(address) {
	case "system":
		conn, err = dbus.SystemBusPrivate()
	case "session":
		conn, err = dbus.SessionBusPrivate()
	default:
		conn, err = dbus.Dial(address)
	}
	if err != nil {
		return nil, fmt.Errorf("wire: dial %q: %w", address, err)
	}

	if err := conn.Auth(nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("wire: auth: %w", err)
	}
	if err := conn.Hello(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("wire: hello: %w", err)
	}
	return conn, nil
}

// Engine is the subset of *busobj.Engine that Serve drives. Declared
// locally so this package doesn't need to know about Engine's other
// construction-time dependencies.
type Engine interface {
	ProcessObject(ctx context.Context, msg busobj.Message) (bool, error)
}

// Serve diverts every inbound message on conn away from godbus's own
// reflection-based dispatcher (via Eavesdrop) and feeds method calls to
// engine.ProcessObject, replying on the same connection. It runs until ctx
// is cancelled or the eavesdrop channel closes (connection lost).
//
// Eavesdropping rather than Export/Handler is deliberate: the engine owns
// its own object tree and vtable resolution, so godbus's method-reflection
// dispatcher would be redundant plumbing sitting in front of it.
func Serve(ctx context.Context, conn *dbus.Conn, engine Engine, onError func(error)) {
	ch := make(chan *dbus.Message, 64)
	conn.Eavesdrop(ch)
	defer conn.Eavesdrop(nil)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if msg.Type != dbus.TypeMethodCall {
				continue
			}
			dispatchOne(ctx, conn, msg, engine, onError)
		}
	}
}

func dispatchOne(ctx context.Context, conn *dbus.Conn, raw *dbus.Message, engine Engine, onError func(error)) {
	inbound, err := NewInboundMessage(conn, raw)
	if err != nil {
		if onError != nil {
			onError(fmt.Errorf("wire: wrap inbound message: %w", err))
		}
		return
	}

	if _, err := engine.ProcessObject(ctx, inbound); err != nil && onError != nil {
		onError(fmt.Errorf("wire: dispatch %s.%s on %s: %w", inbound.Interface(), inbound.Member(), inbound.Path(), err))
	}
}

// RequestName acquires a well-known bus name for conn, failing if another
// owner already holds it without allowing replacement.
func RequestName(conn *dbus.Conn, name string) error {
	if name == "" {
		return nil
	}
	reply, err := conn.RequestName(name, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("wire: request name %q: %w", name, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner && reply != dbus.RequestNameReplyAlreadyOwner {
		return fmt.Errorf("wire: name %q already owned (reply code %d)", name, reply)
	}
	return nil
}
