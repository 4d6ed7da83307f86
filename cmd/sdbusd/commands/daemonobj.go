package commands

import (
	"context"
	"time"

	"github.com/marmos91/sdbus/pkg/busobj"
)

// daemonObjectPath hosts the engine's own self-description: a minimal
// org.sdbus.Daemon1 interface reporting version and uptime, plus a root
// ObjectManager so "busctl tree"-style introspection has something to show
// against a freshly started engine with no application objects registered
// yet.
const (
	daemonObjectPath busobj.ObjectPath = "/org/sdbus/Daemon"
	daemonIface                        = "org.sdbus.Daemon1"
)

func registerDaemonObject(engine *busobj.Engine, version string, startedAt time.Time) error {
	if err := engine.AddObjectManager("/"); err != nil {
		return err
	}

	vtable := busobj.Vtable{
		{Kind: busobj.EntryStart, ElementSize: 0},
		{
			Kind:      busobj.EntryProperty,
			Member:    "Version",
			Signature: "s",
			Getter: func(ctx context.Context, reply busobj.Message, userdata any) error {
				return reply.AppendBasic(version)
			},
		},
		{
			Kind:      busobj.EntryProperty,
			Member:    "UptimeSeconds",
			Signature: "t",
			Getter: func(ctx context.Context, reply busobj.Message, userdata any) error {
				return reply.AppendBasic(uint64(time.Since(startedAt).Seconds()))
			},
		},
	}

	return engine.AddObjectVtable(daemonObjectPath, daemonIface, vtable, nil)
}
