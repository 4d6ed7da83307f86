package busobj

import "context"

// MachineID identifies this engine instance for org.freedesktop.DBus.Peer's
// GetMachineId, e.g. a persisted github.com/google/uuid value.
var MachineID = "00000000000000000000000000000000"

// handlePeer answers org.freedesktop.DBus.Peer ahead of the generic vtable
// walk, the way bus-objects.c special-cases it: Ping and GetMachineId never
// touch the Node Store and are never subject to access control, since Peer
// carries no registrable members (spec.md §4.1 reserves the interface name;
// the original's dispatcher answers it directly).
func (e *Engine) handlePeer(_ context.Context, msg Message) (bool, error) {
	switch {
	case msg.IsMethodCall(IfacePeer, "Ping"):
		reply, err := msg.NewMethodReturn()
		if err != nil {
			return false, err
		}
		return true, reply.ReplyMethodReturn()
	case msg.IsMethodCall(IfacePeer, "GetMachineId"):
		reply, err := msg.NewMethodReturn()
		if err != nil {
			return false, err
		}
		if err := reply.Append("s", MachineID); err != nil {
			return false, err
		}
		return true, reply.ReplyMethodReturn()
	default:
		return false, nil
	}
}
