package wire

import "github.com/godbus/dbus/v5"

// NewSignalOrigin wraps conn as a busobj.Message whose only valid use is as
// the SetSignalOrigin argument: it exists solely so NewSignal can allocate
// fresh outbound signal messages on conn, independent of any particular
// inbound call.
func NewSignalOrigin(conn *dbus.Conn) *GoDBusMessage {
	return &GoDBusMessage{conn: conn}
}
