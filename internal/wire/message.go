// Package wire adapts github.com/godbus/dbus/v5 to the engine's Message,
// CredentialsProvider-adjacent, and IntrospectionWriter collaborator
// interfaces (pkg/busobj). The engine never imports godbus directly; this
// package is the one place the wire codec is a concrete dependency.
package wire

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/marmos91/sdbus/pkg/busobj"
)

// frame is one open container on the write side: its accumulated values,
// and how to fold them into a single Go value on close.
type frame struct {
	kind      busobj.ContainerKind
	signature string
	values    []any
}

// GoDBusMessage adapts a *dbus.Message (inbound call) or a freshly built
// outbound reply/signal to busobj.Message. The busobj engine's container
// API (OpenContainer/CloseContainer/EnterContainer/ExitContainer) is
// bridged onto godbus's whole-value marshaling by accumulating values in
// a stack of frames and folding each frame into its parent on close.
type GoDBusMessage struct {
	conn *dbus.Conn

	// inbound fields, populated when this wraps a received message.
	inPath   busobj.ObjectPath
	inIface  string
	inMember string
	inSender string
	inSig    string
	inBody   []any
	replyTo  uint32
	destName string

	// read cursor: a stack of (container value, next index) pairs; the
	// root frame is inBody itself.
	readStack []readFrame
	readPos   []int

	// write side
	writeStack []*frame
	outBody    []any
	outPath    busobj.ObjectPath
	outIface   string
	outMember  string
	isSignal   bool
}

type readFrame struct {
	values []any
}

// NewInboundMessage wraps a *dbus.Message received as a method call.
func NewInboundMessage(conn *dbus.Conn, msg *dbus.Message) (*GoDBusMessage, error) {
	path, _ := msg.Headers[dbus.FieldPath].Value().(dbus.ObjectPath)
	iface, _ := msg.Headers[dbus.FieldInterface].Value().(string)
	member, _ := msg.Headers[dbus.FieldMember].Value().(string)
	sender, _ := msg.Headers[dbus.FieldSender].Value().(string)
	sig, _ := msg.Headers[dbus.FieldSignature].Value().(dbus.Signature)

	gm := &GoDBusMessage{
		conn:     conn,
		inPath:   busobj.ObjectPath(path),
		inIface:  iface,
		inMember: member,
		inSender: sender,
		inSig:    sig.String(),
		inBody:   msg.Body,
		replyTo:  msg.Serial(),
		destName: sender,
	}
	gm.readStack = []readFrame{{values: gm.inBody}}
	gm.readPos = []int{0}
	return gm, nil
}

func (m *GoDBusMessage) Rewind() {
	m.readStack = []readFrame{{values: m.inBody}}
	m.readPos = []int{0}
}

func (m *GoDBusMessage) Signature() string { return m.inSig }

func (m *GoDBusMessage) top() *readFrame { return &m.readStack[len(m.readStack)-1] }

func (m *GoDBusMessage) nextValue() (any, error) {
	top := m.top()
	idx := len(m.readStack) - 1
	if m.readPos[idx] >= len(top.values) {
		return nil, fmt.Errorf("wire: read past end of container")
	}
	v := top.values[m.readPos[idx]]
	m.readPos[idx]++
	return v, nil
}

func (m *GoDBusMessage) ReadBasic(dest any) error {
	v, err := m.nextValue()
	if err != nil {
		return err
	}
	return assignBasic(dest, v)
}

func (m *GoDBusMessage) Read(signature string, dest ...any) error {
	for _, d := range dest {
		if err := m.ReadBasic(d); err != nil {
			return err
		}
	}
	return nil
}

func (m *GoDBusMessage) AppendBasic(v any) error {
	return m.appendValue(v)
}

func (m *GoDBusMessage) Append(signature string, args ...any) error {
	for _, a := range args {
		if err := m.appendValue(a); err != nil {
			return err
		}
	}
	return nil
}

func (m *GoDBusMessage) AppendStrv(values []string) error {
	return m.appendValue(values)
}

func (m *GoDBusMessage) appendValue(v any) error {
	if len(m.writeStack) == 0 {
		m.outBody = append(m.outBody, v)
		return nil
	}
	top := m.writeStack[len(m.writeStack)-1]
	top.values = append(top.values, v)
	return nil
}

func (m *GoDBusMessage) OpenContainer(kind busobj.ContainerKind, signature string) error {
	m.writeStack = append(m.writeStack, &frame{kind: kind, signature: signature})
	return nil
}

func (m *GoDBusMessage) CloseContainer() error {
	if len(m.writeStack) == 0 {
		return fmt.Errorf("wire: CloseContainer with no open container")
	}
	f := m.writeStack[len(m.writeStack)-1]
	m.writeStack = m.writeStack[:len(m.writeStack)-1]

	folded, err := foldFrame(f)
	if err != nil {
		return err
	}
	return m.appendValue(folded)
}

// foldFrame converts an accumulated frame into the single Go value
// godbus expects at its parent's position.
func foldFrame(f *frame) (any, error) {
	switch f.kind {
	case busobj.ContainerVariant:
		if len(f.values) != 1 {
			return nil, fmt.Errorf("wire: variant container must hold exactly one value, got %d", len(f.values))
		}
		return dbus.MakeVariant(f.values[0]), nil
	case busobj.ContainerDictEntry:
		if len(f.values) != 2 {
			return nil, fmt.Errorf("wire: dict entry must hold exactly two values, got %d", len(f.values))
		}
		return dictEntry{key: f.values[0], value: f.values[1]}, nil
	case busobj.ContainerArray:
		return foldArray(f.values), nil
	case busobj.ContainerStruct:
		return dbus.MakeVariant(f.values).Value(), nil
	default:
		return f.values, nil
	}
}

// dictEntry is a transient marker produced by a DICT_ENTRY frame; arrays
// whose elements are all dictEntry values fold into a map{sv} instead of a
// slice, matching how godbus marshals D-Bus dict types.
type dictEntry struct {
	key   any
	value any
}

func foldArray(values []any) any {
	if len(values) == 0 {
		return []dbus.Variant{}
	}
	if allDictEntries(values) {
		out := make(map[string]dbus.Variant, len(values))
		for _, v := range values {
			de := v.(dictEntry)
			key, _ := de.key.(string)
			if variant, ok := de.value.(dbus.Variant); ok {
				out[key] = variant
			} else {
				out[key] = dbus.MakeVariant(de.value)
			}
		}
		return out
	}
	return values
}

func allDictEntries(values []any) bool {
	for _, v := range values {
		if _, ok := v.(dictEntry); !ok {
			return false
		}
	}
	return true
}

func (m *GoDBusMessage) EnterContainer(kind busobj.ContainerKind, signature string) error {
	v, err := m.nextValue()
	if err != nil {
		return err
	}
	values, err := explodeForRead(kind, v)
	if err != nil {
		return err
	}
	m.readStack = append(m.readStack, readFrame{values: values})
	m.readPos = append(m.readPos, 0)
	return nil
}

func explodeForRead(kind busobj.ContainerKind, v any) ([]any, error) {
	switch kind {
	case busobj.ContainerVariant:
		variant, ok := v.(dbus.Variant)
		if !ok {
			return nil, fmt.Errorf("wire: expected VARIANT, got %T", v)
		}
		return []any{variant.Value()}, nil
	case busobj.ContainerStruct:
		if vals, ok := v.([]any); ok {
			return vals, nil
		}
		return nil, fmt.Errorf("wire: expected STRUCT, got %T", v)
	case busobj.ContainerArray:
		switch arr := v.(type) {
		case []any:
			return arr, nil
		case []string:
			out := make([]any, len(arr))
			for i, s := range arr {
				out[i] = s
			}
			return out, nil
		default:
			return nil, fmt.Errorf("wire: unsupported array element type %T", v)
		}
	default:
		return nil, fmt.Errorf("wire: cannot enter container kind %d", kind)
	}
}

func (m *GoDBusMessage) ExitContainer() error {
	if len(m.readStack) <= 1 {
		return fmt.Errorf("wire: ExitContainer with no open container")
	}
	m.readStack = m.readStack[:len(m.readStack)-1]
	m.readPos = m.readPos[:len(m.readPos)-1]
	return nil
}

func (m *GoDBusMessage) NewMethodReturn() (busobj.Message, error) {
	return &GoDBusMessage{conn: m.conn, replyTo: m.replyTo, destName: m.inSender}, nil
}

func (m *GoDBusMessage) NewSignal(path busobj.ObjectPath, iface, member string) (busobj.Message, error) {
	return &GoDBusMessage{conn: m.conn, outPath: path, outIface: iface, outMember: member, isSignal: true}, nil
}

func (m *GoDBusMessage) IsMethodCall(iface, member string) bool {
	if member == "" {
		return m.inIface == iface
	}
	return m.inIface == iface && m.inMember == member
}

func (m *GoDBusMessage) Path() busobj.ObjectPath { return m.inPath }
func (m *GoDBusMessage) Interface() string       { return m.inIface }
func (m *GoDBusMessage) Member() string          { return m.inMember }
func (m *GoDBusMessage) Sender() string          { return m.inSender }

func (m *GoDBusMessage) ReplyMethodReturn() error {
	msg := dbus.NewMethodReturnMessage(m.replyTo)
	msg.Body = m.outBody
	if len(m.outBody) > 0 {
		msg.Headers[dbus.FieldSignature] = dbus.MakeVariant(dbus.SignatureOfType(typeOfSlice(m.outBody)))
	}
	msg.Headers[dbus.FieldDestination] = dbus.MakeVariant(m.destName)
	return m.conn.Send(msg, nil)
}

func (m *GoDBusMessage) ReplyMethodErrorf(name, format string, args ...any) error {
	msg := dbus.NewErrorMessage(m.replyTo, name, []any{fmt.Sprintf(format, args...)})
	msg.Headers[dbus.FieldDestination] = dbus.MakeVariant(m.destName)
	return m.conn.Send(msg, nil)
}

func (m *GoDBusMessage) Send() error {
	msg := dbus.NewSignalMessage()
	msg.Headers[dbus.FieldPath] = dbus.MakeVariant(dbus.ObjectPath(m.outPath))
	msg.Headers[dbus.FieldInterface] = dbus.MakeVariant(m.outIface)
	msg.Headers[dbus.FieldMember] = dbus.MakeVariant(m.outMember)
	msg.Body = m.outBody
	return m.conn.Send(msg, nil)
}

func typeOfSlice(vals []any) any {
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

func assignBasic(dest, src any) error {
	switch d := dest.(type) {
	case *string:
		s, ok := src.(string)
		if !ok {
			return fmt.Errorf("wire: expected string, got %T", src)
		}
		*d = s
	case *bool:
		b, ok := src.(bool)
		if !ok {
			return fmt.Errorf("wire: expected bool, got %T", src)
		}
		*d = b
	case *byte:
		v, ok := src.(byte)
		if !ok {
			return fmt.Errorf("wire: expected byte, got %T", src)
		}
		*d = v
	case *int16:
		v, ok := src.(int16)
		if !ok {
			return fmt.Errorf("wire: expected int16, got %T", src)
		}
		*d = v
	case *uint16:
		v, ok := src.(uint16)
		if !ok {
			return fmt.Errorf("wire: expected uint16, got %T", src)
		}
		*d = v
	case *int32:
		v, ok := src.(int32)
		if !ok {
			return fmt.Errorf("wire: expected int32, got %T", src)
		}
		*d = v
	case *uint32:
		v, ok := src.(uint32)
		if !ok {
			return fmt.Errorf("wire: expected uint32, got %T", src)
		}
		*d = v
	case *int64:
		v, ok := src.(int64)
		if !ok {
			return fmt.Errorf("wire: expected int64, got %T", src)
		}
		*d = v
	case *uint64:
		v, ok := src.(uint64)
		if !ok {
			return fmt.Errorf("wire: expected uint64, got %T", src)
		}
		*d = v
	case *float64:
		v, ok := src.(float64)
		if !ok {
			return fmt.Errorf("wire: expected float64, got %T", src)
		}
		*d = v
	case *[]string:
		v, ok := src.([]string)
		if !ok {
			return fmt.Errorf("wire: expected []string, got %T", src)
		}
		*d = v
	default:
		return fmt.Errorf("wire: unsupported destination type %T", dest)
	}
	return nil
}
