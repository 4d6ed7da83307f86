package busobj

import "context"

// fakeMessage is a minimal in-memory Message double used across the
// package's tests. It supports exactly the container operations the
// engine exercises and records the final reply for assertions.
type fakeMessage struct {
	path   ObjectPath
	iface  string
	member string
	sender string
	sig    string

	args  []any
	pos   int
	stack []ContainerKind

	replied    bool
	errName    string
	errMessage string
	body       []any

	sent []*fakeMessage
}

func newFakeMethodCall(path ObjectPath, iface, member, sig string, args ...any) *fakeMessage {
	return &fakeMessage{path: path, iface: iface, member: member, sig: sig, args: args, sender: ":1.1"}
}

func (m *fakeMessage) Rewind()           { m.pos = 0 }
func (m *fakeMessage) Signature() string { return m.sig }

func (m *fakeMessage) ReadBasic(dest any) error {
	if m.pos >= len(m.args) {
		return errShortRead
	}
	return assignInto(dest, m.args[m.pos])
}

func (m *fakeMessage) Read(signature string, dest ...any) error {
	for _, d := range dest {
		if err := m.ReadBasic(d); err != nil {
			return err
		}
		m.pos++
	}
	return nil
}

func (m *fakeMessage) AppendBasic(v any) error {
	m.body = append(m.body, v)
	return nil
}

func (m *fakeMessage) Append(signature string, args ...any) error {
	m.body = append(m.body, args...)
	return nil
}

func (m *fakeMessage) AppendStrv(values []string) error {
	m.body = append(m.body, values)
	return nil
}

func (m *fakeMessage) OpenContainer(kind ContainerKind, signature string) error {
	m.stack = append(m.stack, kind)
	return nil
}

func (m *fakeMessage) CloseContainer() error {
	if len(m.stack) == 0 {
		return errUnbalancedContainer
	}
	m.stack = m.stack[:len(m.stack)-1]
	return nil
}

func (m *fakeMessage) EnterContainer(kind ContainerKind, signature string) error {
	m.stack = append(m.stack, kind)
	return nil
}

func (m *fakeMessage) ExitContainer() error {
	return m.CloseContainer()
}

func (m *fakeMessage) NewMethodReturn() (Message, error) {
	return m, nil
}

func (m *fakeMessage) NewSignal(path ObjectPath, iface, member string) (Message, error) {
	sig := &fakeMessage{path: path, iface: iface, member: member}
	m.sent = append(m.sent, sig)
	return sig, nil
}

func (m *fakeMessage) IsMethodCall(iface, member string) bool {
	if member == "" {
		return m.iface == iface
	}
	return m.iface == iface && m.member == member
}

func (m *fakeMessage) Path() ObjectPath  { return m.path }
func (m *fakeMessage) Interface() string { return m.iface }
func (m *fakeMessage) Member() string    { return m.member }
func (m *fakeMessage) Sender() string    { return m.sender }

func (m *fakeMessage) ReplyMethodReturn() error {
	m.replied = true
	return nil
}

func (m *fakeMessage) ReplyMethodErrorf(name, format string, args ...any) error {
	m.replied = true
	m.errName = name
	return nil
}

func (m *fakeMessage) Send() error {
	m.replied = true
	return nil
}

func assignInto(dest, src any) error {
	switch d := dest.(type) {
	case *string:
		s, ok := src.(string)
		if !ok {
			return errTypeMismatch
		}
		*d = s
	case *int32:
		v, ok := src.(int32)
		if !ok {
			return errTypeMismatch
		}
		*d = v
	default:
		return errTypeMismatch
	}
	return nil
}

var (
	errShortRead           = &ValidationError{Reason: "short read"}
	errTypeMismatch        = &ValidationError{Reason: "type mismatch"}
	errUnbalancedContainer = &ValidationError{Reason: "unbalanced container"}
)

// fakeValidator accepts any non-empty object path, dotted interface/member
// name, and non-empty signature, which is enough for the engine's own
// structural checks in tests without pulling in go-playground/validator.
type fakeValidator struct{}

func (fakeValidator) IsObjectPath(s string) bool      { return len(s) > 0 && s[0] == '/' }
func (fakeValidator) IsInterfaceName(s string) bool   { return len(s) > 0 }
func (fakeValidator) IsMemberName(s string) bool      { return len(s) > 0 }
func (fakeValidator) IsSignatureSingle(s string) bool { return true }
func (fakeValidator) IsSignatureValid(s string) bool  { return true }
func (fakeValidator) IsBasicType(s string) bool       { return s == "s" || s == "i" || s == "u" || s == "b" }

// fakeCreds is a configurable CredentialsProvider test double.
type fakeCreds struct {
	kernelMediated bool
	processUID     uint32
	senderUID      uint32
	senderCaps     map[Capability]bool
}

func (c *fakeCreds) QuerySenderCredentials(_ context.Context, _ Message, mask CredentialMask) (*Credentials, error) {
	creds := &Credentials{UID: c.senderUID, HasUID: mask&CredentialUID != 0}
	if mask&CredentialEffectiveCapabilities != 0 {
		creds.HasEffectiveCaps = true
		creds.EffectiveCaps = c.senderCaps
	}
	return creds, nil
}

func (c *fakeCreds) ProcessUID() uint32   { return c.processUID }
func (c *fakeCreds) KernelMediated() bool { return c.kernelMediated }

// fakeIntrospection is a no-op IntrospectionWriter, sufficient to exercise
// the call sequence without producing real XML.
type fakeIntrospection struct {
	path  ObjectPath
	lines []string
}

func newFakeIntrospection() IntrospectionWriter { return &fakeIntrospection{} }

func (w *fakeIntrospection) Begin(path ObjectPath) { w.path = path }
func (w *fakeIntrospection) WriteDefaultInterfaces(hasObjectManager bool) {
	w.lines = append(w.lines, "default")
}
func (w *fakeIntrospection) WriteInterface(nv *NodeVtable) error {
	w.lines = append(w.lines, nv.Interface())
	return nil
}
func (w *fakeIntrospection) WriteChildNodes(children []ObjectPath, path ObjectPath) {
	w.lines = append(w.lines, "children")
}
func (w *fakeIntrospection) Finish() (string, error) {
	return "<node/>", nil
}

func newTestEngine() *Engine {
	return NewEngine(fakeValidator{}, &fakeCreds{processUID: 1000, senderUID: 1000}, func() IntrospectionWriter { return newFakeIntrospection() })
}
