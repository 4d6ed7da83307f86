package busobj

import "context"

// ContainerKind selects the container type opened by Message.OpenContainer/
// EnterContainer (spec.md §6).
type ContainerKind int

const (
	ContainerStruct ContainerKind = iota
	ContainerArray
	ContainerVariant
	ContainerDictEntry
)

// Message is the abstract wire-message API the engine dispatches against
// (spec.md §1, §6). The wire codec itself — reading/writing the D-Bus
// binary protocol — is an external collaborator; internal/wire ships a
// concrete implementation backed by github.com/godbus/dbus/v5.
type Message interface {
	// Rewind resets the message body read cursor to the start.
	Rewind()
	// Signature returns the body's D-Bus type signature.
	Signature() string

	// ReadBasic reads one basic-typed value into dest.
	ReadBasic(dest any) error
	// Read reads a sequence of values per signature, positionally into dest.
	Read(signature string, dest ...any) error
	// AppendBasic appends one basic-typed value.
	AppendBasic(v any) error
	// Append appends a sequence of values per signature.
	Append(signature string, args ...any) error
	// AppendStrv appends a string array body (used by "as" auto-handling).
	AppendStrv(values []string) error

	// OpenContainer begins writing a container of the given kind/signature.
	OpenContainer(kind ContainerKind, signature string) error
	// CloseContainer ends the most recently opened container.
	CloseContainer() error
	// EnterContainer begins reading a container of the given kind/signature.
	EnterContainer(kind ContainerKind, signature string) error
	// ExitContainer ends the most recently entered container.
	ExitContainer() error

	// NewMethodReturn allocates a method-return reply scoped to this call.
	NewMethodReturn() (Message, error)
	// NewSignal allocates a signal message scoped to this call's connection.
	NewSignal(path ObjectPath, iface, member string) (Message, error)

	// IsMethodCall reports whether this message is a method call for the
	// given interface and member.
	IsMethodCall(iface, member string) bool

	// Path, Interface, Member, and Sender expose the header fields needed
	// for dispatch and access checks.
	Path() ObjectPath
	Interface() string
	Member() string
	Sender() string

	// ReplyMethodReturn sends this message (already populated) as a
	// method-return reply.
	ReplyMethodReturn() error
	// ReplyMethodErrorf sends a method-error reply with the given D-Bus
	// error name and a formatted message.
	ReplyMethodErrorf(name, format string, args ...any) error
	// Send transmits this message (for signals built via NewSignal).
	Send() error
}

// CredentialMask selects which credential fields QuerySenderCredentials
// should resolve (spec.md §4.3 step 3: kernel-mediated transports can
// resolve UID and effective capabilities atomically; userspace-mediated
// ones resolve UID only).
type CredentialMask uint32

const (
	CredentialUID CredentialMask = 1 << iota
	CredentialEffectiveCapabilities
)

// Credentials is the resolved identity of a message's sender.
type Credentials struct {
	UID              uint32
	HasUID           bool
	EffectiveCaps    map[Capability]bool
	HasEffectiveCaps bool
}

// HasCapability reports whether cap is present in the resolved effective
// capability set.
func (c *Credentials) HasCapability(cap Capability) bool {
	if c == nil || !c.HasEffectiveCaps {
		return false
	}
	return c.EffectiveCaps[cap]
}

// CredentialsProvider resolves the identity of a message's sender
// (spec.md §6, "CredentialsProvider").
type CredentialsProvider interface {
	// QuerySenderCredentials resolves the credentials covered by mask for
	// the message's sender.
	QuerySenderCredentials(ctx context.Context, msg Message, mask CredentialMask) (*Credentials, error)
	// ProcessUID is the UID of the process hosting the engine, used for
	// the same-UID admission rule (spec.md §4.3 step 6).
	ProcessUID() uint32
	// KernelMediated reports whether this transport can resolve UID and
	// effective capabilities together in one atomic query (spec.md §4.3
	// step 3). Userspace-mediated transports only resolve UID — the
	// effective set would be racy and is never used for a trust decision.
	KernelMediated() bool
}

// IntrospectionWriter composes the Introspect reply body (spec.md §6,
// "IntrospectionWriter"). internal/wire ships an encoding/xml-backed
// implementation.
type IntrospectionWriter interface {
	Begin(path ObjectPath)
	WriteDefaultInterfaces(hasObjectManager bool)
	WriteInterface(nv *NodeVtable) error
	WriteChildNodes(children []ObjectPath, path ObjectPath)
	Finish() (string, error)
}

// NameValidator validates D-Bus grammar for names and signatures
// (spec.md §1, "Signature and name validators"). internal/validate ships a
// go-playground/validator-backed implementation.
type NameValidator interface {
	IsObjectPath(s string) bool
	IsInterfaceName(s string) bool
	IsMemberName(s string) bool
	IsSignatureSingle(s string) bool
	IsSignatureValid(s string) bool
	IsBasicType(s string) bool
}
