package busobj

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// S1 — exact method dispatch.
func TestProcessObject_ExactMethodDispatch(t *testing.T) {
	e := newTestEngine()
	called := false

	vt := Vtable{
		{Kind: EntryStart},
		{Kind: EntryMethod, Member: "M", InSignature: "s", ResultSignature: "",
			Handler: func(ctx context.Context, msg Message, userdata any) (bool, error) {
				called = true
				assert.Equal(t, "marker", userdata)
				reply, err := msg.NewMethodReturn()
				if err != nil {
					return false, err
				}
				return true, reply.ReplyMethodReturn()
			}},
	}
	require.NoError(t, e.AddObjectVtable("/foo", "com.x.I", vt, "marker"))

	msg := newFakeMethodCall("/foo", "com.x.I", "M", "s", "hello")
	handled, err := e.ProcessObject(context.Background(), msg)

	require.NoError(t, err)
	assert.True(t, handled)
	assert.True(t, called)
	assert.True(t, msg.replied)
	assert.Empty(t, msg.errName)
}

// S2 — signature mismatch short-circuits to INVALID_ARGS without invoking
// the handler.
func TestProcessObject_SignatureMismatch(t *testing.T) {
	e := newTestEngine()
	called := false

	vt := Vtable{
		{Kind: EntryStart},
		{Kind: EntryMethod, Member: "M", InSignature: "s", ResultSignature: "",
			Handler: func(ctx context.Context, msg Message, userdata any) (bool, error) {
				called = true
				return true, nil
			}},
	}
	require.NoError(t, e.AddObjectVtable("/foo", "com.x.I", vt, "marker"))

	msg := newFakeMethodCall("/foo", "com.x.I", "M", "i", int32(42))
	handled, err := e.ProcessObject(context.Background(), msg)

	require.NoError(t, err)
	assert.False(t, handled)
	assert.False(t, called)
	assert.Equal(t, ErrNameInvalidArgs, msg.errName)
}

// S3 — fallback resolution with a per-path find resolver.
func TestProcessObject_FallbackResolution(t *testing.T) {
	e := newTestEngine()
	var resolvedFor ObjectPath

	vt := Vtable{
		{Kind: EntryStart},
		{Kind: EntryMethod, Member: "M",
			Handler: func(ctx context.Context, msg Message, userdata any) (bool, error) {
				return true, nil
			}},
	}
	find := func(ctx context.Context, path ObjectPath, userdata any) (any, bool, error) {
		resolvedFor = path
		return "child-specific", true, nil
	}
	require.NoError(t, e.AddFallbackVtable("/base", "com.x.I", vt, "base-default", find))

	msg := newFakeMethodCall("/base/child/leaf", "com.x.I", "M", "")
	handled, err := e.ProcessObject(context.Background(), msg)

	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, ObjectPath("/base/child/leaf"), resolvedFor)
}

// S5 — access denial.
func TestProcessObject_AccessDenied(t *testing.T) {
	e := NewEngine(fakeValidator{}, &fakeCreds{
		kernelMediated: true,
		processUID:     1000,
		senderUID:      2000,
		senderCaps:     map[Capability]bool{},
	}, func() IntrospectionWriter { return newFakeIntrospection() })

	called := false
	entryFlags := WithCapabilityTag(0, Capability(12)) // CAP_NET_ADMIN
	vt := Vtable{
		{Kind: EntryStart},
		{Kind: EntryMethod, Member: "M", Flags: entryFlags,
			Handler: func(ctx context.Context, msg Message, userdata any) (bool, error) {
				called = true
				return true, nil
			}},
	}
	require.NoError(t, e.AddObjectVtable("/secure", "com.x.I", vt, nil))

	msg := newFakeMethodCall("/secure", "com.x.I", "M", "")
	handled, err := e.ProcessObject(context.Background(), msg)

	require.NoError(t, err)
	assert.False(t, handled)
	assert.False(t, called)
	assert.Equal(t, ErrNameAccessDenied, msg.errName)
}

// Unknown method falls through to UNKNOWN_METHOD.
func TestProcessObject_UnknownMethod(t *testing.T) {
	e := newTestEngine()
	msg := newFakeMethodCall("/nothing/here", "com.x.I", "M", "")
	handled, err := e.ProcessObject(context.Background(), msg)
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Equal(t, ErrNameUnknownMethod, msg.errName)
}

// S6 — GetManagedObjects over a two-child ObjectManager root.
func TestGetManagedObjects_Root(t *testing.T) {
	e := newTestEngine()
	require.NoError(t, e.AddObjectManager("/root"))

	mkVtable := func(value string) Vtable {
		return Vtable{
			{Kind: EntryStart},
			{Kind: EntryProperty, Member: "P", Signature: "s",
				Getter: func(ctx context.Context, reply Message, userdata any) error {
					return reply.AppendBasic(value)
				}},
		}
	}
	require.NoError(t, e.AddObjectVtable("/root/a", "com.x.I", mkVtable("a-value"), nil))
	require.NoError(t, e.AddObjectVtable("/root/b", "com.x.I", mkVtable("b-value"), nil))

	msg := newFakeMethodCall("/root", IfaceObjectManager, "GetManagedObjects", "")
	handled, err := e.ProcessObject(context.Background(), msg)

	require.NoError(t, err)
	assert.True(t, handled)
	assert.True(t, msg.replied)
}

// PropertiesChanged on a property lacking EMITS_CHANGE is a programmer
// error and sends nothing.
func TestEmitPropertiesChanged_RequiresEmitsChange(t *testing.T) {
	e := newTestEngine()
	vt := Vtable{
		{Kind: EntryStart},
		{Kind: EntryProperty, Member: "A", Signature: "s",
			Getter: func(ctx context.Context, reply Message, userdata any) error { return nil }},
	}
	require.NoError(t, e.AddObjectVtable("/obj", "com.x.I", vt, nil))
	e.SetSignalOrigin(newFakeMethodCall("/obj", "", "", ""))

	err := e.EmitPropertiesChanged(context.Background(), "/obj", "com.x.I", []string{"A"})
	assert.ErrorIs(t, err, ErrPropertyNotChangeNotifying)
}

// S4 — PropertiesChanged partitions changed vs. invalidated names.
func TestEmitPropertiesChanged_Partitioning(t *testing.T) {
	e := newTestEngine()
	vt := Vtable{
		{Kind: EntryStart},
		{Kind: EntryProperty, Member: "A", Signature: "s", Flags: FlagPropertyEmitsChange,
			Getter: func(ctx context.Context, reply Message, userdata any) error {
				return reply.AppendBasic("a-value")
			}},
		{Kind: EntryProperty, Member: "B", Signature: "s", Flags: FlagPropertyEmitsChange | FlagPropertyInvalidateOnly,
			Getter: func(ctx context.Context, reply Message, userdata any) error { return nil }},
	}
	require.NoError(t, e.AddObjectVtable("/obj", "com.x.I", vt, nil))
	origin := newFakeMethodCall("/obj", "", "", "")
	e.SetSignalOrigin(origin)

	err := e.EmitPropertiesChanged(context.Background(), "/obj", "com.x.I", []string{"A", "B"})

	require.NoError(t, err)
	require.Len(t, origin.sent, 1)
	sig := origin.sent[0]
	assert.Equal(t, "PropertiesChanged", sig.member)
	assert.True(t, sig.replied)
}

// Invariant 1: removing the last registration on a node removes it from
// the store.
func TestNodeGC_RemovesEmptyNode(t *testing.T) {
	e := newTestEngine()
	handler := func(ctx context.Context, msg Message, userdata any) (bool, error) { return true, nil }
	require.NoError(t, e.AddObject("/gone", handler, "ud"))

	_, ok := e.Store().Lookup("/gone")
	require.True(t, ok)

	assert.True(t, e.RemoveObject("/gone", "ud", false))
	_, ok = e.Store().Lookup("/gone")
	assert.False(t, ok)
}

// Invariant 2: a method index entry disappears after vtable removal.
func TestMethodIndex_RemovedWithVtable(t *testing.T) {
	e := newTestEngine()
	vt := Vtable{
		{Kind: EntryStart},
		{Kind: EntryMethod, Member: "M", Handler: func(ctx context.Context, msg Message, userdata any) (bool, error) {
			return true, nil
		}},
	}
	require.NoError(t, e.AddObjectVtable("/obj", "com.x.I", vt, nil))
	_, ok := e.Store().lookupMethod("/obj", "com.x.I", "M")
	require.True(t, ok)

	assert.True(t, e.RemoveVtable("/obj", "com.x.I", vt))
	_, ok = e.Store().lookupMethod("/obj", "com.x.I", "M")
	assert.False(t, ok)
}

// Reserved interfaces cannot be registered by user code.
func TestAddObjectVtable_RejectsReservedInterface(t *testing.T) {
	e := newTestEngine()
	vt := Vtable{{Kind: EntryStart}}
	err := e.AddObjectVtable("/obj", IfaceProperties, vt, nil)
	assert.ErrorIs(t, err, ErrReservedInterface)
}

// Vtable structural validation: a START-less vtable is rejected.
func TestValidateVtable_RequiresStartFirst(t *testing.T) {
	e := newTestEngine()
	vt := Vtable{{Kind: EntryMethod, Member: "M"}}
	err := e.AddObjectVtable("/obj", "com.x.I", vt, nil)
	require.Error(t, err)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

// org.freedesktop.DBus.Peer.Ping answers without touching the store.
func TestProcessObject_PeerPing(t *testing.T) {
	e := newTestEngine()
	msg := newFakeMethodCall("/anything", IfacePeer, "Ping", "")
	handled, err := e.ProcessObject(context.Background(), msg)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.True(t, msg.replied)
}
