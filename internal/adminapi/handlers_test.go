package adminapi

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/sdbus/pkg/busobj"
)

// fakeValidator accepts any well-formed-looking name, enough to exercise
// registration without pulling in a real D-Bus grammar validator.
type fakeValidator struct{}

func (fakeValidator) IsObjectPath(s string) bool      { return len(s) > 0 && s[0] == '/' }
func (fakeValidator) IsInterfaceName(s string) bool   { return len(s) > 0 }
func (fakeValidator) IsMemberName(s string) bool      { return len(s) > 0 }
func (fakeValidator) IsSignatureSingle(s string) bool { return true }
func (fakeValidator) IsSignatureValid(s string) bool  { return true }
func (fakeValidator) IsBasicType(s string) bool       { return true }

type fakeCreds struct{}

func (fakeCreds) QuerySenderCredentials(_ context.Context, _ busobj.Message, mask busobj.CredentialMask) (*busobj.Credentials, error) {
	return &busobj.Credentials{UID: 1000, HasUID: true}, nil
}
func (fakeCreds) ProcessUID() uint32   { return 1000 }
func (fakeCreds) KernelMediated() bool { return false }

type fakeIntrospection struct{}

func (fakeIntrospection) Begin(busobj.ObjectPath)                  {}
func (fakeIntrospection) WriteDefaultInterfaces(bool)              {}
func (fakeIntrospection) WriteInterface(*busobj.NodeVtable) error  { return nil }
func (fakeIntrospection) WriteChildNodes([]busobj.ObjectPath, busobj.ObjectPath) {}
func (fakeIntrospection) Finish() (string, error)                  { return "<node/>", nil }

func newTestStore(t *testing.T) *busobj.Store {
	t.Helper()
	engine := busobj.NewEngine(fakeValidator{}, fakeCreds{}, func() busobj.IntrospectionWriter { return fakeIntrospection{} })

	entries := busobj.Vtable{
		{Kind: busobj.EntryStart, ElementSize: 0},
		{Kind: busobj.EntryMethod, Member: "Ping", InSignature: "", ResultSignature: ""},
		{Kind: busobj.EntryEnd},
	}
	require.NoError(t, engine.AddObjectVtable("/com/example/Foo", "com.example.Foo", entries, nil))
	require.NoError(t, engine.AddObjectManager("/com/example"))

	return engine.Store()
}

func TestDebugHandler_Health(t *testing.T) {
	h := NewDebugHandler(busobj.NewStore())
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	h.Health(w, req)

	require.Equal(t, 200, w.Code)
}

func TestDebugHandler_Tree(t *testing.T) {
	store := newTestStore(t)
	h := NewDebugHandler(store)

	req := httptest.NewRequest("GET", "/debug/tree", nil)
	w := httptest.NewRecorder()
	h.Tree(w, req)

	require.Equal(t, 200, w.Code)

	var entries []treeEntry
	require.NoError(t, json.NewDecoder(w.Body).Decode(&entries))
	require.NotEmpty(t, entries)

	var found bool
	for _, e := range entries {
		if e.Path == "/com/example/Foo" {
			found = true
			require.Contains(t, e.Interfaces, "com.example.Foo")
		}
	}
	require.True(t, found, "expected /com/example/Foo in tree response")
}

func TestDebugHandler_Vtables(t *testing.T) {
	store := newTestStore(t)
	h := NewDebugHandler(store)

	req := httptest.NewRequest("GET", "/debug/vtables/com/example/Foo", nil)
	w := httptest.NewRecorder()
	h.Vtables(w, req)

	require.Equal(t, 200, w.Code)

	var views []vtableView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&views))
	require.Len(t, views, 1)
	require.Equal(t, "com.example.Foo", views[0].Interface)
}

func TestDebugHandler_Vtables_NotFound(t *testing.T) {
	store := newTestStore(t)
	h := NewDebugHandler(store)

	req := httptest.NewRequest("GET", "/debug/vtables/no/such/path", nil)
	w := httptest.NewRecorder()
	h.Vtables(w, req)

	require.Equal(t, 404, w.Code)
}
