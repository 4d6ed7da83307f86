package adminapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/marmos91/sdbus/pkg/busobj"
)

// DebugHandler serves read-only introspection of a running dispatch
// engine's Node Store over HTTP, for operators without bus-level access.
type DebugHandler struct {
	store *busobj.Store
}

// NewDebugHandler builds a DebugHandler reading from store.
func NewDebugHandler(store *busobj.Store) *DebugHandler {
	return &DebugHandler{store: store}
}

// Health is an unauthenticated liveness probe.
func (h *DebugHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// treeEntry describes one registered node for the /debug/tree response.
type treeEntry struct {
	Path               string   `json:"path"`
	Interfaces         []string `json:"interfaces"`
	HasObjectManager   bool     `json:"has_object_manager"`
	CallbackCount      int      `json:"callback_count"`
	EnumeratorCount    int      `json:"enumerator_count"`
	ChildCount         int      `json:"child_count"`
}

// Tree returns every registered object path along with a summary of what is
// registered at it, sorted lexically by path.
func (h *DebugHandler) Tree(w http.ResponseWriter, r *http.Request) {
	paths := h.store.Paths()
	entries := make([]treeEntry, 0, len(paths))

	for _, p := range paths {
		node, ok := h.store.Lookup(p)
		if !ok {
			continue
		}

		ifaces := make([]string, 0, len(node.Vtables()))
		for _, vt := range node.Vtables() {
			ifaces = append(ifaces, vt.Interface())
		}

		entries = append(entries, treeEntry{
			Path:             string(p),
			Interfaces:       ifaces,
			HasObjectManager: node.HasObjectManager(),
			CallbackCount:    len(node.Callbacks()),
			EnumeratorCount:  len(node.Enumerators()),
			ChildCount:       len(node.Children()),
		})
	}

	writeJSON(w, http.StatusOK, entries)
}

// vtableEntryView is the JSON projection of one busobj.VtableEntry.
type vtableEntryView struct {
	Kind            string `json:"kind"`
	Member          string `json:"member,omitempty"`
	InSignature     string `json:"in_signature,omitempty"`
	ResultSignature string `json:"result_signature,omitempty"`
	Signature       string `json:"signature,omitempty"`
	Flags           uint32 `json:"flags"`
}

// vtableView is the JSON projection of one busobj.NodeVtable.
type vtableView struct {
	Interface  string            `json:"interface"`
	IsFallback bool              `json:"is_fallback"`
	Entries    []vtableEntryView `json:"entries"`
}

var entryKindNames = map[busobj.VtableEntryKind]string{
	busobj.EntryStart:             "start",
	busobj.EntryMethod:            "method",
	busobj.EntryProperty:          "property",
	busobj.EntryWritableProperty:  "writable_property",
	busobj.EntrySignal:            "signal",
	busobj.EntryEnd:               "end",
}

// Vtables returns the vtables registered at the object path carried in the
// request's wildcard segment (GET /debug/vtables/{path}).
func (h *DebugHandler) Vtables(w http.ResponseWriter, r *http.Request) {
	path := "/" + strings.TrimPrefix(r.URL.Path, "/debug/vtables/")
	path = strings.TrimPrefix(path, "//")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	node, ok := h.store.Lookup(busobj.ObjectPath(path))
	if !ok {
		http.Error(w, "no object registered at path", http.StatusNotFound)
		return
	}

	views := make([]vtableView, 0, len(node.Vtables()))
	for _, vt := range node.Vtables() {
		entries := make([]vtableEntryView, 0, len(vt.Entries()))
		for _, e := range vt.Entries() {
			entries = append(entries, vtableEntryView{
				Kind:            entryKindNames[e.Kind],
				Member:          e.Member,
				InSignature:     e.InSignature,
				ResultSignature: e.ResultSignature,
				Signature:       e.Signature,
				Flags:           uint32(e.Flags),
			})
		}
		views = append(views, vtableView{
			Interface:  vt.Interface(),
			IsFallback: vt.IsFallback(),
			Entries:    entries,
		})
	}

	writeJSON(w, http.StatusOK, views)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
