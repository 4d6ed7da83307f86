package wire

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/marmos91/sdbus/pkg/busobj"
)

const introspectDoctype = `<!DOCTYPE node PUBLIC "-//freedesktop//DTD D-BUS Object Introspection 1.0//EN"
"http://www.freedesktop.org/standards/dbus/1.0/introspect.dtd">
`

type xmlArg struct {
	Name      string `xml:"name,attr,omitempty"`
	Type      string `xml:"type,attr"`
	Direction string `xml:"direction,attr,omitempty"`
}

type xmlMethod struct {
	Name string   `xml:"name,attr"`
	Args []xmlArg `xml:"arg,omitempty"`
}

type xmlSignal struct {
	Name string   `xml:"name,attr"`
	Args []xmlArg `xml:"arg,omitempty"`
}

type xmlProperty struct {
	Name   string `xml:"name,attr"`
	Type   string `xml:"type,attr"`
	Access string `xml:"access,attr"`
}

type xmlInterface struct {
	Name       string        `xml:"name,attr"`
	Methods    []xmlMethod   `xml:"method,omitempty"`
	Signals    []xmlSignal   `xml:"signal,omitempty"`
	Properties []xmlProperty `xml:"property,omitempty"`
}

type xmlChildNode struct {
	Name string `xml:"name,attr"`
}

type xmlDoc struct {
	XMLName    xml.Name       `xml:"node"`
	Interfaces []xmlInterface `xml:"interface"`
	Children   []xmlChildNode `xml:"node"`
}

// XMLIntrospectionWriter implements busobj.IntrospectionWriter by
// building up the introspection document interface-by-interface and
// marshaling it with encoding/xml once Finish is called. No domain
// library in the example corpus owns the D-Bus introspection XML
// grammar, so this one corner of the wire layer stays on the standard
// library.
type XMLIntrospectionWriter struct {
	path busobj.ObjectPath
	doc  xmlDoc
}

func NewXMLIntrospectionWriter() *XMLIntrospectionWriter {
	return &XMLIntrospectionWriter{}
}

func (w *XMLIntrospectionWriter) Begin(path busobj.ObjectPath) {
	w.path = path
	w.doc = xmlDoc{}
}

// WriteDefaultInterfaces adds the four standard meta-interfaces every
// object answers to (spec.md §4.6): Peer, Introspectable, Properties, and,
// when the path sits under an ObjectManager, ObjectManager itself.
func (w *XMLIntrospectionWriter) WriteDefaultInterfaces(hasObjectManager bool) {
	w.doc.Interfaces = append(w.doc.Interfaces,
		xmlInterface{
			Name: busobj.IfacePeer,
			Methods: []xmlMethod{
				{Name: "Ping"},
				{Name: "GetMachineId", Args: []xmlArg{{Name: "machine_uuid", Type: "s", Direction: "out"}}},
			},
		},
		xmlInterface{
			Name: busobj.IfaceIntrospectable,
			Methods: []xmlMethod{
				{Name: "Introspect", Args: []xmlArg{{Name: "xml_data", Type: "s", Direction: "out"}}},
			},
		},
		xmlInterface{
			Name: busobj.IfaceProperties,
			Methods: []xmlMethod{
				{Name: "Get", Args: []xmlArg{
					{Name: "interface_name", Type: "s", Direction: "in"},
					{Name: "property_name", Type: "s", Direction: "in"},
					{Name: "value", Type: "v", Direction: "out"},
				}},
				{Name: "Set", Args: []xmlArg{
					{Name: "interface_name", Type: "s", Direction: "in"},
					{Name: "property_name", Type: "s", Direction: "in"},
					{Name: "value", Type: "v", Direction: "in"},
				}},
				{Name: "GetAll", Args: []xmlArg{
					{Name: "interface_name", Type: "s", Direction: "in"},
					{Name: "properties", Type: "a{sv}", Direction: "out"},
				}},
			},
			Signals: []xmlSignal{
				{Name: "PropertiesChanged", Args: []xmlArg{
					{Name: "interface_name", Type: "s"},
					{Name: "changed_properties", Type: "a{sv}"},
					{Name: "invalidated_properties", Type: "as"},
				}},
			},
		},
	)
	if hasObjectManager {
		w.doc.Interfaces = append(w.doc.Interfaces, xmlInterface{
			Name: busobj.IfaceObjectManager,
			Methods: []xmlMethod{
				{Name: "GetManagedObjects", Args: []xmlArg{
					{Name: "objects", Type: "a{oa{sa{sv}}}", Direction: "out"},
				}},
			},
			Signals: []xmlSignal{
				{Name: "InterfacesAdded", Args: []xmlArg{
					{Name: "object", Type: "o"},
					{Name: "interfaces", Type: "a{sa{sv}}"},
				}},
				{Name: "InterfacesRemoved", Args: []xmlArg{
					{Name: "object", Type: "o"},
					{Name: "interfaces", Type: "as"},
				}},
			},
		})
	}
}

// WriteInterface appends one <interface> block derived from a registered
// vtable's non-hidden method/property/signal entries.
func (w *XMLIntrospectionWriter) WriteInterface(nv *busobj.NodeVtable) error {
	xi := xmlInterface{Name: nv.Interface()}
	for _, entry := range nv.Entries() {
		if entry.Flags&busobj.FlagHidden != 0 {
			continue
		}
		switch entry.Kind {
		case busobj.EntryMethod:
			xi.Methods = append(xi.Methods, xmlMethod{
				Name: entry.Member,
				Args: append(signatureArgs(entry.InSignature, "in"), signatureArgs(entry.ResultSignature, "out")...),
			})
		case busobj.EntryProperty:
			xi.Properties = append(xi.Properties, xmlProperty{Name: entry.Member, Type: entry.Signature, Access: "read"})
		case busobj.EntryWritableProperty:
			xi.Properties = append(xi.Properties, xmlProperty{Name: entry.Member, Type: entry.Signature, Access: "readwrite"})
		case busobj.EntrySignal:
			xi.Signals = append(xi.Signals, xmlSignal{Name: entry.Member, Args: signatureArgs(entry.Signature, "")})
		}
	}
	w.doc.Interfaces = append(w.doc.Interfaces, xi)
	return nil
}

// WriteChildNodes appends one <node name="..."/> per direct child segment
// relative to p, deduplicating multiple enumerator hits under the same
// segment.
func (w *XMLIntrospectionWriter) WriteChildNodes(children []busobj.ObjectPath, p busobj.ObjectPath) {
	seen := make(map[string]bool)
	for _, child := range children {
		segment := directChildSegment(p, child)
		if segment == "" || seen[segment] {
			continue
		}
		seen[segment] = true
		w.doc.Children = append(w.doc.Children, xmlChildNode{Name: segment})
	}
}

func directChildSegment(parent, child busobj.ObjectPath) string {
	ps, cs := string(parent), string(child)
	if !strings.HasPrefix(cs, ps) {
		return ""
	}
	rest := strings.TrimPrefix(cs, ps)
	rest = strings.TrimPrefix(rest, "/")
	if rest == "" {
		return ""
	}
	if idx := strings.Index(rest, "/"); idx >= 0 {
		return rest[:idx]
	}
	return rest
}

func (w *XMLIntrospectionWriter) Finish() (string, error) {
	var sb strings.Builder
	sb.WriteString(xml.Header)
	sb.WriteString(introspectDoctype)
	enc := xml.NewEncoder(&sb)
	enc.Indent("", "  ")
	if err := enc.Encode(w.doc); err != nil {
		return "", fmt.Errorf("encode introspection document for %s: %w", w.path, err)
	}
	return sb.String(), nil
}

// signatureArgs splits a D-Bus type signature into one xmlArg per
// complete type, all sharing direction (empty direction for SIGNAL args).
func signatureArgs(signature, direction string) []xmlArg {
	var args []xmlArg
	for _, t := range splitSignature(signature) {
		args = append(args, xmlArg{Type: t, Direction: direction})
	}
	return args
}

// splitSignature breaks a D-Bus signature string into its top-level
// complete types, respecting STRUCT/DICT_ENTRY nesting and ARRAY element
// prefixes so e.g. "a{sv}s" yields ["a{sv}", "s"].
func splitSignature(signature string) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(signature); i++ {
		switch signature[i] {
		case '(', '{':
			depth++
		case ')', '}':
			depth--
			if depth == 0 {
				out = append(out, signature[start:i+1])
				start = i + 1
			}
		case 'a':
			continue
		default:
			if depth == 0 {
				out = append(out, signature[start:i+1])
				start = i + 1
			}
		}
	}
	return out
}
