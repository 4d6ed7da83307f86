// Package busobj implements the D-Bus object-tree dispatch engine: the
// subsystem that, given an incoming method-call message, locates the
// correct handler in a registered hierarchy of object paths, checks
// access, marshals arguments, invokes user logic, and emits the standard
// D-Bus protocol signals (PropertiesChanged, InterfacesAdded/Removed,
// GetManagedObjects, Introspect).
//
// The wire codec, transport, authentication, and name/signature validation
// are treated as external collaborators and consumed through the Message,
// CredentialsProvider, IntrospectionWriter, and NameValidator interfaces;
// concrete adapters live in sibling packages (internal/wire,
// internal/creds, internal/validate).
package busobj
