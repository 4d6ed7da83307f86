package busobj

import "context"

// checkAccess implements the access-control decision of spec.md §4.3.
//
// Steps, in order:
//  1. If the engine is trusted (a private/direct connection with no bus
//     daemon mediating), access is always granted.
//  2. If the member entry carries FlagUnprivileged, access is granted
//     without any credential query.
//  3. Otherwise resolve the sender's credentials, requesting effective
//     capabilities only when the transport is kernel-mediated.
//  4. Determine the required capability: the member's own tag if set,
//     else the interface's (the vtable's START entry) tag if set, else
//     CapSysAdmin.
//  5. If the transport is kernel-mediated and the resolved credentials
//     carry the required capability, access is granted.
//  6. Else if the resolved UID equals the process's own UID, access is
//     granted (the "same user" admission rule).
//  7. Otherwise access is denied.
func (e *Engine) checkAccess(ctx context.Context, msg Message, entryFlags, startFlags VtableFlags) error {
	if e.trusted {
		return nil
	}
	if entryFlags.has(FlagUnprivileged) {
		return nil
	}

	mask := CredentialUID
	kernelMediated := e.creds.KernelMediated()
	if kernelMediated {
		mask |= CredentialEffectiveCapabilities
	}
	creds, err := e.creds.QuerySenderCredentials(ctx, msg, mask)
	if err != nil {
		return protoErr(ErrNameAccessDenied, "failed to resolve sender credentials: %v", err)
	}

	required := requiredCapability(entryFlags, startFlags)

	if kernelMediated && creds.HasCapability(required) {
		return nil
	}
	if creds.HasUID && creds.UID == e.creds.ProcessUID() {
		return nil
	}
	return protoErr(ErrNameAccessDenied, "sender lacks capability %d for this member", required)
}

// requiredCapability resolves the capability tag that governs a member,
// falling back from the member's own tag to its interface's tag to
// CapSysAdmin (spec.md §4.3 step 4).
func requiredCapability(entryFlags, startFlags VtableFlags) Capability {
	if tag := entryFlags.CapabilityTag(); tag != 0 {
		return Capability(tag - 1)
	}
	if tag := startFlags.CapabilityTag(); tag != 0 {
		return Capability(tag - 1)
	}
	return CapSysAdmin
}
