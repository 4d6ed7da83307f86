//go:build linux

package creds

import (
	"context"
	"fmt"
	"net"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/marmos91/sdbus/pkg/busobj"
)

// capUserHeader/capUserData mirror struct __user_cap_header_struct and
// struct __user_cap_data_struct from <linux/capability.h>. x/sys/unix
// does not wrap capget(2) directly; the layout is part of the stable
// Linux capabilities ABI (capabilities(7), "Versioning").
type capUserHeader struct {
	version uint32
	pid     int32
}

type capUserData struct {
	effective   uint32
	permitted   uint32
	inheritable uint32
}

const linuxCapabilityVersion3 = 0x20080522

func capget(hdr *capUserHeader, data *[2]capUserData) error {
	_, _, errno := unix.Syscall(unix.SYS_CAPGET, uintptr(unsafe.Pointer(hdr)), uintptr(unsafe.Pointer(&data[0])), 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// KernelCredentialsProvider resolves sender identity from the kernel via
// SO_PEERCRED on a Unix domain socket connection and the peer process's
// effective capability set via capget(2) (spec.md §4.3 step 3,
// "kernel-mediated transports can resolve UID and effective capabilities
// atomically").
type KernelCredentialsProvider struct {
	conn       *net.UnixConn
	processUID uint32
}

// NewKernelCredentialsProvider wraps a Unix domain socket connection.
func NewKernelCredentialsProvider(conn *net.UnixConn) (*KernelCredentialsProvider, error) {
	return &KernelCredentialsProvider{conn: conn, processUID: uint32(unix.Getuid())}, nil
}

func (k *KernelCredentialsProvider) KernelMediated() bool { return true }

func (k *KernelCredentialsProvider) ProcessUID() uint32 { return k.processUID }

// QuerySenderCredentials reads SO_PEERCRED for the UID, and, when the
// effective capability set is requested, resolves the peer PID's
// capabilities via capget(2). A peer that has exited between accept and
// this call yields a transport error rather than stale credentials.
func (k *KernelCredentialsProvider) QuerySenderCredentials(_ context.Context, _ busobj.Message, mask busobj.CredentialMask) (*busobj.Credentials, error) {
	raw, err := k.conn.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("access underlying socket: %w", err)
	}

	var ucred *unix.Ucred
	var sockErr error
	if err := raw.Control(func(fd uintptr) {
		ucred, sockErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err != nil {
		return nil, fmt.Errorf("read SO_PEERCRED: %w", err)
	}
	if sockErr != nil {
		return nil, fmt.Errorf("read SO_PEERCRED: %w", sockErr)
	}

	creds := &busobj.Credentials{UID: ucred.Uid, HasUID: mask&busobj.CredentialUID != 0}
	if mask&busobj.CredentialEffectiveCapabilities != 0 {
		caps, err := effectiveCapabilities(ucred.Pid)
		if err != nil {
			return nil, fmt.Errorf("read effective capabilities for pid %d: %w", ucred.Pid, err)
		}
		creds.HasEffectiveCaps = true
		creds.EffectiveCaps = caps
	}
	return creds, nil
}

// effectiveCapabilities reads the effective capability bitmask of pid via
// capget(2) and expands it into the per-capability map busobj.Credentials
// expects.
func effectiveCapabilities(pid int32) (map[busobj.Capability]bool, error) {
	hdr := capUserHeader{version: linuxCapabilityVersion3, pid: pid}
	var data [2]capUserData
	if err := capget(&hdr, &data); err != nil {
		return nil, err
	}

	effective := uint64(data[0].effective) | uint64(data[1].effective)<<32
	out := make(map[busobj.Capability]bool)
	for capNum := uint(0); capNum < 64; capNum++ {
		if effective&(1<<capNum) != 0 {
			out[busobj.Capability(capNum)] = true
		}
	}
	return out, nil
}
