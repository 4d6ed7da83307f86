//go:build !linux

package creds

import (
	"errors"
	"net"
)

// ErrKernelCredentialsUnsupported is returned on platforms with no
// capget(2)/SO_PEERCRED-equivalent wired up. Callers should fall back to
// StaticCredentialsProvider.
var ErrKernelCredentialsUnsupported = errors.New("creds: kernel-mediated credentials are only supported on linux")

// NewKernelCredentialsProvider always fails on non-Linux platforms. The
// effective-capability resolution in kernel_linux.go is tied to the Linux
// capabilities(7) ABI and has no portable equivalent.
func NewKernelCredentialsProvider(conn *net.UnixConn) (*KernelCredentialsProvider, error) {
	return nil, ErrKernelCredentialsUnsupported
}

// KernelCredentialsProvider is an unusable placeholder on non-Linux builds,
// present only so code naming the type builds on every platform.
type KernelCredentialsProvider struct{}
