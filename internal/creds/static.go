package creds

import (
	"context"

	"github.com/marmos91/sdbus/pkg/busobj"
)

// StaticCredentialsProvider is a userspace-mediated CredentialsProvider:
// it resolves only the UID, never the effective capability set, matching
// spec.md §4.3 step 3's "userspace-mediated transports ... the effective
// set is racy and not used for a trust decision". Used for transports
// with no kernel-verified peer credential (TCP, vsock) and in tests.
type StaticCredentialsProvider struct {
	processUID uint32
	lookup     func(ctx context.Context, msg busobj.Message) (uid uint32, ok bool)
}

// NewStaticCredentialsProvider builds a provider that resolves sender UID
// via lookup (e.g. a SASL EXTERNAL handshake result keyed by connection).
// A nil lookup resolves no UID.
func NewStaticCredentialsProvider(processUID uint32, lookup func(ctx context.Context, msg busobj.Message) (uint32, bool)) *StaticCredentialsProvider {
	return &StaticCredentialsProvider{processUID: processUID, lookup: lookup}
}

func (s *StaticCredentialsProvider) KernelMediated() bool { return false }

func (s *StaticCredentialsProvider) ProcessUID() uint32 { return s.processUID }

func (s *StaticCredentialsProvider) QuerySenderCredentials(ctx context.Context, msg busobj.Message, mask busobj.CredentialMask) (*busobj.Credentials, error) {
	if s.lookup == nil {
		return &busobj.Credentials{}, nil
	}
	uid, ok := s.lookup(ctx, msg)
	return &busobj.Credentials{UID: uid, HasUID: ok && mask&busobj.CredentialUID != 0}, nil
}
