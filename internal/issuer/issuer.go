// Package issuer turns a TokenConfig into a signed RTC or RTM token.
package issuer

import (
	"fmt"
	"time"

	"github.com/spec-kit/token-service/internal/accesstoken"
	"github.com/spec-kit/token-service/internal/domain"
)

// Signer produces token strings. *accesstoken.Builder satisfies it.
type Signer interface {
	BuildRTCTokenWithUserAccount(appID, appCertificate, channel, account string, role accesstoken.Role, issueTs, tokenExpire, privilegeExpireTs uint32) (string, error)
	BuildRTMToken(appID, appCertificate, account string, issueTs, privilegeExpireTs uint32) (string, error)
}

// SigningError reports that the signer rejected a request.
type SigningError struct {
	Kind domain.CredentialKind
	Err  error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("sign %s token: %v", e.Kind, e.Err)
}

func (e *SigningError) Unwrap() error {
	return e.Err
}

// Issuer signs credentials. It holds no mutable state.
type Issuer struct {
	signer Signer
	now    func() time.Time
}

// Option customizes an Issuer.
type Option func(*Issuer)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// New returns an Issuer backed by signer.
func New(signer Signer, opts ...Option) *Issuer {
	i := &Issuer{signer: signer, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue signs a token of the given kind valid for cfg.ValiditySeconds from now.
// The clock is read once; the signer receives that instant as the issue timestamp.
func (i *Issuer) Issue(kind domain.CredentialKind, cfg domain.TokenConfig) (string, error) {
	currentTs := uint32(i.now().Unix())
	privilegeExpireTs := currentTs + cfg.ValiditySeconds

	var (
		token string
		err   error
	)
	switch kind {
	case domain.CredentialKindRTC:
		token, err = i.signer.BuildRTCTokenWithUserAccount(
			cfg.Credentials.AppID,
			cfg.Credentials.AppCertificate,
			cfg.Channel,
			cfg.User,
			signerRole(cfg.Role),
			currentTs,
			cfg.ValiditySeconds,
			privilegeExpireTs,
		)
	case domain.CredentialKindRTM:
		token, err = i.signer.BuildRTMToken(
			cfg.Credentials.AppID,
			cfg.Credentials.AppCertificate,
			cfg.User,
			currentTs,
			privilegeExpireTs,
		)
	default:
		err = fmt.Errorf("unknown credential kind %q", kind)
	}
	if err != nil {
		return "", &SigningError{Kind: kind, Err: err}
	}
	return token, nil
}

// signerRole grants publisher privileges only to the publisher role.
func signerRole(role domain.Role) accesstoken.Role {
	if role == domain.RolePublisher {
		return accesstoken.RolePublisher
	}
	return accesstoken.RoleSubscriber
}
