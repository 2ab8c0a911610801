package domain

// CredentialKind distinguishes the two token products issued per request.
type CredentialKind string

const (
	CredentialKindRTC CredentialKind = "RTC"
	CredentialKindRTM CredentialKind = "RTM"
)

// CredentialKinds lists every kind issued for a request, in response order.
var CredentialKinds = []CredentialKind{CredentialKindRTC, CredentialKindRTM}

// Role is the requested channel privilege. Values outside the known set are carried verbatim.
type Role string

const (
	RolePublisher  Role = "publisher"
	RoleSubscriber Role = "subscriber"
)

// Known reports whether r is publisher or subscriber.
func (r Role) Known() bool {
	return r == RolePublisher || r == RoleSubscriber
}

// Identity names who a credential is for. Together with the kind it determines the cache key.
type Identity struct {
	User    string
	Role    Role
	Channel string
}

// AppCredentials are the project credentials tokens are signed with.
type AppCredentials struct {
	AppID          string
	AppCertificate string
}

// String never includes the certificate.
func (c AppCredentials) String() string {
	return "AppCredentials{AppID:" + c.AppID + ", AppCertificate:[redacted]}"
}

// GoString keeps %#v from printing the certificate.
func (c AppCredentials) GoString() string {
	return c.String()
}

// TokenConfig is everything the issuer needs to sign one credential.
type TokenConfig struct {
	Identity
	Credentials     AppCredentials
	ValiditySeconds uint32
}

// CredentialMetadata describes a cached credential and is echoed back to callers.
type CredentialMetadata struct {
	User          string `json:"user"`
	Role          string `json:"role"`
	Channel       string `json:"channel"`
	ExpirationTTL int    `json:"expirationTtl"`
	CustomAppCert bool   `json:"customAppCert"`
}

// CachedCredential is a signed token as held by the credential store.
type CachedCredential struct {
	Key      string
	Value    string
	Metadata CredentialMetadata
}
