package accesstoken

import "math/rand/v2"

// Role selects the RTC privilege set.
type Role int

const (
	// RolePublisher may join a channel and publish audio, video and data streams.
	RolePublisher Role = 1
	// RoleSubscriber may only join a channel.
	RoleSubscriber Role = 2
)

// Builder produces signed RTC and RTM tokens. It never reads the clock; callers pass
// the issue timestamp.
type Builder struct {
	salt func() uint32
}

// Option customizes a Builder.
type Option func(*Builder)

// WithSalt overrides the per-token salt source.
func WithSalt(salt func() uint32) Option {
	return func(b *Builder) { b.salt = salt }
}

// NewBuilder returns a Builder using a random salt.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		salt: func() uint32 { return rand.Uint32N(99999999) + 1 },
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildRTCTokenWithUserAccount signs an RTC token for account in channel issued at issueTs.
// tokenExpire is relative to issueTs; privilegeExpireTs is an absolute unix timestamp.
func (b *Builder) BuildRTCTokenWithUserAccount(appID, appCertificate, channel, account string, role Role, issueTs, tokenExpire, privilegeExpireTs uint32) (string, error) {
	token := b.newToken(appID, issueTs, tokenExpire)
	privilegeExpire := relativeTo(privilegeExpireTs, issueTs)

	rtc := NewService(ServiceTypeRTC)
	rtc.ChannelName = channel
	rtc.Account = account
	rtc.AddPrivilege(PrivilegeJoinChannel, privilegeExpire)
	if role == RolePublisher {
		rtc.AddPrivilege(PrivilegePublishAudioStream, privilegeExpire)
		rtc.AddPrivilege(PrivilegePublishVideoStream, privilegeExpire)
		rtc.AddPrivilege(PrivilegePublishDataStream, privilegeExpire)
	}
	token.AddService(rtc)

	return token.Build(appCertificate)
}

// BuildRTMToken signs an RTM login token for account issued at issueTs and valid until
// privilegeExpireTs.
func (b *Builder) BuildRTMToken(appID, appCertificate, account string, issueTs, privilegeExpireTs uint32) (string, error) {
	expire := relativeTo(privilegeExpireTs, issueTs)

	token := b.newToken(appID, issueTs, expire)
	rtm := NewService(ServiceTypeRTM)
	rtm.Account = account
	rtm.AddPrivilege(PrivilegeLogin, expire)
	token.AddService(rtm)

	return token.Build(appCertificate)
}

func (b *Builder) newToken(appID string, issueTs, expire uint32) *AccessToken {
	return &AccessToken{
		AppID:   appID,
		IssueTs: issueTs,
		Expire:  expire,
		Salt:    b.salt(),
	}
}

func relativeTo(ts, issueTs uint32) uint32 {
	if ts <= issueTs {
		return 0
	}
	return ts - issueTs
}
