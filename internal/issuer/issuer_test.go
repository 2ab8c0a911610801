package issuer_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/token-service/internal/accesstoken"
	"github.com/spec-kit/token-service/internal/domain"
	"github.com/spec-kit/token-service/internal/issuer"
)

type rtcCall struct {
	appID, appCertificate, channel, account string
	role                                    accesstoken.Role
	issueTs, tokenExpire, privilegeExpireTs uint32
}

type rtmCall struct {
	appID, appCertificate, account string
	issueTs, privilegeExpireTs     uint32
}

type recordingSigner struct {
	rtc []rtcCall
	rtm []rtmCall
	err error
}

func (s *recordingSigner) BuildRTCTokenWithUserAccount(appID, appCertificate, channel, account string, role accesstoken.Role, issueTs, tokenExpire, privilegeExpireTs uint32) (string, error) {
	s.rtc = append(s.rtc, rtcCall{appID, appCertificate, channel, account, role, issueTs, tokenExpire, privilegeExpireTs})
	return "rtc-token", s.err
}

func (s *recordingSigner) BuildRTMToken(appID, appCertificate, account string, issueTs, privilegeExpireTs uint32) (string, error) {
	s.rtm = append(s.rtm, rtmCall{appID, appCertificate, account, issueTs, privilegeExpireTs})
	return "rtm-token", s.err
}

var fixedNow = time.Unix(1700000000, 900_000_000)

func testConfig(role domain.Role) domain.TokenConfig {
	return domain.TokenConfig{
		Identity:        domain.Identity{User: "alice", Role: role, Channel: "room1"},
		Credentials:     domain.AppCredentials{AppID: "app", AppCertificate: "cert"},
		ValiditySeconds: 86400,
	}
}

func TestIssue_RTCPassesChannelAccountAndExpiry(t *testing.T) {
	signer := &recordingSigner{}
	iss := issuer.New(signer, issuer.WithClock(func() time.Time { return fixedNow }))

	token, err := iss.Issue(domain.CredentialKindRTC, testConfig(domain.RolePublisher))
	require.NoError(t, err)
	assert.Equal(t, "rtc-token", token)

	require.Len(t, signer.rtc, 1)
	assert.Equal(t, rtcCall{
		appID:             "app",
		appCertificate:    "cert",
		channel:           "room1",
		account:           "alice",
		role:              accesstoken.RolePublisher,
		issueTs:           1700000000,
		tokenExpire:       86400,
		privilegeExpireTs: 1700086400,
	}, signer.rtc[0])
	assert.Empty(t, signer.rtm)
}

func TestIssue_RTMPassesAccountAndExpiry(t *testing.T) {
	signer := &recordingSigner{}
	iss := issuer.New(signer, issuer.WithClock(func() time.Time { return fixedNow }))

	token, err := iss.Issue(domain.CredentialKindRTM, testConfig(domain.RoleSubscriber))
	require.NoError(t, err)
	assert.Equal(t, "rtm-token", token)
	assert.Equal(t, []rtmCall{{"app", "cert", "alice", 1700000000, 1700086400}}, signer.rtm)
}

func TestIssue_RoleMapping(t *testing.T) {
	for role, want := range map[domain.Role]accesstoken.Role{
		domain.RolePublisher:  accesstoken.RolePublisher,
		domain.RoleSubscriber: accesstoken.RoleSubscriber,
		"admin":               accesstoken.RoleSubscriber,
	} {
		signer := &recordingSigner{}
		_, err := issuer.New(signer).Issue(domain.CredentialKindRTC, testConfig(role))
		require.NoError(t, err)
		assert.Equal(t, want, signer.rtc[0].role, "role %q", role)
	}
}

func TestIssue_PropagatesSigningError(t *testing.T) {
	cause := errors.New("bad cert")
	iss := issuer.New(&recordingSigner{err: cause})

	_, err := iss.Issue(domain.CredentialKindRTM, testConfig(domain.RolePublisher))
	var signErr *issuer.SigningError
	require.ErrorAs(t, err, &signErr)
	assert.Equal(t, domain.CredentialKindRTM, signErr.Kind)
	assert.ErrorIs(t, err, cause)
}

func TestIssue_UnknownKind(t *testing.T) {
	_, err := issuer.New(&recordingSigner{}).Issue("SIP", testConfig(domain.RolePublisher))
	var signErr *issuer.SigningError
	assert.ErrorAs(t, err, &signErr)
}

func TestIssue_WithAccessTokenBuilder(t *testing.T) {
	clock := func() time.Time { return fixedNow }
	iss := issuer.New(accesstoken.NewBuilder(), issuer.WithClock(clock))

	cfg := testConfig(domain.RolePublisher)
	cfg.Credentials = domain.AppCredentials{
		AppID:          "970ca35de60c44645bbae8a215061b33",
		AppCertificate: "5cfd2fd1755d40ecb72977518be15d3b",
	}

	token, err := iss.Issue(domain.CredentialKindRTC, cfg)
	require.NoError(t, err)

	parsed, err := accesstoken.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint32(1700086400), parsed.ExpiresAt())
	assert.Equal(t, uint32(86400), parsed.Services[accesstoken.ServiceTypeRTC].Privileges[accesstoken.PrivilegeJoinChannel])
}

// tickingClock advances by one nanosecond on every read.
type tickingClock struct {
	mu    sync.Mutex
	now   time.Time
	reads int
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(time.Nanosecond)
	c.reads++
	return t
}

func TestIssue_ExpiryMatchesValidityAcrossSecondBoundary(t *testing.T) {
	cfg := testConfig(domain.RolePublisher)
	cfg.Credentials = domain.AppCredentials{
		AppID:          "970ca35de60c44645bbae8a215061b33",
		AppCertificate: "5cfd2fd1755d40ecb72977518be15d3b",
	}

	for _, kind := range domain.CredentialKinds {
		clock := &tickingClock{now: time.Unix(1700000000, 999_999_999)}
		iss := issuer.New(accesstoken.NewBuilder(), issuer.WithClock(clock.Now))

		token, err := iss.Issue(kind, cfg)
		require.NoError(t, err)
		assert.Equal(t, 1, clock.reads, "%s", kind)

		parsed, err := accesstoken.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, uint32(1700000000), parsed.IssueTs, "%s", kind)
		assert.Equal(t, cfg.ValiditySeconds, parsed.Expire, "%s", kind)
		assert.Equal(t, parsed.IssueTs+cfg.ValiditySeconds, parsed.ExpiresAt(), "%s", kind)
		for _, svc := range parsed.Services {
			for privilege, expire := range svc.Privileges {
				assert.Equal(t, cfg.ValiditySeconds, expire, "%s privilege %d", kind, privilege)
			}
		}
	}
}
