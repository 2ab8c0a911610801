package accesstoken_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/token-service/internal/accesstoken"
)

const (
	testAppID   = "970ca35de60c44645bbae8a215061b33"
	testAppCert = "5cfd2fd1755d40ecb72977518be15d3b"
	issueTs     = 1700000000
)

func fixedBuilder() *accesstoken.Builder {
	return accesstoken.NewBuilder(accesstoken.WithSalt(func() uint32 { return 42 }))
}

func TestBuildRTCToken_Publisher(t *testing.T) {
	token, err := fixedBuilder().BuildRTCTokenWithUserAccount(testAppID, testAppCert, "room1", "alice", accesstoken.RolePublisher, issueTs, 86400, 1700086400)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, accesstoken.Version))

	parsed, err := accesstoken.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, testAppID, parsed.AppID)
	assert.Equal(t, uint32(1700000000), parsed.IssueTs)
	assert.Equal(t, uint32(86400), parsed.Expire)
	assert.Equal(t, uint32(42), parsed.Salt)
	assert.Equal(t, uint32(1700086400), parsed.ExpiresAt())
	assert.True(t, parsed.Verify(testAppCert))

	rtc := parsed.Services[accesstoken.ServiceTypeRTC]
	require.NotNil(t, rtc)
	assert.Equal(t, "room1", rtc.ChannelName)
	assert.Equal(t, "alice", rtc.Account)
	assert.Equal(t, map[uint16]uint32{
		accesstoken.PrivilegeJoinChannel:        86400,
		accesstoken.PrivilegePublishAudioStream: 86400,
		accesstoken.PrivilegePublishVideoStream: 86400,
		accesstoken.PrivilegePublishDataStream:  86400,
	}, rtc.Privileges)
}

func TestBuildRTCToken_SubscriberOnlyJoins(t *testing.T) {
	token, err := fixedBuilder().BuildRTCTokenWithUserAccount(testAppID, testAppCert, "room1", "bob", accesstoken.RoleSubscriber, issueTs, 86400, 1700086400)
	require.NoError(t, err)

	parsed, err := accesstoken.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, map[uint16]uint32{accesstoken.PrivilegeJoinChannel: 86400}, parsed.Services[accesstoken.ServiceTypeRTC].Privileges)
}

func TestBuildRTMToken(t *testing.T) {
	token, err := fixedBuilder().BuildRTMToken(testAppID, testAppCert, "alice", issueTs, 1700086400)
	require.NoError(t, err)

	parsed, err := accesstoken.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint32(86400), parsed.Expire)
	rtm := parsed.Services[accesstoken.ServiceTypeRTM]
	require.NotNil(t, rtm)
	assert.Equal(t, "alice", rtm.Account)
	assert.Equal(t, map[uint16]uint32{accesstoken.PrivilegeLogin: 86400}, rtm.Privileges)
	assert.True(t, parsed.Verify(testAppCert))
	assert.False(t, parsed.Verify("00000000000000000000000000000000"))
}

func TestBuild_DeterministicForFixedIssueTsAndSalt(t *testing.T) {
	a, err := fixedBuilder().BuildRTMToken(testAppID, testAppCert, "alice", issueTs, 1700086400)
	require.NoError(t, err)
	b, err := fixedBuilder().BuildRTMToken(testAppID, testAppCert, "alice", issueTs, 1700086400)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuild_PastExpiryClampsToZero(t *testing.T) {
	token, err := fixedBuilder().BuildRTMToken(testAppID, testAppCert, "alice", issueTs, 1600000000)
	require.NoError(t, err)

	parsed, err := accesstoken.Parse(token)
	require.NoError(t, err)
	assert.Zero(t, parsed.Expire)
}

func TestBuild_RejectsMalformedCredentials(t *testing.T) {
	b := fixedBuilder()

	_, err := b.BuildRTMToken("not-an-app-id", testAppCert, "alice", issueTs, 1700086400)
	assert.ErrorIs(t, err, accesstoken.ErrInvalidAppID)

	_, err = b.BuildRTCTokenWithUserAccount(testAppID, "zz", "room", "alice", accesstoken.RolePublisher, issueTs, 60, 1700000060)
	assert.ErrorIs(t, err, accesstoken.ErrInvalidAppCertificate)
}

func TestParse_Rejects(t *testing.T) {
	for name, token := range map[string]string{
		"empty":        "",
		"wrong prefix": "006abc",
		"bad base64":   "007!!!",
		"not zlib":     "007aGVsbG8=",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := accesstoken.Parse(token)
			assert.ErrorIs(t, err, accesstoken.ErrInvalidToken)
		})
	}
}
