package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/token-service/internal/accesstoken"
)

const (
	testAppID   = "970ca35de60c44645bbae8a215061b33"
	testAppCert = "5cfd2fd1755d40ecb72977518be15d3b"
)

func buildToken(t *testing.T) string {
	t.Helper()
	token, err := accesstoken.NewBuilder().BuildRTCTokenWithUserAccount(testAppID, testAppCert, "room1", "alice", accesstoken.RoleSubscriber, 1700000000, 3600, 1700003600)
	require.NoError(t, err)
	return token
}

func TestRun_Text(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"--cert", testAppCert, buildToken(t)}, &out))

	assert.Contains(t, out.String(), "app id:     "+testAppID)
	assert.Contains(t, out.String(), "expires at: 2023-11-14T23:13:20Z")
	assert.Contains(t, out.String(), `service rtc account="alice" channel="room1"`)
	assert.Contains(t, out.String(), "signature:  true")
}

func TestRun_JSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"--json", buildToken(t)}, &out))

	var view tokenView
	require.NoError(t, json.Unmarshal(out.Bytes(), &view))
	assert.Equal(t, testAppID, view.AppID)
	require.Len(t, view.Services, 1)
	assert.Equal(t, "rtc", view.Services[0].Type)
	assert.Equal(t, []privilegeView{{Privilege: accesstoken.PrivilegeJoinChannel, ExpiresAt: time.Unix(1700003600, 0).UTC()}}, view.Services[0].Privileges)
	assert.Nil(t, view.Verified)
}

func TestRun_SignatureMismatch(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"--cert", "00000000000000000000000000000000", buildToken(t)}, &out)
	assert.ErrorIs(t, err, errSignatureMismatch)
}

func TestRun_Usage(t *testing.T) {
	assert.Error(t, run(nil, &bytes.Buffer{}))
	assert.Error(t, run([]string{"not-a-token"}, &bytes.Buffer{}))
}
