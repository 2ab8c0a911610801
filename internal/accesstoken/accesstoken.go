// Package accesstoken builds and decodes version "007" (AccessToken2) RTC and RTM tokens.
//
// A token is the version prefix followed by base64(zlib(signature || signingInfo)), where
// signingInfo carries the app ID, issue timestamp, relative expiry, salt and the privileges of
// each service the token grants.
package accesstoken

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/klauspost/compress/zlib"
)

// Version is the prefix of every token produced by this package.
const Version = "007"

// ServiceType identifies the product a service block grants access to.
type ServiceType uint16

const (
	ServiceTypeRTC ServiceType = 1
	ServiceTypeRTM ServiceType = 2
)

func (t ServiceType) String() string {
	switch t {
	case ServiceTypeRTC:
		return "rtc"
	case ServiceTypeRTM:
		return "rtm"
	default:
		return fmt.Sprintf("service(%d)", uint16(t))
	}
}

// RTC privileges.
const (
	PrivilegeJoinChannel        uint16 = 1
	PrivilegePublishAudioStream uint16 = 2
	PrivilegePublishVideoStream uint16 = 3
	PrivilegePublishDataStream  uint16 = 4
)

// RTM privileges.
const (
	PrivilegeLogin uint16 = 1
)

var (
	// ErrInvalidAppID is returned when the app ID is not a 32 character hex string.
	ErrInvalidAppID = errors.New("accesstoken: invalid app id")
	// ErrInvalidAppCertificate is returned when the certificate is not a 32 character hex string.
	ErrInvalidAppCertificate = errors.New("accesstoken: invalid app certificate")
	// ErrInvalidToken is returned by Parse for anything that is not a well formed token.
	ErrInvalidToken = errors.New("accesstoken: invalid token")
)

// Service is one privilege block inside a token.
type Service struct {
	Type       ServiceType
	Privileges map[uint16]uint32
	// ChannelName is only meaningful for RTC services.
	ChannelName string
	// Account is the RTC user account or the RTM user id.
	Account string
}

// NewService creates an empty service block.
func NewService(t ServiceType) *Service {
	return &Service{Type: t, Privileges: make(map[uint16]uint32)}
}

// AddPrivilege grants privilege for expire seconds after the token's issue timestamp.
func (s *Service) AddPrivilege(privilege uint16, expire uint32) {
	s.Privileges[privilege] = expire
}

func (s *Service) pack(w *bytes.Buffer) {
	packUint16(w, uint16(s.Type))
	packPrivileges(w, s.Privileges)
	switch s.Type {
	case ServiceTypeRTC:
		packString(w, s.ChannelName)
		packString(w, s.Account)
	case ServiceTypeRTM:
		packString(w, s.Account)
	}
}

func unpackService(r io.Reader) (*Service, error) {
	t, err := unpackUint16(r)
	if err != nil {
		return nil, err
	}
	s := &Service{Type: ServiceType(t)}
	if s.Privileges, err = unpackPrivileges(r); err != nil {
		return nil, err
	}
	switch s.Type {
	case ServiceTypeRTC:
		if s.ChannelName, err = unpackString(r); err != nil {
			return nil, err
		}
		if s.Account, err = unpackString(r); err != nil {
			return nil, err
		}
	case ServiceTypeRTM:
		if s.Account, err = unpackString(r); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown service type %d", ErrInvalidToken, t)
	}
	return s, nil
}

// AccessToken is the decoded form of a token.
type AccessToken struct {
	AppID   string
	IssueTs uint32
	// Expire is the token lifetime in seconds counted from IssueTs.
	Expire   uint32
	Salt     uint32
	Services map[ServiceType]*Service

	// Signature is populated by Parse.
	Signature []byte
}

// AddService attaches s, replacing any service of the same type.
func (t *AccessToken) AddService(s *Service) {
	if t.Services == nil {
		t.Services = make(map[ServiceType]*Service)
	}
	t.Services[s.Type] = s
}

// ExpiresAt returns the absolute unix time at which the token stops being accepted.
func (t *AccessToken) ExpiresAt() uint32 {
	return t.IssueTs + t.Expire
}

func (t *AccessToken) signingInfo() []byte {
	var w bytes.Buffer
	packString(&w, t.AppID)
	packUint32(&w, t.IssueTs)
	packUint32(&w, t.Expire)
	packUint32(&w, t.Salt)

	types := make([]int, 0, len(t.Services))
	for st := range t.Services {
		types = append(types, int(st))
	}
	sort.Ints(types)

	packUint16(&w, uint16(len(types)))
	for _, st := range types {
		t.Services[ServiceType(st)].pack(&w)
	}
	return w.Bytes()
}

func (t *AccessToken) sign(appCertificate string, info []byte) []byte {
	var ts, salt bytes.Buffer
	packUint32(&ts, t.IssueTs)
	packUint32(&salt, t.Salt)

	key := hmacSum(salt.Bytes(), hmacSum(ts.Bytes(), []byte(appCertificate)))
	return hmacSum(key, info)
}

func hmacSum(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

// Build signs the token with appCertificate and returns its string form.
func (t *AccessToken) Build(appCertificate string) (string, error) {
	if !isHexID(t.AppID) {
		return "", ErrInvalidAppID
	}
	if !isHexID(appCertificate) {
		return "", ErrInvalidAppCertificate
	}

	info := t.signingInfo()

	var content bytes.Buffer
	packBytes(&content, t.sign(appCertificate, info))
	content.Write(info)

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(content.Bytes()); err != nil {
		return "", fmt.Errorf("compress token: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compress token: %w", err)
	}

	return Version + base64.StdEncoding.EncodeToString(compressed.Bytes()), nil
}

// Verify reports whether the parsed token was signed with appCertificate.
func (t *AccessToken) Verify(appCertificate string) bool {
	if len(t.Signature) == 0 {
		return false
	}
	return hmac.Equal(t.Signature, t.sign(appCertificate, t.signingInfo()))
}

// Parse decodes a token string without checking its signature.
func Parse(token string) (*AccessToken, error) {
	if !strings.HasPrefix(token, Version) {
		return nil, fmt.Errorf("%w: unsupported version", ErrInvalidToken)
	}
	raw, err := base64.StdEncoding.DecodeString(token[len(Version):])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	defer zr.Close()
	content, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	r := bytes.NewReader(content)
	t := &AccessToken{Services: make(map[ServiceType]*Service)}
	if t.Signature, err = unpackBytes(r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if t.AppID, err = unpackString(r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if t.IssueTs, err = unpackUint32(r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if t.Expire, err = unpackUint32(r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if t.Salt, err = unpackUint32(r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	n, err := unpackUint16(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	for i := 0; i < int(n); i++ {
		s, err := unpackService(r)
		if err != nil {
			if errors.Is(err, ErrInvalidToken) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		t.Services[s.Type] = s
	}
	return t, nil
}

func isHexID(s string) bool {
	if len(s) != 32 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
