package dto

import "github.com/spec-kit/token-service/internal/domain"

// TokenRequest is bound from the query string of the token endpoint.
type TokenRequest struct {
	User           string `query:"user"`
	Role           string `query:"role"`
	Channel        string `query:"channel"`
	AppID          string `query:"appID"`
	AppCertificate string `query:"appCertificate"`
}

// TokenConfigResponse echoes the resolved identity and cache policy.
type TokenConfigResponse struct {
	User          string `json:"user"`
	Role          string `json:"role"`
	Channel       string `json:"channel"`
	ExpirationTTL int    `json:"expirationTtl"`
	CustomAppCert bool   `json:"customAppCert"`
}

// TokenResponse is the body of a successful token request.
type TokenResponse struct {
	RTCToken string              `json:"RTC_TOKEN"`
	RTMToken string              `json:"RTM_TOKEN"`
	Config   TokenConfigResponse `json:"config"`
}

// NewTokenConfigResponse maps credential metadata to its wire form.
func NewTokenConfigResponse(m domain.CredentialMetadata) TokenConfigResponse {
	return TokenConfigResponse{
		User:          m.User,
		Role:          m.Role,
		Channel:       m.Channel,
		ExpirationTTL: m.ExpirationTTL,
		CustomAppCert: m.CustomAppCert,
	}
}
