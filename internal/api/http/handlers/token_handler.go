package handlers

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/spec-kit/token-service/internal/api/dto"
	"github.com/spec-kit/token-service/internal/domain"
	"github.com/spec-kit/token-service/internal/service"
)

// HeaderTokenCache reports whether each token was served from the store.
const HeaderTokenCache = "X-Token-Cache"

// TokenHandler exposes credential issuance.
type TokenHandler struct {
	tokens *service.TokenService
}

// NewTokenHandler constructs handler.
func NewTokenHandler(tokens *service.TokenService) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

// Issue handles GET /token.
func (h *TokenHandler) Issue(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.QueryParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid query")
	}

	// Query values alias the request buffer; the background write-back outlives it.
	res, err := h.tokens.Issue(c.UserContext(), service.TokenRequest{
		User:           utils.CopyString(req.User),
		Role:           utils.CopyString(req.Role),
		Channel:        utils.CopyString(req.Channel),
		AppID:          utils.CopyString(req.AppID),
		AppCertificate: utils.CopyString(req.AppCertificate),
	})
	if err != nil {
		return err
	}

	c.Set(HeaderTokenCache, fmt.Sprintf("RTC=%s; RTM=%s",
		cacheStatus(res.Cached[domain.CredentialKindRTC]),
		cacheStatus(res.Cached[domain.CredentialKindRTM]),
	))
	return c.JSON(dto.TokenResponse{
		RTCToken: res.RTCToken,
		RTMToken: res.RTMToken,
		Config:   dto.NewTokenConfigResponse(res.Config),
	})
}

func cacheStatus(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
