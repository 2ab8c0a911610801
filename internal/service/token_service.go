package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/token-service/internal/config"
	"github.com/spec-kit/token-service/internal/domain"
	"github.com/spec-kit/token-service/internal/issuer"
	"github.com/spec-kit/token-service/internal/observability"
	"github.com/spec-kit/token-service/internal/repository"
	apperrors "github.com/spec-kit/token-service/pkg/util"
)

// TokenValidity is the lifetime of every issued credential and of its cache entry.
const TokenValidity = 24 * time.Hour

// Identity defaults applied when a request leaves a field empty.
const (
	DefaultUser    = "anonymous"
	DefaultRole    = domain.RolePublisher
	DefaultChannel = "ChatRoom"
)

// CredentialIssuer signs a single credential.
type CredentialIssuer interface {
	Issue(kind domain.CredentialKind, cfg domain.TokenConfig) (string, error)
}

// TokenRequest carries the raw, possibly empty, request parameters.
type TokenRequest struct {
	User           string
	Role           string
	Channel        string
	AppID          string
	AppCertificate string
}

// TokenResult is the response to a TokenRequest.
type TokenResult struct {
	RTCToken string
	RTMToken string
	Config   domain.CredentialMetadata
	// Cached reports per kind whether the token came from the store.
	Cached map[domain.CredentialKind]bool
}

// TokenServiceOptions configures a TokenService.
type TokenServiceOptions struct {
	Defaults     config.AgoraConfig
	StrictRoles  bool
	WriteTimeout time.Duration
	Logger       *zap.Logger
	Metrics      *observability.Metrics
}

// TokenService hands out RTC and RTM credentials, reusing cached ones until they expire.
type TokenService struct {
	repo         repository.CredentialRepository
	issuer       CredentialIssuer
	defaults     domain.AppCredentials
	strictRoles  bool
	writeTimeout time.Duration
	logger       *zap.Logger
	metrics      *observability.Metrics

	writes sync.WaitGroup
}

// NewTokenService builds the service.
func NewTokenService(repo repository.CredentialRepository, iss CredentialIssuer, opts TokenServiceOptions) *TokenService {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &TokenService{
		repo:   repo,
		issuer: iss,
		defaults: domain.AppCredentials{
			AppID:          opts.Defaults.AppID,
			AppCertificate: opts.Defaults.AppCertificate,
		},
		strictRoles:  opts.StrictRoles,
		writeTimeout: writeTimeout,
		logger:       logger,
		metrics:      opts.Metrics,
	}
}

// DeriveCacheKey returns the store key of a credential. App credentials never take part.
func DeriveCacheKey(kind domain.CredentialKind, id domain.Identity) string {
	return string(kind) + "_TOKEN:" + id.User + ":" + string(id.Role) + ":" + id.Channel
}

// Issue returns an RTC and an RTM token for the request identity. Each is read from the
// store when present; otherwise it is signed and written back in the background.
func (s *TokenService) Issue(ctx context.Context, req TokenRequest) (*TokenResult, error) {
	identity, creds, custom := s.resolve(req)
	if s.strictRoles && !identity.Role.Known() {
		return nil, apperrors.NewValidationError("unsupported role", map[string]any{
			"role":    string(identity.Role),
			"allowed": []string{string(domain.RolePublisher), string(domain.RoleSubscriber)},
		})
	}

	validity := uint32(TokenValidity / time.Second)
	meta := domain.CredentialMetadata{
		User:          identity.User,
		Role:          string(identity.Role),
		Channel:       identity.Channel,
		ExpirationTTL: int(validity),
		CustomAppCert: custom,
	}

	kinds := domain.CredentialKinds
	keys := make([]string, len(kinds))
	tokens := make([]string, len(kinds))
	found := make([]bool, len(kinds))

	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		keys[i] = DeriveCacheKey(kind, identity)
		g.Go(func() error {
			val, ok, err := s.repo.Get(gctx, keys[i])
			if err != nil {
				s.metrics.RecordCacheLookup(kind, observability.ResultError)
				return err
			}
			if ok {
				s.metrics.RecordCacheLookup(kind, observability.ResultHit)
			} else {
				s.metrics.RecordCacheLookup(kind, observability.ResultMiss)
			}
			tokens[i], found[i] = val, ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}

	cfg := domain.TokenConfig{Identity: identity, Credentials: creds, ValiditySeconds: validity}
	result := &TokenResult{Config: meta, Cached: make(map[domain.CredentialKind]bool, len(kinds))}
	for i, kind := range kinds {
		result.Cached[kind] = found[i]
		if found[i] {
			continue
		}

		token, err := s.issuer.Issue(kind, cfg)
		if err != nil {
			s.metrics.RecordIssue(kind, observability.ResultError)
			return nil, apperrors.NewSigningError(err, custom)
		}
		s.metrics.RecordIssue(kind, observability.ResultOK)
		tokens[i] = token

		s.writeBack(ctx, kind, domain.CachedCredential{Key: keys[i], Value: token, Metadata: meta}, TokenValidity)
	}

	result.RTCToken, result.RTMToken = tokens[0], tokens[1]
	return result, nil
}

// Wait blocks until background write-backs finish or ctx is done.
func (s *TokenService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.writes.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// writeBack persists cred without blocking the caller. Failures are logged and counted only.
func (s *TokenService) writeBack(ctx context.Context, kind domain.CredentialKind, cred domain.CachedCredential, ttl time.Duration) {
	s.writes.Add(1)
	go func() {
		defer s.writes.Done()

		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
		defer cancel()

		if err := s.repo.Put(wctx, cred, ttl); err != nil {
			s.metrics.RecordWriteBack(kind, observability.ResultError)
			level := s.logger.Warn
			if errors.Is(err, context.DeadlineExceeded) {
				level = s.logger.Error
			}
			level("credential write-back failed",
				zap.String("kind", string(kind)),
				zap.String("key", cred.Key),
				zap.Error(err),
			)
			return
		}
		s.metrics.RecordWriteBack(kind, observability.ResultOK)
		s.logger.Debug("credential cached", zap.String("kind", string(kind)), zap.String("key", cred.Key), zap.Duration("ttl", ttl))
	}()
}

func (s *TokenService) resolve(req TokenRequest) (domain.Identity, domain.AppCredentials, bool) {
	identity := domain.Identity{
		User:    orDefault(req.User, DefaultUser),
		Role:    domain.Role(orDefault(req.Role, string(DefaultRole))),
		Channel: orDefault(req.Channel, DefaultChannel),
	}
	creds := domain.AppCredentials{
		AppID:          orDefault(req.AppID, s.defaults.AppID),
		AppCertificate: orDefault(req.AppCertificate, s.defaults.AppCertificate),
	}
	custom := creds.AppID != s.defaults.AppID || creds.AppCertificate != s.defaults.AppCertificate
	return identity, creds, custom
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

var _ CredentialIssuer = (*issuer.Issuer)(nil)
