package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lumenworks/frameio-relay/internal/storage"
)

var ErrLinkInvalid = errors.New("magic link is invalid or expired")

// UserDirectory is the slice of the user repository the magic-link flow
// needs. Tests substitute an in-memory implementation.
type UserDirectory interface {
	GetOrCreate(ctx context.Context, email string) (storage.User, error)
	TouchLogin(ctx context.Context, id string) error
}

// MagicLinkService implements passwordless sign-in. A one-time token is
// stored hashed in Redis with a TTL; redeeming it mints a session JWT.
// There is no mail transport in this system: the link is written to the
// logs for the operator to hand out.
type MagicLinkService struct {
	rdb        *redis.Client
	users      UserDirectory
	logger     *slog.Logger
	secret     string
	baseURL    string
	linkTTL    time.Duration
	sessionTTL time.Duration
}

func NewMagicLinkService(
	rdb *redis.Client,
	users UserDirectory,
	logger *slog.Logger,
	secret, baseURL string,
	linkTTL, sessionTTL time.Duration,
) *MagicLinkService {
	return &MagicLinkService{
		rdb:        rdb,
		users:      users,
		logger:     logger,
		secret:     secret,
		baseURL:    strings.TrimRight(baseURL, "/"),
		linkTTL:    linkTTL,
		sessionTTL: sessionTTL,
	}
}

// Send generates a one-time link for the email and logs it. Only the SHA-256
// of the token ever reaches Redis, so a Redis dump cannot be replayed.
func (s *MagicLinkService) Send(ctx context.Context, email string) error {
	var raw [32]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return err
	}
	token := hex.EncodeToString(raw[:])

	if err := s.rdb.Set(ctx, linkKey(token), email, s.linkTTL).Err(); err != nil {
		return fmt.Errorf("failed to store magic link: %w", err)
	}

	link := fmt.Sprintf("%s/auth/magic/callback?token=%s&email=%s", s.baseURL, token, url.QueryEscape(email))
	s.logger.Info("magic link generated", "email", email, "link", link, "expires_in", s.linkTTL.String())
	return nil
}

// Redeem consumes the token (single use, enforced by GETDEL) and returns a
// signed session token plus the signed-in user.
func (s *MagicLinkService) Redeem(ctx context.Context, token, email string) (string, storage.User, error) {
	stored, err := s.rdb.GetDel(ctx, linkKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", storage.User{}, ErrLinkInvalid
	}
	if err != nil {
		return "", storage.User{}, err
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(email)) != 1 {
		return "", storage.User{}, ErrLinkInvalid
	}

	user, err := s.users.GetOrCreate(ctx, email)
	if err != nil {
		return "", storage.User{}, err
	}
	if err := s.users.TouchLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to record login time", "user_id", user.ID, "err", err)
	}

	now := time.Now()
	session, err := SignHS256(Claims{
		Sub:   user.ID,
		Email: user.Email,
		Iat:   now.Unix(),
		Exp:   now.Add(s.sessionTTL).Unix(),
	}, s.secret)
	if err != nil {
		return "", storage.User{}, err
	}
	return session, user, nil
}

func linkKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "magiclink:" + hex.EncodeToString(sum[:])
}
