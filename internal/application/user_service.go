package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/house-marketplace/config"
	"github.com/oksasatya/house-marketplace/internal/domain/entity"
	repo "github.com/oksasatya/house-marketplace/internal/domain/repository"
	"github.com/oksasatya/house-marketplace/internal/session"
	"github.com/oksasatya/house-marketplace/pkg/helpers"
	"github.com/oksasatya/house-marketplace/pkg/mailer"
	mailtpl "github.com/oksasatya/house-marketplace/pkg/mailer/templates"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrGoogleSignIn       = errors.New("could not login with Google")
	ErrInvalidResetToken  = errors.New("reset link is invalid or has expired")
)

const resetTokenTTL = time.Hour

// GoogleIdentity is the verified content of a Google ID token.
type GoogleIdentity struct {
	Subject       string
	Email         string
	Name          string
	EmailVerified bool
}

type IDTokenVerifier interface {
	Verify(ctx context.Context, token string) (GoogleIdentity, error)
}

type Service struct {
	Repo     repo.UserRepository
	JWT      *helpers.JWTManager
	Redis    *redis.Client
	Sessions *session.Directory
	Google   IDTokenVerifier
	Jobs     JobPublisher
	Cfg      *config.Config
	Logger   *logrus.Logger
}

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

type LoginResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

func NewService(users repo.UserRepository, jwt *helpers.JWTManager, rdb *redis.Client, sessions *session.Directory, google IDTokenVerifier, jobs JobPublisher, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		Repo:     users,
		JWT:      jwt,
		Redis:    rdb,
		Sessions: sessions,
		Google:   google,
		Jobs:     jobs,
		Cfg:      cfg,
		Logger:   logger,
	}
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func loginResponse(u *entity.User) *LoginResponse {
	return &LoginResponse{UserID: u.ID, Email: u.Email, Name: u.Name}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates a password account and signs it in.
func (s *Service) SignUp(ctx context.Context, name, email, password string) (*LoginResponse, TokenPair, error) {
	email = normalizeEmail(email)
	if _, err := s.Repo.GetByEmail(ctx, email); err == nil {
		return nil, TokenPair{}, ErrEmailTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, TokenPair{}, err
	}
	hash, err := helpers.HashPassword(password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	u := &entity.User{Name: strings.TrimSpace(name), Email: email, Password: hash, Provider: entity.ProviderPassword}
	if err := s.Repo.Create(ctx, u); err != nil {
		return nil, TokenPair{}, fmt.Errorf("create user: %w", err)
	}
	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.enqueue(ctx, u.Email, func() map[string]any {
		return mailtpl.NewWelcomeData(s.Cfg, u, mailtpl.WithTime(time.Now()))
	})
	return loginResponse(u), pair, nil
}

// Authenticate validates email/password and returns the user without issuing tokens.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	u, err := s.Repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil || u == nil {
		return nil, ErrInvalidCredentials
	}
	if !helpers.CheckPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*LoginResponse, TokenPair, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return loginResponse(u), pair, nil
}

// SignInWithGoogle verifies the ID token and signs the account in. The user
// record is created on first sign-in with the name and email from Google.
func (s *Service) SignInWithGoogle(ctx context.Context, idToken string) (*LoginResponse, TokenPair, error) {
	if s.Google == nil {
		return nil, TokenPair{}, ErrGoogleSignIn
	}
	id, err := s.Google.Verify(ctx, idToken)
	if err != nil {
		helpers.LogWarn(s.Logger, "google id token rejected", err, nil)
		return nil, TokenPair{}, ErrGoogleSignIn
	}
	if id.Email == "" || !id.EmailVerified {
		return nil, TokenPair{}, ErrGoogleSignIn
	}

	u, err := s.Repo.GetByEmail(ctx, normalizeEmail(id.Email))
	switch {
	case errors.Is(err, repo.ErrNotFound):
		name := strings.TrimSpace(id.Name)
		if name == "" {
			name, _, _ = strings.Cut(id.Email, "@")
		}
		u = &entity.User{Name: name, Email: normalizeEmail(id.Email), Provider: entity.ProviderGoogle}
		if err := s.Repo.Create(ctx, u); err != nil {
			return nil, TokenPair{}, fmt.Errorf("create google user: %w", err)
		}
		s.enqueue(ctx, u.Email, func() map[string]any {
			return mailtpl.NewWelcomeData(s.Cfg, u, mailtpl.WithTime(time.Now()))
		})
	case err != nil:
		return nil, TokenPair{}, err
	}

	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return loginResponse(u), pair, nil
}

// IssueTokens starts a new session for u, replacing any previous one.
func (s *Service) IssueTokens(ctx context.Context, u *entity.User) (TokenPair, error) {
	sid := uuid.NewString()
	pair, err := s.tokens(u.ID, sid)
	if err != nil {
		helpers.LogError(s.Logger, "generate tokens failed", err, logrus.Fields{"user_id": u.ID})
		return TokenPair{}, err
	}
	if s.Redis != nil {
		key := session.Key(u.ID)
		fields := map[string]interface{}{
			"user_id":    u.ID,
			"email":      u.Email,
			"name":       u.Name,
			"sid":        sid,
			"created_at": nowRFC3339(),
		}
		if err := helpers.RedisHSetTTL(ctx, s.Redis, key, fields, s.JWT.RefreshTTL); err != nil {
			return TokenPair{}, fmt.Errorf("store session: %w", err)
		}
	}
	s.publish(ctx, session.Event{Kind: session.SignedIn, User: session.User{ID: u.ID, Name: u.Name, Email: u.Email, SessionID: sid}})
	return pair, nil
}

func (s *Service) tokens(userID, sid string) (TokenPair, error) {
	access, aexp, err := s.JWT.GenerateAccessToken(userID, sid)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(userID, sid)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

// Refresh rotates the session id and both tokens. The refresh token must
// belong to the live session.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, string, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, "", ErrInvalidCredentials
	}
	if _, st := s.Sessions.Resolve(ctx, claims.UserID, claims.SessionID); st != session.Authenticated {
		return TokenPair{}, "", ErrInvalidCredentials
	}
	u, err := s.Repo.GetByID(ctx, claims.UserID)
	if err != nil {
		return TokenPair{}, "", ErrInvalidCredentials
	}
	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return TokenPair{}, "", err
	}
	return pair, u.ID, nil
}

// SignOut ends the session of userID on every device.
func (s *Service) SignOut(ctx context.Context, userID string) error {
	if s.Redis != nil {
		if err := helpers.RedisDel(ctx, s.Redis, session.Key(userID)); err != nil {
			return err
		}
	}
	s.publish(ctx, session.Event{Kind: session.SignedOut, UserID: userID})
	return nil
}

func (s *Service) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// UpdateProfile renames the user and refreshes the cached session so the
// new name is visible without signing in again.
func (s *Service) UpdateProfile(ctx context.Context, userID, name string) (*entity.User, error) {
	u, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == u.Name {
		return u, nil
	}
	u.Name = name
	if err := s.Repo.Update(ctx, u); err != nil {
		return nil, err
	}

	if s.Redis != nil {
		key := session.Key(u.ID)
		if err := s.Redis.HSet(ctx, key, "name", u.Name, "updated_at", nowRFC3339()).Err(); err != nil {
			helpers.LogWarn(s.Logger, "session name refresh failed", err, logrus.Fields{"key": key})
		}
	}
	s.publish(ctx, session.Event{Kind: session.Updated, User: session.User{ID: u.ID, Name: u.Name, Email: u.Email}})
	return u, nil
}

// ForgotPassword mails a one-shot reset link. Unknown addresses and Google
// accounts succeed silently so the endpoint does not reveal who is registered.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	if s.Redis == nil {
		return errors.New("password reset unavailable")
	}
	u, err := s.Repo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !u.HasPassword() {
		return nil
	}
	token, err := helpers.RandomToken(32)
	if err != nil {
		return err
	}
	if err := s.Redis.Set(ctx, resetKey(token), u.ID, resetTokenTTL).Err(); err != nil {
		return err
	}
	link := s.Cfg.ResetPasswordURL + "?token=" + url.QueryEscape(token)
	s.enqueue(ctx, u.Email, func() map[string]any {
		return mailtpl.NewForgotPasswordData(s.Cfg, u, mailtpl.WithResetURL(link), mailtpl.WithExpiresIn(resetTokenTTL))
	})
	return nil
}

// ResetPassword consumes a reset token, sets the new password and signs
// the account out everywhere.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if s.Redis == nil {
		return errors.New("password reset unavailable")
	}
	uid, ok, err := helpers.RedisTake(ctx, s.Redis, resetKey(token))
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidResetToken
	}
	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Repo.UpdatePassword(ctx, uid, hash); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	return s.SignOut(ctx, uid)
}

func resetKey(token string) string {
	return "pwreset:" + token
}

func (s *Service) publish(ctx context.Context, ev session.Event) {
	if s.Sessions == nil {
		return
	}
	if err := s.Sessions.Publish(ctx, ev); err != nil {
		helpers.LogWarn(s.Logger, "publish auth-state event failed", err, logrus.Fields{"kind": ev.Kind, "user_id": ev.UserID})
	}
}

// enqueue builds and publishes an email job when mail is enabled.
func (s *Service) enqueue(ctx context.Context, to string, build func() map[string]any) {
	if s.Jobs == nil || s.Cfg == nil || !s.Cfg.MailSendEnabled {
		return
	}
	data := build()
	job := mailer.EmailJob{To: to, Template: "universal", Data: data}
	job.Subject = helpers.SubjectForUniversal(data)
	if err := s.Jobs.PublishJSON(ctx, job); err != nil {
		helpers.LogWarn(s.Logger, "enqueue email failed", err, logrus.Fields{"to": to})
	}
}
