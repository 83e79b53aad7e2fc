package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/artesanato/internal/domain/entity"
	repo "github.com/oksasatya/artesanato/internal/domain/repository"
	"github.com/oksasatya/artesanato/pkg/helpers"
	"github.com/oksasatya/artesanato/pkg/mailer"
	tpl "github.com/oksasatya/artesanato/pkg/mailer/templates"
)

// Publisher enqueues a JSON job. *helpers.RabbitPublisher satisfies it.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// Branding feeds the welcome email.
type Branding struct {
	AppName     string
	CompanyName string
	SupportURL  string
}

type UserService struct {
	Repo       repo.UserRepository
	JWT        *helpers.JWTManager
	Redis      *redis.Client
	Pub        Publisher
	Logger     *logrus.Logger
	SessionTTL time.Duration
	Branding   Branding
}

type TokenPair struct {
	SessionID          string
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func NewUserService(repo repo.UserRepository, jwt *helpers.JWTManager, rdb *redis.Client, pub Publisher, logger *logrus.Logger, sessionTTL time.Duration, branding Branding) *UserService {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &UserService{
		Repo:       repo,
		JWT:        jwt,
		Redis:      rdb,
		Pub:        pub,
		Logger:     logger,
		SessionTTL: sessionTTL,
		Branding:   branding,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	TaxID    string
	Phone    string
	Password string
}

// Register stores a new user with a hashed password. Nothing is written when
// the email is already taken.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	exists, err := s.Repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, ErrEmailAlreadyRegistered
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &entity.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    email,
		TaxID:    in.TaxID,
		Phone:    in.Phone,
		Password: hash,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.enqueueWelcome(ctx, u)
	return u, nil
}

func (s *UserService) enqueueWelcome(ctx context.Context, u *entity.User) {
	if s.Pub == nil {
		return
	}
	data := tpl.NewWelcomeData(u.Name, u.Email,
		tpl.WithTime(u.CreatedAt),
		tpl.WithBranding(s.Branding.AppName, s.Branding.CompanyName, s.Branding.SupportURL),
	)
	job := mailer.EmailJob{To: u.Email, Template: tpl.Welcome, Data: data}
	if err := s.Pub.PublishJSON(ctx, job); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("enqueue welcome email failed")
	}
}

// Authenticate validates email/password and returns the user without issuing tokens.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	u, err := s.Repo.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, ErrInvalidPassword
	}
	return u, nil
}

// IssueToken generates access/refresh tokens and records a session in Redis.
func (s *UserService) IssueToken(ctx context.Context, u *entity.User) (TokenPair, error) {
	pair, err := s.signPair(u.ID)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate tokens failed")
		}
		return TokenPair{}, err
	}

	if s.Redis != nil {
		key := helpers.SessionKey(u.ID)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, map[string]any{
			"user_id":    u.ID,
			"email":      u.Email,
			"name":       u.Name,
			"sid":        pair.SessionID,
			"created_at": nowRFC3339(),
		})
		pipe.Expire(ctx, key, s.SessionTTL)
		if _, err := pipe.Exec(ctx); err != nil {
			return TokenPair{}, fmt.Errorf("store session: %w", err)
		}
	}
	return pair, nil
}

func (s *UserService) signPair(userID string) (TokenPair, error) {
	sid := uuid.NewString()
	access, aexp, err := s.JWT.GenerateAccessToken(userID, sid)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(userID, sid)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		SessionID:          sid,
		AccessToken:        access,
		AccessTokenExpiry:  aexp,
		RefreshToken:       refresh,
		RefreshTokenExpiry: rexp,
	}, nil
}

// Login authenticates and issues a token pair in one step.
func (s *UserService) Login(ctx context.Context, email, password string) (*entity.User, TokenPair, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	pair, err := s.IssueToken(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

// Refresh rotates the session id and both tokens. The refresh token must
// belong to the session currently stored for the user.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, ErrInvalidToken
	}
	u, err := s.Repo.GetByID(ctx, claims.UserID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return TokenPair{}, ErrInvalidToken
	}
	key := helpers.SessionKey(u.ID)
	if s.Redis != nil {
		sid, rErr := s.Redis.HGet(ctx, key, "sid").Result()
		if rErr != nil || sid != claims.SessionID {
			return TokenPair{}, ErrInvalidToken
		}
	}

	pair, err := s.signPair(u.ID)
	if err != nil {
		return TokenPair{}, err
	}
	if s.Redis != nil {
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, map[string]any{
			"sid":        pair.SessionID,
			"updated_at": nowRFC3339(),
		})
		pipe.Expire(ctx, key, s.SessionTTL)
		if _, err := pipe.Exec(ctx); err != nil {
			return TokenPair{}, fmt.Errorf("rotate session: %w", err)
		}
	}
	return pair, nil
}

// Logout drops the user's session so outstanding tokens stop working.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Del(ctx, helpers.SessionKey(userID)).Err()
}

// GetByID returns (nil, nil) when the user does not exist.
func (s *UserService) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	return s.Repo.GetByID(ctx, id)
}
