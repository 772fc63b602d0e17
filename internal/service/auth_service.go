package service

import (
	"context"
	"elearn_backend/internal/config"
	"elearn_backend/internal/model"
	"elearn_backend/internal/util"
	"elearn_backend/pkg/logger"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type RegisterRequest struct {
	Name     string         `json:"name" binding:"required"`
	Email    string         `json:"email" binding:"required,email"`
	Password string         `json:"password" binding:"required,min=6"`
	Role     model.UserRole `json:"role"`
}

type LoginResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// AuthService 本地账号认证，登录登出时向订阅者发布 AuthEvent
type AuthService struct {
	UserRepo UserStore
	Cfg      *config.Config
	Now      func() time.Time

	mu          sync.RWMutex
	subscribers map[int]func(AuthEvent)
	nextID      int
}

func NewAuthService(userRepo UserStore, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo:    userRepo,
		Cfg:         cfg,
		Now:         time.Now,
		subscribers: make(map[int]func(AuthEvent)),
	}
}

func (s *AuthService) Subscribe(fn func(AuthEvent)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}

func (s *AuthService) publish(event AuthEvent) {
	s.mu.RLock()
	fns := make([]func(AuthEvent), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(event)
	}
}

// Register 自助注册只允许学生和教师，管理员通过 EnsureAdmin 创建
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	if req.Role == "" {
		req.Role = model.Student
	}
	if req.Role != model.Student && req.Role != model.Teacher {
		return nil, fmt.Errorf("%w: %q", util.ErrInvalidRole, req.Role)
	}
	return s.createUser(ctx, req)
}

func (s *AuthService) createUser(ctx context.Context, req RegisterRequest) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	_, err := s.UserRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, util.ErrUserNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Name:              strings.TrimSpace(req.Name),
		Email:             email,
		PasswordHash:      string(hashedPassword),
		Role:              req.Role,
		PreferredLanguage: "en",
		EnrolledCourses:   []string{},
	}
	if err := s.UserRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	logger.Log.Info("User registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// EnsureAdmin 启动时按配置创建管理员账号，已存在则跳过
func (s *AuthService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	_, err := s.createUser(ctx, RegisterRequest{Name: name, Email: email, Password: password, Role: model.Admin})
	if errors.Is(err, util.ErrEmailRegistered) {
		return nil
	}
	return err
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.UserRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			return nil, util.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, util.ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	if err := s.UserRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		logger.Log.Warn("Failed to update last login", zap.String("user_id", user.ID), zap.Error(err))
	} else {
		user.LastLogin = &now
	}

	s.publish(AuthEvent{Type: SignedIn, UserID: user.ID, Role: user.Role})
	return &LoginResult{Token: token, User: user}, nil
}

func (s *AuthService) Logout(userID string) {
	s.publish(AuthEvent{Type: SignedOut, UserID: userID})
}
