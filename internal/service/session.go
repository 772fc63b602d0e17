package service

import (
	"elearn_backend/internal/model"
	"elearn_backend/internal/util"
	"elearn_backend/pkg/logger"
	"sync"
	"time"

	"go.uber.org/zap"
)

type AuthEventType string

const (
	SignedIn  AuthEventType = "signed_in"
	SignedOut AuthEventType = "signed_out"
)

// AuthEvent 登录状态变化通知，每次登录或登出触发一次
type AuthEvent struct {
	Type   AuthEventType
	UserID string
	Role   model.UserRole
}

// AuthProvider 登录状态变化的发布方，返回的函数用于取消订阅
type AuthProvider interface {
	Subscribe(fn func(AuthEvent)) (unsubscribe func())
}

// Session 一个已登录用户的会话，持有其导航状态
type Session struct {
	UserID    string
	Role      model.UserRole
	StartedAt time.Time

	mu  sync.Mutex
	nav *Navigator
}

func (s *Session) Actor() Actor {
	return Actor{UserID: s.UserID, Role: s.Role}
}

// Navigate 在会话锁内执行导航操作，同一会话的操作按顺序执行
func (s *Session) Navigate(fn func(n *Navigator) error) (NavState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := fn(s.nav)
	return s.nav.State(), err
}

func (s *Session) NavState() NavState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.State()
}

// SessionManager 登录时创建会话，登出时销毁
type SessionManager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	unsubscribe func()
	now         func() time.Time
}

func NewSessionManager(provider AuthProvider) *SessionManager {
	m := &SessionManager{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
	m.unsubscribe = provider.Subscribe(m.handle)
	return m
}

func (m *SessionManager) handle(event AuthEvent) {
	switch event.Type {
	case SignedIn:
		m.mu.Lock()
		m.sessions[event.UserID] = &Session{
			UserID:    event.UserID,
			Role:      event.Role,
			StartedAt: m.now(),
			nav:       NewNavigator(),
		}
		m.mu.Unlock()
		logger.Log.Debug("Session started", zap.String("user_id", event.UserID))
	case SignedOut:
		m.mu.Lock()
		delete(m.sessions, event.UserID)
		m.mu.Unlock()
		logger.Log.Debug("Session ended", zap.String("user_id", event.UserID))
	}
}

func (m *SessionManager) Get(userID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	if !ok {
		return nil, util.ErrSessionNotFound
	}
	return s, nil
}

func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close 取消订阅并清空会话
func (m *SessionManager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.mu.Lock()
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
}
