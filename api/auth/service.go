package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"BesCrmSaas/internal/logger"
	"BesCrmSaas/internal/serviceiface"
)

// UserSession is one logged-in consultant. The session map is the identity
// source every other service consults via GetActiveSessions.
type UserSession struct {
	SessionID     string
	UserID        string
	Name          string
	Email         string
	LastLoginTime string
	ClientIP      string
	IsLoggedIn    bool
}

type AuthService struct {
	db             *sql.DB
	maxUsers       int
	sessionTimeout time.Duration
	sessions       map[string]*UserSession
	byUserID       map[string]*UserSession
	mu             sync.Mutex
	stopCh         chan struct{}
}

func NewAuthService(db *sql.DB, maxUsers, sessionTimeoutMinutes int) serviceiface.Service {
	if maxUsers <= 0 {
		maxUsers = 100
	}
	if sessionTimeoutMinutes <= 0 {
		sessionTimeoutMinutes = 8 * 60
	}
	return &AuthService{
		db:             db,
		maxUsers:       maxUsers,
		sessionTimeout: time.Duration(sessionTimeoutMinutes) * time.Minute,
		sessions:       make(map[string]*UserSession),
		byUserID:       make(map[string]*UserSession),
		stopCh:         make(chan struct{}),
	}
}

func (a *AuthService) Name() string { return "auth" }

func (a *AuthService) Start() error {
	go a.sessionCleaner()
	return nil
}

func (a *AuthService) Stop() error {
	close(a.stopCh)
	return nil
}

func (a *AuthService) Login(email, password, clientIP string) (*UserSession, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, session := range a.sessions {
		if session.Email == email && session.IsLoggedIn {
			session.LastLoginTime = time.Now().Format(time.RFC3339)
			session.ClientIP = clientIP
			if logger.GlobalLogger != nil {
				logger.GlobalLogger.LogAudit(fmt.Sprintf("User %s re-logged in, returning existing session", email))
			}
			return session, nil
		}
	}

	if len(a.sessions) >= a.maxUsers {
		return nil, errors.New("maximum concurrent users reached")
	}

	var (
		userID, name, storedEmail string
		passwordHash              sql.NullString
	)
	err := a.db.QueryRow(
		`SELECT id, name, email, password_hash FROM users WHERE email = $1`,
		email,
	).Scan(&userID, &name, &storedEmail, &passwordHash)
	if err != nil {
		return nil, errors.New("invalid credentials or user not found")
	}
	if !passwordHash.Valid || bcrypt.CompareHashAndPassword([]byte(passwordHash.String), []byte(password)) != nil {
		return nil, errors.New("invalid credentials or user not found")
	}

	session := &UserSession{
		SessionID:     uuid.New().String(),
		UserID:        userID,
		Name:          name,
		Email:         storedEmail,
		LastLoginTime: time.Now().Format(time.RFC3339),
		ClientIP:      clientIP,
		IsLoggedIn:    true,
	}

	a.sessions[session.SessionID] = session
	a.byUserID[userID] = session

	if logger.GlobalLogger != nil {
		logger.GlobalLogger.LogAudit("User logged in: " + email)
	}

	return session, nil
}

func (a *AuthService) Logout(sessionID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	session, exists := a.sessions[sessionID]
	if !exists {
		return errors.New("session not found")
	}
	delete(a.sessions, sessionID)
	delete(a.byUserID, session.UserID)

	if logger.GlobalLogger != nil {
		logger.GlobalLogger.LogAudit("User logged out: " + session.UserID)
	}

	return nil
}

func (a *AuthService) GetActiveSessions() []*UserSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	sessions := make([]*UserSession, 0, len(a.sessions))
	for _, s := range a.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

// sessionCleaner drops sessions whose last activity exceeds the timeout.
func (a *AuthService) sessionCleaner() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-a.sessionTimeout)
			a.mu.Lock()
			for id, session := range a.sessions {
				last, err := time.Parse(time.RFC3339, session.LastLoginTime)
				if err == nil && last.Before(cutoff) {
					delete(a.sessions, id)
					delete(a.byUserID, session.UserID)
				}
			}
			a.mu.Unlock()
		}
	}
}

var globalAuthService *AuthService

// SetGlobalAuthService sets the global AuthService instance
func SetGlobalAuthService(svc *AuthService) {
	globalAuthService = svc
}

// GetActiveSessions returns active sessions from the global AuthService
func GetActiveSessions() []*UserSession {
	if globalAuthService == nil {
		return nil
	}
	return globalAuthService.GetActiveSessions()
}

// SessionByUserID resolves the session for a user_id carried in a request
// body, or nil when the user is not logged in.
func SessionByUserID(userID string) *UserSession {
	if globalAuthService == nil || userID == "" {
		return nil
	}
	globalAuthService.mu.Lock()
	defer globalAuthService.mu.Unlock()
	return globalAuthService.byUserID[userID]
}
