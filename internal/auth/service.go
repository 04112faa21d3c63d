// Package auth manages the single admin credential and the login
// session. The credential lives in its own section of the data file so a
// wholesale backup carries it along.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/daftar-erp/daftar/internal/shared"
	"github.com/daftar-erp/daftar/internal/store"
)

// DefaultUsername is used until the admin renames the account.
const DefaultUsername = "admin"

var (
	// ErrInvalidCredentials indicates a failed login attempt.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrWeakPassword indicates a password below the minimum length.
	ErrWeakPassword = errors.New("auth: password must be at least 8 characters")
)

// credential is the stored admin identity.
type credential struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Repository holds the admin credential.
type Repository struct {
	cred credential
}

// NewRepository returns an empty credential holder.
func NewRepository() *Repository {
	return &Repository{cred: credential{Username: DefaultUsername}}
}

type authSection struct{ repo *Repository }

func (s authSection) Name() string { return "auth" }

func (s authSection) Snapshot() (json.RawMessage, error) { return json.Marshal(s.repo.cred) }

func (s authSection) Restore(raw json.RawMessage) error {
	var cred credential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return err
	}
	s.repo.cred = cred
	return nil
}

// Section exposes the credential for persistence.
func (r *Repository) Section() store.Section { return authSection{repo: r} }

// AuditPort records auth events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service authenticates the admin and manages the credential.
type Service struct {
	store *store.Store
	repo  *Repository
	audit AuditPort
	now   func() time.Time
}

// NewService wires the auth service.
func NewService(st *store.Store, repo *Repository, audit AuditPort) *Service {
	return &Service{store: st, repo: repo, audit: audit, now: time.Now}
}

// EnsureCredential seeds the admin account when the data file has none.
// Run once at startup, after the store is loaded.
func (s *Service) EnsureCredential(initialPassword string) error {
	return s.store.Apply(func() error {
		if s.repo.cred.PasswordHash != "" {
			return nil
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(initialPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		if s.repo.cred.Username == "" {
			s.repo.cred.Username = DefaultUsername
		}
		s.repo.cred.PasswordHash = string(hash)
		s.repo.cred.UpdatedAt = s.now().UTC()
		return nil
	})
}

// Authenticate checks the username and password.
func (s *Service) Authenticate(ctx context.Context, username, password string) error {
	var (
		storedUser string
		storedHash string
	)
	s.store.View(func() {
		storedUser = s.repo.cred.Username
		storedHash = s.repo.cred.PasswordHash
	})
	if username != storedUser || storedHash == "" {
		// burn a comparison so the two failure paths cost the same
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000000000000000000000000000000000"), []byte(password))
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// ChangePassword verifies the current password and stores a new hash.
func (s *Service) ChangePassword(ctx context.Context, current, next string) error {
	if len(next) < 8 {
		return ErrWeakPassword
	}
	var username string
	s.store.View(func() { username = s.repo.cred.Username })
	if err := s.Authenticate(ctx, username, current); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	err = s.store.Apply(func() error {
		s.repo.cred.PasswordHash = string(hash)
		s.repo.cred.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return err
	}
	s.record(ctx, "auth.password.change")
	return nil
}

// Username returns the admin account name.
func (s *Service) Username() string {
	var username string
	s.store.View(func() { username = s.repo.cred.Username })
	return username
}

func (s *Service) record(ctx context.Context, action string) {
	if s.audit == nil {
		return
	}
	actor := ""
	if sess := shared.SessionFromContext(ctx); sess != nil {
		actor = sess.User()
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   action,
		Entity:   "auth",
		EntityID: "admin",
		At:       s.now().UTC(),
	})
}
