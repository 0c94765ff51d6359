package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"filiale-console/internal/cache"
	"filiale-console/internal/datasource"
	"filiale-console/internal/model"
	"filiale-console/internal/pkg/jwtutil"
)

// SuperAdmin is the fixed identity of the privileged login path.
var SuperAdmin = model.Identity{
	ID:         "super-admin",
	Email:      "admin@digitgrow.com",
	GivenName:  "Super",
	FamilyName: "Admin",
	Role:       "SuperAdmin",
	Kind:       model.KindAdmin,
}

// SessionState is what Restore reports for a device.
type SessionState struct {
	Authenticated bool            `json:"isAuthenticated"`
	Loading       bool            `json:"isLoading"`
	Identity      *model.Identity `json:"currentUser"`
}

type Credentials struct {
	AdminUsername string
	AdminSecret   string
	UserCode      string
}

type LoginInput struct {
	DeviceID string
	Username string
	Secret   string
}

type LoginResult struct {
	DeviceID string
	Token    string
	Identity model.Identity
}

// SessionStore owns the authentication lifecycle of every device.
type SessionStore struct {
	store         cache.LocalStore
	users         userDirectory
	adminUsername string
	adminHash     []byte
	userCodeHash  []byte
	jwtSecret     string
	jwtExpiration time.Duration
	log           *zap.Logger
}

func NewSessionStore(
	store cache.LocalStore,
	fetcher datasource.Fetcher,
	creds Credentials,
	jwtSecret string,
	jwtExpiration time.Duration,
	log *zap.Logger,
) (*SessionStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	adminHash, err := bcrypt.GenerateFromPassword([]byte(creds.AdminSecret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin secret failed: %w", err)
	}
	userCodeHash, err := bcrypt.GenerateFromPassword([]byte(creds.UserCode), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash user code failed: %w", err)
	}
	return &SessionStore{
		store:         store,
		users:         userDirectory{fetcher: fetcher},
		adminUsername: creds.AdminUsername,
		adminHash:     adminHash,
		userCodeHash:  userCodeHash,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		log:           log,
	}, nil
}

// Restore reads the persisted identity of a device. A value that does not parse is
// removed and the device is treated as signed out.
func (s *SessionStore) Restore(ctx context.Context, deviceID string) SessionState {
	if deviceID == "" {
		return SessionState{}
	}
	raw, ok, err := s.store.Get(ctx, deviceID, cache.KeyAuthUser)
	if err != nil {
		s.log.Warn("restore session failed", zap.String("device_id", deviceID), zap.Error(err))
		return SessionState{}
	}
	if !ok {
		return SessionState{}
	}

	var identity model.Identity
	if err := json.Unmarshal([]byte(raw), &identity); err != nil || !identity.Kind.Valid() {
		s.log.Info("discarding corrupted session", zap.String("device_id", deviceID))
		if rmErr := s.store.Remove(ctx, deviceID, cache.KeyAuthUser); rmErr != nil {
			s.log.Warn("remove corrupted session failed", zap.String("device_id", deviceID), zap.Error(rmErr))
		}
		return SessionState{}
	}
	return SessionState{Authenticated: true, Identity: &identity}
}

// Login tries the privileged path, then the user directory. Nothing is written
// unless one of them succeeds.
func (s *SessionStore) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Secret == "" {
		return nil, ErrInvalidCredential
	}

	identity, ok := s.matchAdmin(username, input.Secret)
	if !ok {
		identity, ok = s.matchUser(ctx, username, input.Secret)
	}
	if !ok {
		return nil, ErrInvalidCredential
	}

	deviceID := strings.TrimSpace(input.DeviceID)
	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	payload, err := json.Marshal(identity)
	if err != nil {
		return nil, fmt.Errorf("marshal identity failed: %w", err)
	}
	token, err := jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, deviceID, identity.ID, string(identity.Kind))
	if err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, deviceID, cache.KeyAuthUser, string(payload)); err != nil {
		return nil, fmt.Errorf("persist session failed: %w", err)
	}

	s.log.Info("login succeeded",
		zap.String("device_id", deviceID),
		zap.String("identity_id", identity.ID),
		zap.String("kind", string(identity.Kind)),
	)
	return &LoginResult{DeviceID: deviceID, Token: token, Identity: identity}, nil
}

// Logout forgets the identity of a device. The branch selection is left alone.
func (s *SessionStore) Logout(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return ErrInvalidInput
	}
	if err := s.store.Remove(ctx, deviceID, cache.KeyAuthUser); err != nil {
		return fmt.Errorf("clear session failed: %w", err)
	}
	return nil
}

// ParseToken validates a bearer token and returns the device it belongs to.
func (s *SessionStore) ParseToken(token string) (*jwtutil.Claims, error) {
	return jwtutil.ParseToken(s.jwtSecret, token)
}

func (s *SessionStore) matchAdmin(username, secret string) (model.Identity, bool) {
	if username != s.adminUsername {
		return model.Identity{}, false
	}
	if bcrypt.CompareHashAndPassword(s.adminHash, []byte(secret)) != nil {
		return model.Identity{}, false
	}
	return SuperAdmin, true
}

func (s *SessionStore) matchUser(ctx context.Context, email, secret string) (model.Identity, bool) {
	users := s.users.get(ctx, s.log)
	needle := strings.ToLower(email)

	var found *model.User
	for i := range users {
		if strings.ToLower(users[i].Email) == needle && users[i].Status == model.StatusActive {
			found = &users[i]
			break
		}
	}
	if found == nil {
		return model.Identity{}, false
	}
	if bcrypt.CompareHashAndPassword(s.userCodeHash, []byte(secret)) != nil {
		return model.Identity{}, false
	}

	assistantIDs := append([]string{}, found.AssistantIDs...)
	return model.Identity{
		ID:           found.ID,
		Email:        found.Email,
		GivenName:    found.GivenName,
		FamilyName:   found.FamilyName,
		Role:         found.Role,
		BranchID:     found.BranchID,
		AssistantIDs: assistantIDs,
		Kind:         model.KindUser,
	}, true
}

// userDirectory loads the user list on first use. A failed load is retried on
// the next login attempt; a successful one is kept for the process lifetime.
type userDirectory struct {
	fetcher datasource.Fetcher

	mu     sync.Mutex
	loaded bool
	users  []model.User
}

func (d *userDirectory) get(ctx context.Context, log *zap.Logger) []model.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.loaded {
		return d.users
	}
	users, err := d.fetcher.Users(ctx)
	if err != nil {
		log.Warn("user directory unavailable", zap.Error(err))
		return nil
	}
	d.users = users
	d.loaded = true
	return d.users
}
