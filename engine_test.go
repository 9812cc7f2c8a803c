package authgate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authgate/jwt"
	"github.com/MrEthical07/authgate/password"
)

const testPassword = "Correct-Horse-9"

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

type mockUserStore struct {
	mu      sync.Mutex
	users   map[string]User
	nextID  int
	findErr error

	updatePasswordCalls int
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: map[string]User{}}
}

func (s *mockUserStore) Create(_ context.Context, u User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username {
			return User{}, ErrDuplicateUsername
		}
		if strings.EqualFold(existing.Email, u.Email) {
			return User{}, ErrDuplicateEmail
		}
	}
	if u.ID == "" {
		s.nextID++
		u.ID = fmt.Sprintf("u%d", s.nextID)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *mockUserStore) FindByUsername(_ context.Context, username string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findErr != nil {
		return User{}, s.findErr
	}
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (s *mockUserStore) FindByID(_ context.Context, id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findErr != nil {
		return User{}, s.findErr
	}
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *mockUserStore) UpdatePasswordHash(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	s.updatePasswordCalls++
	u.PasswordHash = hash
	s.users[id] = u
	return nil
}

func (s *mockUserStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *mockUserStore) setActive(id string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.users[id]
	u.Active = active
	s.users[id] = u
}

func (s *mockUserStore) setRole(id, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.users[id]
	u.Role = role
	s.users[id] = u
}

func (s *mockUserStore) get(id string) User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id]
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.SigningKey = append([]byte(nil), testSigningKey...)
	cfg.Password.Memory = 8192
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.HashConcurrency = 4
	return cfg
}

func buildTestEngine(t *testing.T, cfg Config, store UserStore) (*Engine, *miniredis.Miniredis) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(store).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, mr
}

func registerAlice(t *testing.T, engine *Engine) *User {
	t.Helper()

	u, err := engine.Register(context.Background(), RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return u
}

func loginAlice(t *testing.T, engine *Engine) *LoginResult {
	t.Helper()

	res, err := engine.Login(context.Background(), "alice", testPassword)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return res
}

func TestRegisterLoginAuthenticate(t *testing.T) {
	store := newMockUserStore()
	engine, mr := buildTestEngine(t, testConfig(), store)

	u := registerAlice(t, engine)
	if u.ID == "" || u.Role != "user" || !u.Active {
		t.Fatalf("unexpected registered user: %+v", u)
	}
	if u.PasswordHash == testPassword || !strings.HasPrefix(u.PasswordHash, "$argon2id$") {
		t.Fatalf("password not hashed: %q", u.PasswordHash)
	}

	res := loginAlice(t, engine)
	if res.AccessToken == "" || res.RefreshToken == "" || res.CSRFToken == "" {
		t.Fatalf("expected all three tokens, got %+v", res)
	}
	if res.AccessToken == res.RefreshToken {
		t.Fatal("access and refresh tokens must differ")
	}
	if res.User.Username != "alice" {
		t.Fatalf("expected alice, got %q", res.User.Username)
	}

	key := "session:" + u.ID
	if !mr.Exists(key) {
		t.Fatalf("expected session record at %s", key)
	}
	if got := mr.HGet(key, "access"); got != res.AccessToken {
		t.Fatal("stored access token mismatch")
	}
	if got := mr.HGet(key, "csrf"); got != res.CSRFToken {
		t.Fatal("stored csrf token mismatch")
	}
	if ttl := mr.TTL(key); ttl <= 0 || ttl > 7*24*time.Hour {
		t.Fatalf("unexpected session ttl %v", ttl)
	}

	id, err := engine.Authenticate(context.Background(), Credentials{
		AccessToken: res.AccessToken,
		CSRFToken:   res.CSRFToken,
	})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if id.UserID != u.ID || id.Username != "alice" || id.Email != "alice@example.com" || id.Role != "user" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestRegisterWeakPasswordListsEveryViolation(t *testing.T) {
	engine, _ := buildTestEngine(t, testConfig(), newMockUserStore())

	_, err := engine.Register(context.Background(), RegisterRequest{
		Username: "bob",
		Email:    "bob@example.com",
		Password: "abc",
	})
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	var policyErr *PasswordPolicyError
	if !errors.As(err, &policyErr) {
		t.Fatalf("expected *PasswordPolicyError, got %T", err)
	}
	want := map[password.Violation]bool{
		password.ViolationTooShort: true,
		password.ViolationNoUpper:  true,
		password.ViolationNoDigit:  true,
		password.ViolationNoSymbol: true,
	}
	if len(policyErr.Violations) != len(want) {
		t.Fatalf("expected %d violations, got %v", len(want), policyErr.Violations)
	}
	for _, v := range policyErr.Violations {
		if !want[v] {
			t.Fatalf("unexpected violation %q", v)
		}
	}
	if len(policyErr.Messages) != len(want) {
		t.Fatalf("expected one message per violation, got %v", policyErr.Messages)
	}
}

func TestRegisterOverLongPasswordIsWeak(t *testing.T) {
	engine, _ := buildTestEngine(t, testConfig(), newMockUserStore())

	long := "Aa1!" + strings.Repeat("x", password.DefaultMaxPasswordBytes)
	_, err := engine.Register(context.Background(), RegisterRequest{
		Username: "bob",
		Email:    "bob@example.com",
		Password: long,
	})
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	var policyErr *PasswordPolicyError
	if !errors.As(err, &policyErr) {
		t.Fatalf("expected *PasswordPolicyError, got %T", err)
	}
	if len(policyErr.Violations) != 1 || policyErr.Violations[0] != password.ViolationTooLong {
		t.Fatalf("expected too_long only, got %v", policyErr.Violations)
	}
}

func TestRegisterDuplicates(t *testing.T) {
	engine, _ := buildTestEngine(t, testConfig(), newMockUserStore())
	registerAlice(t, engine)

	_, err := engine.Register(context.Background(), RegisterRequest{
		Username: "alice",
		Email:    "other@example.com",
		Password: testPassword,
	})
	if !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}

	_, err = engine.Register(context.Background(), RegisterRequest{
		Username: "alice2",
		Email:    "alice@example.com",
		Password: testPassword,
	})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestRegisterRejectsBlankFields(t *testing.T) {
	engine, _ := buildTestEngine(t, testConfig(), newMockUserStore())

	cases := []RegisterRequest{
		{Username: "", Email: "a@example.com", Password: testPassword},
		{Username: "   ", Email: "a@example.com", Password: testPassword},
		{Username: "carol", Email: "", Password: testPassword},
		{Username: "carol", Email: "not-an-email", Password: testPassword},
	}
	for _, req := range cases {
		if _, err := engine.Register(context.Background(), req); !errors.Is(err, ErrRegistrationInvalid) {
			t.Fatalf("%+v: expected ErrRegistrationInvalid, got %v", req, err)
		}
	}
}

func TestLoginUnknownUserAndWrongPasswordAreIndistinguishable(t *testing.T) {
	engine, _ := buildTestEngine(t, testConfig(), newMockUserStore())
	registerAlice(t, engine)

	_, errUnknown := engine.Login(context.Background(), "mallory", testPassword)
	_, errWrong := engine.Login(context.Background(), "alice", "Wrong-Password-1")
	if !errors.Is(errUnknown, ErrInvalidCredentials) || !errors.Is(errWrong, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials twice, got %v / %v", errUnknown, errWrong)
	}
	if errUnknown.Error() != errWrong.Error() {
		t.Fatalf("error text leaks account existence: %q vs %q", errUnknown, errWrong)
	}
}

func TestLoginTrimsUsernameLikeRegister(t *testing.T) {
	engine, _ := buildTestEngine(t, testConfig(), newMockUserStore())
	ctx := context.Background()

	u, err := engine.Register(ctx, RegisterRequest{
		Username: " carol ",
		Email:    "carol@example.com",
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if u.Username != "carol" {
		t.Fatalf("expected trimmed username, got %q", u.Username)
	}

	for _, name := range []string{" carol ", "carol", "\tcarol"} {
		res, err := engine.Login(ctx, name, testPassword)
		if err != nil {
			t.Fatalf("Login(%q) failed: %v", name, err)
		}
		if res.User.ID != u.ID {
			t.Fatalf("Login(%q) returned user %s, want %s", name, res.User.ID, u.ID)
		}
	}
}

func TestLoginInactiveAccountIsInvalidCredentials(t *testing.T) {
	store := newMockUserStore()
	engine, _ := buildTestEngine(t, testConfig(), store)
	u := registerAlice(t, engine)
	store.setActive(u.ID, false)

	if _, err := engine.Login(context.Background(), "alice", testPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateDisabledAfterLogin(t *testing.T) {
	store := newMockUserStore()
	cfg := testConfig()
	cfg.Metrics.Enabled = true
	engine, _ := buildTestEngine(t, cfg, store)
	u := registerAlice(t, engine)
	res := loginAlice(t, engine)

	store.setActive(u.ID, false)
	_, err := engine.Authenticate(context.Background(), Credentials{AccessToken: res.AccessToken, CSRFToken: res.CSRFToken})
	if !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}

	counters := engine.MetricsSnapshot().Counters
	if counters[MetricGateAccountDisabled] != 1 || counters[MetricGateForbidden] != 0 {
		t.Fatalf("expected account_disabled=1 forbidden=0, got %v", counters)
	}
}

func TestAuthenticateRejections(t *testing.T) {
	engine, _ := buildTestEngine(t, testConfig(), newMockUserStore())
	registerAlice(t, engine)
	res := loginAlice(t, engine)
	ctx := context.Background()

	tests := []struct {
		name  string
		creds Credentials
		want  error
	}{
		{"missing access token", Credentials{CSRFToken: res.CSRFToken}, ErrNotAuthenticated},
		{"garbage access token", Credentials{AccessToken: "not.a.jwt", CSRFToken: res.CSRFToken}, ErrInvalidToken},
		{"refresh token as access", Credentials{AccessToken: res.RefreshToken, CSRFToken: res.CSRFToken}, ErrInvalidToken},
		{"missing csrf", Credentials{AccessToken: res.AccessToken}, ErrInvalidCSRF},
		{"wrong csrf", Credentials{AccessToken: res.AccessToken, CSRFToken: "forged"}, ErrInvalidCSRF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := engine.Authenticate(ctx, tt.creds); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestAuthenticateExpiredToken(t *testing.T) {
	engine, _ := buildTestEngine(t, testConfig(), newMockUserStore())
	u := registerAlice(t, engine)
	res := loginAlice(t, engine)

	past := time.Now().Add(-2 * time.Hour)
	expired, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwt.Claims{
		Class: jwt.ClassAccess,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwtlib.NewNumericDate(past),
			ExpiresAt: jwtlib.NewNumericDate(past.Add(time.Hour)),
		},
	}).SignedString(testSigningKey)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	_, err = engine.Authenticate(context.Background(), Credentials{AccessToken: expired, CSRFToken: res.CSRFToken})
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestLogoutRevokesTokensAndIsIdempotent(t *testing.T) {
	engine, mr := buildTestEngine(t, testConfig(), newMockUserStore())
	u := registerAlice(t, engine)
	res := loginAlice(t, engine)
	ctx := context.Background()

	if err := engine.Logout(ctx, u.ID); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if mr.Exists("session:" + u.ID) {
		t.Fatal("expected session record to be deleted")
	}
	if err := engine.Logout(ctx, u.ID); err != nil {
		t.Fatalf("second Logout failed: %v", err)
	}

	if _, err := engine.Authenticate(ctx, Credentials{AccessToken: res.AccessToken, CSRFToken: res.CSRFToken}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after logout, got %v", err)
	}
	if _, err := engine.Refresh(ctx, res.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken refreshing after logout, got %v", err)
	}
}

func TestNewLoginSupersedesPreviousSession(t *testing.T) {
	engine, _ := buildTestEngine(t, testConfig(), newMockUserStore())
	registerAlice(t, engine)
	first := loginAlice(t, engine)
	second := loginAlice(t, engine)
	ctx := context.Background()

	if first.AccessToken == second.AccessToken || first.CSRFToken == second.CSRFToken {
		t.Fatal("expected fresh tokens on second login")
	}
	if _, err := engine.Authenticate(ctx, Credentials{AccessToken: first.AccessToken, CSRFToken: first.CSRFToken}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected superseded access token to fail, got %v", err)
	}
	if _, err := engine.Refresh(ctx, first.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected superseded refresh token to fail, got %v", err)
	}
	if _, err := engine.Authenticate(ctx, Credentials{AccessToken: second.AccessToken, CSRFToken: second.CSRFToken}); err != nil {
		t.Fatalf("expected current session to work, got %v", err)
	}
}

func TestRefreshPreservesIdentityAndCSRF(t *testing.T) {
	engine, _ := buildTestEngine(t, testConfig(), newMockUserStore())
	u := registerAlice(t, engine)
	res := loginAlice(t, engine)
	ctx := context.Background()

	refreshed, err := engine.Refresh(ctx, res.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if refreshed.UserID != u.ID {
		t.Fatalf("expected user %s, got %s", u.ID, refreshed.UserID)
	}
	if refreshed.AccessToken == res.AccessToken {
		t.Fatal("expected a new access token")
	}
	if refreshed.CSRFToken != res.CSRFToken {
		t.Fatal("csrf token must not change on refresh")
	}

	id, err := engine.Authenticate(ctx, Credentials{AccessToken: refreshed.AccessToken, CSRFToken: res.CSRFToken})
	if err != nil {
		t.Fatalf("Authenticate with refreshed token failed: %v", err)
	}
	if id.UserID != u.ID {
		t.Fatalf("identity changed across refresh: %+v", id)
	}
	if _, err := engine.Authenticate(ctx, Credentials{AccessToken: res.AccessToken, CSRFToken: res.CSRFToken}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected replaced access token to fail, got %v", err)
	}

	// the refresh token is not rotated
	if _, err := engine.Refresh(ctx, res.RefreshToken); err != nil {
		t.Fatalf("second Refresh failed: %v", err)
	}
}

func TestRefreshExpiredToken(t *testing.T) {
	engine, _ := buildTestEngine(t, testConfig(), newMockUserStore())
	u := registerAlice(t, engine)
	loginAlice(t, engine)

	past := time.Now().Add(-48 * time.Hour)
	expired, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwt.Claims{
		Class: jwt.ClassRefresh,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwtlib.NewNumericDate(past),
			ExpiresAt: jwtlib.NewNumericDate(past.Add(24 * time.Hour)),
		},
	}).SignedString(testSigningKey)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	if _, err := engine.Refresh(context.Background(), expired); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	engine, _ := buildTestEngine(t, testConfig(), newMockUserStore())
	registerAlice(t, engine)
	res := loginAlice(t, engine)

	if _, err := engine.Refresh(context.Background(), res.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := engine.Refresh(context.Background(), ""); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestLoginThrottle(t *testing.T) {
	cfg := testConfig()
	cfg.Security.MaxLoginAttempts = 3
	engine, _ := buildTestEngine(t, cfg, newMockUserStore())
	registerAlice(t, engine)
	ctx := WithClientIP(context.Background(), "203.0.113.7")

	for i := 0; i < 3; i++ {
		if _, err := engine.Login(ctx, "alice", "Wrong-Password-1"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}
	if _, err := engine.Login(ctx, "alice", testPassword); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}
}

func TestLoginSuccessResetsThrottle(t *testing.T) {
	cfg := testConfig()
	cfg.Security.MaxLoginAttempts = 3
	engine, _ := buildTestEngine(t, cfg, newMockUserStore())
	registerAlice(t, engine)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _ = engine.Login(ctx, "alice", "Wrong-Password-1")
	}
	loginAlice(t, engine)
	for i := 0; i < 2; i++ {
		_, _ = engine.Login(ctx, "alice", "Wrong-Password-1")
	}
	loginAlice(t, engine)
}

func TestSessionStoreDownFailsClosed(t *testing.T) {
	engine, mr := buildTestEngine(t, testConfig(), newMockUserStore())
	registerAlice(t, engine)
	res := loginAlice(t, engine)

	mr.Close()

	if _, err := engine.Authenticate(context.Background(), Credentials{AccessToken: res.AccessToken, CSRFToken: res.CSRFToken}); !errors.Is(err, ErrSessionStoreUnavailable) {
		t.Fatalf("expected ErrSessionStoreUnavailable, got %v", err)
	}
	if _, err := engine.Health(context.Background()); !errors.Is(err, ErrSessionStoreUnavailable) {
		t.Fatalf("expected Health to fail, got %v", err)
	}
}

func TestUserStoreDownFailsClosed(t *testing.T) {
	store := newMockUserStore()
	engine, _ := buildTestEngine(t, testConfig(), store)
	registerAlice(t, engine)
	res := loginAlice(t, engine)

	store.findErr = errors.New("connection reset")

	if _, err := engine.Authenticate(context.Background(), Credentials{AccessToken: res.AccessToken, CSRFToken: res.CSRFToken}); !errors.Is(err, ErrUserStoreUnavailable) {
		t.Fatalf("expected ErrUserStoreUnavailable, got %v", err)
	}
	if _, err := engine.Login(context.Background(), "alice", testPassword); !errors.Is(err, ErrUserStoreUnavailable) {
		t.Fatalf("expected ErrUserStoreUnavailable on login, got %v", err)
	}
}

func TestDeleteUser(t *testing.T) {
	store := newMockUserStore()
	engine, _ := buildTestEngine(t, testConfig(), store)
	u := registerAlice(t, engine)
	res := loginAlice(t, engine)
	ctx := context.Background()

	id, err := engine.Authenticate(ctx, Credentials{AccessToken: res.AccessToken, CSRFToken: res.CSRFToken})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	if err := engine.DeleteUser(ctx, id, "someone-else"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := engine.DeleteUser(ctx, id, u.ID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if err := engine.DeleteUser(ctx, id, u.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound on second delete, got %v", err)
	}
	if _, err := engine.Authenticate(ctx, Credentials{AccessToken: res.AccessToken, CSRFToken: res.CSRFToken}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after delete, got %v", err)
	}
}

func TestAuthenticateUserRemovedBehindLiveSession(t *testing.T) {
	store := newMockUserStore()
	cfg := testConfig()
	cfg.Metrics.Enabled = true
	engine, _ := buildTestEngine(t, cfg, store)
	u := registerAlice(t, engine)
	res := loginAlice(t, engine)

	if err := store.Delete(context.Background(), u.ID); err != nil {
		t.Fatalf("store delete: %v", err)
	}
	if _, err := engine.Authenticate(context.Background(), Credentials{AccessToken: res.AccessToken, CSRFToken: res.CSRFToken}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	counters := engine.MetricsSnapshot().Counters
	if counters[MetricGateUserNotFound] != 1 || counters[MetricGateForbidden] != 0 {
		t.Fatalf("expected user_not_found=1 forbidden=0, got %v", counters)
	}
}

func TestRequireRole(t *testing.T) {
	store := newMockUserStore()
	engine, _ := buildTestEngine(t, testConfig(), store)
	u := registerAlice(t, engine)
	res := loginAlice(t, engine)
	ctx := context.Background()

	id, err := engine.Authenticate(ctx, Credentials{AccessToken: res.AccessToken, CSRFToken: res.CSRFToken})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if err := engine.RequireRole(id, "admin"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := engine.RequireRole(id, "user"); err != nil {
		t.Fatalf("expected user role to pass, got %v", err)
	}
	if err := engine.RequireRole(nil, "user"); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}

	// the role is read from the store on every request
	store.setRole(u.ID, "admin")
	id, err = engine.Authenticate(ctx, Credentials{AccessToken: res.AccessToken, CSRFToken: res.CSRFToken})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if err := engine.RequireRole(id, "admin"); err != nil {
		t.Fatalf("expected admin role to pass, got %v", err)
	}
}

func TestLoginUpgradesWeakHash(t *testing.T) {
	store := newMockUserStore()
	engine, _ := buildTestEngine(t, testConfig(), store)
	u := registerAlice(t, engine)

	weak, err := password.NewArgon2(password.Config{
		Memory:      8192,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	})
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}
	weakHash, err := weak.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if err := store.UpdatePasswordHash(context.Background(), u.ID, weakHash); err != nil {
		t.Fatalf("seed hash: %v", err)
	}

	loginAlice(t, engine)
	if got := store.get(u.ID).PasswordHash; got == weakHash {
		t.Fatal("expected password hash to be upgraded on login")
	}
	loginAlice(t, engine)
}

func TestActiveSessions(t *testing.T) {
	engine, _ := buildTestEngine(t, testConfig(), newMockUserStore())
	registerAlice(t, engine)
	loginAlice(t, engine)
	loginAlice(t, engine)

	n, err := engine.ActiveSessions(context.Background())
	if err != nil {
		t.Fatalf("ActiveSessions failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 active session, got %d", n)
	}
}

func TestBuilderValidation(t *testing.T) {
	_, rdb := newTestRedis(t)

	if _, err := New().WithConfig(testConfig()).WithUserStore(newMockUserStore()).Build(); err == nil {
		t.Fatal("expected error without redis")
	}
	if _, err := New().WithConfig(testConfig()).WithRedis(rdb).Build(); err == nil {
		t.Fatal("expected error without user store")
	}
	if _, err := New().WithRedis(rdb).WithUserStore(newMockUserStore()).Build(); err == nil {
		t.Fatal("expected error without signing key")
	}

	b := New().WithConfig(testConfig()).WithRedis(rdb).WithUserStore(newMockUserStore())
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("expected builder reuse to fail")
	}
}

func TestNilEngineNotReady(t *testing.T) {
	var e *Engine
	if _, err := e.Login(context.Background(), "a", "b"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := e.Authenticate(context.Background(), Credentials{}); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if err := e.Logout(context.Background(), "u1"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
}
