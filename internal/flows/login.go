package flows

import (
	"context"
	"strings"
	"time"

	"github.com/MrEthical07/authgate/session"
)

// LoginFailureKind classifies login failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureRateLimited
	LoginFailureInvalidCredentials
	LoginFailureUserUnavailable
	LoginFailureSessionUnavailable
	LoginFailureInternal
)

// LoginResult carries the issued credentials or a classified failure.
type LoginResult struct {
	Failure      LoginFailureKind
	Err          error
	User         UserRecord
	AccessToken  string
	RefreshToken string
	CSRFToken    string
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	ClientIPFromContext func(context.Context) string
	Now                 func() time.Time

	CheckLoginRate     func(context.Context, string, string) error
	IncrementLoginRate func(context.Context, string, string) error
	ResetLoginRate     func(context.Context, string, string) error

	FindUserByUsername func(context.Context, string) (UserRecord, error)
	IsUserNotFound     func(error) bool
	UpdatePasswordHash func(context.Context, string, string) error

	VerifyPassword       func(context.Context, string, string) (bool, error)
	VerifyDummy          func(context.Context, string)
	PasswordNeedsUpgrade func(string) (bool, error)
	HashPassword         func(context.Context, string) (string, error)
	UpgradeOnLogin       bool

	IssueAccess  func(string) (string, error)
	IssueRefresh func(string) (string, error)
	IssueCSRF    func() (string, error)
	SaveSession  func(context.Context, string, *session.Record, time.Duration) error
	SessionTTL   time.Duration

	Warn func(string, error)
}

// RunLogin authenticates username and password and, on success, replaces the
// user's session record with freshly issued tokens. Unknown users, wrong
// passwords and inactive accounts all fail with LoginFailureInvalidCredentials.
func RunLogin(ctx context.Context, username, password string, deps LoginDeps) LoginResult {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Warn == nil {
		deps.Warn = func(string, error) {}
	}
	username = strings.TrimSpace(username)
	ip := ""
	if deps.ClientIPFromContext != nil {
		ip = deps.ClientIPFromContext(ctx)
	}

	if deps.CheckLoginRate != nil {
		if err := deps.CheckLoginRate(ctx, username, ip); err != nil {
			return LoginResult{Failure: LoginFailureRateLimited, Err: err}
		}
	}

	fail := func() LoginResult {
		if deps.IncrementLoginRate != nil {
			if err := deps.IncrementLoginRate(ctx, username, ip); err != nil {
				deps.Warn("login rate increment failed", err)
			}
		}
		return LoginResult{Failure: LoginFailureInvalidCredentials}
	}

	user, err := deps.FindUserByUsername(ctx, username)
	if err != nil {
		if !deps.IsUserNotFound(err) {
			return LoginResult{Failure: LoginFailureUserUnavailable, Err: err}
		}
		deps.VerifyDummy(ctx, password)
		return fail()
	}

	ok, err := deps.VerifyPassword(ctx, password, user.PasswordHash)
	if err != nil {
		if ctx.Err() != nil {
			return LoginResult{Failure: LoginFailureInternal, Err: ctx.Err()}
		}
		deps.Warn("password verification failed", err)
		return fail()
	}
	if !ok || !user.Active {
		return fail()
	}

	if deps.ResetLoginRate != nil {
		if err := deps.ResetLoginRate(ctx, username, ip); err != nil {
			deps.Warn("login rate reset failed", err)
		}
	}

	if deps.UpgradeOnLogin && deps.PasswordNeedsUpgrade != nil {
		if upgrade, err := deps.PasswordNeedsUpgrade(user.PasswordHash); err == nil && upgrade {
			if newHash, err := deps.HashPassword(ctx, password); err == nil {
				if err := deps.UpdatePasswordHash(ctx, user.ID, newHash); err != nil {
					deps.Warn("password rehash store failed", err)
				}
			}
		}
	}

	access, err := deps.IssueAccess(user.ID)
	if err != nil {
		return LoginResult{Failure: LoginFailureInternal, Err: err}
	}
	refresh, err := deps.IssueRefresh(user.ID)
	if err != nil {
		return LoginResult{Failure: LoginFailureInternal, Err: err}
	}
	csrfToken, err := deps.IssueCSRF()
	if err != nil {
		return LoginResult{Failure: LoginFailureInternal, Err: err}
	}

	rec := &session.Record{
		Access:    access,
		Refresh:   refresh,
		CSRF:      csrfToken,
		CreatedAt: deps.Now(),
	}
	if err := deps.SaveSession(ctx, user.ID, rec, deps.SessionTTL); err != nil {
		return LoginResult{Failure: LoginFailureSessionUnavailable, Err: err}
	}

	return LoginResult{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
		CSRFToken:    csrfToken,
	}
}
