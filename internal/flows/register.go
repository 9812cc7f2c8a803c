package flows

import (
	"context"
	"strings"

	"github.com/MrEthical07/authgate/password"
)

// RegisterFailureKind classifies registration failures for root-level mapping.
type RegisterFailureKind int

const (
	RegisterFailureNone RegisterFailureKind = iota
	RegisterFailureInvalidInput
	RegisterFailureWeakPassword
	RegisterFailureStore
	RegisterFailureInternal
)

// RegisterInput is the flow-local registration request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// RegisterResult carries the created user or a classified failure.
type RegisterResult struct {
	Failure    RegisterFailureKind
	Err        error
	Violations []password.Violation
	User       UserRecord
}

// RegisterDeps captures registration dependencies.
type RegisterDeps struct {
	CheckPassword func(string) []password.Violation
	HashPassword  func(context.Context, string) (string, error)
	CreateUser    func(context.Context, UserRecord) (UserRecord, error)
	DefaultRole   string
}

// RunRegister validates input, hashes the password and creates the user.
// Username and email uniqueness is left to CreateUser, which must enforce it
// atomically.
func RunRegister(ctx context.Context, in RegisterInput, deps RegisterDeps) RegisterResult {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" || email == "" || !strings.Contains(email, "@") {
		return RegisterResult{Failure: RegisterFailureInvalidInput}
	}

	if violations := deps.CheckPassword(in.Password); len(violations) > 0 {
		return RegisterResult{Failure: RegisterFailureWeakPassword, Violations: violations}
	}

	hash, err := deps.HashPassword(ctx, in.Password)
	if err != nil {
		return RegisterResult{Failure: RegisterFailureInternal, Err: err}
	}

	user, err := deps.CreateUser(ctx, UserRecord{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         deps.DefaultRole,
		Active:       true,
	})
	if err != nil {
		return RegisterResult{Failure: RegisterFailureStore, Err: err}
	}
	return RegisterResult{User: user}
}
