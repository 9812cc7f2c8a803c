package authgate

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authgate/internal/flows"
)

// Register creates an active account with the configured default role.
//
// A password that breaks the policy returns a *[PasswordPolicyError] listing
// every violated rule. Username and email collisions return
// [ErrDuplicateUsername] or [ErrDuplicateEmail].
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if e == nil || e.users == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}

	res := flows.RunRegister(ctx, flows.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}, e.registerFlowDeps())

	switch res.Failure {
	case flows.RegisterFailureNone:
		u := userFromRecord(res.User)
		e.metricInc(MetricRegisterSuccess)
		e.emitAudit(ctx, auditEventRegisterSuccess, true, u.ID, u.Username, nil, nil)
		return &u, nil
	case flows.RegisterFailureInvalidInput:
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", req.Username, ErrRegistrationInvalid, nil)
		return nil, ErrRegistrationInvalid
	case flows.RegisterFailureWeakPassword:
		err := newPasswordPolicyError(e.config.Password.Policy, res.Violations)
		e.metricInc(MetricRegisterWeakPassword)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", req.Username, err, func() map[string]string {
			return map[string]string{
				"violations": fmt.Sprint(len(res.Violations)),
			}
		})
		return nil, err
	case flows.RegisterFailureStore:
		err := mapUserStoreError(res.Err)
		if errors.Is(err, ErrDuplicateUsername) || errors.Is(err, ErrDuplicateEmail) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", req.Username, err, nil)
			return nil, err
		}
		e.warn("user create failed", res.Err)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", req.Username, err, nil)
		return nil, err
	default:
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", req.Username, res.Err, nil)
		return nil, res.Err
	}
}

func (e *Engine) registerFlowDeps() flows.RegisterDeps {
	return flows.RegisterDeps{
		CheckPassword: e.config.Password.Policy.Check,
		HashPassword:  e.hasher.Hash,
		CreateUser: func(ctx context.Context, rec flows.UserRecord) (flows.UserRecord, error) {
			created, err := e.users.Create(ctx, userFromRecord(rec))
			if err != nil {
				return flows.UserRecord{}, err
			}
			return userRecord(created), nil
		},
		DefaultRole: e.config.Account.DefaultRole,
	}
}

// DeleteUser removes targetID and its session. Only the account owner may
// delete an account; anyone else gets [ErrForbidden].
func (e *Engine) DeleteUser(ctx context.Context, caller *Identity, targetID string) error {
	if e == nil || e.users == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}
	if caller == nil {
		return ErrNotAuthenticated
	}

	res := flows.RunDeleteAccount(ctx, caller.UserID, targetID, flows.DeleteDeps{
		DeleteUser:     e.users.Delete,
		IsUserNotFound: isUserNotFound,
		SessionStore:   e.sessionStore,
	})

	var err error
	switch res.Failure {
	case flows.DeleteFailureNone:
		e.metricInc(MetricAccountDeleted)
		e.emitAudit(ctx, auditEventAccountDeleted, true, targetID, caller.Username, nil, nil)
		return nil
	case flows.DeleteFailureForbidden:
		e.metricInc(MetricGateForbidden)
		err = ErrForbidden
	case flows.DeleteFailureUserNotFound:
		err = ErrUserNotFound
	case flows.DeleteFailureUserUnavailable:
		e.warn("user delete failed", res.Err)
		err = mapUserStoreError(res.Err)
	case flows.DeleteFailureSessionUnavailable:
		e.metricInc(MetricSessionStoreError)
		e.warn("session delete after account removal failed", res.Err)
		err = fmt.Errorf("%w: %v", ErrSessionStoreUnavailable, res.Err)
	default:
		err = res.Err
	}

	e.emitAudit(ctx, auditEventAccountDeleteDeny, false, caller.UserID, caller.Username, err, func() map[string]string {
		return map[string]string{
			"target": targetID,
		}
	})
	return err
}
