package authgate

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestRefreshConcurrencyAllSucceedWithoutRotation(t *testing.T) {
	engine, _ := buildTestEngine(t, testConfig(), newMockUserStore())
	registerAlice(t, engine)
	login := loginAlice(t, engine)

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)

	results := make(chan *RefreshResult, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			res, err := engine.Refresh(context.Background(), login.RefreshToken)
			if err != nil {
				errs <- err
				return
			}
			results <- res
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("unexpected refresh error: %v", err)
	}

	// Last writer wins: exactly one of the issued access tokens is live.
	live := 0
	for res := range results {
		_, err := engine.Authenticate(context.Background(), Credentials{AccessToken: res.AccessToken, CSRFToken: res.CSRFToken})
		switch {
		case err == nil:
			live++
		case errors.Is(err, ErrInvalidToken):
		default:
			t.Fatalf("unexpected authenticate error: %v", err)
		}
	}
	if live != 1 {
		t.Fatalf("expected exactly one live access token, got %d", live)
	}
}

func TestRefreshRacingLogoutNeverResurrectsSession(t *testing.T) {
	engine, mr := buildTestEngine(t, testConfig(), newMockUserStore())
	u := registerAlice(t, engine)

	for round := 0; round < 20; round++ {
		login := loginAlice(t, engine)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = engine.Refresh(context.Background(), login.RefreshToken)
		}()
		go func() {
			defer wg.Done()
			if err := engine.Logout(context.Background(), u.ID); err != nil {
				t.Errorf("logout failed: %v", err)
			}
		}()
		wg.Wait()

		if keys := mr.Keys(); len(keys) != 0 {
			t.Fatalf("round %d: session survived logout: %v", round, keys)
		}
	}
}
