package authgate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func BenchmarkAuthenticate(b *testing.B) {
	engine, cleanup := newBenchmarkEngine(b)
	defer cleanup()

	res := benchmarkLogin(b, engine)
	creds := Credentials{AccessToken: res.AccessToken, CSRFToken: res.CSRFToken}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Authenticate(context.Background(), creds); err != nil {
			b.Fatalf("authenticate failed: %v", err)
		}
	}
}

func BenchmarkAuthenticateParallel(b *testing.B) {
	engine, cleanup := newBenchmarkEngine(b)
	defer cleanup()

	res := benchmarkLogin(b, engine)
	creds := Credentials{AccessToken: res.AccessToken, CSRFToken: res.CSRFToken}

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := engine.Authenticate(context.Background(), creds); err != nil {
				b.Errorf("authenticate failed: %v", err)
				return
			}
		}
	})
}

func BenchmarkRefresh(b *testing.B) {
	engine, cleanup := newBenchmarkEngine(b)
	defer cleanup()

	res := benchmarkLogin(b, engine)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Refresh(context.Background(), res.RefreshToken); err != nil {
			b.Fatalf("refresh failed: %v", err)
		}
	}
}

func BenchmarkLogin(b *testing.B) {
	engine, cleanup := newBenchmarkEngine(b)
	defer cleanup()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		res := benchmarkLogin(b, engine)
		_ = engine.Logout(context.Background(), res.User.ID)
	}
}

func benchmarkLogin(tb testing.TB, engine *Engine) *LoginResult {
	tb.Helper()
	res, err := engine.Login(context.Background(), "alice", testPassword)
	if err != nil {
		tb.Fatalf("login failed: %v", err)
	}
	return res
}

func newBenchmarkEngine(tb testing.TB) (*Engine, func()) {
	tb.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		tb.Fatalf("miniredis.Run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := testConfig()
	cfg.Security.EnableLoginThrottle = false
	cfg.Metrics.Enabled = false
	cfg.Audit.Enabled = false
	cfg.JWT.AccessTTL = 10 * time.Minute
	cfg.JWT.RefreshTTL = 10 * time.Minute

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(newMockUserStore()).
		Build()
	if err != nil {
		tb.Fatalf("Build failed: %v", err)
	}

	if _, err := engine.Register(context.Background(), RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: testPassword,
	}); err != nil {
		tb.Fatalf("register failed: %v", err)
	}

	return engine, func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	}
}
