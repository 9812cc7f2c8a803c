// Package hashpool bounds the number of concurrent password hash operations.
// argon2id is memory hard, so an unbounded burst of logins would multiply
// the configured memory cost by the number of in-flight requests.
package hashpool

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Hasher is the subset of the password hasher the pool wraps.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
	VerifyDummy(password string)
	NeedsUpgrade(encodedHash string) (bool, error)
}

// Pool runs Hasher calls with at most N in flight.
type Pool struct {
	hasher Hasher
	sem    *semaphore.Weighted
}

// New wraps h. size <= 0 means runtime.NumCPU().
func New(h Hasher, size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &Pool{hasher: h, sem: semaphore.NewWeighted(int64(size))}
}

// Hash waits for a slot, or for ctx to end, and hashes password.
func (p *Pool) Hash(ctx context.Context, password string) (string, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer p.sem.Release(1)
	return p.hasher.Hash(password)
}

// Verify waits for a slot, or for ctx to end, and checks password.
func (p *Pool) Verify(ctx context.Context, password, encodedHash string) (bool, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer p.sem.Release(1)
	return p.hasher.Verify(password, encodedHash)
}

// VerifyDummy burns one verification's worth of work.
func (p *Pool) VerifyDummy(ctx context.Context, password string) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer p.sem.Release(1)
	p.hasher.VerifyDummy(password)
}

// NeedsUpgrade is not CPU bound and bypasses the semaphore.
func (p *Pool) NeedsUpgrade(encodedHash string) (bool, error) {
	return p.hasher.NeedsUpgrade(encodedHash)
}
