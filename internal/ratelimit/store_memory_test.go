package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

const (
	testLimit  = 10
	testWindow = time.Minute
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	now   time.Time
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.store.now = func() time.Time { return s.now }
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) advance(d time.Duration) {
	s.now = s.now.Add(d)
}

// =====
// Window accounting
// =====

func (s *InMemoryStoreSuite) TestAdmitsUpToTheLimit() {
	for i := 1; i <= testLimit; i++ {
		res, err := s.store.Allow(s.ctx, "203.0.113.7", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(res.Allowed, "request %d", i)
		s.Equal(testLimit-i, res.Remaining)
		s.Equal(testLimit, res.Limit)
	}

	res, err := s.store.Allow(s.ctx, "203.0.113.7", testLimit, testWindow)
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.Zero(res.Remaining)
	s.Equal(s.now.Add(testWindow), res.ResetAt)
	s.Equal(testWindow, res.RetryAfter)
}

func (s *InMemoryStoreSuite) TestRefusedRequestsAreNotCounted() {
	for range testLimit {
		_, _ = s.store.Allow(s.ctx, "ip", testLimit, testWindow)
	}
	for range 5 {
		res, _ := s.store.Allow(s.ctx, "ip", testLimit, testWindow)
		s.False(res.Allowed)
	}

	s.advance(testWindow + time.Second)
	res, err := s.store.Allow(s.ctx, "ip", testLimit, testWindow)
	s.Require().NoError(err)
	s.True(res.Allowed)
	s.Equal(testLimit-1, res.Remaining)
}

// Justification: a sliding window frees slots one at a time as the oldest
// requests age out, unlike a fixed window that resets all at once.
func (s *InMemoryStoreSuite) TestWindowSlides() {
	for range testLimit / 2 {
		_, _ = s.store.Allow(s.ctx, "ip", testLimit, testWindow)
	}
	s.advance(30 * time.Second)
	for range testLimit / 2 {
		_, _ = s.store.Allow(s.ctx, "ip", testLimit, testWindow)
	}

	res, _ := s.store.Allow(s.ctx, "ip", testLimit, testWindow)
	s.Require().False(res.Allowed)
	s.Equal(30*time.Second, res.RetryAfter)

	s.advance(31 * time.Second)
	for i := range testLimit / 2 {
		res, _ := s.store.Allow(s.ctx, "ip", testLimit, testWindow)
		s.True(res.Allowed, "request %d", i)
	}
	res, _ = s.store.Allow(s.ctx, "ip", testLimit, testWindow)
	s.False(res.Allowed)
}

func (s *InMemoryStoreSuite) TestKeysAreIndependent() {
	for range testLimit {
		_, _ = s.store.Allow(s.ctx, "198.51.100.1", testLimit, testWindow)
	}
	res, err := s.store.Allow(s.ctx, "198.51.100.2", testLimit, testWindow)
	s.Require().NoError(err)
	s.True(res.Allowed)
}

func (s *InMemoryStoreSuite) TestSweepDropsIdleKeys() {
	_, _ = s.store.Allow(s.ctx, "a", testLimit, testWindow)
	s.advance(testWindow / 2)
	_, _ = s.store.Allow(s.ctx, "b", testLimit, testWindow)
	s.advance(testWindow/2 + time.Second)

	s.store.Sweep(testWindow)

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.NotContains(s.store.buckets, "a")
	s.Contains(s.store.buckets, "b")
}

// =====
// Concurrency
// =====

func (s *InMemoryStoreSuite) TestConcurrentCallersNeverExceedTheLimit() {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := s.store.Allow(s.ctx, "shared", testLimit, testWindow)
			s.NoError(err, fmt.Sprint(i))
			if res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	s.Equal(testLimit, allowed)
}
