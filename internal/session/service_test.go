package session_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Merchously/iRun/internal"
	sessionDatamodel "github.com/Merchously/iRun/internal/core/datamodel/session"
	"github.com/Merchously/iRun/internal/session"
)

// mockSessionRepository mirrors the conditional semantics of the SQL store.
type mockSessionRepository struct {
	mu       sync.Mutex
	rows     map[string]sessionDatamodel.Session
	getError error
	writes   int
}

func newMockSessionRepository() *mockSessionRepository {
	return &mockSessionRepository{rows: make(map[string]sessionDatamodel.Session)}
}

func (m *mockSessionRepository) Create(_ context.Context, s *sessionDatamodel.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[s.ID] = *s
	return nil
}

func (m *mockSessionRepository) GetByID(_ context.Context, id string) (*sessionDatamodel.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getError != nil {
		return nil, m.getError
	}
	row, ok := m.rows[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return &row, nil
}

func (m *mockSessionRepository) ExtendExpiry(_ context.Context, id string, expiresAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok || !row.ExpiresAt.Before(expiresAt) {
		return false, nil
	}
	row.ExpiresAt = expiresAt
	m.rows[id] = row
	m.writes++
	return true, nil
}

func (m *mockSessionRepository) DeleteIfExpired(_ context.Context, id string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.rows[id]; ok && row.ExpiresAt.Before(now) {
		delete(m.rows, id)
	}
	return nil
}

func (m *mockSessionRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *mockSessionRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, row := range m.rows {
		if row.ExpiresAt.Before(now) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *mockSessionRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var _ = Describe("Session Service", func() {
	var (
		ctx     context.Context
		repo    *mockSessionRepository
		clock   *fakeClock
		service *session.Service
		logger  *slog.Logger
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockSessionRepository()
		clock = &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = session.NewService(repo, logger, session.WithClock(clock.Now))
	})

	Describe("Create", func() {
		It("issues a 256-bit hex token expiring after the full lifetime", func() {
			sess, err := service.Create(ctx, "user-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(sess.ID).To(MatchRegexp("^[0-9a-f]{64}$"))
			Expect(sess.UserID).To(Equal("user-1"))
			Expect(sess.ExpiresAt).To(BeTemporally("==", clock.Now().Add(session.Lifetime)))
			Expect(repo.count()).To(Equal(1))
		})

		It("never reuses a token", func() {
			seen := map[string]bool{}
			for i := 0; i < 50; i++ {
				sess, err := service.Create(ctx, "user-1")
				Expect(err).NotTo(HaveOccurred())
				Expect(seen).NotTo(HaveKey(sess.ID))
				seen[sess.ID] = true
			}
		})
	})

	Describe("Validate", func() {
		It("treats an empty token as unauthenticated", func() {
			_, err := service.Validate(ctx, "")
			Expect(errors.Is(err, internal.ErrUnauthenticated)).To(BeTrue())
		})

		It("treats an unknown token as unauthenticated", func() {
			_, err := service.Validate(ctx, "deadbeef")
			Expect(errors.Is(err, internal.ErrUnauthenticated)).To(BeTrue())
		})

		It("surfaces store failures as ordinary errors", func() {
			repo.getError = errors.New("connection refused")
			_, err := service.Validate(ctx, "deadbeef")
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, internal.ErrUnauthenticated)).To(BeFalse())
		})

		It("returns a fresh session unchanged without writing", func() {
			created, err := service.Create(ctx, "user-1")
			Expect(err).NotTo(HaveOccurred())

			clock.Advance(24 * time.Hour)
			sess, err := service.Validate(ctx, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(sess.ExpiresAt).To(BeTemporally("==", created.ExpiresAt))
			Expect(repo.writes).To(Equal(0))
		})

		It("renews once less than half the lifetime remains", func() {
			created, err := service.Create(ctx, "user-1")
			Expect(err).NotTo(HaveOccurred())

			clock.Advance(16 * 24 * time.Hour)
			sess, err := service.Validate(ctx, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(sess.ExpiresAt).To(BeTemporally("==", clock.Now().Add(session.Lifetime)))
			Expect(repo.writes).To(Equal(1))
		})

		It("purges an expired session and keeps rejecting it", func() {
			created, err := service.Create(ctx, "user-1")
			Expect(err).NotTo(HaveOccurred())

			clock.Advance(session.Lifetime + time.Second)
			_, err = service.Validate(ctx, created.ID)
			Expect(errors.Is(err, internal.ErrUnauthenticated)).To(BeTrue())
			Expect(repo.count()).To(Equal(0))

			_, err = service.Validate(ctx, created.ID)
			Expect(errors.Is(err, internal.ErrUnauthenticated)).To(BeTrue())
		})

		It("observes a non-decreasing expiry across repeated validations", func() {
			created, err := service.Create(ctx, "user-1")
			Expect(err).NotTo(HaveOccurred())

			last := created.ExpiresAt
			for i := 0; i < 40; i++ {
				clock.Advance(11 * time.Hour)
				sess, err := service.Validate(ctx, created.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(sess.ExpiresAt).NotTo(BeTemporally("<", last))
				last = sess.ExpiresAt
			}
		})

		It("never shortens expiry when validations race", func() {
			created, err := service.Create(ctx, "user-1")
			Expect(err).NotTo(HaveOccurred())
			clock.Advance(20 * 24 * time.Hour)

			var wg sync.WaitGroup
			results := make(chan time.Time, 25)
			for i := 0; i < 25; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					sess, err := service.Validate(ctx, created.ID)
					Expect(err).NotTo(HaveOccurred())
					results <- sess.ExpiresAt
				}()
			}
			wg.Wait()
			close(results)

			final, err := repo.GetByID(ctx, created.ID)
			Expect(err).NotTo(HaveOccurred())
			for observed := range results {
				Expect(observed).NotTo(BeTemporally(">", final.ExpiresAt))
				Expect(observed).To(BeTemporally(">", created.ExpiresAt))
			}
		})
	})

	Describe("Invalidate", func() {
		It("makes the token permanently invalid", func() {
			created, err := service.Create(ctx, "user-1")
			Expect(err).NotTo(HaveOccurred())

			Expect(service.Invalidate(ctx, created.ID)).To(Succeed())
			_, err = service.Validate(ctx, created.ID)
			Expect(errors.Is(err, internal.ErrUnauthenticated)).To(BeTrue())
		})

		It("is a no-op for unknown tokens", func() {
			Expect(service.Invalidate(ctx, "missing")).To(Succeed())
		})
	})

	Describe("PurgeExpired", func() {
		It("removes only expired rows", func() {
			_, err := service.Create(ctx, "user-1")
			Expect(err).NotTo(HaveOccurred())
			clock.Advance(session.Lifetime + time.Minute)
			_, err = service.Create(ctx, "user-2")
			Expect(err).NotTo(HaveOccurred())

			n, err := service.PurgeExpired(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))
			Expect(repo.count()).To(Equal(1))
		})
	})
})
