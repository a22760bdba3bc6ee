package audit_test

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/frahmantamala/gameserver-admin/internal"
	"github.com/frahmantamala/gameserver-admin/internal/audit"
	auditDatamodel "github.com/frahmantamala/gameserver-admin/internal/core/datamodel/audit"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type MockRepository struct {
	inserted  []*auditDatamodel.Entry
	entries   []audit.Entry
	total     int64
	failWith  error
	lastLimit int
	lastOff   int
}

func (m *MockRepository) Insert(_ context.Context, entry *auditDatamodel.Entry) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.inserted = append(m.inserted, entry)
	return nil
}

func (m *MockRepository) List(_ context.Context, limit, offset int) ([]audit.Entry, error) {
	m.lastLimit, m.lastOff = limit, offset
	if m.failWith != nil {
		return nil, m.failWith
	}
	return m.entries, nil
}

func (m *MockRepository) Count(_ context.Context) (int64, error) {
	if m.failWith != nil {
		return 0, m.failWith
	}
	return m.total, nil
}

var _ = Describe("Audit Service", func() {
	var (
		repo    *MockRepository
		service *audit.Service
	)

	BeforeEach(func() {
		repo = &MockRepository{}
		service = audit.NewService(repo, slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))
	})

	Describe("Record", func() {
		It("stores the client address carried by the context", func() {
			id := int64(7)
			ctx := internal.ContextWithClientIP(context.Background(), "10.0.0.5")

			service.Record(ctx, &id, audit.ActionLogin, "User logged in")

			Expect(repo.inserted).To(HaveLen(1))
			Expect(*repo.inserted[0].OperatorID).To(Equal(int64(7)))
			Expect(repo.inserted[0].Action).To(Equal("login"))
			Expect(repo.inserted[0].IP).To(Equal("10.0.0.5"))
		})

		It("swallows store failures", func() {
			repo.failWith = errors.New("disk full")
			Expect(func() { service.Record(context.Background(), nil, audit.ActionSystem, "boot") }).NotTo(Panic())
		})
	})

	Describe("List", func() {
		It("defaults and clamps the page size", func() {
			repo.total = 3
			page, err := service.List(context.Background(), 0, -4)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Limit).To(Equal(audit.DefaultPageSize))
			Expect(page.Offset).To(Equal(0))
			Expect(page.Total).To(Equal(int64(3)))
			Expect(page.Entries).NotTo(BeNil())

			_, err = service.List(context.Background(), 50000, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.lastLimit).To(Equal(audit.MaxPageSize))
			Expect(repo.lastOff).To(Equal(10))
		})

		It("wraps store failures as internal errors", func() {
			repo.failWith = errors.New("boom")
			_, err := service.List(context.Background(), 10, 0)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeInternal))
		})
	})
})
