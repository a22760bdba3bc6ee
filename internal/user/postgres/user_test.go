package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/frahmantamala/gameserver-admin/internal"
	inviteDatamodel "github.com/frahmantamala/gameserver-admin/internal/core/datamodel/invite"
	operatorDatamodel "github.com/frahmantamala/gameserver-admin/internal/core/datamodel/operator"
	"github.com/frahmantamala/gameserver-admin/internal/database"
	"github.com/frahmantamala/gameserver-admin/internal/user"
	userPostgres "github.com/frahmantamala/gameserver-admin/internal/user/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("User Repository", func() {
	var (
		ctx   context.Context
		db    *database.DB
		repo  *userPostgres.UserRepository
		owner *operatorDatamodel.Operator
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = database.Open(internal.DatabaseConfig{Source: "file:" + filepath.Join(GinkgoT().TempDir(), "admin.db")})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(db.Close)
		Expect(database.Migrate(ctx, db, false)).To(Succeed())

		repo = userPostgres.NewUserRepository(db.Gorm)
		owner = &operatorDatamodel.Operator{Username: "root", PasswordHash: "x", Role: "owner", IsActive: true}
		Expect(repo.Create(ctx, owner)).To(Succeed())
	})

	build := func(username string) func(*inviteDatamodel.Invite) *operatorDatamodel.Operator {
		return func(inv *inviteDatamodel.Invite) *operatorDatamodel.Operator {
			return &operatorDatamodel.Operator{Username: username, PasswordHash: "x", Role: inv.Role, CreatedBy: inv.CreatedBy, IsActive: true}
		}
	}

	It("maps unique violations to ErrDuplicate", func() {
		err := repo.Create(ctx, &operatorDatamodel.Operator{Username: "root", PasswordHash: "y", Role: "viewer", IsActive: true})
		Expect(errors.Is(err, user.ErrDuplicate)).To(BeTrue())
	})

	It("never redeems an invite more than max_uses times under concurrency", func() {
		const (
			maxUses  = 3
			attempts = 12
		)
		Expect(repo.CreateInvite(ctx, &inviteDatamodel.Invite{Code: "RACECODE", Role: "viewer", CreatedBy: &owner.ID, MaxUses: maxUses})).To(Succeed())

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
			exhausted int
		)
		now := time.Now().UTC()
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer GinkgoRecover()
				defer wg.Done()
				_, err := repo.RedeemInvite(ctx, "RACECODE", now, build(fmt.Sprintf("racer_%d", i)))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					succeeded++
				case errors.Is(err, user.ErrInviteUnavailable):
					exhausted++
				default:
					Fail(fmt.Sprintf("unexpected error: %v", err))
				}
			}(i)
		}
		wg.Wait()

		Expect(succeeded).To(Equal(maxUses))
		Expect(exhausted).To(Equal(attempts - maxUses))

		count, err := repo.Count(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(int64(1 + maxUses)))

		invites, err := repo.ListInvites(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(invites[0].Uses).To(Equal(maxUses))
		Expect(*invites[0].CreatedByUsername).To(Equal("root"))
	})

	It("treats max_uses of zero as unlimited", func() {
		Expect(repo.CreateInvite(ctx, &inviteDatamodel.Invite{Code: "OPENCODE", Role: "viewer", MaxUses: 0})).To(Succeed())
		for i := 0; i < 5; i++ {
			_, err := repo.RedeemInvite(ctx, "OPENCODE", time.Now().UTC(), build(fmt.Sprintf("open_%d", i)))
			Expect(err).NotTo(HaveOccurred())
		}
	})

	It("rejects expired and unknown codes", func() {
		past := time.Now().UTC().Add(-time.Minute)
		Expect(repo.CreateInvite(ctx, &inviteDatamodel.Invite{Code: "OLDCODE2", Role: "viewer", ExpiresAt: &past, MaxUses: 1})).To(Succeed())

		_, err := repo.RedeemInvite(ctx, "OLDCODE2", time.Now().UTC(), build("late"))
		Expect(errors.Is(err, user.ErrInviteUnavailable)).To(BeTrue())

		_, err = repo.RedeemInvite(ctx, "NOPENOPE", time.Now().UTC(), build("nobody"))
		Expect(errors.Is(err, user.ErrInviteUnavailable)).To(BeTrue())
	})

	It("lists operators newest first with their creator", func() {
		child := &operatorDatamodel.Operator{Username: "kid", PasswordHash: "x", Role: "viewer", IsActive: true, CreatedBy: &owner.ID}
		Expect(repo.Create(ctx, child)).To(Succeed())

		records, err := repo.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(2))
		Expect(records[0].Username).To(Equal("kid"))
		Expect(*records[0].CreatedByUsername).To(Equal("root"))
		Expect(records[1].CreatedByUsername).To(BeNil())
	})

	It("clears nullable columns through Update", func() {
		Expect(repo.Update(ctx, owner.ID, map[string]interface{}{"external_id": "123456789012345678", "is_active": false})).To(Succeed())
		got, err := repo.GetByExternalID(ctx, "123456789012345678")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.IsActive).To(BeFalse())

		Expect(repo.Update(ctx, owner.ID, map[string]interface{}{"external_id": nil})).To(Succeed())
		got, err = repo.GetByExternalID(ctx, "123456789012345678")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(BeNil())
	})
})
