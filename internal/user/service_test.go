package user_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/frahmantamala/gameserver-admin/internal"
	"github.com/frahmantamala/gameserver-admin/internal/auth"
	inviteDatamodel "github.com/frahmantamala/gameserver-admin/internal/core/datamodel/invite"
	"github.com/frahmantamala/gameserver-admin/internal/core/operator"
	"github.com/frahmantamala/gameserver-admin/internal/database"
	"github.com/frahmantamala/gameserver-admin/internal/user"
	userPostgres "github.com/frahmantamala/gameserver-admin/internal/user/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Credential store", func() {
	var (
		ctx      context.Context
		db       *database.DB
		recorder *mockRecorder
		revoker  *mockRevoker
		service  *user.Service
		owner    *operator.Operator
	)

	actorFor := func(acc *user.Account) *operator.Operator {
		return &operator.Operator{ID: acc.ID, Username: acc.Username, Role: acc.Role, IsActive: acc.IsActive}
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = database.Open(internal.DatabaseConfig{Source: "file:" + filepath.Join(GinkgoT().TempDir(), "admin.db")})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(db.Close)
		Expect(database.Migrate(ctx, db, false)).To(Succeed())

		recorder = &mockRecorder{}
		revoker = &mockRevoker{}
		identity := &mockIdentityResolver{names: map[string]string{"123456789012345678": "Alice"}}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = user.NewService(userPostgres.NewUserRepository(db.Gorm), revoker, identity, recorder, 4, logger)

		result, err := service.Bootstrap(ctx, "root", "root-password")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Created).To(BeTrue())

		accounts, err := service.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(accounts).To(HaveLen(1))
		owner = actorFor(&accounts[0])
	})

	Describe("Bootstrap", func() {
		It("creates a single owner and records a system entry", func() {
			Expect(owner.Role).To(Equal(string(auth.RoleOwner)))
			Expect(recorder.Actions()).To(Equal([]string{"system"}))
			Expect(recorder.calls[0].OperatorID).To(BeNil())
		})

		It("does nothing once an operator exists", func() {
			result, err := service.Bootstrap(ctx, "other", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Created).To(BeFalse())

			accounts, err := service.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(accounts).To(HaveLen(1))
		})
	})

	Describe("Create", func() {
		var admin *operator.Operator

		BeforeEach(func() {
			acc, err := service.Create(ctx, owner, user.CreateOperatorDTO{Username: "alice", Password: "password-1", Role: "admin"})
			Expect(err).NotTo(HaveOccurred())
			Expect(acc.CreatedByUsername).To(Equal("root"))
			admin = actorFor(acc)
		})

		DescribeTable("enforces role ordering",
			func(actorRole, targetRole string, allowed bool) {
				actor := owner
				if actorRole == "admin" {
					actor = admin
				}
				_, err := service.Create(ctx, actor, user.CreateOperatorDTO{Username: "new_" + targetRole, Password: "password-1", Role: targetRole})
				if allowed {
					Expect(err).NotTo(HaveOccurred())
				} else {
					Expect(err).To(MatchError(internal.ErrRoleEscalation))
				}
			},
			Entry("owner creates owner", "owner", "owner", false),
			Entry("owner creates admin", "owner", "admin", true),
			Entry("admin creates owner", "admin", "owner", false),
			Entry("admin creates admin", "admin", "admin", false),
			Entry("admin creates moderator", "admin", "moderator", true),
			Entry("admin creates viewer", "admin", "viewer", true),
		)

		It("defaults to viewer and rejects duplicate usernames", func() {
			acc, err := service.Create(ctx, admin, user.CreateOperatorDTO{Username: "bob", Password: "password-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(acc.Role).To(Equal("viewer"))

			_, err = service.Create(ctx, admin, user.CreateOperatorDTO{Username: "bob", Password: "password-2"})
			Expect(err).To(MatchError(internal.ErrUsernameTaken))
		})

		It("rejects unknown roles and weak passwords", func() {
			_, err := service.Create(ctx, owner, user.CreateOperatorDTO{Username: "carol", Password: "password-1", Role: "god"})
			Expect(err).To(MatchError(internal.ErrUnknownRole))

			_, err = service.Create(ctx, owner, user.CreateOperatorDTO{Username: "carol", Password: "short"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})
	})

	Describe("Update and Delete", func() {
		var admin, viewer *operator.Operator

		BeforeEach(func() {
			acc, err := service.Create(ctx, owner, user.CreateOperatorDTO{Username: "alice", Password: "password-1", Role: "admin"})
			Expect(err).NotTo(HaveOccurred())
			admin = actorFor(acc)
			acc, err = service.Create(ctx, admin, user.CreateOperatorDTO{Username: "vic", Password: "password-1", Role: "viewer"})
			Expect(err).NotTo(HaveOccurred())
			viewer = actorFor(acc)
		})

		It("lets an operator edit their own email but not their role", func() {
			email := "alice@example.com"
			acc, err := service.Update(ctx, admin, admin.ID, user.UpdateOperatorDTO{Email: &email})
			Expect(err).NotTo(HaveOccurred())
			Expect(acc.Email).To(Equal(email))

			role := "owner"
			_, err = service.Update(ctx, admin, admin.ID, user.UpdateOperatorDTO{Role: &role})
			Expect(err).To(MatchError(internal.ErrSelfRoleChange))
		})

		It("rejects edits on peers and promotions to the actor's level", func() {
			role := "moderator"
			_, err := service.Update(ctx, admin, owner.ID, user.UpdateOperatorDTO{Role: &role})
			Expect(err).To(MatchError(internal.ErrRoleEscalation))

			role = "admin"
			_, err = service.Update(ctx, admin, viewer.ID, user.UpdateOperatorDTO{Role: &role})
			Expect(err).To(MatchError(internal.ErrRoleEscalation))

			role = "moderator"
			acc, err := service.Update(ctx, admin, viewer.ID, user.UpdateOperatorDTO{Role: &role})
			Expect(err).NotTo(HaveOccurred())
			Expect(acc.Role).To(Equal("moderator"))
		})

		It("requires at least one field", func() {
			_, err := service.Update(ctx, admin, viewer.ID, user.UpdateOperatorDTO{})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Message).To(Equal("No updates provided"))
		})

		It("revokes sessions when an operator is deactivated", func() {
			inactive := false
			acc, err := service.Update(ctx, admin, viewer.ID, user.UpdateOperatorDTO{IsActive: &inactive})
			Expect(err).NotTo(HaveOccurred())
			Expect(acc.IsActive).To(BeFalse())
			Expect(revoker.revoked).To(ConsistOf(viewer.ID))

			_, err = service.Update(ctx, admin, admin.ID, user.UpdateOperatorDTO{IsActive: &inactive})
			Expect(err).To(MatchError(internal.ErrSelfDeactivate))
		})

		It("reports missing targets", func() {
			email := "x@example.com"
			_, err := service.Update(ctx, admin, 9999, user.UpdateOperatorDTO{Email: &email})
			Expect(err).To(MatchError(internal.ErrOperatorNotFound))
			Expect(service.Delete(ctx, admin, 9999)).To(MatchError(internal.ErrOperatorNotFound))
		})

		It("guards deletion", func() {
			Expect(service.Delete(ctx, admin, admin.ID)).To(MatchError(internal.ErrSelfDelete))
			Expect(service.Delete(ctx, admin, owner.ID)).To(MatchError(internal.ErrRoleEscalation))

			Expect(service.Delete(ctx, admin, viewer.ID)).To(Succeed())
			Expect(revoker.revoked).To(ContainElement(viewer.ID))
			Expect(recorder.Actions()).To(ContainElement("user_delete"))

			accounts, err := service.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(accounts).To(HaveLen(2))
		})
	})

	Describe("Invites", func() {
		It("registers an operator with the invite's role and creator", func() {
			inv, err := service.CreateInvite(ctx, owner, user.CreateInviteDTO{Role: "moderator"})
			Expect(err).NotTo(HaveOccurred())
			Expect(inv.Code).To(MatchRegexp(`^[A-HJ-NP-Za-hjkmnp-z2-9]{8}$`))
			Expect(inv.MaxUses).To(Equal(1))

			acc, err := service.Register(ctx, user.RegisterDTO{Username: "mod", Password: "password-1", InviteCode: inv.Code})
			Expect(err).NotTo(HaveOccurred())
			Expect(acc.Role).To(Equal("moderator"))
			Expect(*acc.CreatedBy).To(Equal(owner.ID))

			_, err = service.Register(ctx, user.RegisterDTO{Username: "mod2", Password: "password-1", InviteCode: inv.Code})
			Expect(err).To(MatchError(internal.ErrInvalidInvite))

			invites, err := service.ListInvites(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(invites).To(HaveLen(1))
			Expect(invites[0].Uses).To(Equal(1))
			Expect(*invites[0].UsedBy).To(Equal(acc.ID))
			Expect(invites[0].CreatedByUsername).To(Equal("root"))
		})

		It("does not consume a use when the username is taken", func() {
			inv, err := service.CreateInvite(ctx, owner, user.CreateInviteDTO{})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Register(ctx, user.RegisterDTO{Username: "root", Password: "password-1", InviteCode: inv.Code})
			Expect(err).To(MatchError(internal.ErrUsernameTaken))

			invites, err := service.ListInvites(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(invites[0].Uses).To(BeZero())
		})

		It("rejects expired invites", func() {
			past := time.Now().UTC().Add(-time.Hour)
			Expect(db.Gorm.Create(&inviteDatamodel.Invite{Code: "EXPIRED2", Role: "viewer", CreatedBy: &owner.ID, ExpiresAt: &past, MaxUses: 1}).Error).To(Succeed())

			_, err := service.Register(ctx, user.RegisterDTO{Username: "late", Password: "password-1", InviteCode: "EXPIRED2"})
			Expect(err).To(MatchError(internal.ErrInvalidInvite))
		})

		It("limits invite roles to those below the creator", func() {
			_, err := service.CreateInvite(ctx, owner, user.CreateInviteDTO{Role: "owner"})
			Expect(err).To(MatchError(internal.ErrRoleEscalation))
		})

		It("deletes invites", func() {
			inv, err := service.CreateInvite(ctx, owner, user.CreateInviteDTO{})
			Expect(err).NotTo(HaveOccurred())
			Expect(service.DeleteInvite(ctx, owner, inv.ID)).To(Succeed())
			Expect(service.DeleteInvite(ctx, owner, inv.ID)).To(MatchError(internal.ErrInviteNotFound))
		})
	})

	Describe("Self service", func() {
		It("changes the password only with the current one", func() {
			err := service.ChangePassword(ctx, owner, user.ChangePasswordDTO{CurrentPassword: "wrong-password", NewPassword: "new-password"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeAuth))

			Expect(service.ChangePassword(ctx, owner, user.ChangePasswordDTO{CurrentPassword: "root-password", NewPassword: "new-password"})).To(Succeed())
			Expect(recorder.Actions()).To(ContainElement("password_change"))
		})

		It("links, rejects duplicates of, and unlinks an identity", func() {
			acc, err := service.LinkIdentity(ctx, owner, user.LinkIdentityDTO{ExternalID: "123456789012345678"})
			Expect(err).NotTo(HaveOccurred())
			Expect(acc.ExternalID).To(Equal("123456789012345678"))
			Expect(acc.ExternalUsername).To(Equal("Alice"))

			other, err := service.Create(ctx, owner, user.CreateOperatorDTO{Username: "alice", Password: "password-1", Role: "admin"})
			Expect(err).NotTo(HaveOccurred())
			_, err = service.LinkIdentity(ctx, actorFor(other), user.LinkIdentityDTO{ExternalID: "123456789012345678"})
			Expect(err).To(MatchError(internal.ErrIdentityTaken))

			_, err = service.LinkIdentity(ctx, owner, user.LinkIdentityDTO{ExternalID: "12ab"})
			Expect(err).To(HaveOccurred())

			acc, err = service.LinkIdentity(ctx, owner, user.LinkIdentityDTO{})
			Expect(err).NotTo(HaveOccurred())
			Expect(acc.ExternalID).To(BeEmpty())
			Expect(recorder.Actions()).To(ContainElements("identity_link", "identity_unlink"))
		})
	})
})
