package auth_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/frahmantamala/gameserver-admin/internal"
	"github.com/frahmantamala/gameserver-admin/internal/auth"
	operatorDatamodel "github.com/frahmantamala/gameserver-admin/internal/core/datamodel/operator"
	sessionDatamodel "github.com/frahmantamala/gameserver-admin/internal/core/datamodel/session"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Session manager", func() {
	var (
		operators *mockOperatorRepository
		sessions  *mockSessionRepository
		recorder  *mockRecorder
		service   *auth.Service
		ctx       context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		hash, err := auth.HashPassword("correct-password", 4)
		Expect(err).NotTo(HaveOccurred())

		operators = newMockOperatorRepository(
			&operatorDatamodel.Operator{ID: 1, Username: "alice", PasswordHash: hash, Role: "admin", IsActive: true},
			&operatorDatamodel.Operator{ID: 2, Username: "bob", PasswordHash: hash, Role: "viewer", IsActive: false},
		)
		sessions = newMockSessionRepository()
		recorder = &mockRecorder{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = auth.NewService(operators, sessions, recorder, 0, logger)
	})

	Describe("Login", func() {
		It("issues a seven day session and records the login", func() {
			result, err := service.Login(ctx, auth.LoginDTO{Username: " alice ", Password: "correct-password"}, auth.ClientMeta{IP: "1.2.3.4"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Token).To(HaveLen(64))
			Expect(result.ExpiresAt).To(BeTemporally("~", time.Now().Add(7*24*time.Hour), time.Minute))
			Expect(result.Operator.Username).To(Equal("alice"))
			Expect(result.Operator.LastLogin).NotTo(BeNil())

			Expect(sessions.byToken).To(HaveKey(result.Token))
			Expect(sessions.byToken[result.Token].IP).To(Equal("1.2.3.4"))
			Expect(operators.lastLogins).To(HaveKey(int64(1)))
			Expect(recorder.Actions()).To(Equal([]string{"login"}))
		})

		It("issues distinct tokens for concurrent sessions", func() {
			a, err := service.Login(ctx, auth.LoginDTO{Username: "alice", Password: "correct-password"}, auth.ClientMeta{})
			Expect(err).NotTo(HaveOccurred())
			b, err := service.Login(ctx, auth.LoginDTO{Username: "alice", Password: "correct-password"}, auth.ClientMeta{})
			Expect(err).NotTo(HaveOccurred())
			Expect(a.Token).NotTo(Equal(b.Token))
			Expect(sessions.byToken).To(HaveLen(2))
		})

		DescribeTable("rejects bad credentials uniformly",
			func(username, password string) {
				_, err := service.Login(ctx, auth.LoginDTO{Username: username, Password: password}, auth.ClientMeta{})
				Expect(errors.Is(err, internal.ErrInvalidCredentials)).To(BeTrue())
				Expect(sessions.byToken).To(BeEmpty())
				Expect(recorder.calls).To(HaveLen(1))
				Expect(recorder.calls[0].Action).To(Equal("login_failed"))
				Expect(recorder.calls[0].OperatorID).To(BeNil())
			},
			Entry("wrong password", "alice", "wrong-password"),
			Entry("unknown operator", "mallory", "correct-password"),
			Entry("inactive operator", "bob", "correct-password"),
		)

		It("rejects empty fields as a validation error", func() {
			_, err := service.Login(ctx, auth.LoginDTO{Username: "", Password: ""}, auth.ClientMeta{})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})
	})

	Describe("Validate", func() {
		It("resolves a live session to its operator", func() {
			result, err := service.Login(ctx, auth.LoginDTO{Username: "alice", Password: "correct-password"}, auth.ClientMeta{})
			Expect(err).NotTo(HaveOccurred())

			op, err := service.Validate(ctx, result.Token)
			Expect(err).NotTo(HaveOccurred())
			Expect(op.ID).To(Equal(int64(1)))
			Expect(op.Role).To(Equal("admin"))
		})

		It("fails for unknown tokens", func() {
			_, err := service.Validate(ctx, "nope")
			Expect(errors.Is(err, internal.ErrUnauthenticated)).To(BeTrue())
			_, err = service.Validate(ctx, "")
			Expect(errors.Is(err, internal.ErrUnauthenticated)).To(BeTrue())
		})

		It("destroys expired sessions", func() {
			sessions.byToken["old"] = &sessionDatamodel.Session{OperatorID: 1, Token: "old", ExpiresAt: time.Now().Add(-time.Second)}
			_, err := service.Validate(ctx, "old")
			Expect(errors.Is(err, internal.ErrUnauthenticated)).To(BeTrue())
			Expect(sessions.byToken).NotTo(HaveKey("old"))
		})

		It("destroys sessions of deactivated operators", func() {
			sessions.byToken["t"] = &sessionDatamodel.Session{OperatorID: 2, Token: "t", ExpiresAt: time.Now().Add(time.Hour)}
			_, err := service.Validate(ctx, "t")
			Expect(errors.Is(err, internal.ErrUnauthenticated)).To(BeTrue())
			Expect(sessions.byToken).NotTo(HaveKey("t"))
		})
	})

	Describe("Logout", func() {
		It("is idempotent", func() {
			result, err := service.Login(ctx, auth.LoginDTO{Username: "alice", Password: "correct-password"}, auth.ClientMeta{})
			Expect(err).NotTo(HaveOccurred())

			Expect(service.Logout(ctx, result.Token)).To(Succeed())
			Expect(service.Logout(ctx, result.Token)).To(Succeed())
			Expect(service.Logout(ctx, "")).To(Succeed())

			_, err = service.Validate(ctx, result.Token)
			Expect(errors.Is(err, internal.ErrUnauthenticated)).To(BeTrue())
		})
	})

	Describe("RevokeOperator", func() {
		It("drops every session of the operator", func() {
			for i := 0; i < 3; i++ {
				_, err := service.Login(ctx, auth.LoginDTO{Username: "alice", Password: "correct-password"}, auth.ClientMeta{})
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(service.RevokeOperator(ctx, 1)).To(Succeed())
			Expect(sessions.byToken).To(BeEmpty())
		})
	})
})
