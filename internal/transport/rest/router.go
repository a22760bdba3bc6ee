package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/gameserver-admin/api"
	"github.com/frahmantamala/gameserver-admin/internal/audit"
	"github.com/frahmantamala/gameserver-admin/internal/auth"
	"github.com/frahmantamala/gameserver-admin/internal/backup"
	"github.com/frahmantamala/gameserver-admin/internal/gameconfig"
	"github.com/frahmantamala/gameserver-admin/internal/notify"
	"github.com/frahmantamala/gameserver-admin/internal/supervisor"
	"github.com/frahmantamala/gameserver-admin/internal/transport/middleware"
	"github.com/frahmantamala/gameserver-admin/internal/transport/swagger"
	"github.com/frahmantamala/gameserver-admin/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// Handlers groups the per-domain HTTP handlers mounted under /api/v1.
type Handlers struct {
	Health     *HealthHandler
	Auth       *auth.Handler
	RBAC       *auth.RBACAuthorization
	User       *user.Handler
	Supervisor *supervisor.Handler
	Config     *gameconfig.Handler
	Backup     *backup.Handler
	Audit      *audit.Handler
	Webhook    *notify.Handler
	Stream     http.Handler
}

func RegisterAllRoutes(router chi.Router, h Handlers, allowedOrigins []string, logger *slog.Logger) {
	rbac := h.RBAC

	router.Use(middleware.CORS(allowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.ClientIP)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(api.OpenAPISpec)
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health.healthCheckHandler)
		r.Get("/ping", h.Health.pingHandler)

		r.Route("/auth", func(ar chi.Router) {
			ar.Post("/login", h.Auth.Login)
			ar.Post("/logout", h.Auth.Logout)
			ar.Post("/register", h.User.Register)

			ar.Group(func(pr chi.Router) {
				pr.Use(h.Auth.AuthMiddleware)
				pr.Get("/me", h.Auth.Me)
				pr.Post("/change-password", h.User.ChangePassword)
				pr.Post("/link-identity", h.User.LinkIdentity)
			})
		})

		// The websocket handshake authenticates with a ticket in the query.
		if h.Stream != nil {
			r.Handle("/stream", h.Stream)
		}

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/stream/ticket", h.Auth.StreamTicket)

			pr.Route("/server", func(sr chi.Router) {
				sr.Get("/status", h.Supervisor.Status)
				sr.With(rbac.Require(auth.ActionServerStart)).Post("/start", h.Supervisor.Start)
				sr.With(rbac.Require(auth.ActionServerStop)).Post("/stop", h.Supervisor.Stop)
				sr.With(rbac.Require(auth.ActionServerRestart)).Post("/restart", h.Supervisor.Restart)
				sr.With(rbac.Require(auth.ActionServerConsole)).Get("/logs", h.Supervisor.Logs)

				sr.Group(func(cr chi.Router) {
					cr.Use(rbac.Require(auth.ActionServerConfig))
					cr.Get("/config", h.Config.GetConfig)
					cr.Put("/config", h.Config.SaveConfig)
				})
			})

			pr.Route("/backups", func(br chi.Router) {
				br.With(rbac.Require(auth.ActionBackupsView)).Get("/", h.Backup.ListBackups)
				br.With(rbac.Require(auth.ActionBackupsCreate)).Post("/", h.Backup.CreateBackup)
				br.With(rbac.Require(auth.ActionBackupsRestore)).Post("/{id}/restore", h.Backup.RestoreBackup)
				br.With(rbac.Require(auth.ActionBackupsDelete)).Delete("/{id}", h.Backup.DeleteBackup)
			})
			pr.Get("/saves", h.Backup.ListSaves)

			pr.Route("/users", func(ur chi.Router) {
				ur.With(rbac.Require(auth.ActionUsersView)).Get("/", h.User.ListOperators)
				ur.With(rbac.Require(auth.ActionUsersCreate)).Post("/", h.User.CreateOperator)
				ur.With(rbac.Require(auth.ActionUsersEdit)).Put("/{id}", h.User.UpdateOperator)
				ur.With(rbac.Require(auth.ActionUsersDelete)).Delete("/{id}", h.User.DeleteOperator)
			})

			pr.Route("/invites", func(ir chi.Router) {
				ir.With(rbac.Require(auth.ActionUsersView)).Get("/", h.User.ListInvites)
				ir.With(rbac.Require(auth.ActionUsersCreate)).Post("/", h.User.CreateInvite)
				ir.With(rbac.Require(auth.ActionUsersCreate)).Delete("/{id}", h.User.DeleteInvite)
			})

			pr.With(rbac.Require(auth.ActionAuditView)).Get("/audit", h.Audit.List)

			pr.Route("/webhooks", func(wr chi.Router) {
				wr.Use(rbac.Require(auth.ActionWebhooksManage))
				wr.Get("/", h.Webhook.ListWebhooks)
				wr.Post("/", h.Webhook.CreateWebhook)
				wr.Patch("/{id}", h.Webhook.UpdateWebhook)
				wr.Delete("/{id}", h.Webhook.DeleteWebhook)
			})
		})
	})
}
