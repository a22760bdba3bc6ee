package rest_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"

	"github.com/frahmantamala/gameserver-admin/api"
	"github.com/frahmantamala/gameserver-admin/internal"
	"github.com/frahmantamala/gameserver-admin/internal/audit"
	"github.com/frahmantamala/gameserver-admin/internal/auth"
	"github.com/frahmantamala/gameserver-admin/internal/backup"
	"github.com/frahmantamala/gameserver-admin/internal/core/operator"
	"github.com/frahmantamala/gameserver-admin/internal/database"
	"github.com/frahmantamala/gameserver-admin/internal/gameconfig"
	"github.com/frahmantamala/gameserver-admin/internal/notify"
	"github.com/frahmantamala/gameserver-admin/internal/supervisor"
	"github.com/frahmantamala/gameserver-admin/internal/transport"
	"github.com/frahmantamala/gameserver-admin/internal/transport/rest"
	"github.com/frahmantamala/gameserver-admin/internal/user"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeSessions struct {
	byToken map[string]*operator.Operator
}

func (f *fakeSessions) Login(context.Context, auth.LoginDTO, auth.ClientMeta) (*auth.LoginResult, error) {
	return nil, internal.ErrInvalidCredentials
}

func (f *fakeSessions) Validate(_ context.Context, token string) (*operator.Operator, error) {
	if op, ok := f.byToken[token]; ok {
		return op, nil
	}
	return nil, internal.ErrUnauthenticated
}

func (f *fakeSessions) Logout(context.Context, string) error { return nil }

func (f *fakeSessions) Profile(op *operator.Operator) auth.Profile {
	return auth.Profile{Operator: op.ToSummary()}
}

type fakeSupervisor struct {
	starts int
}

func (f *fakeSupervisor) Start(context.Context, *operator.Operator) error {
	f.starts++
	return nil
}
func (f *fakeSupervisor) Stop(context.Context, *operator.Operator) error    { return nil }
func (f *fakeSupervisor) Restart(context.Context, *operator.Operator) error { return nil }
func (f *fakeSupervisor) Logs(kind string, lines int) (*supervisor.LogTail, error) {
	return &supervisor.LogTail{Type: kind, Found: true, Lines: make([]string, lines)}, nil
}

type fakeReporter struct{}

func (fakeReporter) Report(context.Context) (*supervisor.Report, error) {
	return &supervisor.Report{Server: &supervisor.Status{State: supervisor.StateStopped, UptimeFormatted: "0s"}}, nil
}

var _ = Describe("Router", func() {
	var (
		router *chi.Mux
		sup    *fakeSupervisor
	)

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		base := transport.NewBaseHandler(logger)

		db, err := database.Open(internal.DatabaseConfig{Source: "file:" + filepath.Join(GinkgoT().TempDir(), "admin.db")})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(db.Close)

		sessions := &fakeSessions{byToken: map[string]*operator.Operator{
			"viewer-token": {ID: 2, Username: "vic", Role: string(auth.RoleViewer), IsActive: true},
			"admin-token":  {ID: 1, Username: "ada", Role: string(auth.RoleAdmin), IsActive: true},
		}}
		sup = &fakeSupervisor{}

		router = chi.NewRouter()
		rest.RegisterAllRoutes(router, rest.Handlers{
			Health:     rest.NewHealthHandler(db.SQLX, db.Dialect),
			Auth:       auth.NewHandler(base, sessions, nil, false),
			RBAC:       auth.NewRBACAuthorization(logger),
			User:       user.NewHandler(base, nil),
			Supervisor: supervisor.NewHandler(base, sup, fakeReporter{}),
			Config:     gameconfig.NewHandler(base, nil),
			Backup:     backup.NewHandler(base, nil),
			Audit:      audit.NewHandler(base, nil),
			Webhook:    notify.NewHandler(base, nil),
		}, []string{"*"}, logger)
	})

	do := func(method, path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	errorCode := func(rec *httptest.ResponseRecorder) string {
		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		return body.Error.Code
	}

	It("answers liveness and readiness probes without a session", func() {
		Expect(do(http.MethodGet, "/api/v1/ping", "").Code).To(Equal(http.StatusOK))

		rec := do(http.MethodGet, "/api/v1/health", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		var health rest.HealthResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &health)).To(Succeed())
		Expect(health.Status).To(Equal(rest.HealthHealthy))
		Expect(health.Components).To(HaveKey("database"))
	})

	It("rejects protected routes without a session", func() {
		rec := do(http.MethodGet, "/api/v1/server/status", "")
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		Expect(errorCode(rec)).To(Equal("UNAUTHENTICATED"))
	})

	It("lets any operator read the status", func() {
		rec := do(http.MethodGet, "/api/v1/server/status", "viewer-token")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"state":"stopped"`))
	})

	It("enforces the permission table before running commands", func() {
		rec := do(http.MethodPost, "/api/v1/server/start", "viewer-token")
		Expect(rec.Code).To(Equal(http.StatusForbidden))
		Expect(errorCode(rec)).To(Equal("FORBIDDEN"))
		Expect(sup.starts).To(BeZero())

		rec = do(http.MethodPost, "/api/v1/server/start", "admin-token")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(sup.starts).To(Equal(1))
	})

	It("keeps the console behind its own permission", func() {
		Expect(do(http.MethodGet, "/api/v1/server/logs?lines=20", "viewer-token").Code).To(Equal(http.StatusForbidden))
		rec := do(http.MethodGet, "/api/v1/server/logs?type=loader&lines=20", "admin-token")
		Expect(rec.Code).To(Equal(http.StatusOK))
		var tail supervisor.LogTail
		Expect(json.Unmarshal(rec.Body.Bytes(), &tail)).To(Succeed())
		Expect(tail.Type).To(Equal("loader"))
		Expect(tail.Lines).To(HaveLen(20))
	})

	It("reserves backup deletion for owners", func() {
		Expect(do(http.MethodDelete, "/api/v1/backups/1", "admin-token").Code).To(Equal(http.StatusForbidden))
	})

	It("tags every response with a trace id", func() {
		Expect(do(http.MethodGet, "/api/v1/ping", "").Header().Get("X-Trace-ID")).NotTo(BeEmpty())
	})

	It("serves the embedded OpenAPI document", func() {
		rec := do(http.MethodGet, "/openapi.yml", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Bytes()).To(Equal(api.OpenAPISpec))
	})

	It("documents every API route", func() {
		doc, err := openapi3.NewLoader().LoadFromData(api.OpenAPISpec)
		Expect(err).NotTo(HaveOccurred())

		var undocumented []string
		err = chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
			if !strings.HasPrefix(route, "/api/v1/") {
				return nil
			}
			path := strings.TrimSuffix(strings.TrimPrefix(route, "/api/v1"), "/")
			item := doc.Paths.Value(path)
			if item == nil || item.GetOperation(method) == nil {
				undocumented = append(undocumented, method+" "+path)
			}
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(undocumented).To(BeEmpty())
	})
})
