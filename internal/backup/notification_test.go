package backup_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/frahmantamala/gameserver-admin/internal"
	"github.com/frahmantamala/gameserver-admin/internal/backup"
	backupPostgres "github.com/frahmantamala/gameserver-admin/internal/backup/postgres"
	"github.com/frahmantamala/gameserver-admin/internal/core/events"
	"github.com/frahmantamala/gameserver-admin/internal/core/operator"
	"github.com/frahmantamala/gameserver-admin/internal/database"
	"github.com/frahmantamala/gameserver-admin/internal/notify"
	notifyPostgres "github.com/frahmantamala/gameserver-admin/internal/notify/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type hookSink struct {
	mu     sync.Mutex
	bodies []string
}

func (s *hookSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.bodies = append(s.bodies, string(body))
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *hookSink) Bodies() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.bodies...)
}

var _ = Describe("Backup notifications", func() {
	It("notifies only the webhooks subscribed to backup_created", func() {
		ctx := context.Background()
		root := GinkgoT().TempDir()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		db, err := database.Open(internal.DatabaseConfig{Source: "file:" + filepath.Join(root, "admin.db")})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(db.Close)
		Expect(database.Migrate(ctx, db, false)).To(Succeed())
		Expect(db.Gorm.Exec("INSERT INTO operators (username, password_hash, role) VALUES (?, ?, ?)", "alice", "x", "owner").Error).To(Succeed())
		actor := &operator.Operator{ID: 1, Username: "alice", Role: "owner"}

		backups, starts := &hookSink{}, &hookSink{}
		backupServer := httptest.NewServer(backups)
		DeferCleanup(backupServer.Close)
		startServer := httptest.NewServer(starts)
		DeferCleanup(startServer.Close)

		hooks := notifyPostgres.NewWebhookRepository(db.Gorm)
		webhooks := notify.NewService(hooks, &mockRecorder{}, logger)
		_, err = webhooks.Create(ctx, actor, notify.CreateWebhookDTO{Name: "backups", URL: backupServer.URL, Events: []string{"backup_created"}})
		Expect(err).NotTo(HaveOccurred())
		_, err = webhooks.Create(ctx, actor, notify.CreateWebhookDTO{Name: "starts", URL: startServer.URL, Events: []string{"server_start"}})
		Expect(err).NotTo(HaveOccurred())

		pool := notify.NewPool(notify.PoolConfig{Workers: 1, QueueSize: 10, Timeout: time.Second}, nil, logger)
		DeferCleanup(pool.Shutdown)
		bus := events.NewEventBus(logger)
		notify.NewDispatcher(hooks, hooks, pool, notify.Style{}, logger).Register(bus)

		cfg := backup.Config{BackupDir: filepath.Join(root, "backups"), SavesDir: filepath.Join(root, "saves")}
		writeFile(filepath.Join(cfg.SavesDir, "slot.dat"), "world")
		service := backup.NewService(cfg, backupPostgres.NewBackupRepository(db.Gorm), &fakeServer{}, nil, &mockRecorder{}, bus, logger)

		created, err := service.Create(ctx, actor, backup.CreateBackupDTO{})
		Expect(err).NotTo(HaveOccurred())

		Eventually(backups.Bodies).Should(HaveLen(1))
		Consistently(backups.Bodies, 300*time.Millisecond).Should(HaveLen(1))
		Expect(backups.Bodies()[0]).To(ContainSubstring(created.Filename))
		Expect(starts.Bodies()).To(BeEmpty())
	})
})
