package database_test

import (
	"context"
	"path/filepath"
	"time"

	"github.com/frahmantamala/gameserver-admin/internal"
	"github.com/frahmantamala/gameserver-admin/internal/core/datamodel/schedule"
	"github.com/frahmantamala/gameserver-admin/internal/database"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("DetectDialect", func() {
	DescribeTable("maps DSNs to dialects",
		func(dsn, expected string) {
			dialect, err := database.DetectDialect(dsn)
			Expect(err).NotTo(HaveOccurred())
			Expect(dialect).To(Equal(expected))
		},
		Entry("postgres url", "postgres://u:p@localhost:5432/admin", database.DialectPostgres),
		Entry("postgresql url", "postgresql://localhost/admin", database.DialectPostgres),
		Entry("keyword dsn", "host=localhost dbname=admin sslmode=disable", database.DialectPostgres),
		Entry("file uri", "file:data/admin.db", database.DialectSQLite),
		Entry("bare path", "admin.db", database.DialectSQLite),
	)

	It("rejects unknown schemes", func() {
		_, err := database.DetectDialect("mysql://localhost/admin")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Open and Migrate", func() {
	It("creates the schema on a fresh sqlite file and rolls it back", func() {
		path := filepath.Join(GinkgoT().TempDir(), "nested", "admin.db")
		db, err := database.Open(internal.DatabaseConfig{Source: "file:" + path})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(db.Close)

		Expect(database.Migrate(context.Background(), db, false)).To(Succeed())

		for _, table := range []string{"operators", "sessions", "invites", "audit_log", "backups", "webhooks", "scheduled_tasks"} {
			Expect(db.Gorm.Migrator().HasTable(table)).To(BeTrue(), table)
		}

		Expect(database.Migrate(context.Background(), db, true)).To(Succeed())
		Expect(db.Gorm.Migrator().HasTable("operators")).To(BeFalse())
	})
})

var _ = Describe("Reserved schedule table", func() {
	It("stores scheduled tasks with nullable run times", func() {
		db, err := database.Open(internal.DatabaseConfig{Source: "file:" + filepath.Join(GinkgoT().TempDir(), "admin.db")})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(db.Close)
		Expect(database.Migrate(context.Background(), db, false)).To(Succeed())

		next := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
		task := &schedule.ScheduledTask{Type: "backup", Schedule: "0 */6 * * *", Enabled: true, NextRun: &next}
		Expect(db.Gorm.Create(task).Error).To(Succeed())
		Expect(task.ID).NotTo(BeZero())

		var loaded schedule.ScheduledTask
		Expect(db.Gorm.First(&loaded, task.ID).Error).To(Succeed())
		Expect(loaded.Schedule).To(Equal("0 */6 * * *"))
		Expect(loaded.LastRun).To(BeNil())
		Expect(loaded.NextRun).NotTo(BeNil())
		Expect(loaded.NextRun.Equal(next)).To(BeTrue())
	})
})
