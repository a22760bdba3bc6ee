package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"time"

	"github.com/frahmantamala/gameserver-admin/internal"
	"github.com/frahmantamala/gameserver-admin/internal/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"
)

var _ = Describe("config init", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		GinkgoT().Setenv("APP_ENV", "")
		GinkgoT().Setenv("DOCKER_ENV", "")
	})

	It("writes a config that loads back into the defaults", func() {
		path := filepath.Join(dir, "config.yml")
		Expect(writeDefaultConfig(path, false)).To(Succeed())

		info, err := os.Stat(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))

		cfg, err := loadConfig(dir)
		Expect(err).NotTo(HaveOccurred())
		defaults := internal.DefaultConfig()
		Expect(cfg.Server.Port).To(Equal(defaults.Server.Port))
		Expect(cfg.Security.SessionTTL).To(Equal(7 * 24 * time.Hour))
		Expect(cfg.Game.RestartSettleDelay).To(Equal(3 * time.Second))
		Expect(cfg.Game.Args).To(Equal(defaults.Game.Args))
		Expect(cfg.Status.Interval).To(Equal(5 * time.Second))
	})

	It("refuses to overwrite an existing file without force", func() {
		path := filepath.Join(dir, "config.yml")
		Expect(os.WriteFile(path, []byte("http_server:\n  port: 8080\n"), 0o600)).To(Succeed())

		Expect(writeDefaultConfig(path, false)).To(MatchError(ContainSubstring("already exists")))
		Expect(writeDefaultConfig(path, true)).To(Succeed())
	})

	It("layers a partial file over the defaults", func() {
		Expect(os.WriteFile(filepath.Join(dir, "config.yml"), []byte(
			"http_server:\n  port: 8080\ngame:\n  stop_timeout: 45s\n"), 0o600)).To(Succeed())

		cfg, err := loadConfig(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Server.Port).To(Equal(8080))
		Expect(cfg.Game.StopTimeout).To(Equal(45 * time.Second))
		Expect(cfg.Game.Executable).To(Equal("Techtonica.exe"))
	})

	It("points at config init when no file exists", func() {
		_, err := loadConfig(dir)
		Expect(err).To(MatchError(ContainSubstring("config init")))
	})

	It("rejects an invalid file", func() {
		Expect(os.WriteFile(filepath.Join(dir, "config.yml"), []byte(
			"security:\n  bcrypt_cost: 2\n"), 0o600)).To(Succeed())

		_, err := loadConfig(dir)
		Expect(err).To(MatchError(ContainSubstring("bcrypt_cost")))
	})
})

var _ = Describe("bootstrap report", func() {
	report := func(result *user.BootstrapResult) string {
		var buf bytes.Buffer
		c := &cobra.Command{}
		c.SetOut(&buf)
		reportBootstrap(c, result)
		return buf.String()
	}

	It("prints a generated password once", func() {
		out := report(&user.BootstrapResult{Created: true, Username: "admin", GeneratedPassword: "s3cretpass"})
		Expect(out).To(ContainSubstring("s3cretpass"))
		Expect(out).To(ContainSubstring(`"admin"`))
	})

	It("says nothing was done when operators exist", func() {
		Expect(report(&user.BootstrapResult{})).To(ContainSubstring("nothing to do"))
	})
})
