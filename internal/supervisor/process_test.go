package supervisor_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/frahmantamala/gameserver-admin/internal/supervisor"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("OS process control", func() {
	var (
		ctx      context.Context
		duration string
		probe    *supervisor.ProcProbe
	)

	BeforeEach(func() {
		if _, err := os.Stat("/proc/self/cmdline"); err != nil {
			Skip("procfs not available")
		}
		if _, err := exec.LookPath("sleep"); err != nil {
			Skip("sleep not available")
		}
		ctx = context.Background()
		// an unusual duration makes the command line unique to this test
		duration = fmt.Sprintf("%d.%d", 600+GinkgoParallelProcess(), time.Now().UnixNano()%100000)

		var err error
		probe, err = supervisor.NewProcProbe("", `sleep `+duration+`$`)
		Expect(err).NotTo(HaveOccurred())
	})

	It("launches, finds and terminates a process by its signature", func() {
		info, err := probe.Find(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(info).To(BeNil())

		logFile := filepath.Join(GinkgoT().TempDir(), "logs", "game.log")
		launcher := &supervisor.ExecLauncher{
			Command: "sleep",
			Args:    []string{duration},
			Env:     []string{"DISPLAY=:99"},
			LogFile: logFile,
		}
		Expect(launcher.Launch(ctx)).To(Succeed())
		Expect(logFile).To(BeAnExistingFile())

		Eventually(func() *supervisor.ProcessInfo {
			info, _ := probe.Find(ctx)
			return info
		}, 5*time.Second).ShouldNot(BeNil())

		info, err = probe.Find(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.PID).To(BeNumerically(">", 0))
		Expect(info.Uptime).To(BeNumerically("<", time.Minute))

		Expect(supervisor.SignalTerminator{}.Terminate(info.PID)).To(Succeed())
		Eventually(func() *supervisor.ProcessInfo {
			info, _ := probe.Find(ctx)
			return info
		}, 5*time.Second).Should(BeNil())
	})

	It("reports a launch command that cannot be executed", func() {
		launcher := &supervisor.ExecLauncher{Command: filepath.Join(GinkgoT().TempDir(), "missing-binary")}
		Expect(launcher.Launch(ctx)).NotTo(Succeed())
	})

	It("rejects signalling a bogus pid", func() {
		Expect(supervisor.SignalTerminator{}.Terminate(0)).NotTo(Succeed())
	})

	It("rejects an invalid signature", func() {
		_, err := supervisor.NewProcProbe("", `(`)
		Expect(err).To(HaveOccurred())
	})
})
