package gameconfig_test

import (
	"os"
	"path/filepath"

	"github.com/frahmantamala/gameserver-admin/internal/gameconfig"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const sample = `## Settings file was created by plugin Techtonica Dedicated Server
## Plugin GUID: com.community.techtonicadedicatedserver

[General]

# Setting type: Boolean
EnableDirectConnect = false
ServerName = My Factory = Best Factory

[Server]
AutoStartServer = false
; legacy
MaxPlayers=8
this line has no separator
`

var _ = Describe("Config document", func() {
	Describe("Parse", func() {
		It("reads sections in order and skips comments and bare lines", func() {
			doc := gameconfig.Parse(sample)

			Expect(doc.Sections()).To(HaveLen(2))
			Expect(doc.Sections()[0].Name).To(Equal("General"))
			Expect(doc.Sections()[0].Keys()).To(Equal([]string{"EnableDirectConnect", "ServerName"}))
			Expect(doc.Sections()[1].Keys()).To(Equal([]string{"AutoStartServer", "MaxPlayers"}))

			v, ok := doc.Get("Server", "MaxPlayers")
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal("8"))
		})

		It("splits on the first equals sign only", func() {
			v, _ := gameconfig.Parse(sample).Get("General", "ServerName")
			Expect(v).To(Equal("My Factory = Best Factory"))
		})

		It("drops keys that appear before any section", func() {
			doc := gameconfig.Parse("orphan = 1\n[A]\nkey = 2\n")
			Expect(doc.Sections()).To(HaveLen(1))
			_, ok := doc.Get("", "orphan")
			Expect(ok).To(BeFalse())
		})

		It("continues a section whose header repeats", func() {
			doc := gameconfig.Parse("[A]\nx = 1\n[B]\ny = 2\n[A]\nz = 3\nx = 4\n")
			Expect(doc.Sections()).To(HaveLen(2))
			Expect(doc.Sections()[0].Keys()).To(Equal([]string{"x", "z"}))
			v, _ := doc.Get("A", "x")
			Expect(v).To(Equal("4"))
		})

		It("accepts windows line endings", func() {
			doc := gameconfig.Parse("[A]\r\nkey = value\r\n")
			v, ok := doc.Get("A", "key")
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal("value"))
		})
	})

	Describe("Serialize", func() {
		It("writes the header, sections and keys in insertion order", func() {
			doc := gameconfig.NewDocument()
			doc.Set("Server", "HeadlessMode", "true")
			doc.Set("General", "ServerName", "x")

			Expect(doc.Serialize()).To(Equal(gameconfig.Header + "\n\n" +
				"[Server]\n\nHeadlessMode = true\n\n" +
				"[General]\n\nServerName = x\n\n"))
		})

		DescribeTable("keeps Parse after Serialize stable",
			func(text string) {
				first := gameconfig.Parse(text)
				second := gameconfig.Parse(first.Serialize())
				Expect(second.Equal(first)).To(BeTrue())
				Expect(second.Serialize()).To(Equal(first.Serialize()))
			},
			Entry("plugin file", sample),
			Entry("empty", ""),
			Entry("empty section", "[Empty]\n[Full]\na=b\n"),
			Entry("values with equals and spaces", "[S]\n  key   =   a = b  \n"),
			Entry("comments only", "# nothing\n; here\n"),
		)
	})

	Describe("ForceHeadless", func() {
		It("sets the unattended start flags and keeps other keys", func() {
			doc := gameconfig.Parse(sample)
			gameconfig.ForceHeadless(doc)

			for section, key := range map[string]string{
				"Server":  "AutoStartServer",
				"General": "EnableDirectConnect",
			} {
				v, _ := doc.Get(section, key)
				Expect(v).To(Equal("true"))
			}
			v, _ := doc.Get("Server", "HeadlessMode")
			Expect(v).To(Equal("true"))
			v, _ = doc.Get("Server", "MaxPlayers")
			Expect(v).To(Equal("8"))
		})
	})

	Describe("files", func() {
		var path string

		BeforeEach(func() {
			path = filepath.Join(GinkgoT().TempDir(), "config", "server.cfg")
		})

		It("treats a missing file as an empty document", func() {
			doc, err := gameconfig.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.Sections()).To(BeEmpty())
		})

		It("saves and loads a document", func() {
			doc := gameconfig.Parse(sample)
			Expect(gameconfig.Save(path, doc)).To(Succeed())

			loaded, err := gameconfig.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Equal(doc)).To(BeTrue())

			entries, err := os.ReadDir(filepath.Dir(path))
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
		})

		It("restores a snapshot, removing a file that did not exist", func() {
			snap, err := gameconfig.TakeSnapshot(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(gameconfig.WriteRaw(path, "[A]\nb = c\n")).To(Succeed())

			Expect(snap.Restore()).To(Succeed())
			_, err = os.Stat(path)
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		It("restores a snapshot byte for byte", func() {
			Expect(gameconfig.WriteRaw(path, sample)).To(Succeed())
			snap, err := gameconfig.TakeSnapshot(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(gameconfig.WriteRaw(path, "[A]\n")).To(Succeed())

			Expect(snap.Restore()).To(Succeed())
			raw, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(raw)).To(Equal(sample))
		})
	})
})
