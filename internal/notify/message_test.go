package notify_test

import (
	"time"

	"github.com/frahmantamala/gameserver-admin/internal/notify"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BuildMessage", func() {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	style := notify.Style{ThumbnailURL: "https://example.com/icon.png", FooterText: "Techtonica Server"}

	It("renders conventional fields in a fixed order", func() {
		msg := notify.BuildMessage("backup_created", map[string]interface{}{
			"reason":   "nightly",
			"filename": "backup-2024.zip",
			"user":     "alice",
		}, "", style, at)

		Expect(msg.Embeds).To(HaveLen(1))
		embed := msg.Embeds[0]
		Expect(embed.Title).To(Equal("Backup Created"))
		Expect(embed.Color).To(Equal(0x3b82f6))
		Expect(embed.Timestamp).To(Equal("2024-05-01T12:00:00Z"))
		Expect(embed.Thumbnail.URL).To(Equal(style.ThumbnailURL))
		Expect(embed.Footer.Text).To(Equal("Techtonica Server"))

		Expect(embed.Fields).To(Equal([]notify.Field{
			{Name: "Triggered By", Value: "alice", Inline: true},
			{Name: "File", Value: "`backup-2024.zip`", Inline: true},
			{Name: "Reason", Value: "nightly", Inline: false},
		}))
	})

	It("mentions a linked identity instead of the username", func() {
		msg := notify.BuildMessage("server_start", map[string]interface{}{"user": "alice"}, "123456789012345678", style, at)
		Expect(msg.Embeds[0].Fields[0].Value).To(Equal("<@123456789012345678>"))
	})

	It("falls back to the default presentation and title-cases extra keys", func() {
		msg := notify.BuildMessage("custom_event", map[string]interface{}{
			"player_count": 3,
			"map":          "Valley",
		}, "", notify.Style{}, at)

		embed := msg.Embeds[0]
		Expect(embed.Title).To(Equal("Server Event"))
		Expect(embed.Color).To(Equal(0xa78bfa))
		Expect(embed.Thumbnail).To(BeNil())
		Expect(embed.Footer).To(BeNil())
		Expect(embed.Fields).To(Equal([]notify.Field{
			{Name: "Map", Value: "Valley", Inline: true},
			{Name: "Player count", Value: "3", Inline: true},
		}))
	})
})
