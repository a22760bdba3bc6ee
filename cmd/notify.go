package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/frahmantamala/gameserver-admin/internal/core/events"
	"github.com/frahmantamala/gameserver-admin/internal/database"
	"github.com/frahmantamala/gameserver-admin/internal/notify"
	notifyPostgres "github.com/frahmantamala/gameserver-admin/internal/notify/postgres"
	"github.com/frahmantamala/gameserver-admin/pkg/logger"
	"github.com/spf13/cobra"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Webhook notification commands",
}

var publishNotifyCmd = &cobra.Command{
	Use:   "publish [event]",
	Short: "Send a test notification to subscribed webhooks",
	Long:  `Render the event message and deliver it to every enabled webhook subscribed to the event, then report the outcome.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishTestNotification(cmd, args[0])
	},
}

var (
	notifyUser     string
	notifyFilename string
)

func publishTestNotification(cmd *cobra.Command, eventName string) error {
	if !events.IsKnownEvent(eventName) {
		return fmt.Errorf("unknown event %q, expected one of %v", eventName, events.KnownEvents)
	}

	cfg, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	setupLogger(cfg)
	lg := logger.LoggerWrapper()

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	pool := notify.NewPool(notify.PoolConfig{
		Workers:   cfg.Notify.Workers,
		QueueSize: cfg.Notify.QueueSize,
		Timeout:   cfg.Notify.Timeout,
	}, nil, lg)
	defer pool.Shutdown()

	results := make(chan error, cfg.Notify.QueueSize+1)
	pool.OnDelivered(func(_ notify.DeliveryJob, err error) { results <- err })

	repo := notifyPostgres.NewWebhookRepository(db.Gorm)
	dispatcher := notify.NewDispatcher(repo, repo, pool, notify.Style{
		ThumbnailURL: cfg.Notify.ThumbnailURL,
		FooterText:   cfg.Notify.FooterText,
	}, lg)

	data := map[string]interface{}{"user": notifyUser}
	if notifyFilename != "" {
		data["filename"] = notifyFilename
	}

	queued, err := dispatcher.Publish(context.Background(), eventName, data)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if queued == 0 {
		fmt.Fprintf(out, "no enabled webhook is subscribed to %s\n", eventName)
		return nil
	}

	timeout := time.After(cfg.Notify.Timeout + 5*time.Second)
	failed := 0
	for i := 0; i < queued; i++ {
		select {
		case err := <-results:
			if err != nil {
				failed++
			}
		case <-timeout:
			return fmt.Errorf("timed out waiting for %d deliveries", queued-i)
		}
	}

	fmt.Fprintf(out, "%s: %d delivered, %d failed\n", eventName, queued-failed, failed)
	return nil
}

func init() {
	publishNotifyCmd.Flags().StringVar(&notifyUser, "user", "cli", "operator name shown in the message")
	publishNotifyCmd.Flags().StringVar(&notifyFilename, "filename", "", "backup filename for backup_created")

	notifyCmd.AddCommand(publishNotifyCmd)
}
