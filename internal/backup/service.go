package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/frahmantamala/gameserver-admin/internal"
	"github.com/frahmantamala/gameserver-admin/internal/audit"
	backupDatamodel "github.com/frahmantamala/gameserver-admin/internal/core/datamodel/backup"
	"github.com/frahmantamala/gameserver-admin/internal/core/events"
	"github.com/frahmantamala/gameserver-admin/internal/core/operator"
	"github.com/frahmantamala/gameserver-admin/internal/supervisor"
)

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Config struct {
	BackupDir string
	SavesDir  string
}

type Service struct {
	cfg    Config
	repo   Repository
	server ServerGuard
	mirror Mirror
	audit  audit.Recorder
	bus    Publisher
	logger *slog.Logger

	// serializes archive creation so two requests never zip the saves at once
	createMu sync.Mutex
	now      func() time.Time
}

func NewService(cfg Config, repo Repository, server ServerGuard, mirror Mirror, recorder audit.Recorder, bus Publisher, logger *slog.Logger) *Service {
	return &Service{
		cfg:    cfg,
		repo:   repo,
		server: server,
		mirror: mirror,
		audit:  recorder,
		bus:    bus,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) archivePath(filename string) string {
	return filepath.Join(s.cfg.BackupDir, filepath.Base(filename))
}

func (s *Service) List(ctx context.Context) ([]*Backup, error) {
	recs, err := s.repo.List(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to list backups", err)
	}

	out := make([]*Backup, 0, len(recs))
	for i := range recs {
		b := FromRecord(&recs[i])
		if _, err := os.Stat(s.archivePath(b.Filename)); err != nil {
			b.FileMissing = true
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, actor *operator.Operator, dto CreateBackupDTO) (*Backup, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	ok, err := HasFiles(s.cfg.SavesDir)
	if err != nil {
		s.logger.Error("failed to inspect save directory", "error", err)
		return nil, internal.ErrArchiveFailed.Wrap(err)
	}
	if !ok {
		return nil, internal.ErrNoSaveData
	}

	filename := s.uniqueFilename()
	dest := s.archivePath(filename)
	size, err := CreateArchive(s.cfg.SavesDir, dest)
	if err != nil {
		s.logger.Error("backup archive failed", "filename", filename, "error", err)
		return nil, internal.ErrArchiveFailed.Wrap(err)
	}

	row := &backupDatamodel.Backup{
		Filename:  filename,
		SizeBytes: size,
		Kind:      KindManual,
		CreatedBy: &actor.ID,
		Notes:     dto.Notes,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		_ = os.Remove(dest)
		return nil, internal.NewInternalError("failed to record backup", err)
	}

	s.audit.Record(ctx, &actor.ID, audit.ActionBackupCreate, fmt.Sprintf("Created backup: %s", filename))
	s.logger.Info("backup created", "backup_id", row.ID, "filename", filename, "size_bytes", size)

	if s.mirror != nil {
		go s.mirror.Upload(context.WithoutCancel(ctx), dest, filename)
	}
	if s.bus != nil {
		event := events.NewNotification(events.EventBackupCreated, map[string]interface{}{
			"user":     actor.Username,
			"filename": filename,
		})
		if err := s.bus.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish backup event", "error", err)
		}
	}

	b := FromRow(row)
	b.CreatedByUsername = actor.Username
	return b, nil
}

// uniqueFilename steps past a name already on disk, which only happens when
// two backups land in the same millisecond.
func (s *Service) uniqueFilename() string {
	at := s.now()
	for {
		name := FilenameFor(at)
		if _, err := os.Stat(s.archivePath(name)); errors.Is(err, fs.ErrNotExist) {
			return name
		}
		at = at.Add(time.Millisecond)
	}
}

// Restore replaces the live saves with the archive contents. It holds the
// supervisor's command lock so the server cannot be started mid restore.
func (s *Service) Restore(ctx context.Context, actor *operator.Operator, id int64) error {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return internal.NewInternalError("failed to load backup", err)
	}
	if row == nil {
		return internal.ErrBackupNotFound
	}
	archive := s.archivePath(row.Filename)
	if _, err := os.Stat(archive); err != nil {
		return internal.ErrBackupFileMissing
	}

	return s.server.Exclusive(ctx, func(ctx context.Context) error {
		status, err := s.server.Status(ctx)
		if err != nil {
			return err
		}
		// a launch still coming up counts as running
		if status.Running || status.State != supervisor.StateStopped {
			return internal.ErrServerMustBeStopped
		}

		if err := s.swapSaves(archive); err != nil {
			return err
		}

		s.audit.Record(ctx, &actor.ID, audit.ActionBackupRestore, fmt.Sprintf("Restored backup: %s", row.Filename))
		s.logger.Info("backup restored", "backup_id", row.ID, "filename", row.Filename)
		return nil
	})
}

// swapSaves extracts next to the save directory first, so a corrupt archive
// leaves the live saves untouched.
func (s *Service) swapSaves(archive string) error {
	saves := filepath.Clean(s.cfg.SavesDir)
	parent := filepath.Dir(saves)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return internal.ErrExtractFailed.Wrap(err)
	}

	staging, err := os.MkdirTemp(parent, ".restore-*")
	if err != nil {
		return internal.ErrExtractFailed.Wrap(err)
	}
	defer os.RemoveAll(staging)

	extracted := filepath.Join(staging, "saves")
	if err := ExtractArchive(archive, extracted); err != nil {
		s.logger.Error("backup extract failed", "archive", filepath.Base(archive), "error", err)
		return internal.ErrExtractFailed.Wrap(err)
	}

	previous := filepath.Join(staging, "previous")
	hadSaves := true
	if err := os.Rename(saves, previous); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return internal.ErrExtractFailed.Wrap(err)
		}
		hadSaves = false
	}
	if err := os.Rename(extracted, saves); err != nil {
		if hadSaves {
			if rerr := os.Rename(previous, saves); rerr != nil {
				s.logger.Error("failed to put saves back after restore failure", "error", rerr)
			}
		}
		return internal.ErrExtractFailed.Wrap(err)
	}
	return nil
}

// Delete removes the archive, then the row. A file that is already gone is
// not an error.
func (s *Service) Delete(ctx context.Context, actor *operator.Operator, id int64) error {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return internal.NewInternalError("failed to load backup", err)
	}
	if row == nil {
		return internal.ErrBackupNotFound
	}

	if err := os.Remove(s.archivePath(row.Filename)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("failed to remove backup archive", "filename", row.Filename, "error", err)
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return internal.NewInternalError("failed to delete backup", err)
	}
	if !deleted {
		return internal.ErrBackupNotFound
	}

	if s.mirror != nil {
		go s.mirror.Remove(context.WithoutCancel(ctx), row.Filename)
	}
	s.audit.Record(ctx, &actor.ID, audit.ActionBackupDelete, fmt.Sprintf("Deleted backup: %s", row.Filename))
	return nil
}

func (s *Service) Saves(ctx context.Context) []SaveFile {
	return ListSaves(s.cfg.SavesDir)
}
