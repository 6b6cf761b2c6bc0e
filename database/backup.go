package database

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"time"
)

const (
	backupLayout = "20060102-150405"
	// The newest backups survive a purge whatever their age.
	minBackupsKept = 3
)

var backupName = regexp.MustCompile(`^skyphase-v(\d+)-(\d{8}-\d{6})\.db\.gz$`)

// BackupFile is a compressed snapshot in the backups directory next to the database.
type BackupFile struct {
	Path          string
	SchemaVersion int
	Created       time.Time
}

func (d *Database) backupDir() string {
	return filepath.Join(filepath.Dir(d.path), "backups")
}

// Backup writes a gzip compressed snapshot named after the schema version
// and local time. A database without fetch history is not backed up.
func (d *Database) Backup(ctx context.Context) error {
	var tables int
	if err := d.read.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'fetch_cycle'`).Scan(&tables); err != nil {
		return fmt.Errorf("checking fetch_cycle table: %w", err)
	}
	if tables == 0 {
		d.logger.Debug("no fetch history yet, skipping backup")
		return nil
	}

	version, err := d.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	dir := d.backupDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	now := time.Now().In(time.Local)
	snapshot := filepath.Join(dir, fmt.Sprintf(".snapshot-%d.db", now.UnixNano()))
	if _, err := d.write.ExecContext(ctx, "VACUUM INTO ?", snapshot); err != nil {
		return fmt.Errorf("vacuuming database into '%s': %w", snapshot, err)
	}
	defer os.Remove(snapshot)

	dest := filepath.Join(dir, fmt.Sprintf("skyphase-v%d-%s.db.gz", version, now.Format(backupLayout)))
	if err := compressFile(snapshot, dest, filepath.Base(d.path), now); err != nil {
		os.Remove(dest)
		return err
	}

	d.logger.Info("database backup complete", slog.String("filename", dest), slog.Int("schemaVersion", version))
	return nil
}

func compressFile(src, dest, name string, modTime time.Time) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open snapshot for compression: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create backup file: %w", err)
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	gz.Name = name
	gz.ModTime = modTime

	if _, err := io.Copy(gz, in); err != nil {
		return fmt.Errorf("compress snapshot: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("finalize backup file: %w", err)
	}
	return out.Close()
}

// Backups lists the backup files, newest first. Other files in the
// directory are ignored.
func (d *Database) Backups() ([]BackupFile, error) {
	dir := d.backupDir()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []BackupFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	backups := []BackupFile{}
	for _, e := range entries {
		m := backupName.FindStringSubmatch(e.Name())
		if e.IsDir() || m == nil {
			continue
		}
		version, _ := strconv.Atoi(m[1])
		// Names carry local time.
		created, err := time.ParseInLocation(backupLayout, m[2], time.Local)
		if err != nil {
			d.logger.Debug("failed to parse backup timestamp", slog.String("filename", e.Name()), slog.Any("error", err))
			continue
		}
		backups = append(backups, BackupFile{
			Path:          filepath.Join(dir, e.Name()),
			SchemaVersion: version,
			Created:       created,
		})
	}

	slices.SortFunc(backups, func(a, b BackupFile) int {
		return b.Created.Compare(a.Created)
	})
	return backups, nil
}

// PurgeBackups removes backups older than retentionDays, the newest
// minBackupsKept are always kept.
func (d *Database) PurgeBackups(ctx context.Context, retentionDays int) error {
	if retentionDays < 1 {
		return nil
	}
	retention := time.Duration(retentionDays) * 24 * time.Hour

	backups, err := d.Backups()
	if err != nil {
		return err
	}

	removed := 0
	for i, b := range backups {
		if i < minBackupsKept || time.Since(b.Created) <= retention {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		d.logger.Debug("deleting old backup", slog.String("path", b.Path))
		if err := os.Remove(b.Path); err != nil {
			return fmt.Errorf("remove old backup '%s': %w", b.Path, err)
		}
		removed++
	}

	d.logger.Info("backup purge complete", slog.Int("removed", removed), slog.Int("kept", len(backups)-removed))
	return nil
}
