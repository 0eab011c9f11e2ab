package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformBackup(t *testing.T) {
	logger := zerolog.Nop()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "bookings.db")

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	backupDir := filepath.Join(dir, "backups")
	svc := NewBackupService(dbPath, config.BackupConfig{
		Enabled:       true,
		Interval:      time.Hour,
		RetentionDays: 14,
		StoragePath:   backupDir,
	}, &logger)

	require.NoError(t, svc.PerformBackup())

	files, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Contains(t, files[0].Name(), "bookings_")

	// The copy is a valid database on its own.
	copyPath := filepath.Join(backupDir, files[0].Name())
	copied, err := NewDB(copyPath, &logger)
	require.NoError(t, err)
	copied.Close()
}

func TestCleanupOldBackups(t *testing.T) {
	logger := zerolog.Nop()
	backupDir := t.TempDir()

	oldFile := filepath.Join(backupDir, "bookings_20200101_000000.db")
	require.NoError(t, os.WriteFile(oldFile, []byte("stale"), 0o644))
	stale := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(oldFile, stale, stale))

	freshFile := filepath.Join(backupDir, "bookings_recent.db")
	require.NoError(t, os.WriteFile(freshFile, []byte("fresh"), 0o644))

	svc := NewBackupService("unused.db", config.BackupConfig{
		RetentionDays: 14,
		StoragePath:   backupDir,
	}, &logger)
	svc.CleanupOldBackups()

	_, err := os.Stat(oldFile)
	assert.True(t, os.IsNotExist(err), "backups past retention must be deleted")
	_, err = os.Stat(freshFile)
	assert.NoError(t, err)
}
