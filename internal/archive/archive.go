package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ArchiveDatabase moves the annotation database aside with a timestamp,
// so the next start begins from an empty cache. Run it while the service
// is stopped.
func ArchiveDatabase(dbPath string) error {
	// Check if the database exists
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("database does not exist: %s", dbPath)
	}

	// Get parent directory and create archive path
	parentDir := filepath.Dir(dbPath)
	archiveDir := filepath.Join(parentDir, "archive")

	// Create archive directory if it doesn't exist
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	// Generate timestamp
	timestamp := time.Now().Format("20060102-150405")
	archiveName := fmt.Sprintf("lyrics-%s.db", timestamp)
	archivePath := filepath.Join(archiveDir, archiveName)

	// Check if archive already exists (unlikely but possible)
	if _, err := os.Stat(archivePath); err == nil {
		// Add microseconds to make it unique
		timestamp = time.Now().Format("20060102-150405.000000")
		archiveName = fmt.Sprintf("lyrics-%s.db", timestamp)
		archivePath = filepath.Join(archiveDir, archiveName)
	}

	// Move the database into the archive
	if err := os.Rename(dbPath, archivePath); err != nil {
		return fmt.Errorf("failed to archive database: %w", err)
	}

	fmt.Printf("Database archived to: %s\n", archivePath)
	return nil
}
