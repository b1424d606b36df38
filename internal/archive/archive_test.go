package archive

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestArchiveDatabase(t *testing.T) {
	// Create temp directory
	tmpDir := t.TempDir()

	// Create a database file with some content
	dbPath := filepath.Join(tmpDir, "lyrics.db")
	if err := os.WriteFile(dbPath, []byte("db content"), 0644); err != nil {
		t.Fatalf("Failed to create database file: %v", err)
	}

	// Archive the database
	if err := ArchiveDatabase(dbPath); err != nil {
		t.Fatalf("ArchiveDatabase failed: %v", err)
	}

	// Check that the database file no longer exists
	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Error("Database file still exists after archiving")
	}

	// Check that archive directory was created
	archiveDir := filepath.Join(tmpDir, "archive")
	if _, err := os.Stat(archiveDir); os.IsNotExist(err) {
		t.Error("Archive directory was not created")
	}

	// Check that the archived database exists with timestamp
	entries, err := os.ReadDir(archiveDir)
	if err != nil {
		t.Fatalf("Failed to read archive directory: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry in archive directory, got %d", len(entries))
	}

	// Verify the archived name follows lyrics-<timestamp>.db
	archivedName := entries[0].Name()
	if !strings.HasPrefix(archivedName, "lyrics-") {
		t.Errorf("Archived name doesn't start with 'lyrics-': %s", archivedName)
	}
	if !strings.HasSuffix(archivedName, ".db") {
		t.Errorf("Archived name doesn't end with '.db': %s", archivedName)
	}

	// Verify timestamp format (should be lyrics-YYYYMMDD-HHMMSS.db)
	parts := strings.Split(archivedName, "-")
	if len(parts) < 3 {
		t.Errorf("Invalid archive name format: %s", archivedName)
	}

	// Check that the archived file kept its content
	archivedPath := filepath.Join(archiveDir, archivedName)
	data, err := os.ReadFile(archivedPath)
	if err != nil {
		t.Fatalf("Failed to read archived database: %v", err)
	}
	if string(data) != "db content" {
		t.Errorf("Archived database content mismatch: %q", string(data))
	}
}

func TestArchiveDatabase_NonExistentDatabase(t *testing.T) {
	tmpDir := t.TempDir()
	nonExistentDB := filepath.Join(tmpDir, "nonexistent.db")

	err := ArchiveDatabase(nonExistentDB)
	if err == nil {
		t.Error("Expected error for non-existent database")
	}

	if !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("Expected 'does not exist' error, got: %v", err)
	}
}

func TestArchiveDatabase_MultipleArchives(t *testing.T) {
	// Create temp directory
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "lyrics.db")

	// Archive twice to ensure unique names
	for i := 0; i < 2; i++ {
		content := []byte("db content " + string(rune('0'+i)))
		if err := os.WriteFile(dbPath, content, 0644); err != nil {
			t.Fatalf("Failed to create database file: %v", err)
		}

		// Small delay to ensure different timestamps
		if i == 1 {
			time.Sleep(10 * time.Millisecond)
		}

		if err := ArchiveDatabase(dbPath); err != nil {
			t.Fatalf("ArchiveDatabase failed on iteration %d: %v", i, err)
		}
	}

	// Check that we have 2 archives
	archiveDir := filepath.Join(tmpDir, "archive")
	entries, err := os.ReadDir(archiveDir)
	if err != nil {
		t.Fatalf("Failed to read archive directory: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries in archive directory, got %d", len(entries))
	}

	// Verify both archives have different names
	if entries[0].Name() == entries[1].Name() {
		t.Error("Archive names are not unique")
	}
}
