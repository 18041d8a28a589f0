// Package manifest keeps a per-path/row CSV inventory of delivered scene
// products.
package manifest

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
)

type Entry struct {
	SceneID       string    `csv:"scene_id"`
	Acquired      string    `csv:"acquired"`
	NDVI          string    `csv:"ndvi"`
	BQA           string    `csv:"bqa"`
	Detection     string    `csv:"detection"`
	Regions       int       `csv:"regions"`
	ChangeSkipped bool      `csv:"change_skipped"`
	ProcessedAt   time.Time `csv:"processed_at"`
}

// mu serializes the read-rewrite cycle in Append. Batch mode processes
// scenes concurrently and scenes of the same path/row share one manifest, so
// unsynchronized appends would drop rows.
var mu sync.Mutex

// Append adds one entry to the manifest at path, creating the file on first
// use. The file is rewritten whole; manifests stay small (one row per scene).
func Append(path string, entry Entry) error {
	mu.Lock()
	defer mu.Unlock()

	entries, err := readLocked(path)
	if err != nil {
		return err
	}
	entries = append(entries, entry)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create manifest %s: %w", path, err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&entries, file); err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", path, err)
	}
	return nil
}

// Read loads the manifest at path; a missing file is an empty manifest.
func Read(path string) ([]Entry, error) {
	mu.Lock()
	defer mu.Unlock()
	return readLocked(path)
}

func readLocked(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open manifest %s: %w", path, err)
	}
	defer file.Close()

	var entries []Entry
	if err := gocsv.UnmarshalFile(file, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return entries, nil
}
