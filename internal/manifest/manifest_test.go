package manifest

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.csv")

	first := Entry{
		SceneID:       "LC80010632013361LGN00",
		Acquired:      "20131227",
		NDVI:          "LC8_001-063_20131227_LGN00_ndvi.tif",
		Regions:       3,
		ChangeSkipped: false,
		ProcessedAt:   time.Date(2014, 1, 2, 10, 30, 0, 0, time.UTC),
	}
	require.NoError(t, Append(path, first))

	second := Entry{
		SceneID:       "LC80010632014011LGN00",
		Acquired:      "20140111",
		ChangeSkipped: true,
		ProcessedAt:   time.Date(2014, 1, 12, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, Append(path, second))

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "LC80010632013361LGN00", entries[0].SceneID)
	assert.Equal(t, 3, entries[0].Regions)
	assert.True(t, entries[1].ChangeSkipped)
	assert.True(t, entries[0].ProcessedAt.Equal(first.ProcessedAt))
}

func TestAppendConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.csv")

	const scenes = 8
	var wg sync.WaitGroup
	errs := make(chan error, scenes)
	for i := 0; i < scenes; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- Append(path, Entry{
				SceneID:     fmt.Sprintf("LC8001063201400%dLGN00", i),
				ProcessedAt: time.Now().UTC(),
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	entries, err := Read(path)
	require.NoError(t, err)
	assert.Len(t, entries, scenes)
}

func TestReadMissingManifest(t *testing.T) {
	entries, err := Read(filepath.Join(t.TempDir(), "manifest.csv"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
