package scene

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	s, err := Parse("/data/incoming/LC80010632013361LGN00.tar.bz")
	require.NoError(t, err)

	assert.Equal(t, "LC80010632013361LGN00", s.ID)
	assert.Equal(t, "LC8", s.Sensor)
	assert.Equal(t, "001", s.Path)
	assert.Equal(t, "063", s.Row)
	assert.Equal(t, "LGN00", s.Suffix)
	assert.Equal(t, time.Date(2013, 12, 27, 0, 0, 0, 0, time.UTC), s.Acquired)
}

func TestParseRejectsShortIdentifier(t *testing.T) {
	_, err := Parse("LC8001063.tar.bz")
	assert.Error(t, err)

	_, err = Parse("LC8001063201xx61LGN00.tar.bz")
	assert.Error(t, err)

	_, err = Parse("LC80010632013999LGN00.tar.bz")
	assert.Error(t, err)
}

func TestDeliveryNames(t *testing.T) {
	s, err := Parse("LC80010632013361LGN00.tar.bz")
	require.NoError(t, err)

	assert.Equal(t, "LC8_001-063_20131227_LGN00", s.DeliveryName())
	assert.Equal(t, "LC8_001-063_20131211_LGN00", s.PriorDeliveryName())
}

func TestPriorDeliveryNameCrossesYearBoundary(t *testing.T) {
	// Day of year 5 in 2014; the prior acquisition falls in December 2013.
	s, err := Parse("LC80010632014005LGN00.tar.bz")
	require.NoError(t, err)

	assert.Equal(t, "LC8_001-063_20140105_LGN00", s.DeliveryName())
	assert.Equal(t, "LC8_001-063_20131220_LGN00", s.PriorDeliveryName())
}

func TestIsArchive(t *testing.T) {
	assert.True(t, IsArchive("LC80010632013361LGN00.tar.bz"))
	assert.True(t, IsArchive("LC80010632013361LGN00.tar.bz2"))
	assert.True(t, IsArchive("LC80010632013361LGN00.tar.gz"))
	assert.True(t, IsArchive("LC80010632013361LGN00.tar"))

	assert.False(t, IsArchive("notes.tarball.txt"))
	assert.False(t, IsArchive("LC80010632013361LGN00_MTL.txt"))
	assert.False(t, IsArchive("manifest.csv"))
}

func TestGroupByPathRow(t *testing.T) {
	// Two path/rows interleaved, each out of acquisition order.
	groups, err := GroupByPathRow([]string{
		"/in/LC80010632014011LGN00.tar.bz",
		"/in/LC82200682013350LGN00.tar.bz",
		"/in/LC80010632013361LGN00.tar.bz",
		"/in/LC82200682014014LGN00.tar.bz",
	})
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, []string{
		"/in/LC80010632013361LGN00.tar.bz",
		"/in/LC80010632014011LGN00.tar.bz",
	}, groups[0])
	assert.Equal(t, []string{
		"/in/LC82200682013350LGN00.tar.bz",
		"/in/LC82200682014014LGN00.tar.bz",
	}, groups[1])
}

func TestGroupByPathRowRejectsBadName(t *testing.T) {
	_, err := GroupByPathRow([]string{"/in/notascene.tar.bz"})
	assert.Error(t, err)
}

func TestPaths(t *testing.T) {
	s, err := Parse("LC80010632013361LGN00.tar.bz")
	require.NoError(t, err)

	p := s.Paths("/srv/landsat")

	assert.Equal(t, filepath.Join("/srv/landsat", "temp", "LC80010632013361LGN00"), p.TempDir)
	assert.Equal(t, filepath.Join("/srv/landsat", "processed", "001", "063"), p.DeliveryDir)
	assert.Equal(t, filepath.Join(p.TempDir, "LC80010632013361LGN00_B4.TIF"), p.B4)
	assert.Equal(t, filepath.Join(p.TempDir, "LC80010632013361LGN00_B5_toa.TIF"), p.B5TOA)
	assert.Equal(t, filepath.Join(p.DeliveryDir, "LC8_001-063_20131227_LGN00_ndvi.tif"), p.NDVI)
	assert.Equal(t, filepath.Join(p.DeliveryDir, "LC8_001-063_20131211_LGN00_ndvi.tif"), p.PriorNDVI)
	assert.Equal(t, filepath.Join(p.DeliveryDir, "LC8_001-063_20131227_LGN00_detection.geojson"), p.Detection)
	assert.Equal(t, filepath.Join(p.DeliveryDir, "LC8_001-063_20131227_LGN00_BQA.tif"), p.DeliveryBQA)
}
