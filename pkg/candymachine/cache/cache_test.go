package cache_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miraland-labs/sugar/pkg/candymachine/cache"
	"github.com/miraland-labs/sugar/pkg/candymachine/configline"
)

const testCache = `{
  "program": {
    "candyMachine": "cndy3Z4yapfJBmL3ShUp5exZKqR3z33thTzeNMm2gRZ",
    "candyMachineCreator": "",
    "collectionMint": ""
  },
  "items": {
    "-1": {"name": "Collection", "image_hash": "", "image_link": "", "metadata_hash": "", "metadata_link": "https://arweave.net/collection", "onChain": true},
    "1": {"name": "Candy #1", "image_hash": "h1", "image_link": "https://arweave.net/1.png", "metadata_hash": "m1", "metadata_link": "https://arweave.net/1", "onChain": false},
    "0": {"name": "Candy #0", "image_hash": "h0", "image_link": "https://arweave.net/0.png", "metadata_hash": "m0", "metadata_link": "https://arweave.net/0", "onChain": true},
    "2": {"name": "Candy #2", "image_hash": "h2", "image_link": "https://arweave.net/2.png", "metadata_hash": "m2", "metadata_link": "https://arweave.net/2", "onChain": false, "animation_link": "https://arweave.net/2.mp4"}
  }
}`

func writeCache(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	c, err := cache.Load(writeCache(t, testCache))
	require.NoError(t, err)

	cm, err := c.CandyMachine()
	require.NoError(t, err)
	assert.Equal(t, "cndy3Z4yapfJBmL3ShUp5exZKqR3z33thTzeNMm2gRZ", cm.String())

	indices, err := c.Indices()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, indices)

	lines, err := c.ConfigLines()
	require.NoError(t, err)
	assert.Equal(t, []configline.ConfigLine{
		{Name: "Candy #0", URI: "https://arweave.net/0"},
		{Name: "Candy #1", URI: "https://arweave.net/1"},
		{Name: "Candy #2", URI: "https://arweave.net/2"},
	}, lines)

	assert.True(t, c.OnChain(0))
	assert.False(t, c.OnChain(1))
	assert.False(t, c.OnChain(7))
	assert.Equal(t, 2, c.Pending())
	require.NotNil(t, c.Items["2"].AnimationLink)
	assert.Nil(t, c.Items["2"].AnimationHash)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := cache.Load(filepath.Join(t.TempDir(), "cache.json"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := cache.Load(writeCache(t, `{"items": [`))
		require.ErrorIs(t, err, cache.ErrInvalidCache)
	})

	t.Run("non numeric key", func(t *testing.T) {
		_, err := cache.Load(writeCache(t, `{"items": {"zero": {"name": "x"}}}`))
		require.ErrorIs(t, err, cache.ErrInvalidCache)
	})
}

func TestConfigLines_Gap(t *testing.T) {
	c := cache.New(filepath.Join(t.TempDir(), "cache.json"))
	c.Items["0"] = cache.Item{Name: "a", MetadataLink: "a"}
	c.Items["2"] = cache.Item{Name: "c", MetadataLink: "c"}

	_, err := c.ConfigLines()
	require.ErrorIs(t, err, cache.ErrInvalidCache)
	assert.ErrorContains(t, err, "item 1 is missing")
}

func TestIndices_NonCanonicalKeys(t *testing.T) {
	for _, key := range []string{"01", "+1", "1.0", "-0"} {
		t.Run(key, func(t *testing.T) {
			c := cache.New(filepath.Join(t.TempDir(), "cache.json"))
			c.Items["0"] = cache.Item{Name: "a", MetadataLink: "a"}
			c.Items[key] = cache.Item{Name: "b", MetadataLink: "b"}

			_, err := c.Indices()
			require.ErrorIs(t, err, cache.ErrInvalidCache)
			assert.ErrorContains(t, err, "is not an index")

			_, err = c.ConfigLines()
			require.ErrorIs(t, err, cache.ErrInvalidCache)
		})
	}
}

func TestCandyMachine_Unset(t *testing.T) {
	c := cache.New(filepath.Join(t.TempDir(), "cache.json"))
	_, err := c.CandyMachine()
	require.ErrorIs(t, err, cache.ErrInvalidCache)

	c.Program.CandyMachine = "not a key"
	_, err = c.CandyMachine()
	require.ErrorIs(t, err, cache.ErrInvalidCache)
}

func TestMarkOnChainAndSave(t *testing.T) {
	path := writeCache(t, testCache)
	c, err := cache.Load(path)
	require.NoError(t, err)

	c.MarkOnChain([]int{1, 2, 2, 9})
	assert.Zero(t, c.Pending())
	require.NoError(t, c.Save())

	reloaded, err := cache.Load(path)
	require.NoError(t, err)
	assert.Equal(t, c.Items, reloaded.Items)
	assert.Equal(t, c.Program, reloaded.Program)
	assert.True(t, reloaded.OnChain(2))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}
