// Package cache reads and writes the cache file that tracks a collection's assets and the candy
// machine they are deployed to.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/samber/lo"

	"github.com/miraland-labs/sugar/pkg/candymachine/configline"
)

var ErrInvalidCache = errors.New("invalid cache file")

// CollectionIndex is the item key of the collection NFT, which never becomes a config line.
const CollectionIndex = -1

type Program struct {
	CandyMachine        string `json:"candyMachine"`
	CandyMachineCreator string `json:"candyMachineCreator"`
	CollectionMint      string `json:"collectionMint"`
}

type Item struct {
	Name          string  `json:"name"`
	ImageHash     string  `json:"image_hash"`
	ImageLink     string  `json:"image_link"`
	MetadataHash  string  `json:"metadata_hash"`
	MetadataLink  string  `json:"metadata_link"`
	OnChain       bool    `json:"onChain"`
	AnimationHash *string `json:"animation_hash,omitempty"`
	AnimationLink *string `json:"animation_link,omitempty"`
}

type Cache struct {
	Program Program         `json:"program"`
	Items   map[string]Item `json:"items"`

	path string
}

func New(path string) *Cache {
	return &Cache{Items: map[string]Item{}, path: path}
}

func Load(path string) (*Cache, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file %s: %w", path, err)
	}

	c := New(path)
	if err = json.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrInvalidCache, path, err)
	}
	if c.Items == nil {
		c.Items = map[string]Item{}
	}
	if _, err = c.Indices(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cache) Path() string {
	return c.path
}

// Save writes the cache next to its final path and renames it into place.
func (c *Cache) Save() error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), filepath.Base(c.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to save cache file %s: %w", c.path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to save cache file %s: %w", c.path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to save cache file %s: %w", c.path, err)
	}
	return os.Rename(tmp.Name(), c.path)
}

func (c *Cache) CandyMachine() (solana.PublicKey, error) {
	if c.Program.CandyMachine == "" {
		return solana.PublicKey{}, fmt.Errorf("%w: no candy machine in %s", ErrInvalidCache, c.path)
	}
	pk, err := solana.PublicKeyFromBase58(c.Program.CandyMachine)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: candy machine %q: %w", ErrInvalidCache, c.Program.CandyMachine, err)
	}
	return pk, nil
}

// Indices returns the config line indices of the cached items in ascending order. The collection
// item is left out.
func (c *Cache) Indices() ([]int, error) {
	indices := make([]int, 0, len(c.Items))
	for key := range c.Items {
		i, err := strconv.Atoi(key)
		if err != nil || strconv.Itoa(i) != key {
			return nil, fmt.Errorf("%w: item key %q is not an index", ErrInvalidCache, key)
		}
		if i == CollectionIndex {
			continue
		}
		if i < 0 {
			return nil, fmt.Errorf("%w: item key %q is negative", ErrInvalidCache, key)
		}
		indices = append(indices, i)
	}
	slices.Sort(indices)
	return indices, nil
}

// ConfigLines returns the items as config lines, line i for item i. Indices must run from 0 without
// gaps.
func (c *Cache) ConfigLines() ([]configline.ConfigLine, error) {
	indices, err := c.Indices()
	if err != nil {
		return nil, err
	}
	for pos, i := range indices {
		if pos != i {
			return nil, fmt.Errorf("%w: item %d is missing", ErrInvalidCache, pos)
		}
	}

	return lo.Map(indices, func(i int, _ int) configline.ConfigLine {
		item := c.Items[strconv.Itoa(i)]
		return configline.ConfigLine{Name: item.Name, URI: item.MetadataLink}
	}), nil
}

func (c *Cache) OnChain(index int) bool {
	item, ok := c.Items[strconv.Itoa(index)]
	return ok && item.OnChain
}

// MarkOnChain flags the items at indices as written. Unknown indices are ignored.
func (c *Cache) MarkOnChain(indices []int) {
	for _, i := range lo.Uniq(indices) {
		key := strconv.Itoa(i)
		if item, ok := c.Items[key]; ok {
			item.OnChain = true
			c.Items[key] = item
		}
	}
}

// Pending counts the items that are not on chain yet.
func (c *Cache) Pending() int {
	return len(lo.PickBy(c.Items, func(key string, item Item) bool {
		return key != strconv.Itoa(CollectionIndex) && !item.OnChain
	}))
}
