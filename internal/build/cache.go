package build

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Each project directory under the download root keeps a completion
// record per finished stage:
//
//	<download>/<project>/
//	  .cache.json        # "src/<tag>" and "__<digest>/<cfg>" -> buildEntry
//
// A stage counts as done only when its record exists and its output
// directory is non-empty. Records are written after a stage succeeds, so
// an interrupted clone or compile is redone on the next run.
const cacheFile = ".cache.json"

// buildEntry records one completed stage.
type buildEntry struct {
	Repo      string    `json:"repo"`
	Tag       string    `json:"tag"`
	Defines   []string  `json:"defines,omitempty"`
	BuildTime time.Time `json:"build_time"`
}

// buildCache maps stage keys to their completion records.
type buildCache struct {
	Cache map[string]*buildEntry `json:"cache"`
}

// errCorruptCache is returned by loadCache for a record file that does
// not decode.
var errCorruptCache = errors.New("corrupt completion records")

const sourcePrefix = "src/"

func sourceKey(tag string) string {
	return sourcePrefix + tag
}

func buildKey(digest string, cfg Configuration) string {
	return "__" + digest + "/" + string(cfg)
}

func (c *buildCache) get(key string) (*buildEntry, bool) {
	entry, ok := c.Cache[key]
	return entry, ok
}

func (c *buildCache) set(key string, entry *buildEntry) {
	if c.Cache == nil {
		c.Cache = make(map[string]*buildEntry)
	}
	c.Cache[key] = entry
}

func (c *buildCache) delete(key string) {
	delete(c.Cache, key)
}

// loadCache reads the completion records of a project directory. A
// missing file yields an empty cache.
func loadCache(dir string) (*buildCache, error) {
	data, err := os.ReadFile(filepath.Join(dir, cacheFile))
	if errors.Is(err, fs.ErrNotExist) {
		return &buildCache{}, nil
	}
	if err != nil {
		return nil, err
	}
	var cache buildCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorruptCache, err)
	}
	return &cache, nil
}

// saveCache writes the completion records of a project directory.
func saveCache(dir string, cache *buildCache) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, cacheFile+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, cacheFile))
}

// nonEmptyDir reports whether dir exists and has at least one entry.
func nonEmptyDir(dir string) bool {
	f, err := os.Open(dir)
	if err != nil {
		return false
	}
	defer f.Close()
	names, _ := f.Readdirnames(1)
	return len(names) > 0
}
