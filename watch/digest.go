package watch

import (
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// digestCache remembers the last content digest seen per file so saves that
// leave a file byte-identical can be skipped.
type digestCache struct {
	seen *lru.Cache[string, uint64]
}

func newDigestCache(size int) (*digestCache, error) {
	seen, err := lru.New[string, uint64](size)
	if err != nil {
		return nil, err
	}
	return &digestCache{seen: seen}, nil
}

// check hashes the file at abs and reports whether it differs from the digest
// last recorded under rel. Paths that cannot be read as regular files
// (removed, directories) always count as changed and are forgotten.
func (c *digestCache) check(abs, rel string) (digest string, changed bool) {
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		c.seen.Remove(rel)
		return "", true
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		c.seen.Remove(rel)
		return "", true
	}

	sum := xxhash.Sum64(data)
	prev, ok := c.seen.Get(rel)
	c.seen.Add(rel, sum)
	return strconv.FormatUint(sum, 16), !ok || prev != sum
}

func (c *digestCache) len() int {
	return c.seen.Len()
}
