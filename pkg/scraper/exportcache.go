package scraper

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/coocood/freecache"
)

// freecache refuses entries above a 1/1024 share of its size, so workbooks
// are split into chunks no larger than that. A header entry holding the
// chunk count, total length and a write generation is stored last; a Get
// sees either a whole workbook or a miss.
const (
	freecacheEntryShare  = 1024
	freecacheEntryHeader = 24
	chunkKeySuffix       = 32
	headerSize           = 16
)

// ErrExportTooLarge is returned by Set for workbooks above a quarter of the
// cache, which would evict most other exports.
var ErrExportTooLarge = errors.New("export larger than a quarter of the export cache")

type freecacheExports struct {
	cache      *freecache.Cache
	ttl        int
	entryLimit int
	maxEntry   int
	generation atomic.Uint64
}

// NewExportCache returns a freecache-backed export cache of sizeMB
// megabytes, or a no-op one when ttl is below one second.
func NewExportCache(ttl time.Duration, sizeMB int) ExportCache {
	seconds := int(ttl / time.Second)
	if seconds <= 0 {
		return noopExports{}
	}
	if sizeMB <= 0 {
		sizeMB = 32
	}
	size := sizeMB * 1024 * 1024
	return &freecacheExports{
		cache:      freecache.NewCache(size),
		ttl:        seconds,
		entryLimit: size / freecacheEntryShare,
		maxEntry:   size / 4,
	}
}

func chunkKey(key string, gen uint64, i int) []byte {
	return []byte(key + "\x00" + strconv.FormatUint(gen, 10) + "\x00" + strconv.Itoa(i))
}

func (c *freecacheExports) Get(key string) ([]byte, bool) {
	header, err := c.cache.Get([]byte(key))
	if err != nil || len(header) != headerSize {
		return nil, false
	}
	gen := binary.BigEndian.Uint64(header[0:8])
	chunks := int(binary.BigEndian.Uint32(header[8:12]))
	total := int(binary.BigEndian.Uint32(header[12:16]))

	out := make([]byte, 0, total)
	for i := 0; i < chunks; i++ {
		part, err := c.cache.Get(chunkKey(key, gen, i))
		if err != nil {
			return nil, false
		}
		out = append(out, part...)
	}
	if len(out) != total {
		return nil, false
	}
	return out, true
}

func (c *freecacheExports) Set(key string, value []byte) error {
	if len(value) > c.maxEntry {
		return fmt.Errorf("%w: %d bytes", ErrExportTooLarge, len(value))
	}

	// room left in one entry after freecache's header and the chunk key
	chunkSize := c.entryLimit - freecacheEntryHeader - len(key) - chunkKeySuffix
	if chunkSize <= 0 {
		return fmt.Errorf("export cache key too long: %d bytes", len(key))
	}

	gen := c.generation.Add(1)
	chunks := 0
	for off := 0; off < len(value); off += chunkSize {
		end := min(off+chunkSize, len(value))
		if err := c.cache.Set(chunkKey(key, gen, chunks), value[off:end], c.ttl); err != nil {
			return fmt.Errorf("caching export chunk %d: %w", chunks, err)
		}
		chunks++
	}

	header := make([]byte, headerSize)
	binary.BigEndian.PutUint64(header[0:8], gen)
	binary.BigEndian.PutUint32(header[8:12], uint32(chunks))
	binary.BigEndian.PutUint32(header[12:16], uint32(len(value)))
	return c.cache.Set([]byte(key), header, c.ttl)
}

type noopExports struct{}

func (noopExports) Get(_ string) ([]byte, bool)  { return nil, false }
func (noopExports) Set(_ string, _ []byte) error { return nil }
