// internal/diff/cache.go
package diff

import (
	"bytes"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

// Rendered diffs above this size are stored zstd-compressed.
const compressThreshold = 1024

var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// Cache memoizes rendered diffs in badger, keyed by the fingerprints of
// both inputs and the backend that produced the rendering. Misses and
// corrupt entries are silent; the cache never fails a diff request.
type Cache struct {
	db      *badger.DB
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	logger  *zap.Logger
}

func NewCache(db *badger.DB, logger *zap.Logger) (*Cache, error) {
	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("creating cache encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
	)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("creating cache decoder: %w", err)
	}

	return &Cache{
		db:      db,
		encoder: encoder,
		decoder: decoder,
		logger:  logger,
	}, nil
}

func cacheKey(oldHash, newHash, backend string) []byte {
	return []byte(fmt.Sprintf("diff:%s:%s:%s", oldHash, newHash, backend))
}

// Get returns a cached rendering, if present and intact.
func (c *Cache) Get(oldHash, newHash, backend string) (string, bool) {
	var value []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(oldHash, newHash, backend))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		if err != badger.ErrKeyNotFound {
			c.logger.Debug("diff cache read failed", zap.Error(err))
		}
		return "", false
	}

	if bytes.HasPrefix(value, zstdMagic) {
		decoded, err := c.decoder.DecodeAll(value, nil)
		if err != nil {
			c.logger.Debug("diff cache entry corrupt, ignoring", zap.Error(err))
			return "", false
		}
		value = decoded
	}

	return string(value), true
}

// Put stores a rendering, compressing large ones.
func (c *Cache) Put(oldHash, newHash, backend, rendered string) error {
	value := []byte(rendered)
	if len(value) > compressThreshold {
		value = c.encoder.EncodeAll(value, nil)
	}

	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(cacheKey(oldHash, newHash, backend), value)
	})
}

// Close releases the compression codecs. The badger handle is owned by the
// repository, not the cache.
func (c *Cache) Close() {
	c.encoder.Close()
	c.decoder.Close()
}
