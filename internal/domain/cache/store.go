package cache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/modshell/internal/infrastructure/logging"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/modshell/internal/shared/types"
)

const (
	headerSize = 4
	// maxGraphSize bounds decompression of segment 2
	maxGraphSize = 256 << 20
)

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxGraphSize))
)

// ErrCorrupt marks a cache file that exists but cannot be decoded
var ErrCorrupt = errors.New("corrupt composition cache")

// Record is a decoded cache file
type Record struct {
	Modules     []types.ModuleKey
	Fingerprint string
	Graph       []byte
}

// Valid reports whether the record was written for the given fingerprint
func (r *Record) Valid(fingerprint string) bool {
	return r != nil && r.Fingerprint == fingerprint
}

// Store reads and writes the cache file. Operations are serialised.
type Store struct {
	path    string
	logger  *logging.Logger
	metrics *monitoring.Metrics
	mu      sync.Mutex
}

// NewStore creates a store for the cache file at path
func NewStore(path string, logger *logging.Logger, metrics *monitoring.Metrics) *Store {
	return &Store{
		path:    path,
		logger:  logging.OrNop(logger).Named("cache"),
		metrics: metrics,
	}
}

// Path returns the cache file location
func (s *Store) Path() string {
	return s.path
}

// TryLoad reads the cache file. Any failure is reported as a miss.
func (s *Store) TryLoad() (*Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.read()
	switch {
	case err == nil:
		return rec, true
	case errors.Is(err, fs.ErrNotExist):
		s.metrics.RecordCacheLookup(monitoring.CacheMiss)
		s.logger.Debug("Composition cache not found", zap.String("path", s.path))
	default:
		s.metrics.RecordCacheLookup(monitoring.CacheCorrupt)
		s.logger.Debug("Composition cache unreadable", zap.String("path", s.path), zap.Error(err))
	}
	return nil, false
}

// Save writes a new cache file for the module set. The file is written next
// to the target and renamed into place; a failed write leaves nothing behind.
func (s *Store) Save(modules []types.ModuleDescriptor, graph []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.write(modules, graph)
	s.metrics.RecordCacheWrite(err)
	return err
}

// Clear removes the cache file
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove composition cache: %w", err)
	}
	return nil
}

func (s *Store) read() (*Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	var header [headerSize]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		return nil, fmt.Errorf("%w: short header: %v", ErrCorrupt, err)
	}
	offset := int64(binary.LittleEndian.Uint32(header[:]))
	if offset < headerSize || offset > info.Size() {
		return nil, fmt.Errorf("%w: segment offset %d out of range", ErrCorrupt, offset)
	}

	segment1 := make([]byte, offset-headerSize)
	if _, err := io.ReadFull(f, segment1); err != nil {
		return nil, fmt.Errorf("%w: short module segment: %v", ErrCorrupt, err)
	}
	segment2, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: graph segment: %v", ErrCorrupt, err)
	}

	var keys []types.ModuleKey
	if err := sonic.Unmarshal(segment1, &keys); err != nil {
		return nil, fmt.Errorf("%w: module segment: %v", ErrCorrupt, err)
	}
	graph, err := decoder.DecodeAll(segment2, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: graph segment: %v", ErrCorrupt, err)
	}

	return &Record{
		Modules:     keys,
		Fingerprint: FingerprintKeys(keys),
		Graph:       graph,
	}, nil
}

func (s *Store) write(modules []types.ModuleDescriptor, graph []byte) (err error) {
	keys := make([]types.ModuleKey, len(modules))
	for i, m := range modules {
		keys[i] = m.Key()
	}
	segment1, err := sonic.Marshal(sortKeys(keys))
	if err != nil {
		return fmt.Errorf("failed to encode module segment: %w", err)
	}
	if int64(len(segment1))+headerSize > math.MaxUint32 {
		return fmt.Errorf("module segment too large: %d bytes", len(segment1))
	}
	segment2 := encoder.EncodeAll(graph, nil)

	var header [headerSize]byte
	binary.LittleEndian.PutUint32(header[:], uint32(headerSize+len(segment1)))

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	for _, chunk := range [][]byte{header[:], segment1, segment2} {
		if _, err = tmp.Write(chunk); err != nil {
			return fmt.Errorf("failed to write cache file: %w", err)
		}
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync cache file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}

	s.logger.Debug("Composition cache written",
		zap.String("path", s.path),
		zap.Int("modules", len(keys)),
		zap.Int("bytes", headerSize+len(segment1)+len(segment2)))
	return nil
}
