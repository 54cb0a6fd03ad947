package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
)

// MemoryStore is an in-memory vector store using brute-force cosine search.
// It can be persisted to a single file with Save and restored with Load.
type MemoryStore struct {
	dimensions int
	path       string
	ids        []string
	vectors    [][]float32
	metadata   []map[string]interface{}
	positions  map[string]int
	mu         sync.RWMutex
}

// NewMemoryStore creates an in-memory store with the given dimension.
// When path is set, existing contents are loaded from it and Close saves back.
func NewMemoryStore(dimensions int, path string) (*MemoryStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	m := &MemoryStore{
		dimensions: dimensions,
		path:       path,
		positions:  make(map[string]int),
	}
	if err := m.Load(path); err != nil {
		return nil, err
	}
	return m, nil
}

// Dimensions returns the vector dimension.
func (m *MemoryStore) Dimensions() int {
	return m.dimensions
}

// Upsert inserts records or replaces those with an existing ID.
func (m *MemoryStore) Upsert(ctx context.Context, records []Record) error {
	for _, rec := range records {
		if len(rec.Values) != m.dimensions {
			return fmt.Errorf("record %q: %w", rec.ID, dimensionError(len(rec.Values), m.dimensions))
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range records {
		vec := make([]float32, m.dimensions)
		copy(vec, rec.Values)
		meta := copyMetadata(rec.Metadata)
		if pos, ok := m.positions[rec.ID]; ok {
			m.vectors[pos] = vec
			m.metadata[pos] = meta
			continue
		}
		m.positions[rec.ID] = len(m.ids)
		m.ids = append(m.ids, rec.ID)
		m.vectors = append(m.vectors, vec)
		m.metadata = append(m.metadata, meta)
	}
	return nil
}

// Query returns the top-k records by cosine similarity that match the filter.
func (m *MemoryStore) Query(ctx context.Context, query []float32, opts QueryOptions) ([]Match, error) {
	if len(query) != m.dimensions {
		return nil, dimensionError(len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if opts.TopK <= 0 || len(m.ids) == 0 {
		return nil, nil
	}
	matches := make([]Match, 0, len(m.ids))
	for i, vec := range m.vectors {
		if !MatchesFilter(m.metadata[i], opts.Filter) {
			continue
		}
		matches = append(matches, Match{
			ID:       m.ids[i],
			Score:    CosineSimilarity(query, vec),
			Metadata: copyMetadata(m.metadata[i]),
		})
	}
	return rankMatches(matches, opts.TopK), nil
}

// Delete removes records by ID.
func (m *MemoryStore) Delete(ctx context.Context, ids []string) error {
	removeSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		removeSet[id] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	newIDs := make([]string, 0, len(m.ids))
	newVectors := make([][]float32, 0, len(m.vectors))
	newMeta := make([]map[string]interface{}, 0, len(m.metadata))
	positions := make(map[string]int, len(m.ids))
	for i, id := range m.ids {
		if removeSet[id] {
			continue
		}
		positions[id] = len(newIDs)
		newIDs = append(newIDs, id)
		newVectors = append(newVectors, m.vectors[i])
		newMeta = append(newMeta, m.metadata[i])
	}
	m.ids, m.vectors, m.metadata, m.positions = newIDs, newVectors, newMeta, positions
	return nil
}

// Count returns the number of stored records.
func (m *MemoryStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids), nil
}

// Save persists the store to path. Directory is created if needed. Format: dimension (4), n (4),
// then per record: idLen (4), id bytes, vector (dimension*4 bytes), metaLen (4), metadata JSON.
func (m *MemoryStore) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create store file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, uint32(m.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(m.ids))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, id := range m.ids {
		if err := writeBlock(w, []byte(id)); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if _, err := w.Write(float32SliceToBytes(m.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
		meta, err := json.Marshal(m.metadata[i])
		if err != nil {
			return fmt.Errorf("marshal metadata for %q: %w", id, err)
		}
		if err := writeBlock(w, meta); err != nil {
			return fmt.Errorf("write metadata: %w", err)
		}
	}
	return w.Flush()
}

// Load reads the store from path and replaces the in-memory contents. Dimensions must match.
// If the file does not exist, no error is returned and the store is unchanged.
func (m *MemoryStore) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open store file: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)
	var dim, n uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != m.dimensions {
		return fmt.Errorf("store file has dimension %d: %w", dim, dimensionError(int(dim), m.dimensions))
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}
	ids := make([]string, 0, n)
	vectors := make([][]float32, 0, n)
	metadata := make([]map[string]interface{}, 0, n)
	positions := make(map[string]int, n)
	buf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < n; i++ {
		idBytes, err := readBlock(r)
		if err != nil {
			return fmt.Errorf("read id: %w", err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		metaBytes, err := readBlock(r)
		if err != nil {
			return fmt.Errorf("read metadata: %w", err)
		}
		var meta map[string]interface{}
		if err := json.Unmarshal(metaBytes, &meta); err != nil {
			return fmt.Errorf("decode metadata: %w", err)
		}
		positions[string(idBytes)] = len(ids)
		ids = append(ids, string(idBytes))
		vectors = append(vectors, bytesToFloat32Slice(buf))
		metadata = append(metadata, meta)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids, m.vectors, m.metadata, m.positions = ids, vectors, metadata, positions
	return nil
}

// Close saves the store when it was opened with a path.
func (m *MemoryStore) Close() error {
	return m.Save(m.path)
}

func writeBlock(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBlock(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
