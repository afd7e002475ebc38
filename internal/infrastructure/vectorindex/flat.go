// Package vectorindex provides an exact nearest-neighbour index partitioned per user.
package vectorindex

import (
	"fmt"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"gonum.org/v1/gonum/floats"

	"github.com/doeshing/promptmate/internal/ports"
)

// DefaultMaxPartitions bounds how many users' vectors stay in memory.
const DefaultMaxPartitions = 256

// FlatIndex scans every vector of a user on search. Distances are squared L2.
// Partitions evicted from the LRU are rebuilt by the caller from storage.
type FlatIndex struct {
	mu         sync.Mutex
	partitions *lru.Cache[string, *partition]
	dimension  int
}

type partition struct {
	mu   sync.RWMutex
	ids  []string
	vecs [][]float64
}

// NewFlatIndex creates an index for vectors of the given dimension.
func NewFlatIndex(dimension, maxPartitions int) (*FlatIndex, error) {
	if maxPartitions <= 0 {
		maxPartitions = DefaultMaxPartitions
	}
	cache, err := lru.New[string, *partition](maxPartitions)
	if err != nil {
		return nil, err
	}
	return &FlatIndex{partitions: cache, dimension: dimension}, nil
}

func (f *FlatIndex) partitionFor(userID string, create bool) *partition {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.partitions.Get(userID); ok {
		return p
	}
	if !create {
		return nil
	}
	p := &partition{}
	f.partitions.Add(userID, p)
	return p
}

// Add appends one vector under id to the user's partition.
func (f *FlatIndex) Add(userID, id string, vector []float32) error {
	if f.dimension > 0 && len(vector) != f.dimension {
		return fmt.Errorf("vector has %d dimensions, index expects %d", len(vector), f.dimension)
	}
	p := f.partitionFor(userID, true)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, id)
	p.vecs = append(p.vecs, widen(vector))
	return nil
}

// Search returns up to topK nearest vectors, closest first.
func (f *FlatIndex) Search(userID string, query []float32, topK int) ([]ports.VectorHit, error) {
	if f.dimension > 0 && len(query) != f.dimension {
		return nil, fmt.Errorf("query has %d dimensions, index expects %d", len(query), f.dimension)
	}
	if topK <= 0 {
		return nil, nil
	}
	p := f.partitionFor(userID, false)
	if p == nil {
		return nil, nil
	}
	q := widen(query)

	p.mu.RLock()
	hits := make([]ports.VectorHit, 0, len(p.ids))
	for i, v := range p.vecs {
		d := floats.Distance(q, v, 2)
		hits = append(hits, ports.VectorHit{ID: p.ids[i], Distance: d * d})
	}
	p.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Reset drops the user's partition.
func (f *FlatIndex) Reset(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.partitions.Remove(userID)
}

// Size returns how many vectors the user's partition holds.
func (f *FlatIndex) Size(userID string) int {
	p := f.partitionFor(userID, false)
	if p == nil {
		return 0
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.ids)
}

func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

var _ ports.VectorIndex = (*FlatIndex)(nil)
