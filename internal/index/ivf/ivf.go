// Package ivf implements an inverted-file (IVF) partition index for vector
// search. Vectors are assigned to the nearest of a small set of centroids;
// queries probe only the closest cells instead of scanning the whole corpus.
package ivf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
)

// Sizing bounds for the partition count. The canonical heuristic is
// sqrt(corpus size), clamped to avoid degenerate tiny or huge counts.
const (
	MinLists = 1
	MaxLists = 1000
)

// Training parameters.
const (
	kmeansIterations = 8
	defaultProbes    = 4
)

// ListsFor returns the partition count for a corpus of n vectors:
// clamp(round(sqrt(n)), 1, 1000).
func ListsFor(n int) int {
	lists := int(math.Round(math.Sqrt(float64(n))))
	if lists < MinLists {
		lists = MinLists
	}
	if lists > MaxLists {
		lists = MaxLists
	}
	return lists
}

// Index holds trained centroids. It is immutable after Train or
// UnmarshalBinary and safe for concurrent reads.
type Index struct {
	dim       int
	centroids [][]float32
}

// Train builds an index with the given partition count using k-means over
// the supplied vectors. All vectors must share one dimension.
func Train(vectors [][]float32, lists int) (*Index, error) {
	if lists < MinLists || lists > MaxLists {
		return nil, fmt.Errorf("ivf: lists %d out of range [%d, %d]", lists, MinLists, MaxLists)
	}
	if len(vectors) == 0 {
		return nil, errors.New("ivf: no vectors to train on")
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, errors.New("ivf: zero-dimension vectors")
	}
	for i := range vectors {
		if len(vectors[i]) != dim {
			return nil, fmt.Errorf("ivf: inconsistent vector dims %d vs %d", len(vectors[i]), dim)
		}
	}
	if lists > len(vectors) {
		lists = len(vectors)
	}

	// Seed centroids from evenly spaced vectors. Deterministic, which keeps
	// rebuilds reproducible for a given corpus.
	centroids := make([][]float32, lists)
	stride := len(vectors) / lists
	for i := range centroids {
		centroids[i] = append([]float32(nil), vectors[i*stride]...)
	}

	assignments := make([]int, len(vectors))
	for iter := 0; iter < kmeansIterations; iter++ {
		changed := false
		for i, v := range vectors {
			cell := nearest(centroids, v)
			if cell != assignments[i] {
				assignments[i] = cell
				changed = true
			}
		}
		if iter > 0 && !changed {
			break
		}

		sums := make([][]float64, lists)
		counts := make([]int, lists)
		for i := range sums {
			sums[i] = make([]float64, dim)
		}
		for i, v := range vectors {
			cell := assignments[i]
			counts[cell]++
			for j, x := range v {
				sums[cell][j] += float64(x)
			}
		}
		for cell := range centroids {
			if counts[cell] == 0 {
				// Empty cell keeps its previous centroid.
				continue
			}
			for j := range centroids[cell] {
				centroids[cell][j] = float32(sums[cell][j] / float64(counts[cell]))
			}
		}
	}

	return &Index{dim: dim, centroids: centroids}, nil
}

// Lists returns the partition count.
func (i *Index) Lists() int {
	return len(i.centroids)
}

// Dimension returns the vector dimension the index was trained on.
func (i *Index) Dimension() int {
	return i.dim
}

// Assign returns the cell of the nearest centroid for a vector.
func (i *Index) Assign(v []float32) (int, error) {
	if len(v) != i.dim {
		return 0, fmt.Errorf("ivf: vector dim %d != index dim %d", len(v), i.dim)
	}
	return nearest(i.centroids, v), nil
}

// Probe returns the cells of the nprobe nearest centroids for a query,
// closest first. nprobe <= 0 selects a default proportional probe count.
func (i *Index) Probe(query []float32, nprobe int) ([]int, error) {
	if len(query) != i.dim {
		return nil, fmt.Errorf("ivf: query dim %d != index dim %d", len(query), i.dim)
	}
	if nprobe <= 0 {
		nprobe = defaultProbes
	}
	if nprobe > len(i.centroids) {
		nprobe = len(i.centroids)
	}

	type scored struct {
		cell int
		dist float64
	}
	cells := make([]scored, len(i.centroids))
	for c, centroid := range i.centroids {
		cells[c] = scored{cell: c, dist: squaredDistance(query, centroid)}
	}
	sort.Slice(cells, func(a, b int) bool { return cells[a].dist < cells[b].dist })

	out := make([]int, nprobe)
	for n := 0; n < nprobe; n++ {
		out[n] = cells[n].cell
	}
	return out, nil
}

// MarshalBinary stores: dim(uint32), lists(uint32), then each centroid as
// float32[dim], all little-endian.
func (i *Index) MarshalBinary() ([]byte, error) {
	out := make([]byte, 8, 8+4*i.dim*len(i.centroids))
	binary.LittleEndian.PutUint32(out[0:4], uint32(i.dim))
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(i.centroids)))
	var b [4]byte
	for _, centroid := range i.centroids {
		for _, x := range centroid {
			binary.LittleEndian.PutUint32(b[:], math.Float32bits(x))
			out = append(out, b[:]...)
		}
	}
	return out, nil
}

// UnmarshalBinary restores an index serialized by MarshalBinary.
func (i *Index) UnmarshalBinary(data []byte) error {
	if len(data) < 8 {
		return errors.New("ivf: invalid index data")
	}
	dim := int(binary.LittleEndian.Uint32(data[0:4]))
	lists := int(binary.LittleEndian.Uint32(data[4:8]))
	if dim <= 0 || lists <= 0 {
		return errors.New("ivf: invalid index header")
	}
	if len(data) != 8+4*dim*lists {
		return fmt.Errorf("ivf: index data length %d does not match header", len(data))
	}

	centroids := make([][]float32, lists)
	off := 8
	for c := range centroids {
		centroid := make([]float32, dim)
		for j := range centroid {
			centroid[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
			off += 4
		}
		centroids[c] = centroid
	}

	i.dim = dim
	i.centroids = centroids
	return nil
}

func nearest(centroids [][]float32, v []float32) int {
	best := 0
	bestDist := math.Inf(1)
	for c, centroid := range centroids {
		if d := squaredDistance(v, centroid); d < bestDist {
			best = c
			bestDist = d
		}
	}
	return best
}

func squaredDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
