package sqlite

import (
	"database/sql/driver"
	"fmt"
	"math"
	"sync"

	sqlite "modernc.org/sqlite"
)

// cosineDistanceFunc is the SQL scalar computing cosine distance between two
// embedding blobs. Similarity is 1 - distance, mirroring the convention of
// native vector-index operators.
const cosineDistanceFunc = "vec_cosine_distance"

var registerOnce sync.Once

// registerVectorFunctions registers the cosine distance scalar with the
// driver. Registration is process-wide and applies to connections opened
// afterwards; duplicates are rejected by the driver and ignored here.
func registerVectorFunctions() {
	registerOnce.Do(func() {
		_ = sqlite.RegisterDeterministicScalarFunction(cosineDistanceFunc, 2, vecCosineDistanceImpl)
	})
}

func vecCosineDistanceImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("%s: expected 2 arguments, got %d", cosineDistanceFunc, len(args))
	}
	a, err := asEmbedding(args[0])
	if err != nil {
		return nil, err
	}
	b, err := asEmbedding(args[1])
	if err != nil {
		return nil, err
	}
	if a == nil || b == nil {
		return nil, nil
	}
	if len(a) != len(b) {
		return nil, fmt.Errorf("%s: dimension mismatch %d vs %d", cosineDistanceFunc, len(a), len(b))
	}
	return 1.0 - cosineSimilarity(a, b), nil
}

func asEmbedding(arg driver.Value) ([]float32, error) {
	switch v := arg.(type) {
	case nil:
		return nil, nil
	case []byte:
		if len(v)%4 != 0 {
			return nil, fmt.Errorf("%s: invalid embedding blob length %d", cosineDistanceFunc, len(v))
		}
		return bytesToFloat32Slice(v), nil
	default:
		return nil, fmt.Errorf("%s: unsupported argument type %T, want BLOB", cosineDistanceFunc, arg)
	}
}

// cosineSimilarity computes dot(a, b) / (|a| * |b|) in float64. A zero-norm
// vector yields similarity 0, never a division by zero.
func cosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		na += va * va
		nb += vb * vb
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
