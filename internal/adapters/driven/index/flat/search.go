package flat

import "sort"

// Match is one nearest-neighbour result from an exhaustive scan.
type Match struct {
	// Index is the row position within the collection's vector matrix.
	Index int

	// Distance is the squared L2 distance to the query vector.
	Distance float64
}

// Search exhaustively scans the vector matrix and returns the k nearest rows
// by squared L2 distance, ascending. Fewer than k rows are returned when the
// matrix is smaller than k. Rows whose dimensionality does not match the
// query are skipped.
func Search(vectors [][]float32, query []float32, k int) []Match {
	if k <= 0 || len(vectors) == 0 {
		return nil
	}

	matches := make([]Match, 0, len(vectors))
	for i, row := range vectors {
		if len(row) != len(query) {
			continue
		}
		var dist float64
		for j := range row {
			d := float64(row[j]) - float64(query[j])
			dist += d * d
		}
		matches = append(matches, Match{Index: i, Distance: dist})
	}

	sort.Slice(matches, func(a, b int) bool {
		if matches[a].Distance != matches[b].Distance {
			return matches[a].Distance < matches[b].Distance
		}
		return matches[a].Index < matches[b].Index
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}
