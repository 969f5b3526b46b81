package visual

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHammingDistance(t *testing.T) {
	require.Equal(t, 0, HammingDistance(0xFF00, 0xFF00))
	require.Equal(t, 1, HammingDistance(0b1010, 0b1011))
	require.Equal(t, 64, HammingDistance(0, ^uint64(0)))
}

// TestClusterHashedSplitsOnOutlier mirrors the literal scenario from
// spec.md section 8.3: ten consecutive frames whose pHashes are
// pairwise close (hamming distance 2), followed by one far outlier
// (distance 40); two clusters of sizes 10 and 1 are expected.
func TestClusterHashedSplitsOnOutlier(t *testing.T) {
	base := uint64(0)
	frames := make([]hashedFrame, 0, 11)
	for i := 0; i < 10; i++ {
		// flip two low bits relative to base so every consecutive pair is
		// within hamming distance 2 of each other.
		h := base ^ (uint64(i%2) << 0) ^ (uint64((i+1)%2) << 1)
		frames = append(frames, hashedFrame{path: "f", ts: float64(i), hash: h})
	}
	// an outlier with bits 1-39 set, differing from the prior frame
	// (hash == 1) in 40 bits.
	outlier := uint64(0xFFFFFFFFFE)
	require.True(t, HammingDistance(outlier, frames[9].hash) > 12, "test fixture must exceed threshold")
	frames = append(frames, hashedFrame{path: "g", ts: 10, hash: outlier})

	clusters := clusterHashed(frames, 12)
	require.Len(t, clusters, 2)
	require.Equal(t, 10, clusters[0].FrameCount)
	require.Equal(t, 1, clusters[1].FrameCount)
}

func TestClusterHashedSingletonGetsSentinelScore(t *testing.T) {
	frames := []hashedFrame{{path: "/no/such/file.jpg", ts: 5, hash: 1}}
	clusters := clusterHashed(frames, 12)
	require.Len(t, clusters, 1)
	require.Len(t, clusters[0].Candidates, 1)
	require.Equal(t, 100.0, clusters[0].Candidates[0].BlurScore)
}

func TestClusterHashedCapsCandidatesAtFive(t *testing.T) {
	frames := make([]hashedFrame, 8)
	for i := range frames {
		frames[i] = hashedFrame{path: "/no/such/file.jpg", ts: float64(i), hash: uint64(i)}
	}
	clusters := clusterHashed(frames, 64)
	require.Len(t, clusters, 1)
	require.Len(t, clusters[0].Candidates, 5)
}

func TestVarianceOfConstantSliceIsZero(t *testing.T) {
	require.Equal(t, 0.0, variance([]float64{5, 5, 5}))
}
