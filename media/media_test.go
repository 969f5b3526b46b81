package media

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWindowBoundsStrideAndShortLastChunk(t *testing.T) {
	bounds, err := windowBounds(700, 300, 30)
	require.NoError(t, err)
	require.Equal(t, [][2]float64{
		{0, 300},
		{270, 570},
		{540, 700},
	}, bounds)
}

func TestWindowBoundsRejectsNonPositiveStride(t *testing.T) {
	_, err := windowBounds(100, 30, 30)
	require.Error(t, err)
}

func TestKeyframeTimestampsStartsAtZero(t *testing.T) {
	ts := keyframeTimestamps(125, 60)
	require.Equal(t, []float64{0, 60, 120}, ts)
}

func TestDenseFrameTimestampsDerivableFromIndex(t *testing.T) {
	w := Window{StartS: 90, EndS: 93}
	ts := denseFrameTimestamps(w, 1.0)
	require.Equal(t, []float64{90, 91, 92}, ts)
}

func TestDenseFrameTimestampsHigherFPS(t *testing.T) {
	w := Window{StartS: 10, EndS: 11}
	ts := denseFrameTimestamps(w, 2.0)
	require.Equal(t, []float64{10, 10.5}, ts)
}
