package roi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeEmptyEvents(t *testing.T) {
	require.Nil(t, Merge(nil, 600, 10, 5))
}

// TestMergeNearbyEventsCombine mirrors the literal scenario from
// spec.md section 8: two events close enough together merge into one
// window spanning (90, 122).
func TestMergeNearbyEventsCombine(t *testing.T) {
	windows := Merge([]float64{100, 112}, 600, 10, 5)
	require.Equal(t, []Window{{StartS: 90, EndS: 122}}, windows)
}

func TestMergeClampsToVideoBounds(t *testing.T) {
	windows := Merge([]float64{2, 598}, 600, 10, 5)
	require.Equal(t, []Window{{StartS: 0, EndS: 12}, {StartS: 588, EndS: 600}}, windows)
}

func TestMergeDistantEventsStaySeparate(t *testing.T) {
	windows := Merge([]float64{10, 500}, 600, 10, 5)
	require.Len(t, windows, 2)
	require.Equal(t, Window{StartS: 0, EndS: 20}, windows[0])
	require.Equal(t, Window{StartS: 490, EndS: 510}, windows[1])
}

func TestMergeSortsUnorderedInput(t *testing.T) {
	windows := Merge([]float64{500, 10}, 600, 10, 5)
	require.Equal(t, Window{StartS: 0, EndS: 20}, windows[0])
}
