// Package visual provides the perceptual-hash, sharpness, and clustering
// primitives the pipeline uses to deduplicate sampled frames down to a
// small set of hero candidates. There is no ecosystem Go library in the
// corpus for perceptual hashing or edge-variance sharpness, so this is
// built directly on the standard image packages, grounded on the dHash +
// PIL FIND_EDGES variance approach of the original implementation.
package visual

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math/bits"
	"os"
	"sort"
)

const hashSize = 8

// PHash computes a 64-bit difference hash of the image at path. It
// resizes to a (hashSize+1)x(hashSize) grayscale reduction and records,
// for every adjacent pixel pair, whether the left pixel is brighter.
// Returns an error if the file cannot be read or decoded, the caller is
// expected to treat that as the "null" result from spec.md §4.2.
func PHash(path string) (uint64, error) {
	img, err := decode(path)
	if err != nil {
		return 0, err
	}

	small := resizeGray(img, hashSize+1, hashSize)

	var hash uint64
	bit := 0
	for row := 0; row < hashSize; row++ {
		for col := 0; col < hashSize; col++ {
			left := small[row*(hashSize+1)+col]
			right := small[row*(hashSize+1)+col+1]
			if left > right {
				hash |= 1 << uint(bit)
			}
			bit++
		}
	}
	return hash, nil
}

// HammingDistance returns the number of differing bits between two
// hashes, in [0, 64].
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Sharpness estimates how in-focus the image at path is, as the variance
// of a Sobel-style edge response over its grayscale pixels. Returns 0 on
// I/O or decode failure, higher values mean a sharper image.
func Sharpness(path string) (float64, error) {
	img, err := decode(path)
	if err != nil {
		return 0, err
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return 0, nil
	}

	gray := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			gray[y*w+x] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bl>>8)
		}
	}

	edges := make([]float64, 0, (w-2)*(h-2))
	at := func(x, y int) float64 { return gray[y*w+x] }
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1) - at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1)
			gy := at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1) - at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1)
			mag := gx*gx + gy*gy
			edges = append(edges, mag)
		}
	}

	return variance(edges), nil
}

func variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))

	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return sq / float64(len(xs))
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

// resizeGray resizes src to w x h with bilinear sampling, converting to
// grayscale on the fly, and flattens the result to a row-major byte
// slice. The reference implementation uses LANCZOS resampling via PIL;
// bilinear is the closest fidelity achievable with stdlib image alone,
// and is more than sufficient for the coarse 9x8 dHash reduction.
func resizeGray(src image.Image, w, h int) []uint8 {
	b := src.Bounds()
	srcW, srcH := b.Dx(), b.Dy()

	out := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		sy := float64(y) * float64(srcH) / float64(h)
		for x := 0; x < w; x++ {
			sx := float64(x) * float64(srcW) / float64(w)
			out[y*w+x] = sampleBilinearGray(src, b, sx, sy)
		}
	}
	return out
}

func sampleBilinearGray(src image.Image, b image.Rectangle, sx, sy float64) uint8 {
	x0 := int(sx)
	y0 := int(sy)
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 >= b.Dx() {
		x1 = b.Dx() - 1
	}
	if y1 >= b.Dy() {
		y1 = b.Dy() - 1
	}

	fx := sx - float64(x0)
	fy := sy - float64(y0)

	g := func(x, y int) float64 {
		r, gg, bl, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
		return 0.299*float64(r>>8) + 0.587*float64(gg>>8) + 0.114*float64(bl>>8)
	}

	top := g(x0, y0)*(1-fx) + g(x1, y0)*fx
	bottom := g(x0, y1)*(1-fx) + g(x1, y1)*fx
	return uint8(top*(1-fy) + bottom*fy)
}

// Candidate is a single sampled frame inside a Cluster, annotated with
// its sharpness once scored.
type Candidate struct {
	Path       string
	TimestampS float64
	BlurScore  float64
}

// Cluster is a contiguous run of visually-similar frames, with the best
// (sharpest) candidates picked out for downstream hero selection.
type Cluster struct {
	StartS     float64
	EndS       float64
	FrameCount int
	Candidates []Candidate
}

type hashedFrame struct {
	path string
	ts   float64
	hash uint64
}

// SampledFrame is a path/timestamp pair handed to Cluster. It mirrors
// media.Frame's shape without importing package media, so visual stays a
// leaf package with no pipeline-stage dependencies.
type SampledFrame struct {
	Path       string
	TimestampS float64
}

// Cluster scans frames in time order and groups consecutive frames whose
// pHash hamming distance is within threshold. Frames whose hash cannot be
// computed are dropped before clustering. Within clusters of size > 1 the
// members are scored by Sharpness and the top 5 kept as Candidates; a
// singleton cluster's sole member gets a sentinel score of 100.
func Cluster(frames []SampledFrame, threshold int) []Cluster {
	hashed := make([]hashedFrame, 0, len(frames))
	for _, f := range frames {
		h, err := PHash(f.Path)
		if err != nil {
			continue
		}
		hashed = append(hashed, hashedFrame{path: f.Path, ts: f.TimestampS, hash: h})
	}
	return clusterHashed(hashed, threshold)
}

// clusterHashed does the grouping and candidate-selection work once
// hashes are known, kept separate from Cluster so the grouping logic is
// testable without real image files on disk.
func clusterHashed(hashed []hashedFrame, threshold int) []Cluster {
	if len(hashed) == 0 {
		return nil
	}

	var groups [][]hashedFrame
	current := []hashedFrame{hashed[0]}
	for i := 1; i < len(hashed); i++ {
		if HammingDistance(hashed[i].hash, hashed[i-1].hash) <= threshold {
			current = append(current, hashed[i])
		} else {
			groups = append(groups, current)
			current = []hashedFrame{hashed[i]}
		}
	}
	groups = append(groups, current)

	clusters := make([]Cluster, 0, len(groups))
	for _, g := range groups {
		cands := make([]Candidate, len(g))
		minTS, maxTS := g[0].ts, g[0].ts
		for i, f := range g {
			if f.ts < minTS {
				minTS = f.ts
			}
			if f.ts > maxTS {
				maxTS = f.ts
			}
			score := 100.0
			if len(g) > 1 {
				s, err := Sharpness(f.path)
				if err == nil {
					score = s
				}
			}
			cands[i] = Candidate{Path: f.path, TimestampS: f.ts, BlurScore: score}
		}

		sort.SliceStable(cands, func(i, j int) bool { return cands[i].BlurScore > cands[j].BlurScore })
		if len(cands) > 5 {
			cands = cands[:5]
		}

		clusters = append(clusters, Cluster{
			StartS:     minTS,
			EndS:       maxTS,
			FrameCount: len(g),
			Candidates: cands,
		})
	}
	return clusters
}
