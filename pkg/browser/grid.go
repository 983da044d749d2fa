package browser

import "math"

// scrollStops returns the scroll offsets needed to show [0, total) through a window of
// size window. The last stop is clamped so it never scrolls past the end.
func scrollStops(total, window float64) []float64 {
	if window <= 0 || total <= window {
		return []float64{0}
	}

	maxScroll := total - window
	stops := make([]float64, 0, int(math.Ceil(total/window)))
	for offset := 0.0; ; offset += window {
		if offset >= maxScroll {
			stops = append(stops, maxScroll)
			break
		}
		stops = append(stops, offset)
	}
	return stops
}

// tile is one scroll position of the capture walk.
type tile struct {
	X, Y     float64
	Complete float64
}

// tileWalk orders the tiles row by row, left to right.
func tileWalk(m pageMetrics) []tile {
	xs := scrollStops(m.TotalWidth, m.WindowWidth)
	ys := scrollStops(m.TotalHeight, m.WindowHeight)

	count := float64(len(xs) * len(ys))
	tiles := make([]tile, 0, len(xs)*len(ys))
	for _, y := range ys {
		for _, x := range xs {
			tiles = append(tiles, tile{
				X:        x,
				Y:        y,
				Complete: float64(len(tiles)+1) / count,
			})
		}
	}
	return tiles
}
