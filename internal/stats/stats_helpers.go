package stats

import (
	"fmt"
	"math"
)

func float64ToPercent(value float64) string {
	switch {
	case value == 1:
		return "100%"
	case math.IsNaN(value):
		return "N/A"
	default:
		return fmt.Sprintf("%.1f%%", value*100)
	}
}

func ratio(made, attempted int) float64 {
	if attempted == 0 {
		return math.NaN()
	}
	return float64(made) / float64(attempted)
}
