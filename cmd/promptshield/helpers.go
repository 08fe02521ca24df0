package main

import "strconv"

// formatFloat renders a score/metric value with the fixed precision the
// CLI's tables use throughout.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
