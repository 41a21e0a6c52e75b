package utils

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// FormatHMS renders an elapsed duration as [HHH:MM:SS], the form used in
// search logs and progress reports.
func FormatHMS(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("[%03d:%02d:%02d]", hours, minutes, seconds)
}

// DisplayPrecision derives the number of significant decimal digits for
// printing log-likelihood values from the convergence epsilon. An epsilon of
// 1e-2 yields 3 digits, 1e-3 yields 4.
func DisplayPrecision(epsilon float64) int {
	if epsilon <= 0 || epsilon >= 1 {
		return 2
	}
	return 1 - int(math.Floor(math.Log10(epsilon)))
}

// FormatFloat renders a value with the given number of decimal digits.
func FormatFloat(x float64, precision int) string {
	if precision < 0 {
		precision = 0
	}
	return strconv.FormatFloat(x, 'f', precision, 64)
}
