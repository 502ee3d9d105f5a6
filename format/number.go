package format

import "fmt"

func HumanNumber(b uint64) string {
	switch {
	case b >= 1_000_000_000:
		number := float64(b) / 1_000_000_000
		if number == float64(int(number)) {
			return fmt.Sprintf("%.0fB", number)
		}
		return fmt.Sprintf("%.1fB", number)
	case b >= 1_000_000:
		number := float64(b) / 1_000_000
		if number == float64(int(number)) {
			return fmt.Sprintf("%.0fM", number)
		}
		return fmt.Sprintf("%.1fM", number)
	case b >= 1_000:
		return fmt.Sprintf("%.0fK", float64(b)/1_000)
	default:
		return fmt.Sprintf("%d", b)
	}
}
