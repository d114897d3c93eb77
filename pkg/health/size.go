package health

import (
	"github.com/dustin/go-humanize"
)

var sizeUnits = []struct {
	name string
	mag  float64
}{
	{"TB", 1 << 40},
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
	{"B", 1},
}

// FormatSize renders a byte count the way the host's size_format does:
// 1024-based units, no decimals, grouped thousands.
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	v := float64(bytes)
	for _, u := range sizeUnits {
		if v >= u.mag {
			return humanize.FormatFloat("#,###.", v/u.mag) + " " + u.name
		}
	}
	return "0 B"
}
