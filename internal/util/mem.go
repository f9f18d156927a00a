package util

import (
	"fmt"
	"runtime"
)

// Runtime is the process snapshot /healthz reports.
type Runtime struct {
	Alloc      uint64
	Sys        uint64
	Goroutines int
}

func ReadRuntime() Runtime {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return Runtime{Alloc: m.Alloc, Sys: m.Sys, Goroutines: runtime.NumGoroutine()}
}

// HumanBytes formats n with binary units, e.g. "1.5 KiB".
func HumanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for q := n / unit; q >= unit && exp < 5; q /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
