package helpers

import (
	"runtime/debug"

	"symbollist-observer/src/logger"
)

const minMemoryLimitMB = 512

// GetRecommendedMemoryLimit returns 75% of physical RAM in MB, never less
// than 512MB unless the machine itself has less.
func GetRecommendedMemoryLimit() int {
	totalMB := GetTotalSystemMemoryMB()
	if totalMB == 0 {
		return minMemoryLimitMB
	}

	limit := int(float64(totalMB) * 0.75)
	if limit < minMemoryLimitMB {
		if totalMB < minMemoryLimitMB {
			return totalMB
		}
		return minMemoryLimitMB
	}
	return limit
}

// ApplyMemoryLimit sets the runtime soft memory limit to the recommended value
// and returns it in MB.
func ApplyMemoryLimit(log *logger.Logger) int {
	limit := GetRecommendedMemoryLimit()
	debug.SetMemoryLimit(int64(limit) << 20)
	if log != nil {
		log.Info("Memory limit set to %d MB (system total %d MB)", limit, GetTotalSystemMemoryMB())
	}
	return limit
}
