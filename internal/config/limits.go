package config

import "slices"

// InstanceCounts are the grid sizes offered by the front ends.
var InstanceCounts = []int{1, 2, 4, 6, 8}

// Thresholds are the console retention sizes offered to users.
var Thresholds = []int{50, 100, 500, 1000}

// DefaultThreshold is the default console retention, in lines.
const DefaultThreshold = 500

// ConsoleConfig bounds per-instance output retention.
type ConsoleConfig struct {
	Threshold int `yaml:"threshold" json:"threshold"`
}

// ValidInstanceCount reports whether n is an offered grid size.
func ValidInstanceCount(n int) bool {
	return slices.Contains(InstanceCounts, n)
}

// ValidThreshold reports whether n is an offered retention size.
func ValidThreshold(n int) bool {
	return slices.Contains(Thresholds, n)
}

// NextThreshold cycles through Thresholds.
func NextThreshold(current int) int {
	i := slices.Index(Thresholds, current)
	return Thresholds[(i+1)%len(Thresholds)]
}

// MaxThreadsPerInstance shares cpus between instances, at least one each.
func MaxThreadsPerInstance(cpus, instances int) int {
	if instances < 1 {
		instances = 1
	}
	return max(1, cpus/instances)
}
