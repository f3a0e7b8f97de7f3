package threshold

import (
	"strings"
)

// Category is the closed set of metric families. Suggested remediation
// actions are resolved per category so new metrics of a known family get
// sensible guidance without extra configuration.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryCPU
	CategoryMemory
	CategoryDisk
	CategoryNetwork
	CategoryLoad
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryCPU:
		return "cpu"
	case CategoryMemory:
		return "memory"
	case CategoryDisk:
		return "disk"
	case CategoryNetwork:
		return "network"
	case CategoryLoad:
		return "load"
	default:
		return "unknown"
	}
}

// CategoryFor maps a metric name to its family.
func CategoryFor(metricName string) Category {
	name := strings.ToLower(metricName)
	switch {
	case strings.HasPrefix(name, "cpu"):
		return CategoryCPU
	case strings.HasPrefix(name, "memory") || strings.HasPrefix(name, "swap"):
		return CategoryMemory
	case strings.HasPrefix(name, "disk"):
		return CategoryDisk
	case strings.HasPrefix(name, "network"):
		return CategoryNetwork
	case strings.HasPrefix(name, "load"):
		return CategoryLoad
	default:
		return CategoryUnknown
	}
}

// PercentageScaled reports whether values of this family are bounded
// percentages; the hard ceiling only applies to those.
func (c Category) PercentageScaled() bool {
	switch c {
	case CategoryCPU, CategoryMemory, CategoryDisk:
		return true
	default:
		return false
	}
}
