package config

import (
	"fmt"
	"strings"
)

// ConfigurationError reports invalid configuration. It is raised before any
// slot is fetched.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// ValidateRange checks the core scan parameters.
func ValidateRange(beginSlot, endSlot uint64, topN int) error {
	var problems []string
	if beginSlot > endSlot {
		problems = append(problems, fmt.Sprintf("scan: begin_slot %d is after end_slot %d", beginSlot, endSlot))
	}
	if topN < 1 {
		problems = append(problems, fmt.Sprintf("scan: top_n must be at least 1, got %d", topN))
	}
	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}
	return nil
}
