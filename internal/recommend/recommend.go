// Package recommend holds the static memory recommendation table and the
// system memory probe it is keyed on.
package recommend

import (
	"fmt"

	"github.com/psantana5/frc/internal/jsruntime"
	"github.com/shirou/gopsutil/v3/mem"
)

// FallbackSystemGB is assumed when system memory cannot be read
const FallbackSystemGB = 16

// SizeHint classifies a project for the recommendation table
type SizeHint int

const (
	Typical SizeHint = iota
	Large
)

func (h SizeHint) String() string {
	if h == Large {
		return "large"
	}
	return "typical"
}

// tier is one row of the recommendation table
type tier struct {
	minGB   int
	typical int
	large   int
	label   string
}

// tiers are ordered from the largest machine down
var tiers = []tier{
	{minGB: 64, typical: 16384, large: 24576, label: "For 64GB+: 16384-24576 MB for large projects"},
	{minGB: 32, typical: 8192, large: 12288, label: "For 32GB: 8192-12288 MB for large projects"},
	{minGB: 16, typical: 4096, large: 6144, label: "For 16GB: 4096-6144 MB for large projects"},
	{minGB: 0, typical: 2048, large: 4096, label: "For <16GB: 2048-4096 MB"},
}

func lookup(systemGB int) tier {
	for _, t := range tiers {
		if systemGB >= t.minGB {
			return t
		}
	}
	return tiers[len(tiers)-1]
}

// DefaultMemory returns the recommended ceiling in MB for a typical project
func DefaultMemory(systemGB int) int {
	return lookup(systemGB).typical
}

// RecommendMemory returns the recommended ceiling in MB for a machine with
// systemTotalMB of memory and a project of the given size
func RecommendMemory(systemTotalMB int, hint SizeHint) int {
	t := lookup(systemTotalMB / 1024)
	if hint == Large {
		return t.large
	}
	return t.typical
}

// Recommendation returns the human readable advice for a runtime
func Recommendation(kind jsruntime.Kind, systemGB int) string {
	if !kind.SupportsMemoryLimit() {
		return "Bun manages memory automatically (GC at ~80% system memory)"
	}
	return lookup(systemGB).label + "\nRule: Allocate 20-40% of system memory for development"
}

// Severity of an Advice
type Severity string

const (
	SeverityNone    Severity = ""
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Advice is the outcome of Validate; it never blocks a run
type Advice struct {
	Severity Severity `json:"severity,omitempty" yaml:"severity,omitempty"`
	Percent  int      `json:"percent" yaml:"percent"`
	Message  string   `json:"message,omitempty" yaml:"message,omitempty"`
}

// Empty reports whether there is nothing to tell the user
func (a Advice) Empty() bool {
	return a.Severity == SeverityNone
}

// Validate compares a ceiling against system memory: above the machine or
// above 75% is a warning, below 10% is an info line.
func Validate(kind jsruntime.Kind, memoryMB, systemGB int) Advice {
	if !kind.SupportsMemoryLimit() || memoryMB <= 0 || systemGB <= 0 {
		return Advice{}
	}

	systemMB := systemGB * 1024
	percent := int(float64(memoryMB) / float64(systemMB) * 100)

	switch {
	case memoryMB > systemMB:
		return Advice{
			Severity: SeverityWarning,
			Percent:  percent,
			Message:  fmt.Sprintf("Memory limit (%d MB) exceeds system memory (%d GB)", memoryMB, systemGB),
		}
	case percent > 75:
		return Advice{
			Severity: SeverityWarning,
			Percent:  percent,
			Message:  fmt.Sprintf("%d%% of system memory (recommended: 20-40%% dev, 50-75%% prod)", percent),
		}
	case percent < 10:
		return Advice{
			Severity: SeverityInfo,
			Percent:  percent,
			Message:  fmt.Sprintf("Only %d%% of system memory, can increase for better performance", percent),
		}
	}
	return Advice{Percent: percent}
}

// Advisor answers recommendation questions for the current machine
type Advisor struct {
	totalBytes func() (uint64, error)
}

// NewAdvisor reads system memory through gopsutil
func NewAdvisor() *Advisor {
	return &Advisor{totalBytes: func() (uint64, error) {
		vmem, err := mem.VirtualMemory()
		if err != nil {
			return 0, err
		}
		return vmem.Total, nil
	}}
}

// NewStaticAdvisor reports a fixed amount of system memory
func NewStaticAdvisor(systemMB int) *Advisor {
	return &Advisor{totalBytes: func() (uint64, error) {
		return uint64(systemMB) * 1024 * 1024, nil
	}}
}

// SystemMB returns total system memory in MB, or the fallback
func (a *Advisor) SystemMB() int {
	total, err := a.totalBytes()
	if err != nil || total == 0 {
		return FallbackSystemGB * 1024
	}
	return int(total / (1024 * 1024))
}

// SystemGB returns total system memory in whole GB, or the fallback
func (a *Advisor) SystemGB() int {
	return a.SystemMB() / 1024
}

// Default returns DefaultMemory for this machine
func (a *Advisor) Default() int {
	return DefaultMemory(a.SystemGB())
}

// Recommendation returns the advice text for this machine
func (a *Advisor) Recommendation(kind jsruntime.Kind) string {
	return Recommendation(kind, a.SystemGB())
}

// Validate checks a ceiling against this machine
func (a *Advisor) Validate(kind jsruntime.Kind, memoryMB int) Advice {
	return Validate(kind, memoryMB, a.SystemGB())
}
