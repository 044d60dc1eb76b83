package events

import (
	"fmt"
	"strings"
)

// Priority упорядочена по возрастанию: Critical > High > Normal > Low.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow, nil
	case "normal", "":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	case "critical":
		return PriorityCritical, nil
	}
	return PriorityNormal, fmt.Errorf("unknown priority %q", s)
}

// DefaultPriority — приоритет события, если эмиттер не указал свой.
func DefaultPriority(t Type) Priority {
	switch t {
	case OrderPaymentSucceeded, OrderPaymentFailed:
		return PriorityCritical
	case OrderCreated:
		return PriorityHigh
	default:
		return PriorityNormal
	}
}
