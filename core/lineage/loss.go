package lineage

// LossClass represents the fidelity level of a conversion.
type LossClass string

// Loss class constants, from most to least fidelity.
const (
	LossL0 LossClass = "L0"
	LossL1 LossClass = "L1"
	LossL2 LossClass = "L2"
	LossL3 LossClass = "L3"
	LossL4 LossClass = "L4"
)

// IsValid returns true if the loss class is valid.
func (l LossClass) IsValid() bool {
	return l.Level() >= 0
}

// Level returns the numeric level (0-4) of the loss class.
func (l LossClass) Level() int {
	switch l {
	case LossL0:
		return 0
	case LossL1:
		return 1
	case LossL2:
		return 2
	case LossL3:
		return 3
	case LossL4:
		return 4
	default:
		return -1
	}
}

// IsLossless returns true if this loss class indicates no data loss.
func (l LossClass) IsLossless() bool {
	return l == LossL0
}

// Worse returns the lower-fidelity of l and other.
func (l LossClass) Worse(other LossClass) LossClass {
	if other.Level() > l.Level() {
		return other
	}
	return l
}

// LostElement describes data a conversion could not carry.
type LostElement struct {
	// Path locates the element, e.g. "I1/events[2]".
	Path string `json:"path"`

	// ElementType names what was lost, e.g. "event", "citation".
	ElementType string `json:"element_type"`

	Reason string `json:"reason"`

	OriginalValue interface{} `json:"original_value,omitempty"`
}

// LossReport documents the fidelity of a conversion.
type LossReport struct {
	SourceFormat string        `json:"source_format"`
	TargetFormat string        `json:"target_format"`
	LossClass    LossClass     `json:"loss_class"`
	LostElements []LostElement `json:"lost_elements,omitempty"`
	Warnings     []string      `json:"warnings,omitempty"`
}

// NewLossReport starts a lossless report between two formats.
func NewLossReport(source, target string) *LossReport {
	return &LossReport{SourceFormat: source, TargetFormat: target, LossClass: LossL0}
}

// HasLoss returns true if any elements were lost.
func (r *LossReport) HasLoss() bool {
	return len(r.LostElements) > 0 || r.LossClass.Level() > 0
}

// AddLostElement records a lost element and degrades the class to at least
// class.
func (r *LossReport) AddLostElement(path, elementType, reason string, class LossClass) {
	r.LostElements = append(r.LostElements, LostElement{
		Path:        path,
		ElementType: elementType,
		Reason:      reason,
	})
	r.LossClass = r.LossClass.Worse(class)
}

// AddWarning adds a warning to the report.
func (r *LossReport) AddWarning(warning string) {
	r.Warnings = append(r.Warnings, warning)
}

// CountByType tallies lost elements per element type.
func (r *LossReport) CountByType() map[string]int {
	counts := make(map[string]int)
	for _, el := range r.LostElements {
		counts[el.ElementType]++
	}
	return counts
}
