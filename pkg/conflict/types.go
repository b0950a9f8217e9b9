package conflict

// Type tags one reason an incoming row disagrees with a stored booking.
type Type string

// Conflict types.
const (
	// StatusChange indicates the external status text differs.
	StatusChange Type = "status_change"
	// GuestNameChange indicates the guest names are not identical.
	GuestNameChange Type = "guest_name_change"
	// DateChange indicates the start date, end date or nights differ.
	DateChange Type = "date_change"
	// PropertyChange indicates the row resolved to a different property.
	PropertyChange Type = "property_change"
	// SourceChange indicates the booking source differs.
	SourceChange Type = "source_change"
	// ExactDuplicate indicates every compared field is identical. Informational only.
	ExactDuplicate Type = "exact_duplicate"
)

// String returns the tag.
func (t Type) String() string {
	return string(t)
}

// Severity ranks how risky it is to accept a conflict unattended.
type Severity string

// Severities, lowest first.
const (
	SeverityNone   Severity = "none"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

var severityRank = map[Severity]int{
	SeverityNone:   0,
	SeverityLow:    1,
	SeverityMedium: 2,
	SeverityHigh:   3,
}

// Max returns the more severe of s and other.
func (s Severity) Max(other Severity) Severity {
	if severityRank[other] > severityRank[s] {
		return other
	}
	return s
}

// SeverityOf returns the severity a single conflict type carries.
func SeverityOf(t Type) Severity {
	switch t {
	case StatusChange:
		return SeverityLow
	case GuestNameChange:
		return SeverityMedium
	case DateChange, PropertyChange, SourceChange:
		return SeverityHigh
	default:
		return SeverityNone
	}
}

// IsSubstantive reports whether t can never be applied unattended.
func (t Type) IsSubstantive() bool {
	switch t {
	case DateChange, PropertyChange, SourceChange:
		return true
	}
	return false
}
