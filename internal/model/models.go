package model

import "strings"

// Severity ranks a finding category.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
)

// Weight is the contribution of one finding of this severity to the
// overall risk score.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// Category identifies one classification predicate.
type Category string

const (
	CategoryUnused             Category = "unused_rules"
	CategoryCriticalPermissive Category = "critical_permissive_rules"
	CategoryHighRiskPermissive Category = "high_risk_permissive_rules"
	CategoryDuplicate          Category = "duplicate_rules"
	CategoryNoLogging          Category = "rules_without_logging"
)

// Severity maps a category to its rank.
func (c Category) Severity() Severity {
	switch c {
	case CategoryCriticalPermissive:
		return SeverityCritical
	case CategoryHighRiskPermissive, CategoryDuplicate:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

// FieldSet is the parsed value of a policy address or service field. The
// wildcard is detected once at parse time so classification never compares
// raw strings.
type FieldSet struct {
	Names []string `json:"names,omitempty"`
	Any   bool     `json:"any"`
}

func (f FieldSet) String() string {
	if f.Any {
		return "all"
	}
	return strings.Join(f.Names, ", ")
}

// PolicyRecord is one firewall rule as read from the input. Records are
// never mutated after parsing.
type PolicyRecord struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Action      string   `json:"action"`
	Source      FieldSet `json:"source"`
	Destination FieldSet `json:"destination"`
	Service     FieldSet `json:"service"`
	LogEnabled  bool     `json:"log_enabled"`
	Bytes       uint64   `json:"bytes"`
	// HasBytes distinguishes an absent traffic counter from a zero one.
	HasBytes bool `json:"has_bytes"`
}

// Finding is one classified issue referencing exactly one source record.
type Finding struct {
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
	RuleID   string   `json:"rule_id"`
	RuleName string   `json:"rule_name"`
	Detail   string   `json:"detail,omitempty"`
	// RelatedIDs cross-references the other members of a duplicate group.
	RelatedIDs []string `json:"related_ids,omitempty"`
}

// Recommendation is one remediation entry in the report.
type Recommendation struct {
	Priority Severity `json:"priority"`
	Category string   `json:"category"`
	Issue    string   `json:"issue"`
	Count    int      `json:"count"`
	Action   string   `json:"action"`
}

// SkippedRecord is a policy entry that could not be audited. It is kept in
// the report so nothing is silently dropped.
type SkippedRecord struct {
	Index  int    `json:"index"`
	Name   string `json:"name,omitempty"`
	Reason string `json:"reason"`
}

// AuditInfo is report metadata.
type AuditInfo struct {
	Date       string `json:"date"`
	SourceFile string `json:"source_file,omitempty"`
	TotalRules int    `json:"total_rules"`
}

// CategoryStat is the per-category summary entry.
type CategoryStat struct {
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// AuditSummary aggregates counts across all categories.
type AuditSummary struct {
	TotalRulesAnalyzed int                       `json:"total_rules_analyzed"`
	Categories         map[Category]CategoryStat `json:"categories"`
	RiskScore          int                       `json:"risk_score"`
}

// AuditReport is the policy analyzer output. Built once, serialized,
// discarded.
type AuditReport struct {
	AuditInfo       AuditInfo              `json:"audit_info"`
	Summary         AuditSummary           `json:"summary"`
	Findings        map[Category][]Finding `json:"detailed_results"`
	Recommendations []Recommendation       `json:"recommendations"`
	Skipped         []SkippedRecord        `json:"skipped_records,omitempty"`
}

// AddressObject is a named IP or CIDR reference from the objects input.
type AddressObject struct {
	Name  string   `json:"name"`
	Addrs []string `json:"addresses"`
}

// PingResult is the outcome of probing one IP belonging to one object.
type PingResult struct {
	ObjectName string `json:"name"`
	IP         string `json:"ip_address"`
	// Origin is the raw object value the IP was expanded from.
	Origin  string `json:"original_value,omitempty"`
	Success bool   `json:"success"`
}

// PingFailure is one failed probe in the report.
type PingFailure struct {
	Name   string `json:"name"`
	IP     string `json:"ip_address"`
	Origin string `json:"original_value,omitempty"`
}

// SkippedObject is an address object excluded from probing.
type SkippedObject struct {
	Name   string `json:"name"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason"`
}

// PingAuditInfo is connectivity report metadata.
type PingAuditInfo struct {
	Date                  string `json:"date"`
	SourceFile            string `json:"source_file,omitempty"`
	TotalObjectsProcessed int    `json:"total_objects_processed"`
}

// PingSummary aggregates probe outcomes.
type PingSummary struct {
	TotalIPsTested     int     `json:"total_ips_tested"`
	SuccessfulPings    int     `json:"successful_pings"`
	FailedPingsCount   int     `json:"failed_pings_count"`
	SuccessRatePercent float64 `json:"success_rate_percent"`
}

// ConnectivityReport is the object checker output.
type ConnectivityReport struct {
	PingAuditInfo   PingAuditInfo    `json:"ping_audit_info"`
	Summary         PingSummary      `json:"summary"`
	FailedPings     []PingFailure    `json:"failed_pings"`
	Skipped         []SkippedObject  `json:"skipped_objects,omitempty"`
	Recommendations []Recommendation `json:"recommendations"`
}
