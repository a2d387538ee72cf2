package audit

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"fortigate-audit-toolkit/internal/model"
)

const actionAccept = "ACCEPT"

// Auditor runs the classification predicates over a policy set. Each
// predicate is independent; a record may land in several categories, except
// that critical-permissive and high-risk-permissive are mutually exclusive
// (the most severe of the pair wins).
type Auditor struct {
	records []model.PolicyRecord
}

func NewAuditor(records []model.PolicyRecord) *Auditor {
	return &Auditor{records: records}
}

// Run executes every predicate and assembles the report.
func (a *Auditor) Run() *model.AuditReport {
	critical, highRisk := a.permissiveRules()
	findings := map[model.Category][]model.Finding{
		model.CategoryUnused:             a.unusedRules(),
		model.CategoryCriticalPermissive: critical,
		model.CategoryHighRiskPermissive: highRisk,
		model.CategoryDuplicate:          a.duplicateRules(),
		model.CategoryNoLogging:          a.unloggedRules(),
	}

	total := len(a.records)
	summary := model.AuditSummary{
		TotalRulesAnalyzed: total,
		Categories:         make(map[model.Category]model.CategoryStat, len(findings)),
	}
	for category, list := range findings {
		summary.Categories[category] = model.CategoryStat{
			Count:   len(list),
			Percent: percent(len(list), total),
		}
		summary.RiskScore += len(list) * category.Severity().Weight()
	}

	return &model.AuditReport{
		AuditInfo: model.AuditInfo{
			Date:       time.Now().Format(time.RFC3339),
			TotalRules: total,
		},
		Summary:         summary,
		Findings:        findings,
		Recommendations: recommendations(findings),
	}
}

// unusedRules flags accepted rules whose traffic counter is zero. Records
// without a counter are excluded rather than treated as errors.
func (a *Auditor) unusedRules() []model.Finding {
	var findings []model.Finding
	for i := range a.records {
		record := &a.records[i]
		if record.Action != actionAccept || !record.HasBytes || record.Bytes != 0 {
			continue
		}
		findings = append(findings, newFinding(model.CategoryUnused, record,
			fmt.Sprintf("accepted rule has passed no traffic (source=%s destination=%s service=%s)",
				record.Source, record.Destination, record.Service)))
	}
	return findings
}

// permissiveRules separates rules with all three fields wildcarded
// (critical) from rules with one or two wildcarded fields (high risk).
func (a *Auditor) permissiveRules() (critical, highRisk []model.Finding) {
	for i := range a.records {
		record := &a.records[i]
		wild := wildcardFields(record)
		switch {
		case len(wild) == 3:
			critical = append(critical, newFinding(model.CategoryCriticalPermissive, record,
				"source, destination and service are all wildcarded"))
		case len(wild) > 0:
			highRisk = append(highRisk, newFinding(model.CategoryHighRiskPermissive, record,
				fmt.Sprintf("wildcarded: %s", strings.Join(wild, ", "))))
		}
	}
	return critical, highRisk
}

// duplicateRules groups records by their (source, destination, service,
// action) signature. Every member of a group of two or more yields a
// finding cross-referencing the rest of the group, so detection is
// symmetric by construction.
func (a *Auditor) duplicateRules() []model.Finding {
	groups := make(map[string][]int)
	for i := range a.records {
		sig := signature(&a.records[i])
		groups[sig] = append(groups[sig], i)
	}

	var findings []model.Finding
	for i := range a.records {
		record := &a.records[i]
		group := groups[signature(record)]
		if len(group) < 2 {
			continue
		}
		var related []string
		for _, j := range group {
			if j != i {
				related = append(related, a.records[j].ID)
			}
		}
		finding := newFinding(model.CategoryDuplicate, record,
			fmt.Sprintf("shares source, destination, service and action with %d other rule(s)", len(related)))
		finding.RelatedIDs = related
		findings = append(findings, finding)
	}
	return findings
}

// unloggedRules flags rules with logging disabled, regardless of action.
func (a *Auditor) unloggedRules() []model.Finding {
	var findings []model.Finding
	for i := range a.records {
		record := &a.records[i]
		if record.LogEnabled {
			continue
		}
		findings = append(findings, newFinding(model.CategoryNoLogging, record,
			fmt.Sprintf("logging disabled (action=%s)", record.Action)))
	}
	return findings
}

func newFinding(category model.Category, record *model.PolicyRecord, detail string) model.Finding {
	return model.Finding{
		Category: category,
		Severity: category.Severity(),
		RuleID:   record.ID,
		RuleName: record.Name,
		Detail:   detail,
	}
}

func wildcardFields(record *model.PolicyRecord) []string {
	var wild []string
	if record.Source.Any {
		wild = append(wild, "source")
	}
	if record.Destination.Any {
		wild = append(wild, "destination")
	}
	if record.Service.Any {
		wild = append(wild, "service")
	}
	return wild
}

// signature canonicalizes the duplicate-detection tuple: field names are
// lower-cased and sorted so ordering and case differences between exports
// do not hide duplicates, and the wildcard collapses to a single token.
func signature(record *model.PolicyRecord) string {
	return strings.Join([]string{
		canonField(record.Source),
		canonField(record.Destination),
		canonField(record.Service),
		record.Action,
	}, "|")
}

func canonField(f model.FieldSet) string {
	if f.Any {
		return "all"
	}
	names := make([]string, len(f.Names))
	for i, name := range f.Names {
		names[i] = strings.ToLower(name)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// recommendationOrder fixes the report ordering: descending severity, with
// a stable order inside each severity band.
var recommendationOrder = []model.Category{
	model.CategoryCriticalPermissive,
	model.CategoryHighRiskPermissive,
	model.CategoryDuplicate,
	model.CategoryUnused,
	model.CategoryNoLogging,
}

func recommendations(findings map[model.Category][]model.Finding) []model.Recommendation {
	var recs []model.Recommendation
	for _, category := range recommendationOrder {
		count := len(findings[category])
		if count == 0 {
			continue
		}
		rec := model.Recommendation{
			Priority: category.Severity(),
			Count:    count,
		}
		switch category {
		case model.CategoryCriticalPermissive:
			rec.Category = "Security"
			rec.Issue = fmt.Sprintf("%d rule(s) with source, destination and service all wildcarded", count)
			rec.Action = "URGENT: restrict source, destination and services - these rules allow everything"
		case model.CategoryHighRiskPermissive:
			rec.Category = "Security"
			rec.Issue = fmt.Sprintf("%d rule(s) with a wildcarded source, destination or service", count)
			rec.Action = "Restrict sources, destinations and services according to the least privilege principle"
		case model.CategoryDuplicate:
			rec.Category = "Optimization"
			rec.Issue = fmt.Sprintf("%d duplicate rule(s)", count)
			rec.Action = "Consolidate or remove redundant rules"
		case model.CategoryUnused:
			rec.Category = "Cleanup"
			rec.Issue = fmt.Sprintf("%d unused ACCEPT rule(s)", count)
			rec.Action = "Remove or disable these rules to reduce attack surface"
		case model.CategoryNoLogging:
			rec.Category = "Monitoring"
			rec.Issue = fmt.Sprintf("%d rule(s) without logging", count)
			rec.Action = "Enable logging for traceability and monitoring"
		}
		recs = append(recs, rec)
	}
	return recs
}

func percent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*10000) / 100
}
