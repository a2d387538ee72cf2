package parser

import (
	"strings"
	"testing"
)

func TestParsePoliciesHandlesExportFieldShapes(t *testing.T) {
	input := `[
		{"Policy": "branch-out", "Action": "accept", "Source": ["branch-net"], "Destination": "dc-net", "Service": "HTTPS, SSH", "Log": "all", "Bytes": "15420 MB"},
		{"Policy": "wide-open", "Action": "ACCEPT", "Source": "ALL", "Destination": "any", "Service": ["ALL"], "Log": "disable", "Bytes": 0},
		{"Policy": "no-counter", "Action": "deny", "Source": "guest-net", "Destination": "dc-net", "Service": "DNS", "Log": true}
	]`

	records, skipped, err := ParsePolicies(strings.NewReader(input), "policycheck-forti.json")
	if err != nil {
		t.Fatalf("expected parse to succeed, got %v", err)
	}
	if len(skipped) != 0 {
		t.Fatalf("expected no skipped records, got %d", len(skipped))
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	first := records[0]
	if first.Name != "branch-out" || first.Action != "ACCEPT" {
		t.Errorf("unexpected name/action: %q %q", first.Name, first.Action)
	}
	if len(first.Service.Names) != 2 || first.Service.Names[0] != "HTTPS" || first.Service.Names[1] != "SSH" {
		t.Errorf("expected comma string to split into service names, got %v", first.Service.Names)
	}
	if first.Source.Any || first.Destination.Any || first.Service.Any {
		t.Errorf("expected no wildcards on the first record")
	}
	if !first.HasBytes || first.Bytes != 15420 {
		t.Errorf("expected bytes 15420 from display string, got %d (present=%v)", first.Bytes, first.HasBytes)
	}
	if !first.LogEnabled {
		t.Errorf("expected Log 'all' to mean logging enabled")
	}

	second := records[1]
	if !second.Source.Any || !second.Destination.Any || !second.Service.Any {
		t.Errorf("expected ALL/any sentinels to parse as wildcards: %+v", second)
	}
	if second.LogEnabled {
		t.Errorf("expected Log 'disable' to mean logging disabled")
	}
	if !second.HasBytes || second.Bytes != 0 {
		t.Errorf("expected an explicit zero counter, got %d (present=%v)", second.Bytes, second.HasBytes)
	}

	third := records[2]
	if third.HasBytes {
		t.Errorf("expected a missing counter to be recorded as absent")
	}
	if !third.LogEnabled {
		t.Errorf("expected boolean logging flag to parse")
	}
	if third.Action != "DENY" {
		t.Errorf("expected action to be upper-cased, got %q", third.Action)
	}
}

func TestParsePoliciesUnwrapsNestedDocuments(t *testing.T) {
	inputs := []string{
		`{"policies": [{"Policy": "a", "Action": "accept", "Source": "x", "Destination": "y", "Service": "SSH"}]}`,
		`{"Policy": [{"Policy": "a", "Action": "accept", "Source": "x", "Destination": "y", "Service": "SSH"}]}`,
	}
	for _, input := range inputs {
		records, _, err := ParsePolicies(strings.NewReader(input), "test.json")
		if err != nil {
			t.Fatalf("expected wrapped document to parse, got %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("expected 1 record from wrapped document, got %d", len(records))
		}
	}
}

func TestParsePoliciesSkipsMalformedRecords(t *testing.T) {
	input := `[
		{"Policy": "ok", "Action": "accept", "Source": "a", "Destination": "b", "Service": "SSH"},
		{"Policy": "no-action", "Source": "a", "Destination": "b", "Service": "SSH"},
		42
	]`

	records, skipped, err := ParsePolicies(strings.NewReader(input), "test.json")
	if err != nil {
		t.Fatalf("expected per-record errors to be isolated, got %v", err)
	}
	if len(records) != 1 || records[0].Name != "ok" {
		t.Fatalf("expected only the valid record, got %v", records)
	}
	if len(skipped) != 2 {
		t.Fatalf("expected 2 skipped records, got %d", len(skipped))
	}
	if skipped[0].Index != 2 || skipped[1].Index != 3 {
		t.Errorf("expected skipped indices 2 and 3, got %v", skipped)
	}
}

func TestParsePoliciesRejectsWholeFileProblems(t *testing.T) {
	if _, _, err := ParsePolicies(strings.NewReader("{not json"), "test.json"); err == nil {
		t.Errorf("expected error for invalid JSON")
	}
	if _, _, err := ParsePolicies(strings.NewReader("[]"), "test.json"); err == nil {
		t.Errorf("expected error for an empty policy list")
	}
	if _, _, err := ParsePolicies(strings.NewReader(`{"other": 1}`), "test.json"); err == nil {
		t.Errorf("expected error for a document without policies")
	}
}

func TestParsePoliciesDefaultsIdentifiers(t *testing.T) {
	input := `[{"Action": "accept", "Source": "a", "Destination": "b", "Service": "SSH"}]`
	records, _, err := ParsePolicies(strings.NewReader(input), "test.json")
	if err != nil {
		t.Fatalf("expected parse to succeed, got %v", err)
	}
	if records[0].ID != "1" {
		t.Errorf("expected ID to default to the 1-based index, got %q", records[0].ID)
	}
	if records[0].Name != "Rule_1" {
		t.Errorf("expected name to default to Rule_1, got %q", records[0].Name)
	}
}

func TestNewFieldSetWildcardDetection(t *testing.T) {
	tests := []struct {
		names []string
		any   bool
	}{
		{nil, true},
		{[]string{"ALL"}, true},
		{[]string{"Any"}, true},
		{[]string{"net-a", "all"}, true},
		{[]string{"net-a"}, false},
		{[]string{"allow-net"}, false},
	}
	for _, tt := range tests {
		if got := newFieldSet(tt.names).Any; got != tt.any {
			t.Errorf("newFieldSet(%v).Any = %v, want %v", tt.names, got, tt.any)
		}
	}
}
