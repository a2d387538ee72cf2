package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"fortigate-audit-toolkit/internal/model"
)

// flexStrings decodes a field that exporters emit either as a single string
// (possibly comma separated) or as a list of strings.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = splitNames(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		var names []string
		for _, v := range list {
			if v = strings.TrimSpace(v); v != "" {
				names = append(names, v)
			}
		}
		*f = names
		return nil
	}
	return fmt.Errorf("expected string or list of strings, got %s", string(data))
}

func splitNames(s string) []string {
	var names []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}

var bytesPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// flexBytes decodes a traffic counter emitted as a JSON number or as a
// display string like "15420 MB". The unit is not normalized; the audit only
// distinguishes zero from non-zero.
type flexBytes uint64

func (f *flexBytes) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		if n < 0 {
			n = 0
		}
		*f = flexBytes(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected number or string for bytes, got %s", string(data))
	}
	match := bytesPattern.FindString(s)
	if match == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return err
	}
	*f = flexBytes(v)
	return nil
}

// flexBool decodes a logging flag emitted as a bool or as a FortiGate
// setting string. Empty, "none" and "disable" mean logging is off.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected bool or string for logging flag, got %s", string(data))
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "disable", "disabled", "false":
		*f = false
	default:
		*f = true
	}
	return nil
}

// flexID decodes an identifier emitted as a JSON number or string.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected number or string for id, got %s", string(data))
	}
	*f = flexID(strings.TrimSpace(s))
	return nil
}

// rawPolicy mirrors the exporter's field names. encoding/json falls back to
// case-insensitive matching, so "Source", "source" and "SOURCE" all land.
type rawPolicy struct {
	ID          flexID      `json:"id"`
	Name        flexStrings `json:"name"`
	Policy      flexStrings `json:"policy"`
	Action      flexStrings `json:"action"`
	Source      flexStrings `json:"source"`
	Destination flexStrings `json:"destination"`
	Service     flexStrings `json:"service"`
	Log         flexBool    `json:"log"`
	Logging     *flexBool   `json:"logging"`
	Bytes       *flexBytes  `json:"bytes"`
}

// policyDocument unwraps exports that nest the rule array under a key.
type policyDocument struct {
	Policies []json.RawMessage `json:"policies"`
	Policy   []json.RawMessage `json:"Policy"`
}

// newFieldSet builds a FieldSet, flagging the wildcard when the field is
// empty or any name is the ALL/any sentinel.
func newFieldSet(names []string) model.FieldSet {
	if len(names) == 0 {
		return model.FieldSet{Any: true}
	}
	for _, name := range names {
		switch strings.ToLower(name) {
		case "all", "any":
			return model.FieldSet{Names: names, Any: true}
		}
	}
	return model.FieldSet{Names: names}
}

// ParsePolicies reads a policy export. Per-record problems are isolated:
// the offending entry is logged, returned in the skipped list and the rest
// of the batch is processed. Only whole-file problems are errors.
func ParsePolicies(r io.Reader, source string) ([]model.PolicyRecord, []model.SkippedRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("could not read %s: %w", source, err)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		var doc policyDocument
		if docErr := json.Unmarshal(data, &doc); docErr != nil {
			return nil, nil, fmt.Errorf("invalid JSON in %s: %w", source, err)
		}
		entries = doc.Policies
		if len(entries) == 0 {
			entries = doc.Policy
		}
	}
	if len(entries) == 0 {
		return nil, nil, fmt.Errorf("no policies found in %s", source)
	}

	var records []model.PolicyRecord
	var skipped []model.SkippedRecord
	for i, entry := range entries {
		record, err := parsePolicyEntry(entry, i)
		if err != nil {
			slog.Warn("Skipping policy record", "index", i+1, "error", err)
			skipped = append(skipped, model.SkippedRecord{Index: i + 1, Reason: err.Error()})
			continue
		}
		records = append(records, record)
	}
	return records, skipped, nil
}

func parsePolicyEntry(entry json.RawMessage, index int) (model.PolicyRecord, error) {
	var raw rawPolicy
	if err := json.Unmarshal(entry, &raw); err != nil {
		return model.PolicyRecord{}, fmt.Errorf("not a policy object: %w", err)
	}

	action := strings.ToUpper(strings.Join(raw.Action, " "))
	if action == "" {
		return model.PolicyRecord{}, fmt.Errorf("missing required field 'action'")
	}

	name := strings.Join(raw.Name, ", ")
	if name == "" {
		name = strings.Join(raw.Policy, ", ")
	}
	if name == "" {
		name = fmt.Sprintf("Rule_%d", index+1)
	}

	id := string(raw.ID)
	if id == "" {
		id = strconv.Itoa(index + 1)
	}

	logEnabled := bool(raw.Log)
	if raw.Logging != nil {
		logEnabled = bool(*raw.Logging)
	}

	record := model.PolicyRecord{
		ID:          id,
		Name:        name,
		Action:      action,
		Source:      newFieldSet(raw.Source),
		Destination: newFieldSet(raw.Destination),
		Service:     newFieldSet(raw.Service),
		LogEnabled:  logEnabled,
	}
	if raw.Bytes != nil {
		record.Bytes = uint64(*raw.Bytes)
		record.HasBytes = true
	}
	return record, nil
}
