package parser

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"fortigate-audit-toolkit/internal/model"
)

// FortiGateParser reads audit records straight from a FortiGate CLI
// configuration backup, so a device that was never exported to JSON can
// still be audited. Only the policy section matters here: classification
// works on name tuples and never resolves address or service objects.
//
// A config backup carries no traffic counters, so records from this
// provider are never classified as unused.
type FortiGateParser struct {
	scanner *bufio.Scanner

	Records []model.PolicyRecord
}

func NewFortiGateParser(reader io.Reader) *FortiGateParser {
	return &FortiGateParser{
		scanner: bufio.NewScanner(reader),
	}
}

func (p *FortiGateParser) Parse() error {
	for p.scanner.Scan() {
		line := strings.TrimSpace(p.scanner.Text())
		if strings.HasPrefix(line, "config firewall policy") {
			if err := p.parsePolicyConfig(); err != nil {
				return fmt.Errorf("failed to parse firewall policy config: %w", err)
			}
		}
	}
	if err := p.scanner.Err(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

func (p *FortiGateParser) parsePolicyConfig() error {
	var current *model.PolicyRecord
	var srcNames, dstNames, svcNames []string

	for p.scanner.Scan() {
		line := strings.TrimSpace(p.scanner.Text())
		if line == "end" {
			return nil
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		switch parts[0] {
		case "edit":
			id := unquote(parts[1])
			p.Records = append(p.Records, model.PolicyRecord{ID: id})
			current = &p.Records[len(p.Records)-1]
			srcNames, dstNames, svcNames = nil, nil, nil
		case "set":
			if current == nil || len(parts) < 3 {
				continue
			}

			// Join parts from index 2 to the end, then split by quotes.
			// This handles names with spaces like "My Server Farm".
			rawArgs := strings.TrimSpace(strings.Join(parts[2:], " "))
			args := strings.Split(rawArgs, `" "`)
			for i, arg := range args {
				args[i] = unquote(arg)
			}

			switch parts[1] {
			case "name":
				current.Name = unquote(strings.Join(parts[2:], " "))
			case "srcaddr":
				srcNames = append(srcNames, args...)
			case "dstaddr":
				dstNames = append(dstNames, args...)
			case "service":
				svcNames = append(svcNames, args...)
			case "action":
				current.Action = strings.ToUpper(parts[2])
			case "logtraffic":
				current.LogEnabled = parts[2] != "disable"
			}
		case "next":
			if current != nil {
				if current.Name == "" {
					current.Name = "Rule_" + current.ID
				}
				if current.Action == "" {
					current.Action = "DENY"
				}
				current.Source = newFieldSet(srcNames)
				current.Destination = newFieldSet(dstNames)
				current.Service = newFieldSet(svcNames)
			}
			current = nil
		}
	}
	return io.ErrUnexpectedEOF
}

func unquote(s string) string {
	return strings.Trim(s, `"`)
}
