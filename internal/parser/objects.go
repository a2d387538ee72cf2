package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"fortigate-audit-toolkit/internal/model"
)

// rawObject mirrors the object export's field names. Exports carry the
// address values under either "IP" or "Address", as a string or a list.
type rawObject struct {
	Name    flexStrings `json:"name"`
	IP      flexStrings `json:"ip"`
	Address flexStrings `json:"address"`
}

// ParseObjects reads an address-object export. Entries without a usable
// name or without any address value are skipped into the report bucket;
// only whole-file problems are errors.
func ParseObjects(r io.Reader, source string) ([]model.AddressObject, []model.SkippedObject, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("could not read %s: %w", source, err)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, nil, fmt.Errorf("invalid JSON in %s: %w", source, err)
	}

	var objects []model.AddressObject
	var skipped []model.SkippedObject
	for i, entry := range entries {
		var raw rawObject
		if err := json.Unmarshal(entry, &raw); err != nil {
			slog.Warn("Skipping object record", "index", i+1, "error", err)
			skipped = append(skipped, model.SkippedObject{
				Name:   fmt.Sprintf("object_%d", i+1),
				Reason: fmt.Sprintf("not an object entry: %v", err),
			})
			continue
		}

		name := "Unknown"
		if len(raw.Name) > 0 {
			name = raw.Name[0]
		}

		addrs := append([]string{}, raw.IP...)
		addrs = append(addrs, raw.Address...)
		if len(addrs) == 0 {
			slog.Warn("Skipping object record", "index", i+1, "name", name, "error", "no address values")
			skipped = append(skipped, model.SkippedObject{Name: name, Reason: "no address values"})
			continue
		}

		objects = append(objects, model.AddressObject{Name: name, Addrs: addrs})
	}
	return objects, skipped, nil
}
