package config

import (
	"bufio"
	"fmt"
	"strings"
)

// MembershipType maps a label shown to applicants to the remote type id.
type MembershipType struct {
	Label    string `json:"label"`
	RemoteID string `json:"remote_id"`
}

// MembershipTypes is an ordered list of membership types.
type MembershipTypes []MembershipType

// ParseMembershipTypes parses newline-delimited "Label=RemoteID" pairs.
// Blank lines and lines starting with '#' are skipped.
func ParseMembershipTypes(raw string) (MembershipTypes, error) {
	var types MembershipTypes
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(strings.NewReader(raw))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		label, remoteID, ok := strings.Cut(line, "=")
		label = strings.TrimSpace(label)
		remoteID = strings.TrimSpace(remoteID)
		if !ok || label == "" || remoteID == "" {
			return nil, fmt.Errorf("membership_types line %d: expected Label=RemoteID, got %q", lineNo, line)
		}

		key := strings.ToLower(label)
		if seen[key] {
			return nil, fmt.Errorf("membership_types line %d: duplicate label %q", lineNo, label)
		}
		seen[key] = true

		types = append(types, MembershipType{Label: label, RemoteID: remoteID})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read membership_types: %w", err)
	}
	return types, nil
}

// Lookup finds a type by label, case-insensitively.
func (t MembershipTypes) Lookup(label string) (MembershipType, bool) {
	label = strings.TrimSpace(label)
	for _, mt := range t {
		if strings.EqualFold(mt.Label, label) {
			return mt, true
		}
	}
	return MembershipType{}, false
}

// Labels returns the labels in configuration order.
func (t MembershipTypes) Labels() []string {
	labels := make([]string, 0, len(t))
	for _, mt := range t {
		labels = append(labels, mt.Label)
	}
	return labels
}
