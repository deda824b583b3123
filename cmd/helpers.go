package cmd

import (
	"fmt"
	"strings"

	"github.com/ava-labs/nodeid-cli/pkg/nodeid"
)

// Output formats for derived identifiers.
const (
	formatID   = "id"
	formatCB58 = "cb58"
	formatHex  = "hex"
)

// formatNodeID renders a node ID in the requested output format.
func formatNodeID(id nodeid.ID, format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", formatID:
		return id.String(), nil
	case formatCB58:
		return nodeid.Encode(id.Bytes()), nil
	case formatHex:
		return nodeid.EncodeHex(id.Bytes()), nil
	default:
		return "", fmt.Errorf("unknown output format %q (want id, cb58, or hex)", format)
	}
}

// parseCommaSeparated splits a comma-separated flag value, trimming
// whitespace and dropping empty entries.
func parseCommaSeparated(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
