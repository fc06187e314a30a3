package table

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/agentstation/factsync/pkg/kb"
	"github.com/agentstation/factsync/pkg/provenance"
)

// ProvenanceToTableData lists tracked mutations grouped by entity.
// Only facts matching one of the patterns are shown.
func ProvenanceToTableData(m provenance.Map, patterns []string) Data {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	var rows [][]string
	for _, id := range ids {
		first := true
		for _, entry := range m[kb.EntityID(id)] {
			if !MatchField(entry.Fact, patterns) {
				continue
			}
			// Entity only on its first row
			entity := ""
			if first {
				entity = id
				first = false
			}
			rows = append(rows, []string{
				entity,
				entry.Fact,
				entry.Action,
				formatClaim(entry.ClaimID),
				strings.Join(entry.Cited, " "),
				formatTimestamp(entry.Timestamp),
			})
		}
	}

	return Data{
		Headers: []string{"Entity", "Fact", "Action", "Claim", "Cited", "When"},
		Rows:    rows,
		ColumnAlignment: []Align{
			AlignLeft, // Entity
			AlignLeft, // Fact
			AlignLeft, // Action
			AlignLeft, // Claim
			AlignLeft, // Cited
			AlignLeft, // When
		},
	}
}

// MatchField checks if a fact matches any of the provided patterns.
// Supports wildcards ("P2114 *") and prefix patterns ("decay.*").
// Matching is case-insensitive.
func MatchField(field string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}

	fieldLower := strings.ToLower(field)
	for _, pattern := range patterns {
		patternLower := strings.ToLower(pattern)

		matched, err := filepath.Match(patternLower, fieldLower)
		if err == nil && matched {
			return true
		}

		if strings.HasSuffix(patternLower, ".*") {
			prefix := strings.TrimSuffix(patternLower, ".*")
			if strings.HasPrefix(fieldLower, prefix+".") || fieldLower == prefix {
				return true
			}
		}
	}
	return false
}

func formatClaim(id string) string {
	if id == "" {
		return "-"
	}
	return id
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}
