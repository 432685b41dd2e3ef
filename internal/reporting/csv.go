package reporting

import (
	"fmt"
	"strings"

	"diffusion-lab/internal/orchestrator"
)

// RenderStudyCSV renders one study as CSV string. The first three header
// columns are the study's own column labels.
func RenderStudyCSV(s *orchestrator.StudyResult) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("%s,%s,%s,error_pct,run_id\n", s.Columns[0], s.Columns[1], s.Columns[2]))

	// Rows
	for _, row := range s.Rows {
		sb.WriteString(fmt.Sprintf("%g,%.6f,%.6f,%.6f,%s\n",
			row.Param,
			row.Value,
			row.Reference,
			row.ErrorPct,
			row.RunID,
		))
	}

	return sb.String()
}

// RenderOptionCSV renders option pricing runs as CSV string.
func RenderOptionCSV(rows []OptionRow) string {
	var sb strings.Builder

	sb.WriteString("run_id,s,k,t,r,sigma,call,put,parity_gap\n")
	for _, o := range rows {
		sb.WriteString(fmt.Sprintf("%s,%.6f,%.6f,%.6f,%.6f,%.6f,%s,%s,%.3e\n",
			o.RunID, o.S, o.K, o.T, o.R, o.Sigma,
			o.Call.StringFixed(PremiumPlaces), o.Put.StringFixed(PremiumPlaces), o.ParityGap))
	}

	return sb.String()
}

// RenderReplayCSV renders replay references as CSV string.
func RenderReplayCSV(rows []ReplayReferenceRow) string {
	var sb strings.Builder

	sb.WriteString("kind,run_id,seed\n")
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%d\n", r.Kind, r.RunID, r.Seed))
	}

	return sb.String()
}
