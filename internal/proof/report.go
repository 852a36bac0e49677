package proof

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Error codes accumulated during a run. Their order in the report
// follows the order the checks ran; codes are not deduplicated.
const (
	ErrUnverifiedIdentityEmail = "unverified-identity-email"
	ErrUnverifiedIdentityUser  = "unverified-identity-user"
	ErrDuplicateContribution   = "duplicate-contribution"
	ErrInvalidSchema           = "invalid-schema"
	ErrProfileMismatch         = "profile-mismatch"
)

// Report is the single proof-of-contribution artifact of a run. It is
// owned by the engine while the run executes and read-only afterwards.
type Report struct {
	DLPID        int            `json:"dlp_id"`
	Valid        bool           `json:"valid"`
	Score        float64        `json:"score"`
	Quality      float64        `json:"quality"`
	Authenticity float64        `json:"authenticity"`
	Uniqueness   float64        `json:"uniqueness"`
	Ownership    float64        `json:"ownership"`
	Attributes   map[string]any `json:"attributes"`
	Metadata     map[string]any `json:"metadata"`
}

// NewReport constructs an empty report tagged with the pool identifier.
func NewReport(dlpID int) *Report {
	return &Report{
		DLPID:      dlpID,
		Attributes: map[string]any{},
		Metadata:   map[string]any{},
	}
}

// ReportFileName is the fixed name of the output artifact.
const ReportFileName = "results.json"

// Write serializes the report to <outputDir>/results.json. The report
// is written exactly once per run; map keys marshal in sorted order, so
// identical runs produce byte-identical files.
func Write(report *Report, outputDir string) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "report: marshal")
	}

	path := filepath.Join(outputDir, ReportFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrap(err, "report: write file")
	}

	return path, nil
}
