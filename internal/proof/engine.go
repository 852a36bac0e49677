package proof

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/datapool-labs/proof-cli/internal/chain"
	"github.com/datapool-labs/proof-cli/internal/config"
	"github.com/datapool-labs/proof-cli/internal/identity"
	"github.com/datapool-labs/proof-cli/internal/schema"
)

// Engine sequences one proof-of-contribution run: identity resolution,
// duplicate check, document scan, score composition, finalization.
// Execution is strictly sequential; the report is exclusively owned by
// the engine until Generate returns.
type Engine struct {
	cfg       *config.Config
	validator *schema.Validator
	provider  identity.Provider
	registry  chain.Registry
}

// New constructs an Engine. A nil provider skips identity resolution;
// a nil registry disables duplicate detection.
func New(cfg *config.Config, validator *schema.Validator, provider identity.Provider, registry chain.Registry) *Engine {
	return &Engine{
		cfg:       cfg,
		validator: validator,
		provider:  provider,
		registry:  registry,
	}
}

// Generate runs the pipeline over the input directory and returns the
// completed report. Domain problems accumulate on the report and flip
// its verdict; only an unreadable directory or an unparseable document
// aborts the run.
//
// Every schema-valid document overwrites the report's scores and
// attributes, so with multiple documents the last one scanned wins.
// The scan halts on the first document that fails the schema.
func (e *Engine) Generate(ctx context.Context) (*Report, error) {
	log := zap.L().With(
		zap.String("run_id", uuid.NewString()),
		zap.Int("dlp_id", e.cfg.Pool.DLPID),
	)
	log.Info("proof: starting generation", zap.Int("file_id", e.cfg.Pool.FileID))

	report := NewReport(e.cfg.Pool.DLPID)
	var errs []string

	// Identity resolution.
	var rec *identity.IdentityRecord
	if e.provider != nil {
		user, err := e.provider.User(ctx)
		if err != nil {
			log.Warn("proof: identity resolution failed", zap.Error(err))
			errs = append(errs, ErrUnverifiedIdentityUser)
		} else {
			rec = user
			log.Info("proof: identity resolved", zap.String("storage_hash", rec.StorageHash()))
			if !rec.VerifiedEmail {
				errs = append(errs, ErrUnverifiedIdentityEmail)
			}
		}
	} else {
		log.Info("proof: no identity credential configured, skipping verification")
	}

	// Duplicate check.
	hasOwner := e.cfg.Chain.OwnerAddress != ""
	if e.registry != nil && hasOwner {
		count, err := e.registry.ContributorFileCount(ctx, e.cfg.Chain.OwnerAddress)
		if err != nil {
			// Registry reachability is best effort; assume no priors.
			log.Warn("proof: contributor count read failed", zap.Error(err))
			count = 0
		}
		if chain.IsDuplicate(count) {
			errs = append(errs, ErrDuplicateContribution)
		}
	} else {
		log.Info("proof: duplicate detection skipped")
	}

	// Document scan.
	entries, err := os.ReadDir(e.cfg.Run.InputDir)
	if err != nil {
		return nil, eris.Wrap(err, "proof: read input directory")
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		log.Info("proof: checking document", zap.String("file", entry.Name()))

		doc, err := readDocument(filepath.Join(e.cfg.Run.InputDir, entry.Name()))
		if err != nil {
			return nil, err
		}

		schemaName, matched := e.validator.Validate(doc)
		if !matched {
			errs = append(errs, ErrInvalidSchema)
			// First invalid document halts the scan.
			break
		}

		// The schema guarantees a top-level object.
		fields, _ := doc.(map[string]any)

		verified := false
		if rec != nil {
			verified = identity.Verify(fields, rec)
			if !verified {
				log.Error("proof: document profile does not match identity record",
					zap.String("file", entry.Name()),
				)
				errs = append(errs, ErrProfileMismatch)
			}
		}

		scores := composeScores(hasOwner, matched, verified)
		report.Quality = scores.Quality
		report.Authenticity = scores.Authenticity
		report.Uniqueness = scores.Uniqueness
		report.Ownership = scores.Ownership
		report.Score = scores.Total

		report.Attributes = map[string]any{
			"schema_type":         schemaName,
			"user_email":          fields["email"],
			"user_id":             fields["userId"],
			"profile_name":        profileNameAttr(fields),
			"verified_with_oauth": rec != nil,
		}
		report.Metadata = map[string]any{
			"schema_type": schemaName,
		}
	}

	// Finalize.
	report.Valid = len(errs) == 0
	if len(errs) > 0 {
		report.Attributes["errors"] = errs
	}
	log.Info("proof: generation complete",
		zap.Bool("valid", report.Valid),
		zap.Float64("score", report.Score),
		zap.Strings("errors", errs),
	)

	return report, nil
}

// readDocument parses one structured input file. A parse failure is
// fatal for the whole run: no report can be produced from unparseable
// input.
func readDocument(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "proof: read document %s", filepath.Base(path))
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "proof: parse document %s", filepath.Base(path))
	}

	return doc, nil
}

// profileNameAttr mirrors the submitted profile name into the report
// attributes, null when the document carries none.
func profileNameAttr(fields map[string]any) any {
	profile, ok := fields["profile"].(map[string]any)
	if !ok {
		return nil
	}
	name, ok := profile["name"]
	if !ok {
		return nil
	}
	return name
}
