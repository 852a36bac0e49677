package proof

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datapool-labs/proof-cli/internal/config"
	"github.com/datapool-labs/proof-cli/internal/identity"
	"github.com/datapool-labs/proof-cli/internal/schema"
)

const testOwner = "0x00000000000000000000000000000000000000aa"

type stubProvider struct {
	rec *identity.IdentityRecord
	err error
}

func (s *stubProvider) User(context.Context) (*identity.IdentityRecord, error) {
	return s.rec, s.err
}

type stubRegistry struct {
	count int64
	err   error
	calls int
}

func (s *stubRegistry) ContributorFileCount(context.Context, string) (int64, error) {
	s.calls++
	return s.count, s.err
}

func verifiedRecord() *identity.IdentityRecord {
	return &identity.IdentityRecord{
		ID:            "u1",
		Email:         "a@x.com",
		VerifiedEmail: true,
		Name:          "A",
	}
}

func testConfig(t *testing.T, owner string) *config.Config {
	t.Helper()
	return &config.Config{
		Pool: config.PoolConfig{
			DLPID:           41,
			ContractAddress: "0x3B826122C4EBc127cba30f1d69417743FE652B15",
		},
		Chain: config.ChainConfig{
			RPCURL:       "https://rpc.moksha.vana.org",
			OwnerAddress: owner,
		},
		Run: config.RunConfig{
			InputDir:  t.TempDir(),
			OutputDir: t.TempDir(),
		},
	}
}

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func newValidator(t *testing.T) *schema.Validator {
	t.Helper()
	v, err := schema.New()
	require.NoError(t, err)
	return v
}

const matchingDoc = `{"userId":"u1","email":"a@x.com","profile":{"name":"A"}}`

func TestGenerate_FullCredit(t *testing.T) {
	cfg := testConfig(t, testOwner)
	writeDoc(t, cfg.Run.InputDir, "submission.json", matchingDoc)

	reg := &stubRegistry{count: 0}
	e := New(cfg, newValidator(t), &stubProvider{rec: verifiedRecord()}, reg)

	report, err := e.Generate(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Valid)
	assert.InDelta(t, 1.0, report.Score, 1e-9)
	assert.Equal(t, 1.0, report.Quality)
	assert.Equal(t, 1.0, report.Authenticity)
	assert.Equal(t, 1.0, report.Uniqueness)
	assert.Equal(t, 1.0, report.Ownership)
	assert.Equal(t, 41, report.DLPID)
	assert.Equal(t, 1, reg.calls)

	assert.Equal(t, "google-profile.json", report.Attributes["schema_type"])
	assert.Equal(t, "a@x.com", report.Attributes["user_email"])
	assert.Equal(t, "u1", report.Attributes["user_id"])
	assert.Equal(t, "A", report.Attributes["profile_name"])
	assert.Equal(t, true, report.Attributes["verified_with_oauth"])
	assert.NotContains(t, report.Attributes, "errors")
	assert.Equal(t, "google-profile.json", report.Metadata["schema_type"])
}

func TestGenerate_ProfileMismatch(t *testing.T) {
	cfg := testConfig(t, testOwner)
	writeDoc(t, cfg.Run.InputDir, "submission.json", matchingDoc)

	rec := verifiedRecord()
	rec.Email = "b@x.com"
	e := New(cfg, newValidator(t), &stubProvider{rec: rec}, &stubRegistry{})

	report, err := e.Generate(context.Background())
	require.NoError(t, err)

	assert.False(t, report.Valid)
	assert.Equal(t, 0.0, report.Authenticity)
	assert.Equal(t, []string{ErrProfileMismatch}, report.Attributes["errors"])
	// Mismatch does not halt the scan, so the document still scores.
	assert.Equal(t, 1.0, report.Quality)
}

func TestGenerate_InvalidSchemaHaltsScan(t *testing.T) {
	cfg := testConfig(t, "")
	writeDoc(t, cfg.Run.InputDir, "a.json", `{"email":"a@x.com"}`)
	writeDoc(t, cfg.Run.InputDir, "b.json", matchingDoc)

	e := New(cfg, newValidator(t), nil, nil)

	report, err := e.Generate(context.Background())
	require.NoError(t, err)

	assert.False(t, report.Valid)
	assert.Equal(t, []string{ErrInvalidSchema}, report.Attributes["errors"])
	// b.json was never scanned: scores keep their zero defaults.
	assert.Equal(t, 0.0, report.Quality)
	assert.Equal(t, 0.0, report.Score)
	assert.NotContains(t, report.Attributes, "schema_type")
}

func TestGenerate_NoIdentityRecord(t *testing.T) {
	cfg := testConfig(t, "")
	writeDoc(t, cfg.Run.InputDir, "submission.json", matchingDoc)

	e := New(cfg, newValidator(t), nil, nil)

	report, err := e.Generate(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Valid)
	assert.Equal(t, 0.0, report.Authenticity)
	assert.Equal(t, 1.0, report.Uniqueness)
	// score == 0.4*quality + 0.2 with no owner and no identity.
	assert.InDelta(t, 0.4*report.Quality+0.2, report.Score, 1e-9)
	assert.Equal(t, false, report.Attributes["verified_with_oauth"])
}

func TestGenerate_ZeroDocuments(t *testing.T) {
	cfg := testConfig(t, "")
	writeDoc(t, cfg.Run.InputDir, "readme.txt", "not a document")

	e := New(cfg, newValidator(t), nil, nil)

	report, err := e.Generate(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Valid)
	assert.Equal(t, 0.0, report.Score)
	assert.Equal(t, 0.0, report.Quality)
	assert.Equal(t, 0.0, report.Authenticity)
	assert.Equal(t, 0.0, report.Uniqueness)
	assert.Equal(t, 0.0, report.Ownership)
	assert.Empty(t, report.Attributes)
	assert.Empty(t, report.Metadata)
}

func TestGenerate_UnverifiedEmail(t *testing.T) {
	cfg := testConfig(t, "")
	writeDoc(t, cfg.Run.InputDir, "submission.json", matchingDoc)

	rec := verifiedRecord()
	rec.VerifiedEmail = false
	e := New(cfg, newValidator(t), &stubProvider{rec: rec}, nil)

	report, err := e.Generate(context.Background())
	require.NoError(t, err)

	assert.False(t, report.Valid)
	assert.Equal(t, []string{ErrUnverifiedIdentityEmail}, report.Attributes["errors"])
	// The record is retained for matching, so authenticity still scores.
	assert.Equal(t, 1.0, report.Authenticity)
}

func TestGenerate_UnverifiedEmailWithoutDocuments(t *testing.T) {
	cfg := testConfig(t, "")
	writeDoc(t, cfg.Run.InputDir, "readme.txt", "no documents here")

	rec := verifiedRecord()
	rec.VerifiedEmail = false
	e := New(cfg, newValidator(t), &stubProvider{rec: rec}, nil)

	report, err := e.Generate(context.Background())
	require.NoError(t, err)

	// The email error is appended regardless of document content.
	assert.False(t, report.Valid)
	assert.Equal(t, []string{ErrUnverifiedIdentityEmail}, report.Attributes["errors"])
}

func TestGenerate_ProviderFailure(t *testing.T) {
	cfg := testConfig(t, "")
	writeDoc(t, cfg.Run.InputDir, "submission.json", matchingDoc)

	e := New(cfg, newValidator(t), &stubProvider{err: assert.AnError}, nil)

	report, err := e.Generate(context.Background())
	require.NoError(t, err)

	assert.False(t, report.Valid)
	assert.Equal(t, []string{ErrUnverifiedIdentityUser}, report.Attributes["errors"])
	// No record was resolved, so the document cannot be authenticated.
	assert.Equal(t, 0.0, report.Authenticity)
	assert.Equal(t, false, report.Attributes["verified_with_oauth"])
}

func TestGenerate_DuplicateContribution(t *testing.T) {
	cfg := testConfig(t, testOwner)
	writeDoc(t, cfg.Run.InputDir, "submission.json", matchingDoc)

	e := New(cfg, newValidator(t), nil, &stubRegistry{count: 3})

	report, err := e.Generate(context.Background())
	require.NoError(t, err)

	assert.False(t, report.Valid)
	assert.Equal(t, []string{ErrDuplicateContribution}, report.Attributes["errors"])
	// Scores are still computed on an invalid run.
	assert.Equal(t, 1.0, report.Quality)
	assert.Equal(t, 1.0, report.Ownership)
}

func TestGenerate_RegistryFailureFailsOpen(t *testing.T) {
	cfg := testConfig(t, testOwner)
	writeDoc(t, cfg.Run.InputDir, "submission.json", matchingDoc)

	e := New(cfg, newValidator(t), nil, &stubRegistry{err: assert.AnError})

	report, err := e.Generate(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Valid)
	assert.NotContains(t, report.Attributes, "errors")
}

func TestGenerate_NoOwnerSkipsRegistry(t *testing.T) {
	cfg := testConfig(t, "")
	writeDoc(t, cfg.Run.InputDir, "submission.json", matchingDoc)

	reg := &stubRegistry{count: 5}
	e := New(cfg, newValidator(t), nil, reg)

	report, err := e.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, reg.calls)
	assert.True(t, report.Valid)
	assert.Equal(t, 0.0, report.Ownership)
}

func TestGenerate_ParseFailureIsFatal(t *testing.T) {
	cfg := testConfig(t, "")
	writeDoc(t, cfg.Run.InputDir, "broken.json", `{"userId": `)

	e := New(cfg, newValidator(t), nil, nil)

	report, err := e.Generate(context.Background())
	require.Error(t, err)
	assert.Nil(t, report)
	assert.Contains(t, err.Error(), "broken.json")
}

func TestGenerate_MissingInputDirIsFatal(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Run.InputDir = filepath.Join(cfg.Run.InputDir, "missing")

	e := New(cfg, newValidator(t), nil, nil)

	_, err := e.Generate(context.Background())
	assert.Error(t, err)
}

func TestGenerate_LastDocumentWins(t *testing.T) {
	cfg := testConfig(t, "")
	writeDoc(t, cfg.Run.InputDir, "a.json", `{"userId":"u1","email":"a@x.com","profile":{"name":"A"}}`)
	writeDoc(t, cfg.Run.InputDir, "b.json", `{"userId":"u2","email":"b@x.com","profile":{"name":"B"}}`)

	e := New(cfg, newValidator(t), nil, nil)

	report, err := e.Generate(context.Background())
	require.NoError(t, err)

	// Directory listing order is lexicographic here, so b.json is
	// scanned last and its attributes overwrite a.json's.
	assert.Equal(t, "b@x.com", report.Attributes["user_email"])
	assert.Equal(t, "u2", report.Attributes["user_id"])
	assert.True(t, report.Valid)
}

func TestGenerate_ErrorOrderFollowsChecks(t *testing.T) {
	cfg := testConfig(t, testOwner)
	writeDoc(t, cfg.Run.InputDir, "submission.json", matchingDoc)

	rec := verifiedRecord()
	rec.VerifiedEmail = false
	rec.Email = "b@x.com"
	e := New(cfg, newValidator(t), &stubProvider{rec: rec}, &stubRegistry{count: 1})

	report, err := e.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t,
		[]string{ErrUnverifiedIdentityEmail, ErrDuplicateContribution, ErrProfileMismatch},
		report.Attributes["errors"],
	)
}

func TestGenerate_NullableAttributes(t *testing.T) {
	cfg := testConfig(t, "")
	writeDoc(t, cfg.Run.InputDir, "submission.json", `{"userId":"u1","email":"a@x.com","profile":{}}`)

	e := New(cfg, newValidator(t), nil, nil)

	report, err := e.Generate(context.Background())
	require.NoError(t, err)

	assert.Nil(t, report.Attributes["profile_name"])
}
