package schema

import (
	_ "embed"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"
)

// Name is the canonical name of the profile schema. It is reported for
// every validated document, matched or not.
const Name = "google-profile.json"

//go:embed google-profile.json
var profileSchema string

// Validator checks parsed submission documents against the pool's
// profile schema.
type Validator struct {
	schema *jsonschema.Schema
}

// New compiles the embedded profile schema.
func New() (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	schemaURL := "https://proof.schemas.local/" + Name
	if err := c.AddResource(schemaURL, strings.NewReader(profileSchema)); err != nil {
		return nil, eris.Wrap(err, "schema: load profile schema")
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, eris.Wrap(err, "schema: compile profile schema")
	}
	return &Validator{schema: compiled}, nil
}

// Validate checks doc against the profile schema. The canonical schema
// name is returned regardless of outcome; a structural mismatch is
// reported through the boolean, never as an error.
func (v *Validator) Validate(doc any) (string, bool) {
	if err := v.schema.Validate(doc); err != nil {
		zap.L().Debug("schema: validation failed", zap.Error(err))
		return Name, false
	}
	return Name, true
}
