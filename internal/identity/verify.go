package identity

// Verify reports whether the claimed fields of a submission document
// match the resolved identity record. Checks run in fixed order and
// short-circuit on the first failure: account ID, then email, then
// display name. A document that carries no display name passes the
// name check.
//
// Verify never consults external services; the record must already be
// resolved by the caller.
func Verify(doc map[string]any, rec *IdentityRecord) bool {
	if rec == nil {
		return false
	}
	if id, _ := doc["userId"].(string); id != rec.ID {
		return false
	}
	if email, _ := doc["email"].(string); email != rec.Email {
		return false
	}
	if name := ProfileName(doc); name != "" && name != rec.Name {
		return false
	}
	return true
}

// ProfileName extracts the nested profile display name from a
// submission document, or empty string when absent.
func ProfileName(doc map[string]any) string {
	profile, _ := doc["profile"].(map[string]any)
	name, _ := profile["name"].(string)
	return name
}
