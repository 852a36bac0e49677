package chain

// IsDuplicate reports whether the owner already has a contribution
// recorded on the registry: any prior count marks the submission as a
// duplicate.
func IsDuplicate(priorCount int64) bool {
	return priorCount > 0
}
