package inventory

// CheckAndBump applies the optimistic-lock rule: a caller supplying an
// expected version is rejected when it no longer matches the stored one; a
// nil expected version skips the check. On success the new version is
// current+1, to be committed in the same transaction as the data mutation.
func CheckAndBump(expected *int64, current int64) (int64, error) {
	if expected != nil && *expected != current {
		return 0, &VersionConflictError{Current: current}
	}
	return current + 1, nil
}
