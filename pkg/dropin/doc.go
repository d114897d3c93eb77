// Package dropin manages the database drop-in file that makes the host load
// the SQLite adapter instead of its default MySQL driver.
//
// The host decides which driver to load purely from the presence of
// <content-dir>/db.php, so this package owns exactly one artifact:
//
//   - Installer renders the drop-in template and places it on activation.
//     It does nothing when the SQLite engine is unavailable, and it never
//     overwrites an existing drop-in, which preserves operator edits.
//   - Remover deletes the drop-in on deactivation, if present.
//
// Both operations are idempotent. Filesystem sessions are acquired only
// after the read-only preconditions pass, so a skipped operation performs
// no filesystem mutation and never connects to a remote backend.
//
// Failures are returned as *Error values classified by ErrorKind:
//
//	result, err := installer.Install(ctx)
//	if dropin.IsKind(err, dropin.KindWriteFailed) {
//	    // the partially written file has already been removed
//	}
package dropin
