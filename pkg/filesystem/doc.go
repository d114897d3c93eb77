// Package filesystem defines the filesystem capability used to place and
// remove the drop-in file, and a local implementation backed by the os
// package.
//
// The capability is split in two:
//
//   - Inspector answers read-only questions (existence, size) and is safe to
//     call on every request.
//   - Acquirer hands out a Session able to mutate files. Callers acquire a
//     session only once they know a mutation is required, which keeps remote
//     backends (see pkg/transports/ssh) from connecting on read-only paths.
//
// No backend guarantees atomicity across Touch followed by Write.
package filesystem
