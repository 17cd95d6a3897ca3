// Package contrib provides additional functionality and utilities
// built on top of the core toolkit.
//
// Everything under this directory extends the core packages with
// tooling that is useful alongside them but not part of the library
// proper, such as diagnostic commands and testing utilities.
//
// Note that this directory is outside of the backward compatibility
// guarantees provided by the core packages. Changes here may introduce
// breaking changes without following semantic versioning.
//
// The contrib directory currently includes
// [github.com/dbwire/dbwire.go/contrib/dbping], a latency probe that
// dials any endpoint the toolkit understands and reports round-trip
// statistics, replacing poisoned sessions the way long-lived callers
// are expected to.
package contrib
