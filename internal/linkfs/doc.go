// Package linkfs wraps hard-link creation so callers can tell an
// already-present destination and an unsupported filesystem apart from
// other I/O failures.
//
// Hard links only work within one volume. Cross-device links, filesystems
// without link support and link-count limits all surface as ErrUnsupported;
// a destination that already exists surfaces as ErrExists. Anything else is
// returned wrapped in a *LinkError with the original cause intact.
package linkfs
