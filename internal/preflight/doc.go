// Package preflight answers whether camsort can read or write the paths its
// configuration names.
//
// These checks run in two contexts:
//   - "camsort config validate" and daemon start call RunAll to report every
//     source, target and state path at once.
//   - The assorter calls CanRead on each source at the start of its turn, so
//     a volume that went away since the configuration was loaded is skipped
//     instead of failing the run.
package preflight
