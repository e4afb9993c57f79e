// Package history keeps a SQLite ledger of assort runs.
//
// Every transaction the scheduler drives is recorded as a run row with its
// outcome, and every source it processed as a child row with the counts from
// its report. The ledger is only read by "camsort history"; the assorter never
// consults it, so a missing or unreadable database never blocks a run.
package history
