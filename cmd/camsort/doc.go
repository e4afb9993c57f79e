// Command camsort assorts surveillance recordings into per-day backup
// manifests and hard-link trees.
//
// `camsort daemon` runs the scheduler in the foreground; `camsort run`
// performs one run now, handing it to a running daemon when there is one.
// `plan` previews the classification without writing, `history` lists past
// runs, and `status`, `reload` and `stop` control a running daemon through
// its lock and pid files.
package main
