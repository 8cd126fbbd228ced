// Package logging provides file-based logging with rotation for LocalFinderX.
// Every localfinderx command writes JSON log lines to
// ~/.localfinderx/logs/localfinderx.log and to stderr, at info level by
// default; the --debug flag lowers the level to debug for troubleshooting.
package logging
