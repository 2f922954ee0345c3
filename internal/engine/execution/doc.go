// Package execution owns the execution-context lifecycle: contexts move
// through ready -> running -> (paused <-> running) -> completed | failed |
// cancelled. Retired contexts leave the active set but remain retrievable
// as history.
package execution
