// Package watch implements pollbuild's polling loop. A Watcher samples the
// newest modification time across a fixed set of paths on every interval
// and runs a build Trigger whenever that aggregate timestamp changes.
//
// Change detection is deliberately coarse: only the maximum mtime is
// tracked, so the Watcher knows that something changed but not which
// file, and a change that leaves the maximum untouched goes unnoticed.
package watch
