// Package stamp produces the timestamps and file names used in reports.
//
// All report timestamps use a fixed +05:30 offset so that runs recorded on
// different machines sort and compare the same way.
package stamp

import (
	"strings"
	"time"
)

// Zone is the fixed offset used for every report timestamp.
var Zone = time.FixedZone("IST", 5*60*60+30*60)

const (
	isoLayout  = "2006-01-02T15:04:05-07:00"
	fileLayout = "2006-01-02T150405-0700"
)

// Clock returns the current time. Tests replace it with a fixed clock.
type Clock func() time.Time

// SystemClock is the default Clock.
func SystemClock() time.Time {
	return time.Now()
}

// Fixed returns a Clock that always reports t.
func Fixed(t time.Time) Clock {
	return func() time.Time { return t }
}

// ISO formats t in Zone with second precision, e.g. 2026-02-16T00:49:11+05:30.
func ISO(t time.Time) string {
	return t.In(Zone).Format(isoLayout)
}

// FileStamp formats t in Zone without colons, e.g. 2026-02-16T004911+0530.
// Windows forbids ':' in file names.
func FileStamp(t time.Time) string {
	return t.In(Zone).Format(fileLayout)
}

// RunID derives a run identifier from the run start time.
func RunID(t time.Time) string {
	return "run_" + FileStamp(t)
}

var safeReplacer = strings.NewReplacer(
	"::", "__",
	"/", "__",
	`\`, "__",
	"[", "_",
	"]", "_",
	" ", "_",
	":", "_",
)

// SafeFilename maps a test node id to a name usable on every file system.
func SafeFilename(nodeID string) string {
	return safeReplacer.Replace(nodeID)
}
