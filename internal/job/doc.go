// Package job runs background maintenance work on a schedule.
//
// The only job today is the retention purge, which permanently removes tasks
// that have been archived for longer than the configured window. A Scheduler
// fires a Job once a day at a wall-clock time in a configured time zone and
// never lets two runs overlap.
package job
