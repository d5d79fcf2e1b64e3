// Package scheduler runs the reconciliation engine in the background.
//
// One ticker drives Import followed by Export. A connectivity probe tracks
// online and offline mode; ticks are skipped while offline and the switch
// back online triggers an immediate cycle. Manual runs go through SyncNow,
// which shares the in-progress guard with the background loop.
package scheduler
