package reconcile

import "fmt"

// ImportResult summarizes one Import pass.
type ImportResult struct {
	Added     int
	Updated   int
	Unchanged int
	Skipped   int
	Orphaned  int
	Failed    int
}

func (r ImportResult) String() string {
	return fmt.Sprintf("added=%d updated=%d unchanged=%d skipped=%d orphaned=%d failed=%d",
		r.Added, r.Updated, r.Unchanged, r.Skipped, r.Orphaned, r.Failed)
}

// ExportResult summarizes one Export pass.
type ExportResult struct {
	// Updated counts accepted updates of bound entities.
	Updated int
	// Created counts new remote records matched back to local entities.
	Created int
	// Recreated counts entities rejected on update and created anew.
	Recreated int
	// Unmatched counts created entities that could not be matched; they stay NEW.
	Unmatched int
	Failed    int
	// Skipped counts entities already in flight.
	Skipped          int
	DeletesConfirmed int
}

func (r ExportResult) String() string {
	return fmt.Sprintf("updated=%d created=%d recreated=%d unmatched=%d failed=%d skipped=%d deletes_confirmed=%d",
		r.Updated, r.Created, r.Recreated, r.Unmatched, r.Failed, r.Skipped, r.DeletesConfirmed)
}
