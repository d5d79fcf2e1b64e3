package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
)

func printEntityTable(w io.Writer, list []*models.Entity, curatorID string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tOWNER\tSTATE")
	for _, e := range list {
		owner := e.OwnerID
		if owner == curatorID {
			owner = "me"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", shortID(e.LocalID), e.Name, owner, e.SyncState)
	}
	return tw.Flush()
}

func printEntity(w io.Writer, e *models.Entity) error {
	fmt.Fprintf(w, "ID:             %s\n", e.LocalID)
	fmt.Fprintf(w, "Name:           %s\n", e.Name)
	fmt.Fprintf(w, "State:          %s\n", e.SyncState)
	fmt.Fprintf(w, "Remote ID:      %s\n", orDash(e.RemoteID))
	fmt.Fprintf(w, "Group:          %s\n", e.SharedGroupID)
	fmt.Fprintf(w, "Owner:          %s\n", e.OwnerID)
	fmt.Fprintf(w, "Original owner: %s\n", e.OriginalOwnerID)
	fmt.Fprintf(w, "Modified:       %s\n", e.LocalModifiedAt.Local().Format(time.DateTime))
	if e.LastSyncedAt != nil {
		fmt.Fprintf(w, "Last synced:    %s\n", e.LastSyncedAt.Local().Format(time.DateTime))
	}

	b, err := json.MarshalIndent(e.Payload, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Payload:\n%s\n", b)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
