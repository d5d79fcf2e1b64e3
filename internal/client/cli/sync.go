package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fieldkeeper/internal/common"
)

// Sync runs one manual cycle through the same scheduler as the background loop.
func (a *App) Sync(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	sum, err := a.sync.SyncNow(ctx)
	if errors.Is(err, common.ErrSyncInProgress) {
		fmt.Fprintln(a.out, "A sync is already running, try again shortly")
		return nil
	}
	if sum != nil {
		fmt.Fprintf(a.out, "Added %d, updated %d, skipped %d, failed %d, orphaned %d\n",
			sum.Added, sum.Updated, sum.Skipped, sum.Failed, sum.Orphaned)
	}
	return err
}

func (a *App) Status(ctx context.Context) error {
	if a.session != nil {
		fmt.Fprintf(a.out, "Curator:     %s (%s)\n", a.session.Username, a.session.CuratorID)
	} else {
		fmt.Fprintln(a.out, "Curator:     not logged in")
	}
	fmt.Fprintf(a.out, "Mode:        %s\n", a.sync.Mode())

	for _, k := range []struct{ label, key string }{
		{"Last import", common.MetaLastImportAt},
		{"Last export", common.MetaLastExportAt},
	} {
		t, err := metadata.GetTime(ctx, a.meta, k.key)
		if err != nil {
			return err
		}
		v := "never"
		if !t.IsZero() {
			v = t.Local().Format(time.DateTime)
		}
		fmt.Fprintf(a.out, "%s: %s\n", k.label, v)
	}

	stats, err := a.entityService.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Entities:    %s\n", formatStats(stats))
	return nil
}

func formatStats(stats map[models.SyncState]int) string {
	if len(stats) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(stats))
	for state, n := range stats {
		parts = append(parts, fmt.Sprintf("%s=%d", strings.ToLower(string(state)), n))
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}
