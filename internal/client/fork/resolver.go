// Package fork decides whether a curator's edit mutates an entity in place
// or goes to that curator's own copy of the shared record.
//
// An entity owned by somebody else is never written by this path: the edit
// is redirected to the curator's existing fork, or a new fork is created
// from a deep copy of the entity with the change already applied.
package fork

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/repositories/entities"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/syncstate"
	"github.com/dmitrijs2005/fieldkeeper/internal/common"
	"github.com/dmitrijs2005/fieldkeeper/internal/logging"
)

// Kind is the outcome of a resolution.
type Kind string

const (
	// InPlace means the curator owns the entity.
	InPlace Kind = "in_place"
	// Redirect means the curator already holds a fork in the shared group.
	Redirect Kind = "redirect"
	// NeedsFork means a new fork has to be created.
	NeedsFork Kind = "needs_fork"
	// Forked reports that Edit created a new fork.
	Forked Kind = "forked"
)

// Resolution describes where an edit lands.
type Resolution struct {
	Kind Kind
	// Source is the entity the curator asked to edit.
	Source *models.Entity
	// Target is the entity that receives the edit; nil for NeedsFork.
	Target *models.Entity
}

type Resolver struct {
	repo    entities.Repository
	tracker *syncstate.Tracker
	logger  logging.Logger
}

func NewResolver(repo entities.Repository, tracker *syncstate.Tracker, logger logging.Logger) *Resolver {
	return &Resolver{repo: repo, tracker: tracker, logger: logger.With("module", "fork")}
}

// Resolve looks up where an edit of localID by curatorID must go without
// writing anything.
func (r *Resolver) Resolve(ctx context.Context, curatorID, localID string) (*Resolution, error) {
	src, err := r.repo.GetByLocalID(ctx, localID, true)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", localID, err)
	}
	if src.Tombstoned() {
		return nil, fmt.Errorf("resolve %s: %w", localID, common.ErrTombstoned)
	}
	if src.OwnerID == curatorID {
		return &Resolution{Kind: InPlace, Source: src, Target: src}, nil
	}

	f, err := r.repo.FindByGroupOwner(ctx, src.SharedGroupID, curatorID)
	switch {
	case err == nil:
		return &Resolution{Kind: Redirect, Source: src, Target: f}, nil
	case errors.Is(err, common.ErrNotFound):
		return &Resolution{Kind: NeedsFork, Source: src}, nil
	default:
		return nil, fmt.Errorf("resolve %s: %w", localID, err)
	}
}

// Edit applies change on behalf of curatorID and returns the entity that
// received it.
func (r *Resolver) Edit(ctx context.Context, curatorID, localID string, change models.Change) (*models.Entity, Kind, error) {
	if err := change.Validate(); err != nil {
		return nil, "", fmt.Errorf("%w: %v", common.ErrValidation, err)
	}

	res, err := r.Resolve(ctx, curatorID, localID)
	if err != nil {
		return nil, "", err
	}

	if res.Kind != NeedsFork {
		e, err := r.tracker.Edit(ctx, res.Target.LocalID, change)
		return e, res.Kind, err
	}

	name, payload := change.Apply(res.Source.Name, res.Source.Payload)
	f, err := r.tracker.CreateFork(ctx, res.Source, curatorID, name, payload)
	if err == nil {
		r.logger.Info(ctx, "fork created",
			"source", res.Source.LocalID, "fork", f.LocalID, "group", f.SharedGroupID, "curator", curatorID)
		return f, Forked, nil
	}
	if !errors.Is(err, common.ErrAlreadyExists) {
		return nil, "", err
	}

	// a concurrent edit created the fork first
	existing, lookupErr := r.repo.FindByGroupOwner(ctx, res.Source.SharedGroupID, curatorID)
	if lookupErr != nil {
		return nil, "", fmt.Errorf("fork lookup after conflict: %w", lookupErr)
	}
	e, err := r.tracker.Edit(ctx, existing.LocalID, change)
	return e, Redirect, err
}
