package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/fork"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
	"github.com/dmitrijs2005/fieldkeeper/internal/common"
)

var getMultiline = GetMultiline
var getAttributes = GetAttributes
var getTags = GetTags

// ErrAmbiguousID is returned when an id prefix matches several entities.
var ErrAmbiguousID = errors.New("id prefix matches more than one entity")

func (a *App) requireLogin() error {
	if !a.isLoggedIn() {
		return ErrLoginRequired
	}
	return nil
}

// argOrPrompt returns args[i] or asks for it.
func (a *App) argOrPrompt(args []string, i int, prompt string) (string, error) {
	if i < len(args) {
		return args[i], nil
	}
	return getSimpleText(a.reader, prompt, a.out)
}

// resolveID expands a unique local id prefix, tombstones included.
func (a *App) resolveID(ctx context.Context, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", fmt.Errorf("%w: id is empty", common.ErrValidation)
	}
	list, err := a.entityService.List(ctx, true)
	if err != nil {
		return "", err
	}
	var found []string
	for _, e := range list {
		if e.LocalID == prefix {
			return prefix, nil
		}
		if strings.HasPrefix(e.LocalID, prefix) {
			found = append(found, e.LocalID)
		}
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("entity %s: %w", prefix, common.ErrNotFound)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousID, prefix)
	}
}

func (a *App) New(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	name, err := getSimpleText(a.reader, "Name", a.out)
	if err != nil {
		return err
	}
	text, err := getMultiline(a.reader, "Notes", a.out)
	if err != nil {
		return err
	}
	tags, err := getTags(a.reader, "Tags (comma separated)", a.out)
	if err != nil {
		return err
	}
	attrs, err := getAttributes(a.reader, a.out)
	if err != nil {
		return err
	}

	payload := models.Payload{}
	if text != "" {
		payload[models.PayloadText] = text
	}
	if len(tags) > 0 {
		payload[models.PayloadTags] = tags
	}
	if len(attrs) > 0 {
		payload[models.PayloadAttributes] = attrs
	}

	e, err := a.entityService.Create(ctx, a.curatorID(), name, payload)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created %s\n", e.LocalID)
	return nil
}

func (a *App) Edit(ctx context.Context, args []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	raw, err := a.argOrPrompt(args, 0, "Entity id")
	if err != nil {
		return err
	}
	id, err := a.resolveID(ctx, raw)
	if err != nil {
		return err
	}
	current, err := a.entityService.Get(ctx, id)
	if err != nil {
		return err
	}

	var change models.Change
	name, err := getSimpleText(a.reader, fmt.Sprintf("Name [%s] (empty to keep)", current.Name), a.out)
	if err != nil {
		return err
	}
	if name != "" && name != current.Name {
		change.Name = &name
	}
	text, err := getMultiline(a.reader, "Notes (empty to keep, '-' to clear)", a.out)
	if err != nil {
		return err
	}
	tags, err := getTags(a.reader, "Tags (comma separated, empty to keep)", a.out)
	if err != nil {
		return err
	}
	attrs, err := getAttributes(a.reader, a.out)
	if err != nil {
		return err
	}
	applyEdits(&change, current.Payload, text, tags, attrs)

	if change.Empty() {
		fmt.Fprintln(a.out, "Nothing to change")
		return nil
	}

	e, kind, err := a.entityService.Edit(ctx, a.curatorID(), id, change)
	if err != nil {
		return err
	}
	switch kind {
	case fork.Forked:
		fmt.Fprintf(a.out, "Created your own copy %s of %s\n", e.LocalID, id)
	case fork.Redirect:
		fmt.Fprintf(a.out, "Updated your copy %s\n", e.LocalID)
	default:
		fmt.Fprintf(a.out, "Updated %s\n", e.LocalID)
	}
	return nil
}

// applyEdits turns prompt answers into change. New attributes are merged
// into the existing ones.
func applyEdits(change *models.Change, current models.Payload, text string, tags []string, attrs map[string]any) {
	set := map[string]any{}
	switch text {
	case "":
	case "-":
		change.Unset = append(change.Unset, models.PayloadText)
	default:
		set[models.PayloadText] = text
	}
	if len(tags) > 0 {
		set[models.PayloadTags] = tags
	}
	if len(attrs) > 0 {
		merged := map[string]any{}
		if old, ok := current[models.PayloadAttributes].(map[string]any); ok {
			for k, v := range old {
				merged[k] = v
			}
		}
		for k, v := range attrs {
			merged[k] = v
		}
		set[models.PayloadAttributes] = merged
	}
	if len(set) > 0 {
		change.Set = set
	}
}

func (a *App) Delete(ctx context.Context, args []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	raw, err := a.argOrPrompt(args, 0, "Entity id")
	if err != nil {
		return err
	}
	id, err := a.resolveID(ctx, raw)
	if err != nil {
		return err
	}
	if err := a.entityService.Delete(ctx, a.curatorID(), id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %s\n", id)
	return nil
}

func (a *App) List(ctx context.Context, args []string) error {
	all := len(args) > 0 && args[0] == "all"
	list, err := a.entityService.List(ctx, all)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No entities")
		return nil
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return printEntityTable(a.out, list, a.curatorID())
}

func (a *App) Show(ctx context.Context, args []string) error {
	raw, err := a.argOrPrompt(args, 0, "Entity id")
	if err != nil {
		return err
	}
	id, err := a.resolveID(ctx, raw)
	if err != nil {
		return err
	}
	e, err := a.entityService.Get(ctx, id)
	if err != nil {
		return err
	}
	return printEntity(a.out, e)
}

func (a *App) Attach(ctx context.Context, args []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	raw, err := a.argOrPrompt(args, 0, "Entity id")
	if err != nil {
		return err
	}
	id, err := a.resolveID(ctx, raw)
	if err != nil {
		return err
	}
	path, err := a.argOrPrompt(args, 1, "File path")
	if err != nil {
		return err
	}

	e, err := a.entityService.Attach(ctx, a.curatorID(), id, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Attached %s to %s\n", path, e.LocalID)
	return nil
}
