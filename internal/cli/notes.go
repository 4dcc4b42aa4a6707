package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/ustczzh/AlephNote/internal/common"
	"github.com/ustczzh/AlephNote/internal/models"
)

var errUsage = errors.New("missing note number or id")

func (a *App) List(ctx context.Context) error {
	repo, err := a.notes()
	if err != nil {
		return err
	}

	all := repo.Notes()
	a.lastList = make([]string, 0, len(all))
	if len(all) == 0 {
		fmt.Fprintln(a.out, "No notes.")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tID\tTITLE\tMODIFIED\tTAGS")
	for i, n := range all {
		a.lastList = append(a.lastList, n.ID)
		mark := ""
		if n.Dirty {
			mark = "*"
		}
		fmt.Fprintf(w, "%d%s\t%s\t%s\t%s\t%s\n", i+1, mark, n.ID[:min(8, len(n.ID))], n.Label(),
			n.ModifiedAt.Local().Format("2006-01-02 15:04"), strings.Join(n.Tags, ","))
	}
	return w.Flush()
}

// lookup resolves a list number or a case-insensitive ID prefix.
func (a *App) lookup(repo noteStore, args []string) (*models.Note, error) {
	if len(args) == 0 {
		return nil, errUsage
	}
	key := args[0]

	if i, err := strconv.Atoi(key); err == nil && i >= 1 && i <= len(a.lastList) {
		return repo.Get(a.lastList[i-1])
	}

	prefix := strings.ToUpper(key)
	var found *models.Note
	for _, n := range repo.Notes() {
		if !strings.HasPrefix(n.ID, prefix) {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%q matches more than one note", key)
		}
		found = n
	}
	if found == nil {
		return nil, fmt.Errorf("note %q: %w", key, common.ErrNotFound)
	}
	return found, nil
}

func (a *App) Show(ctx context.Context, args []string) error {
	repo, err := a.notes()
	if err != nil {
		return err
	}
	n, err := a.lookup(repo, args)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "ID:       %s\n", n.ID)
	fmt.Fprintf(a.out, "Title:    %s\n", n.Title)
	fmt.Fprintf(a.out, "Tags:     %s\n", strings.Join(n.Tags, ", "))
	fmt.Fprintf(a.out, "Modified: %s\n", n.ModifiedAt.Local().Format("2006-01-02 15:04:05"))
	if n.Dirty {
		fmt.Fprintln(a.out, "Status:   not uploaded yet")
	}
	fmt.Fprintf(a.out, "\n%s\n", n.Text)
	return nil
}

func (a *App) New(ctx context.Context) error {
	repo, err := a.notes()
	if err != nil {
		return err
	}

	title, err := GetSimpleText(a.reader, "Title", a.out)
	if err != nil {
		return err
	}
	text, err := GetMultiline(a.reader, "Text", a.out)
	if err != nil {
		return err
	}
	tags, err := GetSimpleText(a.reader, "Tags (comma separated)", a.out)
	if err != nil {
		return err
	}

	n, err := repo.CreateNewNote(ctx)
	if err != nil {
		return err
	}
	n.Title, n.Text, n.Tags = title, text, ParseTags(tags)
	if err := repo.UpdateNote(ctx, n); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Created note %s\n", n.ID)
	return nil
}

func (a *App) Edit(ctx context.Context, args []string) error {
	repo, err := a.notes()
	if err != nil {
		return err
	}
	n, err := a.lookup(repo, args)
	if err != nil {
		return err
	}

	title, err := GetSimpleText(a.reader, fmt.Sprintf("Title [%s] (empty keeps)", n.Title), a.out)
	if err != nil {
		return err
	}
	text, err := GetMultiline(a.reader, "Text (empty keeps)", a.out)
	if err != nil {
		return err
	}
	tags, err := GetSimpleText(a.reader, fmt.Sprintf("Tags [%s] (empty keeps, - clears)", strings.Join(n.Tags, ",")), a.out)
	if err != nil {
		return err
	}

	if title != "" {
		n.Title = title
	}
	if text != "" {
		n.Text = text
	}
	switch tags {
	case "":
	case "-":
		n.Tags = nil
	default:
		n.Tags = ParseTags(tags)
	}

	if err := repo.UpdateNote(ctx, n); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Saved.")
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	repo, err := a.notes()
	if err != nil {
		return err
	}
	n, err := a.lookup(repo, args)
	if err != nil {
		return err
	}

	answer, err := GetSimpleText(a.reader, fmt.Sprintf("Delete %q on the remote too? [Y/n]", n.Label()), a.out)
	if err != nil {
		return err
	}
	alsoRemote := !strings.HasPrefix(strings.ToLower(answer), "n")

	if err := repo.DeleteNote(ctx, n, alsoRemote); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Deleted.")
	return nil
}

func (a *App) Sync(ctx context.Context) error {
	repo, err := a.notes()
	if err != nil {
		return err
	}
	repo.SyncNow()
	fmt.Fprintln(a.out, "Sync requested.")
	return nil
}

func (a *App) ShowStatus(ctx context.Context) error {
	repo, err := a.notes()
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Provider:  %s\n", repo.Provider().Name)
	fmt.Fprintf(a.out, "State:     %s\n", describe(repo.Syncing(), repo.LastSync(), nil))
	failures := a.status.Failures()
	if len(failures) == 0 {
		return nil
	}
	fmt.Fprintln(a.out, "Last sync failed:")
	for _, f := range failures {
		fmt.Fprintf(a.out, "  - %s\n", f.Error())
	}
	return nil
}
