package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/ustczzh/AlephNote/internal/appsettings"
	"github.com/ustczzh/AlephNote/internal/common"
	"github.com/ustczzh/AlephNote/internal/remote"
	"github.com/ustczzh/AlephNote/internal/settings"
)

func (a *App) Providers(ctx context.Context) error {
	for _, p := range a.registry.List() {
		d := p.Descriptor()
		mark := " "
		if d.ID == a.settings.NoteProvider {
			mark = "*"
		}
		fmt.Fprintf(a.out, "%s %-16s %-8s %s\n", mark, d.Name, d.Version, d.ID)
	}
	return nil
}

func (a *App) printFields(title string, fields []settings.Field) error {
	fmt.Fprintln(a.out, title)
	for _, f := range fields {
		v, err := settings.FormatValue(f)
		if err != nil {
			return err
		}
		if f.Kind == settings.EncryptedString && v != "" {
			v = "********"
		}
		fmt.Fprintf(a.out, "  %-22s %s\n", f.Name, v)
	}
	return nil
}

func (a *App) ShowSettings(ctx context.Context) error {
	if err := a.printFields("Application:", a.settings.Fields()); err != nil {
		return err
	}
	cfg := a.settings.ActiveConfig()
	if cfg == nil {
		return nil
	}
	name := a.settings.NoteProvider.String()
	if p, err := a.registry.Resolve(a.settings.NoteProvider); err == nil {
		name = p.Descriptor().Name
	}
	return a.printFields(fmt.Sprintf("Provider %s:", name), cfg.Fields())
}

// findProvider matches a registered provider by UUID or by name.
func (a *App) findProvider(key string) (remote.Plugin, error) {
	if id, err := uuid.Parse(key); err == nil {
		return a.registry.Resolve(id)
	}
	for _, p := range a.registry.List() {
		if strings.EqualFold(p.Descriptor().Name, key) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("provider %q: %w", key, common.ErrNotFound)
}

// findField looks in the application fields first, then in the active
// provider configuration.
func findField(s *appsettings.AppSettings, name string) (settings.Field, bool) {
	for _, f := range s.Fields() {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	if cfg := s.ActiveConfig(); cfg != nil {
		for _, f := range cfg.Fields() {
			if strings.EqualFold(f.Name, name) {
				return f, true
			}
		}
	}
	return settings.Field{}, false
}

// Set changes one setting, saves the document and rebuilds the note
// repository when the change affects it.
//
//	set provider <name|uuid>
//	set <field> [value]      prompts when value is omitted
func (a *App) Set(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: set <name> [value]")
	}
	next := a.settings.Clone()

	if strings.EqualFold(args[0], "provider") {
		if len(args) < 2 {
			return fmt.Errorf("usage: set provider <name|uuid>")
		}
		p, err := a.findProvider(strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		id := p.Descriptor().ID
		next.NoteProvider = id
		if next.PluginSettings[id] == nil {
			next.PluginSettings[id] = p.CreateEmptyConfiguration()
		}
	} else {
		f, ok := findField(next, args[0])
		if !ok {
			return fmt.Errorf("unknown setting %q", args[0])
		}
		value, err := a.readValue(f, args[1:])
		if err != nil {
			return err
		}
		if err := settings.ParseValue(f, value); err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
	}

	return a.apply(ctx, next)
}

func (a *App) readValue(f settings.Field, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if f.Kind == settings.EncryptedString {
		pw, err := GetPassword(f.Name, a.out)
		if err != nil {
			return "", err
		}
		defer common.WipeByteArray(pw)
		return string(pw), nil
	}
	return GetSimpleText(a.reader, f.Name, a.out)
}

// apply persists next and swaps it in.
func (a *App) apply(ctx context.Context, next *appsettings.AppSettings) error {
	if next.Equal(a.settings) {
		fmt.Fprintln(a.out, "Nothing changed.")
		return nil
	}
	if err := next.Save(ctx, a.config.SettingsFile, a.codec); err != nil {
		return err
	}

	rebuild := a.repo == nil || a.settings.RequiresReconnect(next) || a.engineChanged(a.settings, next)
	a.settings = next
	fmt.Fprintln(a.out, "Saved.")

	if rebuild {
		a.connect(ctx)
	}
	return nil
}

func (a *App) engineChanged(old, next *appsettings.AppSettings) bool {
	o, n := a.options(old), a.options(next)
	return o.RemoteTimeout != n.RemoteTimeout || o.SyncInterval != n.SyncInterval || o.SortMode != n.SortMode
}
