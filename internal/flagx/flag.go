// Package flagx lets several flag sets share one command line. The CLI and
// the hub each parse their own flags plus the -c/-config JSON path from the
// same os.Args; every set sees only the arguments it defines.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// Owned returns, in order, the arguments of args that name a flag defined on
// fs together with their values. Anything else is dropped. Non-boolean flags
// written as "-name value" take the next argument as their value, as the flag
// package does. Scanning stops at "--".
func Owned(fs *flag.FlagSet, args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		name, inline, ok := flagName(arg)
		if !ok {
			continue
		}
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		out = append(out, arg)
		if inline || isBool(f) {
			continue
		}
		if i+1 < len(args) {
			out = append(out, args[i+1])
			i++
		}
	}
	return out
}

// Parse parses the arguments of args that belong to fs.
func Parse(fs *flag.FlagSet, args []string) error {
	return fs.Parse(Owned(fs, args))
}

// ConfigPath extracts the JSON config file path given via -c or -config.
// The last occurrence wins; an empty string means none.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "Path to config file")
	fs.StringVar(&path, "c", "", "Path to config file (short)")
	_ = Parse(fs, args)

	return path
}

// flagName splits "-name", "--name" and "-name=value" forms.
func flagName(arg string) (name string, inline bool, ok bool) {
	if len(arg) < 2 || arg[0] != '-' {
		return "", false, false
	}
	name = arg[1:]
	if name[0] == '-' {
		name = name[1:]
	}
	if name == "" || name[0] == '-' || name[0] == '=' {
		return "", false, false
	}
	name, _, inline = strings.Cut(name, "=")
	return name, inline, true
}

func isBool(f *flag.Flag) bool {
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}
