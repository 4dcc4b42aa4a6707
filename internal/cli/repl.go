package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. App satisfies it;
// tests use a stub.
type execIface interface {
	List(ctx context.Context) error
	Show(ctx context.Context, args []string) error
	New(ctx context.Context) error
	Edit(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Sync(ctx context.Context) error
	ShowStatus(ctx context.Context) error
	Providers(ctx context.Context) error
	ShowSettings(ctx context.Context) error
	Set(ctx context.Context, args []string) error
}

const helpText = `Available commands:
  (l)ist                 list notes
  show <n|id>            print a note
  new                    create a note
  edit <n|id>            edit a note
  (d)elete <n|id>        delete a note
  sync                   synchronise now
  status                 last sync and its failures
  providers              list note providers
  settings               show settings
  set <name> [value]     change a setting (set provider <name> switches)
  exit | quit            leave the program`

// runREPL reads commands line by line from reader and dispatches them to a
// until EOF, "exit" or "quit". Command errors are printed and the loop
// goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("an> %s > ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			if err != nil {
				return
			}
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			printlnFn(helpText)
		case "l", "list":
			cmdErr = a.List(ctx)
		case "show":
			cmdErr = a.Show(ctx, args)
		case "new":
			cmdErr = a.New(ctx)
		case "edit":
			cmdErr = a.Edit(ctx, args)
		case "d", "delete":
			cmdErr = a.Delete(ctx, args)
		case "sync":
			cmdErr = a.Sync(ctx)
		case "status":
			cmdErr = a.ShowStatus(ctx)
		case "providers":
			cmdErr = a.Providers(ctx)
		case "settings":
			cmdErr = a.ShowSettings(ctx)
		case "set":
			cmdErr = a.Set(ctx, args)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}
		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
		if err != nil {
			return
		}
	}
}
