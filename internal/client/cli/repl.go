package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

const helpText = `Available commands:
  list | l        list records, newest first
  show <id>       show every field of a record
  add             enter a new record
  edit <id>       change a record
  delete <id>     delete a record
  reload          fetch all records again
  login           sign in with Google
  logout          sign out and work on this device only
  status          show backend and session details
  exit | quit     leave the program
An <id> may be shortened to any unambiguous prefix.`

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	List(ctx context.Context) error
	Show(ctx context.Context, id string) error
	Add(ctx context.Context) error
	Edit(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Reload(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) error
}

// runREPL reads one command per line from in and dispatches it to a.
// The prompt shows statusFn(). The loop ends on end of input, on context
// cancellation or when the user types "exit" or "quit". Errors returned by
// a handler are printed and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, in *bufio.Reader, w io.Writer) {
	for ctx.Err() == nil {
		fmt.Fprintf(w, "%s> ", statusFn())
		line, readErr := in.ReadString('\n')
		parts := strings.Fields(line)
		if len(parts) == 0 {
			if readErr != nil {
				fmt.Fprintln(w)
				return
			}
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			fmt.Fprintln(w, helpText)

		case "l", "list":
			err = a.List(ctx)

		case "show", "edit", "delete":
			if len(args) == 0 {
				fmt.Fprintf(w, "Usage: %s <id>\n", cmd)
				break
			}
			switch cmd {
			case "show":
				err = a.Show(ctx, args[0])
			case "edit":
				err = a.Edit(ctx, args[0])
			default:
				err = a.Delete(ctx, args[0])
			}

		case "add":
			err = a.Add(ctx)

		case "reload":
			err = a.Reload(ctx)

		case "login":
			err = a.Login(ctx)

		case "logout":
			err = a.Logout(ctx)

		case "status":
			err = a.Status(ctx)

		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return

		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if err != nil && !errors.Is(err, io.EOF) {
			fmt.Fprintln(w, "Error:", err)
		}
		if readErr != nil {
			return
		}
	}
}
