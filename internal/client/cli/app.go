package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/tailorbook/internal/client/models"
	"github.com/dmitrijs2005/tailorbook/internal/client/services"
	"github.com/dmitrijs2005/tailorbook/internal/logging"
)

var (
	ErrNoRecord    = errors.New("no record with this id")
	ErrAmbiguousID = errors.New("id prefix matches several records")
)

// controller is the part of services.Controller the REPL drives.
type controller interface {
	Start(ctx context.Context)
	Reload(ctx context.Context)
	SignIn(ctx context.Context)
	SignOut(ctx context.Context)
	Save(ctx context.Context, r models.Record)
	Delete(ctx context.Context, id string)
	View() services.View
	Find(id string) (models.Record, bool)
}

type App struct {
	ctl    controller
	log    logging.Logger
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(ctl *services.Controller, log logging.Logger) *App {
	return newApp(ctl, log, os.Stdin, os.Stdout)
}

func newApp(ctl controller, log logging.Logger, in io.Reader, out io.Writer) *App {
	return &App{
		ctl:    ctl,
		log:    log.With("component", "cli"),
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// DevicePrompt tells the user where to confirm a Google sign-in. It has the
// shape of auth.Prompt.
func (a *App) DevicePrompt(ctx context.Context, verificationURL, userCode string) {
	fmt.Fprintf(a.out, "To sign in, open %s and enter the code %s\nWaiting for confirmation...\n", verificationURL, userCode)
}

// Run loads the records and serves commands until the user exits.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "TailorBook (type 'help' for commands)")
	a.ctl.Start(ctx)
	a.report()
	runREPL(ctx, a, a.prompt, a.reader, a.out)
}

func (a *App) prompt() string {
	v := a.ctl.View()
	s := v.Backend.String()
	if v.Session == services.SignedIn {
		s += ", signed in"
	}
	if v.Pending != nil {
		s += ", waiting for login"
	}
	return fmt.Sprintf("tailorbook (%s) ", s)
}

// report prints the status line left by the last controller action.
func (a *App) report() {
	statusLine(a.out, a.ctl.View())
}

// resolve finds a record by exact id or by a unique id prefix.
func (a *App) resolve(id string) (models.Record, error) {
	if r, ok := a.ctl.Find(id); ok {
		return r, nil
	}
	var found []models.Record
	for _, r := range a.ctl.View().Records {
		if strings.HasPrefix(r.ID, id) {
			found = append(found, r)
		}
	}
	switch len(found) {
	case 0:
		return models.Record{}, fmt.Errorf("%w: %s", ErrNoRecord, id)
	case 1:
		return found[0], nil
	default:
		return models.Record{}, fmt.Errorf("%w: %s", ErrAmbiguousID, id)
	}
}

func (a *App) List(ctx context.Context) error {
	v := a.ctl.View()
	listView(a.out, v.Records)
	return nil
}

func (a *App) Show(ctx context.Context, id string) error {
	r, err := a.resolve(id)
	if err != nil {
		return err
	}
	showView(a.out, r)
	return nil
}

func (a *App) Add(ctx context.Context) error {
	r, ok := formView(a.reader, a.out, nil)
	if !ok {
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}
	a.log.Debug(ctx, "saving new record")
	a.ctl.Save(ctx, r)
	a.report()
	return nil
}

func (a *App) Edit(ctx context.Context, id string) error {
	existing, err := a.resolve(id)
	if err != nil {
		return err
	}
	r, ok := formView(a.reader, a.out, &existing)
	if !ok {
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}
	a.log.Debug(ctx, "saving record", "id", r.ID)
	a.ctl.Save(ctx, r)
	a.report()
	return nil
}

func (a *App) Delete(ctx context.Context, id string) error {
	r, err := a.resolve(id)
	if err != nil {
		return err
	}
	ok, err := confirm(a.reader, a.out, fmt.Sprintf("Delete %s (%s)?", r.Name, r.ID))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}
	a.log.Debug(ctx, "deleting record", "id", r.ID)
	a.ctl.Delete(ctx, r.ID)
	a.report()
	return nil
}

func (a *App) Reload(ctx context.Context) error {
	a.ctl.Reload(ctx)
	a.report()
	return nil
}

func (a *App) Login(ctx context.Context) error {
	a.ctl.SignIn(ctx)
	a.report()
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.ctl.SignOut(ctx)
	a.report()
	return nil
}

func (a *App) Status(ctx context.Context) error {
	statusView(a.out, a.ctl.View())
	return nil
}
