// Package cli provides the interactive TailorBook command-line client.
//
// The REPL is a thin consumer of services.Controller: every command calls
// one controller action and then renders Controller.View(). Records are
// listed as a table, created and edited through a field-by-field form and
// addressed by id or by an unambiguous id prefix.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
