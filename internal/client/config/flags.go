package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/tailorbook/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// args is filtered with flagx.FilterArgs first, so flags owned by other
// loaders (-c) do not break parsing.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-d", "-doc", "-tab", "-cid", "-l"})

	fs := flag.NewFlagSet("tailorbook", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DataPath, "d", cfg.DataPath, "path of the local database")
	fs.StringVar(&cfg.DocumentName, "doc", cfg.DocumentName, "name of the Google Sheets document")
	fs.StringVar(&cfg.SheetName, "tab", cfg.SheetName, "name of the tab holding the records")
	fs.StringVar(&cfg.ClientID, "cid", cfg.ClientID, "OAuth client id")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	return fs.Parse(args)
}
