package main

import (
	"flag"
	"io"
)

type options struct {
	migrateDown bool
}

func parseFlags(args []string, output io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.BoolVar(&opts.migrateDown, "migrate-down", false, "roll back the last schema migration and exit")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}
