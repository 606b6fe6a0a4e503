package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/notbigmuzzy/genregraphy/internal/cli"
)

const envFile = ".env"

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// Secrets such as LASTFM_API_KEY may live in .env
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: could not load %s: %v\n", envFile, err)
	}

	var c cli.CLI
	kctx := kong.Parse(&c,
		kong.Name("genregraphy"),
		kong.Description("Collect genre release data and build the Genregraphy map document."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": version},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := cli.NewEnv(ctx, c.Globals, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := kctx.Run(env); err != nil {
		if errors.Is(err, context.Canceled) {
			env.Log.Warn("Interrupted")
			return 130
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
