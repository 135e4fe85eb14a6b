// Command clever ingests documents and searches them by meaning.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/clever-documents/internal/adapters/driving/cli"
	"github.com/custodia-labs/clever-documents/internal/app"
	"github.com/custodia-labs/clever-documents/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	cli.SetServiceFactory(func(ctx context.Context, cfg *config.Config) (*cli.Services, error) {
		a, err := app.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &cli.Services{
			Ingest:   a.Ingest,
			Search:   a.Search,
			Document: a.Documents,
			Close:    a.Close,
		}, nil
	})

	if err := cli.Execute(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
