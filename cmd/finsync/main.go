// Command finsync is a terminal front end for a finsync backend.
package main

import (
	"context"
	"flag"
	"os"
	"path"
	"sync"

	"github.com/google/subcommands"

	"finsync/internal/app"
	"finsync/internal/cli"
	"finsync/internal/log"
)

// env opens the client on first use so help and flag errors need no
// configuration.
type env struct {
	once   sync.Once
	app    *app.App
	err    error
	logger *log.Logger
}

func (e *env) open(ctx context.Context) (*app.App, error) {
	e.once.Do(func() {
		cfg, err := cli.LoadAndValidateConfig()
		if err != nil {
			e.err = err
			return
		}
		e.logger = cli.SetupLogger(cfg).WithComponent(log.ComponentCLI)
		e.app, e.err = app.New(ctx, cfg, e.logger)
	})
	return e.app, e.err
}

func (e *env) close() {
	if e.app == nil {
		return
	}
	if err := e.app.Close(); err != nil {
		e.logger.Error("Failed to close client", log.FieldError, err)
	}
}

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	register(commander)

	flag.Parse()

	e := &env{}
	status := commander.Execute(context.Background(), e)
	e.close()
	os.Exit(int(status))
}

func register(c *subcommands.Commander) {
	c.Register(&signUpCmd{}, "session")
	c.Register(&signInCmd{}, "session")
	c.Register(&logoutCmd{}, "session")
	c.Register(&whoamiCmd{}, "session")

	c.Register(&dashboardCmd{}, "read")
	c.Register(&walletsCmd{}, "read")
	c.Register(&transactionsCmd{}, "read")
	c.Register(&labelsCmd{}, "read")
	c.Register(&goalsCmd{}, "read")
	c.Register(&projectsCmd{}, "read")
	c.Register(&statsCmd{}, "read")

	c.Register(&addWalletCmd{}, "write")
	c.Register(&addTransactionCmd{}, "write")
	c.Register(&deleteTransactionCmd{}, "write")
	c.Register(&addLabelCmd{}, "write")
	c.Register(&archiveLabelCmd{}, "write")
	c.Register(&addGoalCmd{}, "write")
	c.Register(&addProjectCmd{}, "write")
	c.Register(&addCostCmd{}, "write")

	c.Register(&exportCmd{}, "export")
}
