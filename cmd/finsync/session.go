package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"finsync/internal/app"
	"finsync/internal/core"
)

// run opens the client and hands it to fn, mapping failures to an exit
// status.
func run(ctx context.Context, args []interface{}, fn func(context.Context, *app.App) error) subcommands.ExitStatus {
	e, ok := args[0].(*env)
	if !ok {
		fmt.Fprintln(os.Stderr, "internal error: missing environment")
		return subcommands.ExitFailure
	}
	a, err := e.open(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := fn(ctx, a); err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type signUpCmd struct {
	username string
	password string
}

func (*signUpCmd) Name() string     { return "signup" }
func (*signUpCmd) Synopsis() string { return "create an account and sign in" }
func (*signUpCmd) Usage() string {
	return `finsync signup -u <username> -p <password>
`
}

func (c *signUpCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "u", "", "username")
	f.StringVar(&c.password, "p", "", "password")
}

func (c *signUpCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, args, func(ctx context.Context, a *app.App) error {
		res, err := a.Models.Auth.SignUp(ctx, core.SignUpInput{Username: c.username, Password: c.password})
		if err != nil {
			return err
		}
		fmt.Printf("Welcome, %s.\n", res.Account.Username)
		return nil
	})
}

type signInCmd struct {
	username  string
	password  string
	remember  bool
	biometric bool
}

func (*signInCmd) Name() string     { return "signin" }
func (*signInCmd) Synopsis() string { return "sign in to an existing account" }
func (*signInCmd) Usage() string {
	return `finsync signin -u <username> -p <password> [-remember]
finsync signin -biometric

  -remember keeps the credentials for biometric sign-in on this device.
`
}

func (c *signInCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "u", "", "username")
	f.StringVar(&c.password, "p", "", "password")
	f.BoolVar(&c.remember, "remember", false, "remember credentials for biometric sign-in")
	f.BoolVar(&c.biometric, "biometric", false, "sign in with remembered credentials")
}

func (c *signInCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, args, func(ctx context.Context, a *app.App) error {
		var (
			res core.AuthResult
			err error
		)
		if c.biometric {
			res, err = a.Models.Auth.SignInWithBiometrics(ctx, "Sign in to finsync")
		} else {
			creds := core.Credentials{Username: c.username, Password: c.password}
			res, err = a.Models.Auth.SignIn(ctx, creds)
			if err == nil && c.remember {
				err = a.Models.Auth.RememberForBiometrics(ctx, creds)
			}
		}
		if err != nil {
			return err
		}
		fmt.Printf("Signed in as %s.\n", res.Account.Username)
		return nil
	})
}

type logoutCmd struct{}

func (*logoutCmd) Name() string           { return "logout" }
func (*logoutCmd) Synopsis() string       { return "sign out and forget the session" }
func (*logoutCmd) Usage() string          { return "finsync logout\n" }
func (*logoutCmd) SetFlags(*flag.FlagSet) {}
func (*logoutCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, args, func(ctx context.Context, a *app.App) error {
		return a.Models.Auth.Logout(ctx)
	})
}

type whoamiCmd struct{}

func (*whoamiCmd) Name() string           { return "whoami" }
func (*whoamiCmd) Synopsis() string       { return "show the signed-in account" }
func (*whoamiCmd) Usage() string          { return "finsync whoami\n" }
func (*whoamiCmd) SetFlags(*flag.FlagSet) {}
func (*whoamiCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, args, func(ctx context.Context, a *app.App) error {
		s := a.Models.Auth.Session()
		if s.Token == "" {
			fmt.Println("Not signed in.")
			return nil
		}
		fmt.Printf("%s (%s) at %s\n", s.Username, s.AccountID, a.Config.APIURL)
		return nil
	})
}
