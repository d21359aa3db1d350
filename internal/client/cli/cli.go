/*
Package cli builds the popx command tree on top of the session client.

Commands that show or change the profile run behind the access gate, after the persisted
session has been restored.
*/
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"popx/internal/client/gate"
	"popx/internal/client/session"
	"popx/internal/pkg/logx"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// ErrSignInRequired is returned by protected commands when no session is active.
var ErrSignInRequired = errors.New("not signed in, run `popx login` first")

// App holds what the commands share.
type App struct {
	Session *session.Client

	// ErrOut receives log output. Defaults to os.Stderr.
	ErrOut io.Writer
}

// NewRootCommand returns the root `popx` command with every subcommand attached.
func NewRootCommand(app *App) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "popx",
		Short: "Command line client for the popx account service",
		Long: `popx signs you in to a popx account server and manages your profile.

The session token is kept in a local database between runs, so you only
need to sign in again when it expires or the server rejects it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			w := app.ErrOut
			if w == nil {
				w = os.Stderr
			}
			logx.InitConsoleLogger(w, verbose)
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		registerCmd(app),
		loginCmd(app),
		meCmd(app),
		updateCmd(app),
		logoutCmd(app),
		statusCmd(app),
	)

	return root
}

func outcomeErr(out session.Outcome) error {
	if out.Success {
		return nil
	}
	if out.Error == "" {
		return errors.New("request failed")
	}
	return errors.New(out.Error)
}

// protected restores the session and runs view behind the gate.
func protected(ctx context.Context, app *App, view func(session.State) error) error {
	if out := app.Session.Init(ctx); !out.Success && out.Error != "" {
		logx.Debug("session restore failed", "error", out.Error)
	}

	return gate.Protect(app.Session, view, func(string) error {
		return ErrSignInRequired
	})()
}

func promptPassword(cmd *cobra.Command, password string) (string, error) {
	if password != "" {
		return password, nil
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(string(pw), "\r\n"), nil
}

func printIdentity(w io.Writer, id *session.Identity) {
	fmt.Fprintf(w, "  ID:     %s\n", id.ID)
	fmt.Fprintf(w, "  Name:   %s\n", id.Name)
	fmt.Fprintf(w, "  Email:  %s\n", id.Email)
	fmt.Fprintf(w, "  Phone:  %s\n", id.Phone)
	if id.ProfileImage != "" {
		fmt.Fprintf(w, "  Avatar: %s\n", id.ProfileImage)
	}
}
