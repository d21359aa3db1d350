package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"popx/internal/app/user"
	"popx/internal/client/session"
)

func registerCmd(app *App) *cobra.Command {
	var reg session.Registration

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := promptPassword(cmd, reg.Password)
			if err != nil {
				return err
			}
			reg.Password = password

			if err := outcomeErr(app.Session.Register(cmd.Context(), reg)); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Account created. Signed in as %s.\n", app.Session.State().Identity.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&reg.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&reg.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&reg.Phone, "phone", "", "Phone number (10 digits)")
	cmd.Flags().StringVar(&reg.Password, "password", "", "Password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("phone")

	return cmd
}

func loginCmd(app *App) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := promptPassword(cmd, password)
			if err != nil {
				return err
			}

			if err := outcomeErr(app.Session.Login(cmd.Context(), email, pw)); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s.\n", app.Session.State().Identity.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func meCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return protected(cmd.Context(), app, func(s session.State) error {
				printIdentity(cmd.OutOrStdout(), s.Identity)
				return nil
			})
		},
	}
}

func updateCmd(app *App) *cobra.Command {
	var name, email, phone, avatar string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change profile fields or the avatar",
		Long: `Change profile fields or the avatar.

Only the flags you pass are sent. Fields you leave out keep their current value.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()

			var update session.ProfileUpdate
			if flags.Changed("name") {
				update.Name = user.Some(name)
			}
			if flags.Changed("email") {
				update.Email = user.Some(email)
			}
			if flags.Changed("phone") {
				update.Phone = user.Some(phone)
			}

			if avatar != "" {
				f, err := os.Open(avatar)
				if err != nil {
					return fmt.Errorf("open avatar: %w", err)
				}
				defer f.Close()
				update.Avatar = &session.Attachment{FileName: f.Name(), Data: f}
			}

			if !update.Name.Present() && !update.Email.Present() && !update.Phone.Present() && update.Avatar == nil {
				return fmt.Errorf("nothing to update: pass at least one of --name, --email, --phone, --avatar")
			}

			return protected(cmd.Context(), app, func(session.State) error {
				if err := outcomeErr(app.Session.UpdateProfile(cmd.Context(), update)); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Profile updated.")
				printIdentity(cmd.OutOrStdout(), app.Session.State().Identity)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New display name")
	cmd.Flags().StringVar(&email, "email", "", "New email address")
	cmd.Flags().StringVar(&phone, "phone", "", "New phone number (10 digits)")
	cmd.Flags().StringVar(&avatar, "avatar", "", "Path to a jpeg, png or gif image (5 MB max)")

	return cmd
}

func logoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the local session",
		Long: `Forget the local session.

The server is not contacted. A copied token stays valid until it expires.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Session.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func statusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether a session is active",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := app.Session.Init(cmd.Context())
			s := app.Session.State()
			if s.Authenticated() {
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s.\n", s.Identity.Email)
				return nil
			}
			if out.Error != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Signed out (%s).\n", out.Error)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}
