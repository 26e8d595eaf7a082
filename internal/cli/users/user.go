package users

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/session"
)

type UserCmd struct {
	Create UserCreateCmd `cmd:"" help:"Create a new user."`
	Login  UserLoginCmd  `cmd:"" help:"Log in and start a session."`
	Logout UserLogoutCmd `cmd:"" help:"Log out of the current session."`
	Whoami UserWhoamiCmd `cmd:"" help:"Show the logged-in user."`
	Rename UserRenameCmd `cmd:"" help:"Rename the logged-in user."`
	Passwd UserPasswdCmd `cmd:"" help:"Change the logged-in user's password."`
	Delete UserDeleteCmd `cmd:"" help:"Delete the logged-in user and all their data."`
}

type UserCreateCmd struct {
	Name     string `arg:"" help:"User name."`
	ID       string `help:"Explicit 8-character user id (generated when omitted)."`
	Password string `help:"Password (prompted when omitted)." env:"HABITUAL_PASSWORD"`
}

func (c *UserCreateCmd) Run(ctx *cli.Context) error {
	password := c.Password
	if password == "" {
		if err := promptPassword("Choose a password", &password); err != nil {
			return err
		}
	}

	u, err := ctx.Users.Create(c.ID, c.Name, password)
	if err != nil {
		return err
	}

	fmt.Printf("Created user %s (id: %s)\n", u.Name, u.ID)
	fmt.Println("Log in with 'habitual user login' to start tracking.")
	return nil
}

type UserLoginCmd struct {
	Name     string `arg:"" help:"User name."`
	Password string `help:"Password (prompted when omitted)." env:"HABITUAL_PASSWORD"`
}

func (c *UserLoginCmd) Run(ctx *cli.Context) error {
	password := c.Password
	if password == "" {
		if err := promptPassword("Password", &password); err != nil {
			return err
		}
	}

	u, err := ctx.Users.Authenticate(c.Name, password)
	if err != nil {
		return err
	}
	if err := session.Save(u.ID); err != nil {
		return err
	}

	fmt.Printf("Logged in as %s\n", u.Name)
	return nil
}

type UserLogoutCmd struct{}

func (c *UserLogoutCmd) Run(ctx *cli.Context) error {
	if err := session.Clear(); err != nil {
		return err
	}
	fmt.Println("Logged out.")
	return nil
}

type UserWhoamiCmd struct{}

func (c *UserWhoamiCmd) Run(ctx *cli.Context) error {
	u, err := ctx.CurrentUser()
	if err != nil {
		return err
	}
	fmt.Printf("%s (id: %s)\n", u.Name, u.ID)
	return nil
}

type UserRenameCmd struct {
	NewName string `arg:"" help:"New user name."`
}

func (c *UserRenameCmd) Run(ctx *cli.Context) error {
	u, err := ctx.CurrentUser()
	if err != nil {
		return err
	}
	if err := ctx.Users.Rename(u.ID, c.NewName); err != nil {
		return err
	}
	fmt.Printf("Renamed %s to %s\n", u.Name, c.NewName)
	return nil
}

type UserPasswdCmd struct{}

func (c *UserPasswdCmd) Run(ctx *cli.Context) error {
	u, err := ctx.CurrentUser()
	if err != nil {
		return err
	}

	var current, next string
	if err := promptPassword("Current password", &current); err != nil {
		return err
	}
	if err := promptPassword("New password", &next); err != nil {
		return err
	}

	if err := ctx.Users.ChangePassword(u.ID, current, next); err != nil {
		return err
	}
	fmt.Println("Password changed.")
	return nil
}

type UserDeleteCmd struct {
	Yes bool `help:"Skip the confirmation prompt."`
}

func (c *UserDeleteCmd) Run(ctx *cli.Context) error {
	u, err := ctx.CurrentUser()
	if err != nil {
		return err
	}

	if !c.Yes {
		confirmed := false
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Delete user %q and all their habits and history?", u.Name)).
					Value(&confirmed),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("confirmation form error: %w", err)
		}
		if !confirmed {
			fmt.Println("Delete cancelled.")
			return nil
		}
	}

	ctx.PerformAutomaticBackup()

	if err := ctx.Users.Delete(u.ID); err != nil {
		return err
	}
	if err := session.Clear(); err != nil && !errors.Is(err, session.ErrNoSession) {
		fmt.Printf("Warning: failed to clear session: %v\n", err)
	}

	fmt.Printf("Deleted user %s and all their data.\n", u.Name)
	return nil
}

func promptPassword(title string, value *string) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				EchoMode(huh.EchoModePassword).
				Value(value),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("password prompt error: %w", err)
	}
	return nil
}
