package track

import (
	"fmt"

	"github.com/julianstephens/habitual/internal/cli"
)

type RepCmd struct {
	Bump  RepBumpCmd  `cmd:"" help:"Manually raise today's repetition count by one."`
	Reset RepResetCmd `cmd:"" help:"Zero the repetition count across a habit's whole history."`
}

type RepBumpCmd struct {
	Name string `arg:"" help:"Habit name."`
}

func (c *RepBumpCmd) Run(ctx *cli.Context) error {
	u, err := ctx.CurrentUser()
	if err != nil {
		return err
	}

	if err := ctx.Tracker.BumpRepetition(u.ID, c.Name, ctx.Now()); err != nil {
		return err
	}
	fmt.Printf("Bumped %s repetitions for today\n", c.Name)
	return nil
}

type RepResetCmd struct {
	Name string `arg:"" help:"Habit name."`
}

func (c *RepResetCmd) Run(ctx *cli.Context) error {
	u, err := ctx.CurrentUser()
	if err != nil {
		return err
	}

	if err := ctx.Tracker.ResetRepetition(u.ID, c.Name); err != nil {
		return err
	}
	fmt.Printf("Reset %s repetitions to 0 across all history\n", c.Name)
	return nil
}
