package track

import (
	"fmt"

	"github.com/julianstephens/habitual/internal/cli"
)

type StreakCmd struct {
	Bump  StreakBumpCmd  `cmd:"" help:"Manually raise a habit's streak by one."`
	Reset StreakResetCmd `cmd:"" help:"Zero the streak on the most recent check-in."`
}

type StreakBumpCmd struct {
	Name string `arg:"" help:"Habit name."`
}

func (c *StreakBumpCmd) Run(ctx *cli.Context) error {
	u, err := ctx.CurrentUser()
	if err != nil {
		return err
	}

	now := ctx.Now()
	if err := ctx.Tracker.BumpStreak(u.ID, c.Name, now); err != nil {
		return err
	}

	streak, err := ctx.Views.CurrentStreak(u.ID, c.Name, now)
	if err != nil {
		return err
	}
	fmt.Printf("Bumped %s streak to %d\n", c.Name, streak)
	return nil
}

type StreakResetCmd struct {
	Name string `arg:"" help:"Habit name."`
}

func (c *StreakResetCmd) Run(ctx *cli.Context) error {
	u, err := ctx.CurrentUser()
	if err != nil {
		return err
	}

	if err := ctx.Tracker.ResetStreak(u.ID, c.Name); err != nil {
		return err
	}
	fmt.Printf("Reset %s streak to 0\n", c.Name)
	return nil
}
