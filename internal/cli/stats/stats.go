package stats

import (
	"fmt"

	"github.com/julianstephens/habitual/internal/cli"
)

type StatsCmd struct {
	Streaks StreaksCmd `cmd:"" help:"Show the longest streak per habit." default:"1"`
	Current CurrentCmd `cmd:"" help:"Show the live streak per habit."`
	Broken  BrokenCmd  `cmd:"" help:"Show habits whose streak is currently broken."`
	Reps    RepsCmd    `cmd:"" help:"Show lifetime repetition totals per habit."`
}

type StreaksCmd struct{}

func (c *StreaksCmd) Run(ctx *cli.Context) error {
	u, err := ctx.CurrentUser()
	if err != nil {
		return err
	}

	streaks, err := ctx.Views.LongestStreaks(u.ID, ctx.Now())
	if err != nil {
		return err
	}
	if len(streaks) == 0 {
		fmt.Println("No streaks recorded yet. Check a habit to start one.")
		return nil
	}

	fmt.Println(cli.RenderStreaks(streaks, "Longest Streak"))
	return nil
}

type CurrentCmd struct{}

func (c *CurrentCmd) Run(ctx *cli.Context) error {
	u, err := ctx.CurrentUser()
	if err != nil {
		return err
	}

	streaks, err := ctx.Views.CurrentStreaks(u.ID, ctx.Now())
	if err != nil {
		return err
	}
	if len(streaks) == 0 {
		fmt.Println("No habits yet. Add one with 'habitual habit add'.")
		return nil
	}

	fmt.Println(cli.RenderStreaks(streaks, "Current Streak"))
	return nil
}

type BrokenCmd struct{}

func (c *BrokenCmd) Run(ctx *cli.Context) error {
	u, err := ctx.CurrentUser()
	if err != nil {
		return err
	}

	broken, err := ctx.Views.BrokenStreaks(u.ID, ctx.Now())
	if err != nil {
		return err
	}
	if len(broken) == 0 {
		fmt.Println("No broken streaks. Keep it up!")
		return nil
	}

	fmt.Println(cli.RenderStreaks(broken, "Streak"))
	return nil
}

type RepsCmd struct{}

func (c *RepsCmd) Run(ctx *cli.Context) error {
	u, err := ctx.CurrentUser()
	if err != nil {
		return err
	}

	totals, err := ctx.Views.TotalRepetitions(u.ID)
	if err != nil {
		return err
	}
	if len(totals) == 0 {
		fmt.Println("No repetitions recorded yet.")
		return nil
	}

	fmt.Println(cli.RenderRepetitions(totals))
	return nil
}
