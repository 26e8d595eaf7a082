package track

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/tracker"
)

type CheckCmd struct {
	Name string `arg:"" help:"Habit name to check off."`
	Yes  bool   `help:"Skip the confirmation prompt."`
}

func (c *CheckCmd) Run(ctx *cli.Context) error {
	u, err := ctx.CurrentUser()
	if err != nil {
		return err
	}

	if !c.Yes {
		confirmed := false
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Check off %s for today?", c.Name)).
					Value(&confirmed),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("confirmation form error: %w", err)
		}
		if !confirmed {
			fmt.Println("Nothing recorded.")
			return nil
		}
	}

	now := ctx.Now()
	err = ctx.Tracker.Check(u.ID, c.Name, now)
	if errors.Is(err, tracker.ErrPeriodAlreadySatisfied) {
		// A no-op, not a failure: the period is covered and nothing was
		// written. Extra completions go through 'habitual rep bump'.
		fmt.Printf("%s is already checked this period. Record extra repetitions with 'habitual rep bump'.\n", c.Name)
		return nil
	}
	if err != nil {
		return err
	}

	streak, err := ctx.Views.CurrentStreak(u.ID, c.Name, now)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Checked %s (streak: %d)\n", c.Name, streak)
	return nil
}
