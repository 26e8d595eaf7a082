package habits

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/storage"
)

type HabitCmd struct {
	Add    HabitAddCmd    `cmd:"" help:"Add a new custom habit."`
	Edit   HabitEditCmd   `cmd:"" help:"Change a habit's interval."`
	Delete HabitDeleteCmd `cmd:"" help:"Delete a habit and its history."`
	List   HabitListCmd   `cmd:"" help:"List habits."`
}

type HabitAddCmd struct {
	Name        string `arg:"" help:"Habit name."`
	Interval    string `short:"i" help:"Cadence: daily or weekly." enum:"d,daily,w,weekly" default:"daily"`
	Description string `short:"d" help:"What the habit involves."`
	Category    string `short:"c" help:"Free-form category label."`
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	u, err := ctx.CurrentUser()
	if err != nil {
		return err
	}

	interval, err := models.ParseInterval(c.Interval)
	if err != nil {
		return err
	}

	h, err := ctx.Registry.CreateCustom(u.ID, c.Name, c.Description, c.Category, interval, ctx.Now())
	if err != nil {
		return err
	}

	fmt.Printf("Added habit: %s (%s)\n", h.Name, h.Interval)
	return nil
}

type HabitEditCmd struct {
	Name     string `arg:"" help:"Habit name."`
	Interval string `arg:"" help:"New cadence: daily or weekly." enum:"d,daily,w,weekly"`
}

func (c *HabitEditCmd) Run(ctx *cli.Context) error {
	u, err := ctx.CurrentUser()
	if err != nil {
		return err
	}

	interval, err := models.ParseInterval(c.Interval)
	if err != nil {
		return err
	}

	// Only owned habits can be edited; adopt a template first by
	// checking it, or add a custom habit with the same name.
	if err := ctx.Registry.EditInterval(u.ID, c.Name, interval); err != nil {
		return err
	}

	fmt.Printf("Set %s to %s\n", c.Name, interval)
	return nil
}

type HabitDeleteCmd struct {
	Name string `arg:"" help:"Habit name to delete."`
	Yes  bool   `help:"Skip the confirmation prompt."`
}

func (c *HabitDeleteCmd) Run(ctx *cli.Context) error {
	u, err := ctx.CurrentUser()
	if err != nil {
		return err
	}

	habit, err := ctx.Store.GetOwnedHabit(u.ID, c.Name)
	if err != nil {
		return fmt.Errorf("habit %q not found", c.Name)
	}

	if !c.Yes {
		confirmed := false
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Delete %q and its full check-in history?", habit.Name)).
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

	if err := ctx.Registry.Delete(u.ID, habit.Name); err != nil {
		return err
	}

	fmt.Printf("Deleted habit: %s\n", habit.Name)
	return nil
}

type HabitListCmd struct {
	Custom     bool   `help:"Show only your custom habits."`
	Predefined bool   `help:"Show only the predefined habits."`
	Interval   string `short:"i" help:"Filter by cadence: daily or weekly." enum:",d,daily,w,weekly" default:""`
}

func (c *HabitListCmd) Run(ctx *cli.Context) error {
	u, err := ctx.CurrentUser()
	if err != nil {
		return err
	}

	filter := storage.HabitFilter{UserID: u.ID, Scope: storage.ScopeAll}
	switch {
	case c.Custom && c.Predefined:
		return fmt.Errorf("--custom and --predefined are mutually exclusive")
	case c.Custom:
		filter.Scope = storage.ScopeCustom
	case c.Predefined:
		filter.Scope = storage.ScopePredefined
	}
	if c.Interval != "" {
		interval, err := models.ParseInterval(c.Interval)
		if err != nil {
			return err
		}
		filter.Interval = interval
	}

	habits, err := ctx.Views.Habits(filter)
	if err != nil {
		return err
	}
	if len(habits) == 0 {
		fmt.Println("No habits found.")
		return nil
	}

	fmt.Println(cli.RenderHabits(habits))
	return nil
}
