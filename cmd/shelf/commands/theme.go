package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/shelf/internal/app"
	"github.com/florianilch/shelf/internal/theme"
)

func themeCommand() *cli.Command {
	return &cli.Command{
		Name:  "theme",
		Usage: "choose the color theme",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "show the current theme",
				Action: withApp(themeShowAction),
			},
			{
				Name:      "set",
				Usage:     "set the theme",
				ArgsUsage: "<light|dark|midnight|system>",
				Action: withApp(func(ctx context.Context, cmd *cli.Command, a *app.App, _ *printer) error {
					name, err := theme.Parse(cmd.Args().First())
					if err != nil {
						return err
					}
					if err := a.Theme.Set(name); err != nil {
						return err
					}
					return themeShowAction(ctx, cmd, a, newPrinter(cmd, a.Theme.Palette().Styles()))
				}),
			},
			{
				Name:  "toggle",
				Usage: "switch to the next theme",
				Action: withApp(func(ctx context.Context, cmd *cli.Command, a *app.App, _ *printer) error {
					if _, err := a.Theme.Toggle(); err != nil {
						return err
					}
					return themeShowAction(ctx, cmd, a, newPrinter(cmd, a.Theme.Palette().Styles()))
				}),
			},
		},
	}
}

func themeShowAction(_ context.Context, _ *cli.Command, a *app.App, out *printer) error {
	current, resolved := a.Theme.Current(), a.Theme.Resolved()
	if current == resolved {
		out.heading(fmt.Sprintf("Theme: %s", current))
	} else {
		out.heading(fmt.Sprintf("Theme: %s (%s)", current, resolved))
	}

	st := out.st
	out.line("%s  %s  %s  %s  %s",
		st.Text.Render("text"),
		st.Muted.Render("muted"),
		st.Accent.Render("accent"),
		st.Success.Render("success"),
		st.Danger.Render("danger"),
	)
	return nil
}
