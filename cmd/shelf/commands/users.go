package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/shelf/internal/account"
	"github.com/florianilch/shelf/internal/app"
	"github.com/florianilch/shelf/internal/shelfapi"
)

func usersCommand() *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "find people and look at their shelves",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list users",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "search", Usage: "filter by login or name"},
					&cli.IntFlag{Name: "limit", Usage: "page size", Value: 20},
					&cli.IntFlag{Name: "offset", Usage: "page offset"},
				},
				Action: withApp(usersListAction),
			},
			{
				Name:      "show",
				Usage:     "show a user's profile and library",
				ArgsUsage: "<user-id>",
				Action:    withApp(usersShowAction),
			},
			{
				Name:      "avatar",
				Usage:     "upload your avatar",
				ArgsUsage: "<file>",
				Action:    withApp(usersAvatarAction),
			},
		},
	}
}

func usersListAction(ctx context.Context, cmd *cli.Command, a *app.App, out *printer) error {
	if err := requireRoute(ctx, a, account.RouteCommunity); err != nil {
		return err
	}
	users, err := a.API.ListUsers(ctx, shelfapi.ListUsersParams{
		Limit:  int(cmd.Int("limit")),
		Offset: int(cmd.Int("offset")),
		Search: cmd.String("search"),
	})
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{strconv.FormatInt(u.ID, 10), u.Login, u.DisplayName()})
	}
	out.table("No users found.", []string{"ID", "Login", "Name"}, rows)
	return nil
}

func usersShowAction(ctx context.Context, cmd *cli.Command, a *app.App, out *printer) error {
	if err := requireRoute(ctx, a, account.RouteUserProfile); err != nil {
		return err
	}
	id, err := strconv.ParseInt(cmd.Args().First(), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q", cmd.Args().First())
	}

	user, err := a.API.User(ctx, id)
	if err != nil {
		return err
	}
	titles, err := a.API.UserTitles(ctx, id)
	if err != nil {
		return err
	}

	out.box(out.st.Title.Render(user.DisplayName()) + "\n" + out.st.Muted.Render("@"+user.Login))
	out.table("No titles yet.", userTitleHeaders, userTitleRows(titles))
	return nil
}

func usersAvatarAction(ctx context.Context, cmd *cli.Command, a *app.App, out *printer) error {
	if err := requireRoute(ctx, a, account.RouteSettings); err != nil {
		return err
	}
	path := cmd.Args().First()
	if path == "" {
		return errors.New("missing image file")
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	user, err := a.API.UploadAvatar(ctx, path, f)
	if err != nil {
		return err
	}
	out.success("Avatar updated: %s", deref(user.AvatarURL, "-", func(s string) string { return s }))
	return nil
}
