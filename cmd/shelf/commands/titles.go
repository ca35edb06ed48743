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
	"github.com/florianilch/shelf/internal/library"
	"github.com/florianilch/shelf/internal/shelfapi"
)

// requireRoute fails unless the guard lets the user open route.
func requireRoute(ctx context.Context, a *app.App, route string) error {
	if d := a.Guard.CheckName(ctx, route); !d.Allowed && d.Redirect == account.RouteLogin {
		return errNotLoggedIn
	}
	return nil
}

func titlesCommand() *cli.Command {
	return &cli.Command{
		Name:  "titles",
		Usage: "browse and manage your library",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list your titles grouped by category",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "category", Usage: "game|movie|series|anime"},
					&cli.StringFlag{Name: "status", Usage: "completed|playing|watching|dropped|planned|on_hold|all", Value: string(library.AllStatuses)},
				},
				Action: withApp(titlesListAction),
			},
			{
				Name:      "search",
				Usage:     "search the catalogue",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Usage: "game|movie|tv|anime"},
				},
				Action: withApp(titlesSearchAction),
			},
			{
				Name:  "add",
				Usage: "add a title to your library",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "external-id", Usage: "catalogue id from search", Required: true},
					&cli.StringFlag{Name: "type", Usage: "game|movie|tv|anime", Required: true},
					&cli.StringFlag{Name: "name", Usage: "title name", Required: true},
					&cli.StringFlag{Name: "status", Usage: "completed|playing|watching|dropped|planned|on_hold", Value: string(shelfapi.StatusPlanned)},
					&cli.FloatFlag{Name: "score", Usage: "score from 1 to 10"},
					&cli.StringFlag{Name: "review", Usage: "review text"},
					&cli.BoolFlag{Name: "spoiler", Usage: "mark the review as a spoiler"},
					&cli.IntFlag{Name: "year", Usage: "release year"},
					&cli.StringFlag{Name: "cover", Usage: "cover image URL"},
					&cli.StringSliceFlag{Name: "genre", Usage: "genre, repeatable"},
				},
				Action: withApp(titlesAddAction),
			},
			{
				Name:  "screenshot",
				Usage: "manage screenshots of a library entry",
				Commands: []*cli.Command{
					{
						Name:      "add",
						Usage:     "upload an image",
						ArgsUsage: "<user-title-id> <file>",
						Action:    withApp(screenshotAddAction),
					},
					{
						Name:      "rm",
						Usage:     "delete a screenshot",
						ArgsUsage: "<screenshot-id>",
						Action:    withApp(screenshotRemoveAction),
					},
				},
			},
		},
	}
}

func titlesListAction(ctx context.Context, cmd *cli.Command, a *app.App, out *printer) error {
	if err := requireRoute(ctx, a, account.RouteMyTitles); err != nil {
		return err
	}

	categories := shelfapi.Categories
	if c := cmd.String("category"); c != "" {
		category, err := shelfapi.ParseCategory(c)
		if err != nil {
			return err
		}
		categories = []shelfapi.TitleCategory{category}
	}

	status := library.AllStatuses
	if s := cmd.String("status"); s != "" && s != string(library.AllStatuses) {
		parsed, err := shelfapi.ParseStatus(s)
		if err != nil {
			return err
		}
		status = parsed
	}

	if err := a.Library.Fetch(ctx); err != nil {
		return errors.New(a.Library.Err())
	}

	for _, category := range categories {
		titles := a.Library.ByStatus(status, category)
		out.heading(fmt.Sprintf("%s (%d)", category, a.Library.CountByStatus(status, category)))
		out.table("  nothing here yet", userTitleHeaders, userTitleRows(titles))
	}
	return nil
}

func titlesSearchAction(ctx context.Context, cmd *cli.Command, a *app.App, out *printer) error {
	query := cmd.Args().First()
	if query == "" {
		return errors.New("missing search query")
	}

	var typ shelfapi.TitleType
	if t := cmd.String("type"); t != "" {
		parsed, err := shelfapi.ParseTitleType(t)
		if err != nil {
			return err
		}
		typ = parsed
	}

	if typ == shelfapi.TypeGame {
		games, err := a.API.SearchGames(ctx, query)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(games))
		for _, g := range games {
			rows = append(rows, []string{strconv.FormatInt(g.ID, 10), g.Name, year(g.ReleaseYear)})
		}
		out.table("No games found.", []string{"ID", "Name", "Year"}, rows)
		return nil
	}

	results, err := a.API.Search(ctx, query, typ)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{r.ExternalID, r.Title, string(r.Type), year(r.ReleaseYear)})
	}
	out.table("No titles found.", []string{"External ID", "Title", "Type", "Year"}, rows)
	return nil
}

func titlesAddAction(ctx context.Context, cmd *cli.Command, a *app.App, out *printer) error {
	if err := requireRoute(ctx, a, account.RouteReview); err != nil {
		return err
	}

	typ, err := shelfapi.ParseTitleType(cmd.String("type"))
	if err != nil {
		return err
	}
	status, err := shelfapi.ParseStatus(cmd.String("status"))
	if err != nil {
		return err
	}

	req := shelfapi.AddUserTitleRequest{
		ExternalID: cmd.String("external-id"),
		Type:       typ,
		Name:       cmd.String("name"),
		Status:     status,
		Genres:     cmd.StringSlice("genre"),
		IsSpoiler:  cmd.Bool("spoiler"),
	}
	if cmd.IsSet("score") {
		v := cmd.Float("score")
		req.Score = &v
	}
	if cmd.IsSet("review") {
		v := cmd.String("review")
		req.ReviewText = &v
	}
	if cmd.IsSet("year") {
		v := int(cmd.Int("year"))
		req.ReleaseYear = &v
	}
	if cmd.IsSet("cover") {
		v := cmd.String("cover")
		req.CoverURL = &v
	}

	created, err := a.API.AddUserTitle(ctx, req)
	if err != nil {
		return err
	}
	out.success("Added %q to your %s list (entry %d).", req.Name, typ.Category(), created.ID)
	return nil
}

func screenshotAddAction(ctx context.Context, cmd *cli.Command, a *app.App, out *printer) error {
	if err := requireRoute(ctx, a, account.RouteReview); err != nil {
		return err
	}
	id, err := strconv.ParseInt(cmd.Args().Get(0), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user title id %q", cmd.Args().Get(0))
	}
	path := cmd.Args().Get(1)
	if path == "" {
		return errors.New("missing image file")
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	shot, err := a.API.UploadScreenshot(ctx, id, path, f)
	if err != nil {
		return err
	}
	out.success("Uploaded screenshot %d: %s", shot.ID, shot.URL)
	return nil
}

func screenshotRemoveAction(ctx context.Context, cmd *cli.Command, a *app.App, out *printer) error {
	if err := requireRoute(ctx, a, account.RouteReview); err != nil {
		return err
	}
	id, err := strconv.ParseInt(cmd.Args().First(), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid screenshot id %q", cmd.Args().First())
	}
	if err := a.API.DeleteScreenshot(ctx, id); err != nil {
		return err
	}
	out.success("Deleted screenshot %d.", id)
	return nil
}
