package commands

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/shelf/internal/account"
	"github.com/florianilch/shelf/internal/app"
	"github.com/florianilch/shelf/internal/notifications"
	"github.com/florianilch/shelf/internal/shelfapi"
)

func notificationsCommand() *cli.Command {
	return &cli.Command{
		Name:    "notifications",
		Aliases: []string{"n"},
		Usage:   "see what the people you follow are adding",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "show recent notifications",
				Action: withApp(notificationsListAction),
			},
			{
				Name:      "read",
				Usage:     "mark one notification as read",
				ArgsUsage: "<notification-id>",
				Action:    withApp(notificationsReadAction),
			},
			{
				Name:  "read-all",
				Usage: "mark every notification as read",
				Action: withApp(func(ctx context.Context, _ *cli.Command, a *app.App, out *printer) error {
					if err := requireRoute(ctx, a, account.RouteCommunity); err != nil {
						return err
					}
					if err := a.Notifications.MarkAllRead(ctx); err != nil {
						return err
					}
					out.success("All notifications marked as read.")
					return nil
				}),
			},
			{
				Name:  "clear",
				Usage: "delete read notifications",
				Action: withApp(func(ctx context.Context, _ *cli.Command, a *app.App, out *printer) error {
					if err := requireRoute(ctx, a, account.RouteCommunity); err != nil {
						return err
					}
					if err := a.Notifications.ClearRead(ctx); err != nil {
						return err
					}
					out.success("Read notifications cleared.")
					return nil
				}),
			},
			{
				Name:   "watch",
				Usage:  "poll the unread count until interrupted",
				Flags:  []cli.Flag{&cli.DurationFlag{Name: "notifications--poll-interval", Usage: "poll interval"}},
				Action: withApp(notificationsWatchAction),
			},
		},
	}
}

func notificationsListAction(ctx context.Context, _ *cli.Command, a *app.App, out *printer) error {
	if err := requireRoute(ctx, a, account.RouteCommunity); err != nil {
		return err
	}
	if err := a.Notifications.Fetch(ctx); err != nil {
		return err
	}
	if err := a.Notifications.FetchUnreadCount(ctx); err != nil {
		return err
	}

	out.heading(fmt.Sprintf("Notifications (%d unread)", a.Notifications.UnreadCount()))
	items := a.Notifications.Items()
	rows := make([][]string, 0, len(items))
	for _, n := range items {
		rows = append(rows, []string{
			strconv.FormatInt(n.ID, 10),
			readMark(n.IsRead),
			describeNotification(n),
			n.CreatedAt,
		})
	}
	out.table("Nothing new.", []string{"ID", "", "What", "When"}, rows)
	return nil
}

func readMark(read bool) string {
	if read {
		return " "
	}
	return "•"
}

func describeNotification(n shelfapi.Notification) string {
	actor := n.Actor.Login
	if n.Actor.Name != nil && *n.Actor.Name != "" {
		actor = *n.Actor.Name
	}
	if n.Title == nil {
		return actor + " " + n.Type
	}
	return fmt.Sprintf("%s added %s (%s)", actor, n.Title.Name, n.Title.Category)
}

func notificationsReadAction(ctx context.Context, cmd *cli.Command, a *app.App, out *printer) error {
	if err := requireRoute(ctx, a, account.RouteCommunity); err != nil {
		return err
	}
	id, err := strconv.ParseInt(cmd.Args().First(), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid notification id %q", cmd.Args().First())
	}
	if err := a.Notifications.MarkRead(ctx, id); err != nil {
		return err
	}
	out.success("Notification %d marked as read.", id)
	return nil
}

func notificationsWatchAction(ctx context.Context, _ *cli.Command, a *app.App, out *printer) error {
	if err := requireRoute(ctx, a, account.RouteCommunity); err != nil {
		return err
	}

	var (
		mu   sync.Mutex
		last = -1
	)
	feed := notifications.New(a.API, notifications.WithUnreadHook(func(count int) {
		mu.Lock()
		defer mu.Unlock()
		if count == last {
			return
		}
		last = count
		if count == 0 {
			out.muted("No unread notifications.")
			return
		}
		out.warn("%d unread notifications", count)
	}))

	feed.StartPolling(ctx, a.Config().Notifications.PollInterval)
	defer feed.StopPolling()

	out.muted("Watching notifications, press Ctrl+C to stop.")
	<-ctx.Done()
	return nil
}
