package commands

import (
	"context"
	"errors"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/shelf/internal/account"
	"github.com/florianilch/shelf/internal/apiclient"
	"github.com/florianilch/shelf/internal/app"
	"github.com/florianilch/shelf/internal/form"
	"github.com/florianilch/shelf/internal/shelfapi"
)

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "log in with your login or email",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "login or email"},
		},
		Action: withApp(loginAction),
	}
}

func loginAction(ctx context.Context, cmd *cli.Command, a *app.App, out *printer) error {
	if d := a.Guard.CheckName(ctx, account.RouteLogin); !d.Allowed {
		out.line("Already logged in as %s.", a.Account.User().DisplayName())
		return nil
	}

	p := newPrompter()
	username, err := p.valueOr(cmd.String("username"), "Login")
	if err != nil {
		return err
	}
	password, err := p.secret("Password")
	if err != nil {
		return err
	}

	f := form.New(map[string]string{"username": username, "password": password}, form.Fields{
		"username": {form.Required()},
		"password": {form.Required()},
	})
	if !f.Validate() {
		return errors.New(f.FirstError())
	}

	user, err := a.Account.Login(ctx, f.Values["username"], f.Values["password"])
	if err != nil {
		return formError(f, err)
	}
	out.success("Logged in as %s.", user.DisplayName())
	return nil
}

func registerCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "create an account and log in",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Usage: "email address"},
			&cli.StringFlag{Name: "login", Usage: "login (letters, digits, underscore)"},
			&cli.StringFlag{Name: "name", Usage: "display name"},
		},
		Action: withApp(registerAction),
	}
}

func registerAction(ctx context.Context, cmd *cli.Command, a *app.App, out *printer) error {
	if d := a.Guard.CheckName(ctx, account.RouteRegister); !d.Allowed {
		out.line("Already logged in as %s.", a.Account.User().DisplayName())
		return nil
	}

	p := newPrompter()
	email, err := p.valueOr(cmd.String("email"), "Email")
	if err != nil {
		return err
	}
	login, err := p.valueOr(cmd.String("login"), "Login")
	if err != nil {
		return err
	}
	password, err := p.secret("Password")
	if err != nil {
		return err
	}

	f := form.New(map[string]string{"email": email, "login": login, "password": password}, form.Fields{
		"email":    {form.Required(), form.Email()},
		"login":    {form.Required(), form.MinLength(3), form.MaxLength(32), form.Alphanumeric()},
		"password": {form.Required(), form.Password()},
	})
	if !f.Validate() {
		return errors.New(f.FirstError())
	}

	user, err := a.Account.Register(ctx, shelfapi.RegisterRequest{
		Email:    f.Values["email"],
		Login:    f.Values["login"],
		Password: f.Values["password"],
		Name:     cmd.String("name"),
	})
	if err != nil {
		return formError(f, err)
	}
	if _, err := a.Account.Login(ctx, f.Values["login"], f.Values["password"]); err != nil {
		return err
	}
	out.success("Welcome, %s.", user.DisplayName())
	return nil
}

// formError records a server failure on f and returns its message.
func formError(f *form.Form, err error) error {
	apiErr, ok := apiclient.AsError(err)
	if !ok || apiErr.Kind != apiclient.KindHTTP {
		return err
	}
	f.SetGeneralError(apiErr.Message)
	return errors.New(f.FirstError())
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "end the session and forget stored credentials",
		Action: withApp(func(ctx context.Context, _ *cli.Command, a *app.App, out *printer) error {
			if !a.Account.HasToken(ctx) {
				out.muted("Not logged in.")
				return nil
			}
			if err := a.Account.Logout(ctx); err != nil {
				return err
			}
			out.success("Logged out.")
			return nil
		}),
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "show the logged in user",
		Action: withApp(func(ctx context.Context, _ *cli.Command, a *app.App, out *printer) error {
			if err := a.RestoreSession(ctx); err != nil {
				return err
			}
			user := a.Account.User()
			if user == nil {
				out.muted("Not logged in.")
				return nil
			}
			out.box(out.st.Title.Render(user.DisplayName()) + "\n" +
				out.st.Muted.Render("@"+user.Login+"  "+user.Email))
			return nil
		}),
	}
}
