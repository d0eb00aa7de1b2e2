package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/equipment-lending/console/config"
	"github.com/Astemirdum/equipment-lending/console/internal/api"
	"github.com/Astemirdum/equipment-lending/console/internal/model"
	"github.com/Astemirdum/equipment-lending/console/internal/session"
	"github.com/Astemirdum/equipment-lending/console/internal/views"
	"github.com/Astemirdum/equipment-lending/pkg/lifecycle"
	"github.com/Astemirdum/equipment-lending/pkg/logger"
)

var ErrNoSession = errors.New("not logged in, run: console login")

const usage = `usage: console [command]

commands:
  (none)   open the interactive shell
  login    sign in and store the token
  signup   create an account
  logout   forget the stored token
  whoami   show the stored session
`

// Run dispatches one console command. in/out are the terminal.
func Run(cfg *config.Config, args []string, in io.Reader, out io.Writer) error {
	log := logger.NewLogger(cfg.Log, "console")
	defer log.Sync() //nolint:errcheck

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store := session.NewStore(cfg.TokenFile)
	client := api.NewClient(cfg.API, log)
	prompt := views.NewTerminal(in, out)

	cmd := ""
	if len(args) > 0 {
		cmd = args[0]
	}
	switch cmd {
	case "", "shell":
		sess, ok := store.Load()
		if !ok {
			return ErrNoSession
		}
		client.SetToken(sess.Token)
		shell := views.NewShell(client, sess, prompt, out, views.ShellConfig{
			PollInterval: cfg.PollInterval,
			UserCacheTTL: cfg.UserCacheTTL,
		}, log)
		return shell.Run(ctx)
	case "login":
		return login(ctx, client, store, prompt, out)
	case "signup":
		sess, ok := store.Load()
		if ok {
			client.SetToken(sess.Token)
		}
		return signup(ctx, client, store, !ok, prompt, out)
	case "logout":
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(out, "Logged out.")
		return nil
	case "whoami":
		sess, ok := store.Load()
		if !ok {
			return ErrNoSession
		}
		p := sess.Profile
		fmt.Fprintf(out, "%s <%s> %s (id %d)\n", p.Name, p.Email, p.Role, p.UserID)
		return nil
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	}
	log.Debug("unknown command", zap.String("cmd", cmd))
	fmt.Fprint(out, usage)
	return fmt.Errorf("unknown command %q", cmd)
}

func login(ctx context.Context, client *api.Client, store *session.Store, prompt views.Prompter, out io.Writer) error {
	email, ok := prompt.Prompt("Email", "")
	if !ok {
		return views.ErrCancelled
	}
	password, ok := prompt.Prompt("Password", "")
	if !ok {
		return views.ErrCancelled
	}
	tok, err := client.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return err
	}
	if err := store.Save(tok.Token); err != nil {
		return err
	}
	fmt.Fprintf(out, "Welcome, %s (%s).\n", tok.User.Name, tok.User.Role)
	return nil
}

// signup keeps an existing session; without one the new account is signed in.
func signup(ctx context.Context, client *api.Client, store *session.Store, signIn bool, prompt views.Prompter, out io.Writer) error {
	answers := make([]string, 0, 4)
	for _, q := range [][2]string{
		{"Name", ""},
		{"Email", ""},
		{"Password", ""},
		{"Role (STUDENT/STAFF/ADMIN)", string(lifecycle.RoleStudent)},
	} {
		a, ok := prompt.Prompt(q[0], q[1])
		if !ok {
			return views.ErrCancelled
		}
		answers = append(answers, strings.TrimSpace(a))
	}
	role := lifecycle.Role(strings.ToUpper(answers[3]))
	if !role.Valid() {
		return api.Validation("Role must be STUDENT, STAFF or ADMIN.")
	}
	tok, err := client.SignUp(ctx, model.SignUpRequest{
		Name:     answers[0],
		Email:    answers[1],
		Password: answers[2],
		Role:     role,
	})
	if err != nil {
		return err
	}
	u := tok.User
	fmt.Fprintf(out, "Account %d created for %s (%s).\n", u.ID, u.Email, u.Role)
	if !signIn {
		return nil
	}
	if err := store.Save(tok.Token); err != nil {
		return err
	}
	fmt.Fprintf(out, "Welcome, %s (%s).\n", u.Name, u.Role)
	return nil
}
