package views

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/equipment-lending/console/internal/session"
	"github.com/Astemirdum/equipment-lending/pkg/lifecycle"
)

type ShellConfig struct {
	PollInterval time.Duration
	UserCacheTTL time.Duration
}

// Shell is the role-aware navigation loop with an overdue indicator.
type Shell struct {
	api    API
	sess   session.Session
	prompt Prompter
	out    io.Writer
	log    *zap.Logger
	poll   time.Duration

	names    *UserNames
	catalog  *Catalog
	requests *Requests

	overdue atomic.Int64
}

func NewShell(client API, sess session.Session, prompt Prompter, out io.Writer, cfg ShellConfig, log *zap.Logger) *Shell {
	names := NewUserNames(client, sess.Profile, cfg.UserCacheTTL, log)
	return &Shell{
		api:      client,
		sess:     sess,
		prompt:   prompt,
		out:      out,
		log:      log.Named("shell"),
		poll:     cfg.PollInterval,
		names:    names,
		catalog:  NewCatalog(client, sess, prompt, out),
		requests: NewRequests(client, sess, prompt, out, names),
	}
}

type command struct {
	name    string
	args    string
	help    string
	allowed func(lifecycle.Role) bool
	run     func(ctx context.Context, id int64) error
	needsID bool
}

func anyone(lifecycle.Role) bool { return true }

func canDo(action lifecycle.Action) func(lifecycle.Role) bool {
	return func(r lifecycle.Role) bool { return lifecycle.Allowed(r, action) }
}

func (s *Shell) commands() []command {
	return []command{
		{name: "requests", help: "show borrow requests", allowed: anyone, run: s.showRequests},
		{name: "catalog", help: "show equipment", allowed: anyone, run: s.showCatalog},
		{name: "refresh", help: "reload everything", allowed: anyone, run: s.refresh},
		{name: "overdue", help: "list overdue notifications", allowed: anyone, run: s.showOverdue},
		{name: "new", help: "request equipment", allowed: canDo(lifecycle.ActionCreate), run: s.withRender(func(ctx context.Context, _ int64) error { return s.requests.Create(ctx) })},
		{name: "approve", args: "<id>", help: "approve a pending request", allowed: canDo(lifecycle.ActionApprove), needsID: true, run: s.withRender(s.requests.Approve)},
		{name: "reject", args: "<id>", help: "reject a pending request", allowed: canDo(lifecycle.ActionReject), needsID: true, run: s.withRender(s.requests.Reject)},
		{name: "issue", args: "<id>", help: "hand out an approved request", allowed: canDo(lifecycle.ActionIssue), needsID: true, run: s.withRender(s.requests.Issue)},
		{name: "return", args: "<id>", help: "take back an issued request", allowed: canDo(lifecycle.ActionReturn), needsID: true, run: s.withRender(s.requests.Return)},
		{name: "users", help: "list users", allowed: canDo(lifecycle.ActionApprove), run: s.showUsers},
		{name: "add", help: "add equipment", allowed: lifecycle.CanManageCatalog, run: s.withCatalog(func(ctx context.Context, _ int64) error { return s.catalog.Create(ctx) })},
		{name: "edit", args: "<id>", help: "edit equipment", allowed: lifecycle.CanManageCatalog, needsID: true, run: s.withCatalog(s.catalog.Update)},
		{name: "delete", args: "<id>", help: "delete equipment", allowed: lifecycle.CanManageCatalog, needsID: true, run: s.withCatalog(s.catalog.Delete)},
		{name: "check-overdue", help: "run the overdue scan now", allowed: lifecycle.CanManageCatalog, run: s.checkOverdue},
	}
}

// Run loops until the user quits or input ends.
func (s *Shell) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.pollOverdue(ctx)

	p := s.sess.Profile
	fmt.Fprintf(s.out, "Signed in as %s <%s> (%s). Type help for commands.\n", p.Name, p.Email, p.Role)
	if err := s.showRequests(ctx, 0); err != nil {
		s.report(err)
	}
	for {
		line, ok := s.prompt.Prompt(s.label(), "")
		if !ok {
			return nil
		}
		if quit := s.Dispatch(ctx, line); quit {
			return nil
		}
	}
}

func (s *Shell) label() string {
	if n := s.overdue.Load(); n > 0 {
		return fmt.Sprintf("lending (%d overdue)", n)
	}
	return "lending"
}

// Dispatch runs one command line and reports whether the shell should exit.
func (s *Shell) Dispatch(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	name := strings.ToLower(fields[0])
	switch name {
	case "quit", "exit":
		return true
	case "help":
		s.help()
		return false
	}
	for _, c := range s.commands() {
		if c.name != name {
			continue
		}
		if !c.allowed(s.sess.Role()) {
			s.report(accessDenied())
			return false
		}
		var id int64
		if c.needsID {
			if len(fields) < 2 {
				fmt.Fprintf(s.out, "usage: %s %s\n", c.name, c.args)
				return false
			}
			n, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				fmt.Fprintf(s.out, "usage: %s %s\n", c.name, c.args)
				return false
			}
			id = n
		}
		if err := c.run(ctx, id); err != nil {
			s.report(err)
		}
		return false
	}
	fmt.Fprintf(s.out, "unknown command %q, type help\n", name)
	return false
}

func (s *Shell) help() {
	for _, c := range s.commands() {
		if !c.allowed(s.sess.Role()) {
			continue
		}
		fmt.Fprintf(s.out, "  %-22s %s\n", strings.TrimSpace(c.name+" "+c.args), c.help)
	}
	fmt.Fprintf(s.out, "  %-22s %s\n", "quit", "leave")
}

func (s *Shell) report(err error) {
	if errors.Is(err, ErrCancelled) {
		fmt.Fprintln(s.out, "Cancelled.")
		return
	}
	fmt.Fprintf(s.out, "Error: %s\n", err)
}

func (s *Shell) withRender(action func(ctx context.Context, id int64) error) func(context.Context, int64) error {
	return func(ctx context.Context, id int64) error {
		if err := action(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Done.")
		s.requests.Render(ctx)
		return nil
	}
}

func (s *Shell) withCatalog(action func(ctx context.Context, id int64) error) func(context.Context, int64) error {
	return func(ctx context.Context, id int64) error {
		if len(s.catalog.Equipment()) == 0 {
			if err := s.catalog.Load(ctx); err != nil {
				return err
			}
		}
		if err := action(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Done.")
		s.catalog.Render()
		return nil
	}
}

func (s *Shell) showRequests(ctx context.Context, _ int64) error {
	if err := s.requests.Load(ctx); err != nil {
		return err
	}
	s.requests.Render(ctx)
	return nil
}

func (s *Shell) showCatalog(ctx context.Context, _ int64) error {
	if err := s.catalog.Load(ctx); err != nil {
		return err
	}
	s.catalog.Render()
	return nil
}

func (s *Shell) refresh(ctx context.Context, _ int64) error {
	if err := s.catalog.Load(ctx); err != nil {
		return err
	}
	s.refreshOverdue(ctx)
	return s.showRequests(ctx, 0)
}

func (s *Shell) showUsers(ctx context.Context, _ int64) error {
	users, err := s.api.ListUsers(ctx)
	if err != nil {
		return err
	}
	s.names.Prime(users)
	renderUsers(s.out, users)
	return nil
}

func (s *Shell) showOverdue(ctx context.Context, _ int64) error {
	items, err := s.api.ListOverdue(ctx)
	if err != nil {
		return err
	}
	s.overdue.Store(int64(len(items)))
	if len(items) == 0 {
		fmt.Fprintln(s.out, "Nothing overdue.")
		return nil
	}
	for _, n := range items {
		fmt.Fprintf(s.out, "  #%d %s\n", n.LoanID, n.Message)
	}
	return nil
}

func (s *Shell) checkOverdue(ctx context.Context, _ int64) error {
	res, err := s.api.CheckOverdue(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%d request(s) newly flagged overdue.\n", res.Flagged)
	s.refreshOverdue(ctx)
	return nil
}

// pollOverdue is lossy: a failed poll keeps the last known count.
func (s *Shell) pollOverdue(ctx context.Context) {
	if s.poll <= 0 {
		return
	}
	s.refreshOverdue(ctx)
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshOverdue(ctx)
		}
	}
}

func (s *Shell) refreshOverdue(ctx context.Context) {
	items, err := s.api.ListOverdue(ctx)
	if err != nil {
		s.log.Warn("overdue poll", zap.Error(err))
		return
	}
	s.overdue.Store(int64(len(items)))
}

func (s *Shell) OverdueCount() int64 {
	return s.overdue.Load()
}
