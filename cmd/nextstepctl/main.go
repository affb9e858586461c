// Command nextstepctl signs in to the NeXTStep API from a terminal and keeps
// the session in a local file, the same way the gateway keeps it in Redis.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/nextstep/nextstep-bff/internal/auth"
	"github.com/nextstep/nextstep-bff/internal/domain"
	"github.com/nextstep/nextstep-bff/internal/downstream"
	"github.com/nextstep/nextstep-bff/internal/infrastructure/file"
	"github.com/nextstep/nextstep-bff/internal/logger"
	"github.com/nextstep/nextstep-bff/internal/session"
)

const usage = `usage: nextstepctl [-session FILE] [-api URL] <command> [flags]

commands:
  login     -email E [-password P]      sign in (password read from stdin if omitted)
  register  -name N -email E -role R [-password P]
  logout                                end the session
  whoami                                print the signed-in user
  courses   [-search Q]                 list courses
  careers   [-search Q]                 list career paths
  jobs      [-search Q]                 list job listings
  resources [-search Q]                 list learning resources
`

func main() {
	logger.InitWithWriter(os.Stderr)
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type cli struct {
	store   *session.Store
	svc     *auth.Service
	catalog *downstream.CatalogClient
	stdin   *bufio.Reader
	stdout  io.Writer
	stderr  io.Writer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("nextstepctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	sessionPath := fs.String("session", "", "session file (default: user config dir)")
	apiURL := fs.String("api", envOr("UPSTREAM_API_URL", "http://localhost:8000/api"), "API base URL")
	timeout := fs.Duration("timeout", 15*time.Second, "overall command timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	path := *sessionPath
	if path == "" {
		p, err := file.DefaultPath(session.EntryName)
		if err != nil {
			fmt.Fprintf(stderr, "nextstepctl: %v\n", err)
			return 1
		}
		path = p
	}

	c := newCLI(*apiURL, file.NewPersister(path), stdin, stdout, stderr)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = session.WithStore(ctx, "", c.store)

	if err := c.exec(ctx, fs.Arg(0), fs.Args()[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		fmt.Fprintf(stderr, "nextstepctl: %s\n", describe(err))
		return 1
	}
	return 0
}

func newCLI(apiURL string, p session.Persister, stdin io.Reader, stdout, stderr io.Writer) *cli {
	store := session.NewStore(p)
	client := downstream.NewClient(downstream.ClientConfig{
		BaseURL:      apiURL,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}, nil)
	refresher := downstream.NewTokenRefresher(client)
	notify := downstream.NotifierFunc(func(_ context.Context, n downstream.Notice) {
		fmt.Fprintf(stderr, "%s: %s\n", n.Kind, n.Message)
	})
	authn := downstream.NewAuthenticator(http.DefaultTransport, refresher, notify, 0)
	authed := client.WithTransport(authn.Transport(store))

	return &cli{
		store:   store,
		svc:     auth.NewService(downstream.NewAuthClient(authed), refresher),
		catalog: downstream.NewCatalogClient(authed),
		stdin:   bufio.NewReader(stdin),
		stdout:  stdout,
		stderr:  stderr,
	}
}

func (c *cli) exec(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return c.login(ctx, args)
	case "register":
		return c.register(ctx, args)
	}

	c.svc.Bootstrap(ctx, c.store)

	switch cmd {
	case "logout":
		return c.svc.Logout(ctx, c.store)
	case "whoami":
		u, ok := c.store.User()
		if !ok || !c.store.IsAuthenticated() {
			return domain.ErrNotAuthenticated()
		}
		return c.print(u)
	case "courses":
		return listCmd(ctx, c, args, c.catalog.Courses)
	case "careers":
		return listCmd(ctx, c, args, c.catalog.CareerPaths)
	case "jobs":
		return listCmd(ctx, c, args, c.catalog.Jobs)
	case "resources":
		return listCmd(ctx, c, args, c.catalog.LearningResources)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password (read from stdin if empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return domain.ErrMissingField("email")
	}
	pw, err := c.secret(*password)
	if err != nil {
		return err
	}

	u, err := c.svc.Login(ctx, c.store, domain.LoginCredentials{Email: *email, Password: pw})
	if err != nil {
		return err
	}
	return c.print(u)
}

func (c *cli) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "account email")
	role := fs.String("role", "", "one of O_LEVEL, A_LEVEL, TERTIARY, LECTURER, MENTOR, EMPLOYER, GENERAL, ...")
	password := fs.String("password", "", "password (read from stdin if empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	r, err := domain.ParseRole(strings.ToUpper(*role))
	if err != nil {
		return err
	}
	pw, err := c.secret(*password)
	if err != nil {
		return err
	}

	u, err := c.svc.Register(ctx, c.store, domain.Registration{
		FullName:        *name,
		Email:           *email,
		Password:        pw,
		ConfirmPassword: pw,
		Role:            r,
	})
	if err != nil {
		return err
	}
	return c.print(u)
}

func listCmd[T any](ctx context.Context, c *cli, args []string, list func(context.Context, url.Values) (domain.Page[T], error)) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	search := fs.String("search", "", "search query")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var q url.Values
	if *search != "" {
		q = url.Values{"search": {*search}}
	}
	page, err := list(ctx, q)
	if err != nil {
		return err
	}
	return c.print(page)
}

// secret returns flagValue, or the first line of stdin when it is empty.
func (c *cli) secret(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	line, err := c.stdin.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", domain.ErrMissingField("password")
	}
	return line, nil
}

func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// describe renders err as a one-line message.
func describe(err error) string {
	var se *downstream.StatusError
	if errors.As(err, &se) {
		return fmt.Sprintf("%s (%d)", se.Message, se.StatusCode)
	}
	var de *domain.Error
	if errors.As(err, &de) {
		if f := de.Meta["field"]; f != "" {
			return de.Message + ": " + f
		}
		return de.Message
	}
	return err.Error()
}

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}
