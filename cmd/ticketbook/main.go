package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/five82/ticketbook/internal/app"
	"github.com/five82/ticketbook/internal/model"
)

const usage = `usage: ticketbook [flags] [command]

commands:
  browse                 open the terminal view (default)
  login <id> [password]  sign in; reads the password from stdin when omitted
  logout                 sign out and drop stored tokens
  whoami                 show the signed-in user
  tickets                list your tickets
  friends                list friends and received requests
  accept <request-id>    accept a friend request
  reject <request-id>    reject a friend request

flags:
`

func main() {
	os.Exit(run())
}

func run() int {
	flags := pflag.NewFlagSet("ticketbook", pflag.ContinueOnError)
	configPath := flags.String("config", "", "override config path (optional)")
	prefsPath := flags.String("prefs", "", "override view preferences path (optional)")
	poll := flags.Duration("poll", 0, "refresh interval (optional, defaults to the cache TTL)")
	logLevel := flags.String("log-level", "", "log level override (debug, info, warn, error)")
	logFile := flags.String("log-file", "", "write logs to this file; browse discards logs otherwise")
	status := flags.String("status", "", "ticket status filter for tickets: PUBLIC or PRIVATE")
	force := flags.Bool("force", false, "bypass the cache")
	showMetrics := flags.Bool("metrics", false, "print client metrics after the command")
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}

	args := flags.Args()
	command := "browse"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		PrefsPath:  *prefsPath,
		PollEvery:  *poll,
		LogLevel:   *logLevel,
	}
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ticketbook: open log file: %v\n", err)
			return 1
		}
		defer f.Close()
		opts.LogOutput = f
	} else if command == "browse" {
		opts.LogOutput = io.Discard
	}

	a, err := app.New(ctx, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ticketbook: %v\n", err)
		return 1
	}
	defer func() { _ = a.Close() }()

	if err := dispatch(ctx, a, command, args, model.TicketStatus(strings.ToUpper(*status)), *force); err != nil {
		fmt.Fprintf(os.Stderr, "ticketbook: %v\n", err)
		return 1
	}
	if *showMetrics {
		if err := a.WriteMetrics(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "ticketbook: %v\n", err)
			return 1
		}
	}
	return 0
}

func dispatch(ctx context.Context, a *app.App, command string, args []string, status model.TicketStatus, force bool) error {
	switch command {
	case "browse":
		return a.Browse(ctx)
	case "login":
		if len(args) == 0 {
			return fmt.Errorf("login needs an id")
		}
		password := ""
		if len(args) > 1 {
			password = args[1]
		} else {
			var err error
			if password, err = readPassword(os.Stdin); err != nil {
				return err
			}
		}
		if err := a.Login(ctx, args[0], password); err != nil {
			return err
		}
		return a.Whoami(os.Stdout)
	case "logout":
		return a.Logout(ctx)
	case "whoami":
		return a.Whoami(os.Stdout)
	case "tickets":
		if status != "" && !status.Valid() {
			return fmt.Errorf("status %q: want PUBLIC or PRIVATE", status)
		}
		return a.ListTickets(ctx, os.Stdout, status, force)
	case "friends":
		return a.ListFriends(ctx, os.Stdout, force)
	case "accept", "reject":
		if len(args) != 1 {
			return fmt.Errorf("%s needs a request id", command)
		}
		return a.Answer(ctx, args[0], command == "accept")
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// readPassword prompts on the terminal with echo disabled. Piped stdin is read
// as one line.
func readPassword(in *os.File) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return readLine(in)
	}
	fmt.Fprint(os.Stderr, "password: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(password), nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
