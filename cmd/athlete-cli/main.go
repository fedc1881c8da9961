// Command athlete-cli chats with the workout assistant through a running
// athlete server.
package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/desktopathlete/athlete/internal/client"
	"github.com/desktopathlete/athlete/internal/services/conversation"
	"github.com/desktopathlete/athlete/internal/services/render"
	"github.com/desktopathlete/athlete/pkg/logger"
	"github.com/fatih/color"
	"github.com/jessevdk/go-flags"
)

type Options struct {
	Server          string        `long:"server" env:"ATHLETE_SERVER" description:"athlete server URL"`
	Config          string        `long:"config" description:"profile YAML path (default ~/.config/athlete/cli.yaml)"`
	Message         string        `short:"m" long:"message" description:"send one message and exit"`
	Verbose         bool          `short:"v" long:"verbose" description:"show every conversation state"`
	PollInterval    time.Duration `long:"poll-interval" description:"pause between run polls"`
	MaxPollAttempts int           `long:"max-poll-attempts" description:"polls before giving up on a reply"`
	MaxRunRetries   int           `long:"max-run-retries" description:"failed runs replaced before giving up"`
}

func main() {
	if os.Getenv("LOG_FORMAT") == "" {
		os.Setenv("LOG_FORMAT", "console")
	}
	if os.Getenv("LOG_LEVEL") == "" {
		os.Setenv("LOG_LEVEL", "warn")
	}
	logger.Setup(nil)

	var opts Options
	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			return
		}
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, os.Stdin, os.Stdout); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts Options, in io.Reader, out io.Writer) error {
	path, explicit := opts.Config, opts.Config != ""
	if !explicit {
		path = defaultProfilePath()
	}
	profile, err := loadProfile(path, explicit)
	if err != nil {
		return err
	}

	server, convOpts := merge(opts, profile)
	backend, err := client.New(server)
	if err != nil {
		return err
	}

	s := &session{
		svc:      conversation.NewService(backend, nil, convOpts),
		cache:    conversation.NewMemoryCache(),
		renderer: render.New(),
		out:      out,
		verbose:  opts.Verbose,
	}

	if opts.Message != "" {
		return s.send(ctx, opts.Message)
	}
	return s.repl(ctx, in)
}

// session is one CLI conversation; /new starts another thread
type session struct {
	svc      *conversation.Service
	cache    *conversation.MemoryCache
	renderer *render.Renderer
	out      io.Writer
	verbose  bool
}

func (s *session) repl(ctx context.Context, in io.Reader) error {
	cyan := color.New(color.FgCyan)
	cyan.Fprintln(s.out, "Ask for a workout. /new starts over, /quit exits.")

	scanner := bufio.NewScanner(in)
	for {
		cyan.Fprint(s.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/new":
			if err := s.svc.Reset(ctx, s.cache); err != nil {
				return err
			}
			color.New(color.FgYellow).Fprintln(s.out, "Started a new conversation.")
			continue
		}

		if err := s.send(ctx, line); err != nil {
			var convErr *conversation.Error
			if !errors.As(err, &convErr) || convErr.Kind == conversation.KindCancelled {
				return err
			}
			color.New(color.FgRed).Fprintf(s.out, "%s\n", convErr.Message)
		}
	}
}

func (s *session) send(ctx context.Context, text string) error {
	var observers []conversation.Observer
	if s.verbose {
		faint := color.New(color.Faint)
		observers = append(observers, func(tr conversation.Transition) {
			faint.Fprintf(s.out, "  [%s] attempt=%d retries=%d\n", tr.To, tr.Attempt, tr.RunRetries)
		})
	}

	reply, err := s.svc.Send(ctx, "cli", s.cache, text, observers...)
	if err != nil {
		return err
	}
	s.print(reply)
	return nil
}

func (s *session) print(reply *conversation.Reply) {
	if reply.Latest == nil {
		color.New(color.FgYellow).Fprintln(s.out, "The assistant finished without replying.")
		return
	}

	green := color.New(color.FgGreen)
	green.Fprintf(s.out, "%s\n", strings.TrimSpace(reply.Latest.Content))

	if rec := s.renderer.Recommendation(reply.Latest.Content); rec != nil {
		color.New(color.FgMagenta, color.Bold).Fprintf(s.out, "Watch on %s: %s <%s>\n", rec.Provider, rec.Title, rec.URL)
	}
}
