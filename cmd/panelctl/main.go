// Command panelctl drives the GoPanel backend from a terminal, sharing the
// session store with the desktop client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/NicolasHaas/gopanel/pkg/config"
	"github.com/NicolasHaas/gopanel/pkg/console"
	"github.com/NicolasHaas/gopanel/pkg/logging"
	"github.com/NicolasHaas/gopanel/pkg/model"
	"github.com/NicolasHaas/gopanel/pkg/panel"
	"github.com/NicolasHaas/gopanel/pkg/version"
)

const usage = `usage: panelctl [flags] <command> [command flags]

commands:
  status                      check backend connectivity
  login -token TOKEN          exchange an access token for a session
  logout                      end the stored session
  whoami                      show the stored session if still valid
  create -username NAME [-ram SIZE]
                              create a panel (SIZE: 1000..10000 or 0 for unlimited)
  config init [-force]        write the effective configuration to the config file
  config path                 print the config file location
  version                     print the version
`

var errFailed = errors.New("command failed")

func main() {
	flags := flag.NewFlagSet("panelctl", flag.ExitOnError)
	cfgPath := flags.String("config", config.DefaultPath(), "YAML config file")
	envFile := flags.String("env", "", "Optional .env file with PANEL_* overrides")
	verbose := flags.Bool("v", false, "Show progress messages and debug logs")
	flags.Usage = func() { fmt.Fprint(os.Stderr, usage); flags.PrintDefaults() }
	_ = flags.Parse(os.Args[1:])

	if flags.NArg() == 0 {
		flags.Usage()
		os.Exit(2)
	}
	if flags.Arg(0) == "version" {
		fmt.Println(version.Full())
		return
	}

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	cfg, err := config.Load(*cfgPath, envFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	level := cfg.LogLevel
	var logOut io.Writer = io.Discard
	if *verbose {
		level, logOut = "debug", os.Stderr
	}
	if err := logging.Setup(logging.Options{Level: level, Format: cfg.LogFormat, Output: logOut}); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}

	if flags.Arg(0) == "config" {
		if err := runConfig(*cfgPath, cfg, flags.Args()[1:], os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "panelctl: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// no one is watching a transition in a terminal
	cfg.ViewSwitchDelay, cfg.ExpiryDelay, cfg.ActionsDelay = 0, 0, 0

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, *verbose, os.Stdout, flags.Arg(0), flags.Args()[1:]); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "panelctl: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

// runConfig handles the config subcommands. They never open storage or
// contact the backend.
func runConfig(path string, cfg *config.Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("config: missing subcommand (init, path)")
	}
	switch args[0] {
	case "path":
		_, _ = fmt.Fprintln(out, path)
		return nil

	case "init":
		fs := flag.NewFlagSet("config init", flag.ExitOnError)
		force := fs.Bool("force", false, "Overwrite an existing config file")
		_ = fs.Parse(args[1:])

		if _, err := os.Stat(path); err == nil && !*force {
			return fmt.Errorf("config: %s already exists (use -force to overwrite)", path)
		}
		if err := cfg.Save(path); err != nil {
			return fmt.Errorf("config: save %s: %w", path, err)
		}
		_, _ = fmt.Fprintf(out, "wrote %s\n", path)
		return nil

	default:
		return fmt.Errorf("config: unknown subcommand %q", args[0])
	}
}

func run(ctx context.Context, cfg *config.Config, verbose bool, out io.Writer, cmd string, args []string) error {
	view := console.New(out)
	view.Verbose = verbose

	rt, err := panel.Open(cfg, view, panel.Dependencies{})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			slog.Warn("close client", "err", err)
		}
	}()
	ctrl := rt.Controller

	switch cmd {
	case "status":
		if rt.Poller.Check(ctx) != model.StatusConnected {
			return errFailed
		}
		return nil

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		token := fs.String("token", os.Getenv("PANEL_ACCESS_TOKEN"), "Access token (default $PANEL_ACCESS_TOKEN)")
		_ = fs.Parse(args)
		if err := ctrl.Login(ctx, *token); err != nil {
			return errFailed
		}
		return nil

	case "logout":
		if !rt.Sessions.Load() {
			_, _ = fmt.Fprintln(out, "not logged in")
			return nil
		}
		ctrl.Logout(ctx)
		return nil

	case "whoami":
		if !ctrl.Restore(ctx) {
			_, _ = fmt.Fprintln(out, "not logged in")
			return errFailed
		}
		sess, _ := rt.Sessions.Current()
		_, _ = fmt.Fprintf(out, "%s (since %s, expires %s)\n",
			sess.Username,
			sess.IssuedAt.Format(time.DateTime),
			sess.IssuedAt.Add(cfg.SessionTTL).Format(time.DateTime))
		return nil

	case "create":
		fs := flag.NewFlagSet("create", flag.ExitOnError)
		username := fs.String("username", "", "Panel username (at least 3 characters)")
		ram := fs.String("ram", string(model.DefaultRAM), "RAM allocation in MB, 0 for unlimited")
		_ = fs.Parse(args)

		size, err := model.ParseRAMSize(*ram)
		if err != nil {
			return err
		}
		if err := ctrl.SelectRAM(size); err != nil {
			return err
		}
		// bad input is reported before the session is verified
		if _, err := ctrl.ValidateRequest(*username); err != nil {
			return errFailed
		}
		if !ctrl.Restore(ctx) {
			_, _ = fmt.Fprintln(out, "not logged in")
			return errFailed
		}
		if _, err := ctrl.CreatePanel(ctx, *username); err != nil {
			return errFailed
		}
		return nil

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}
