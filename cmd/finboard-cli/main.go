package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"finboard/internal/auth"
	"finboard/internal/cli"
	"finboard/internal/client"
	"finboard/internal/config"
	"finboard/internal/log"
)

const usage = `usage: finboard-cli <command> [flags]

commands:
  summary   show totals, spending by category and budgets
  alerts    show budget alerts
  verify    compare locally derived alerts with the server's
  token     issue a bearer token (needs AUTH_JWT_SECRET)

environment:
  FINBOARD_URL    API base URL (default http://localhost:5000)
  FINBOARD_TOKEN  bearer token
`

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg, log.ComponentClient)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "summary":
		err = runSummary(ctx, args)
	case "alerts":
		err = runAlerts(ctx, args)
	case "verify":
		err = runVerify(ctx, args)
	case "token":
		err = runToken(cfg, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("Command failed", log.FieldError, err)
		os.Exit(1)
	}
}

func newClient(fs *flag.FlagSet, args []string) (*client.Client, error) {
	baseURL := fs.String("url", envOr("FINBOARD_URL", "http://localhost:5000"), "API base URL")
	token := fs.String("token", os.Getenv("FINBOARD_TOKEN"), "bearer token")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return client.New(*baseURL, *token), nil
}

func runSummary(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	fromServer := fs.Bool("server", false, "show the server's summary instead of deriving it locally")
	c, err := newClient(fs, args)
	if err != nil {
		return err
	}

	var dash client.Dashboard
	if *fromServer {
		dash, err = c.ServerSummary(ctx)
	} else {
		dash, err = c.Dashboard(ctx)
	}
	if err != nil {
		return err
	}
	cli.RenderSummary(os.Stdout, dash)
	fmt.Println()
	cli.RenderAlerts(os.Stdout, dash.Alerts, nil)
	return nil
}

func runAlerts(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("alerts", flag.ExitOnError)
	dismiss := fs.String("dismiss", "", "comma-separated alert ids to hide")
	c, err := newClient(fs, args)
	if err != nil {
		return err
	}

	dash, err := c.Dashboard(ctx)
	if err != nil {
		return err
	}
	board := client.NewAlertBoard()
	for _, id := range strings.Split(*dismiss, ",") {
		if id = strings.TrimSpace(id); id != "" {
			board.Dismiss(id)
		}
	}
	cli.RenderAlerts(os.Stdout, dash.Alerts, board)
	return nil
}

func runVerify(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	c, err := newClient(fs, args)
	if err != nil {
		return err
	}

	v, err := c.VerifyAlerts(ctx)
	if err != nil {
		return err
	}
	cli.RenderVerification(os.Stdout, v)
	if !v.Match {
		os.Exit(3)
	}
	return nil
}

func runToken(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	subject := fs.String("subject", "", "user id to embed as the token subject")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subject == "" {
		return fmt.Errorf("-subject is required")
	}
	if cfg.AuthJWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is not set")
	}

	token, err := auth.IssueToken(cfg.AuthJWTSecret, *subject, cfg.AuthJWTAudience, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
