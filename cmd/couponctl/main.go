package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coupon-desk/internal/config"
	"coupon-desk/internal/fakeserver"
	"coupon-desk/internal/model"
	"coupon-desk/internal/transport"
	"coupon-desk/internal/workflow"

	"github.com/rs/zerolog"
)

const usage = `Usage: couponctl <command> [flags]

Commands:
  claim                claim a coupon as an anonymous visitor
  login                verify admin credentials
  list                 list all coupons (admin)
  add <code>           create a coupon (admin)
  toggle <id>          flip a coupon's active status (admin)
  serve                run the bundled in-memory coupon server

Admin commands accept -username and -password flags.`

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		return fmt.Errorf("a command is required")
	}

	cmd, args := os.Args[1], os.Args[2:]

	switch cmd {
	case "serve":
		return serve(cfg, logger)
	case "claim":
		return claim(cfg, logger)
	case "login", "list", "add", "toggle":
		return adminCommand(cmd, args, cfg, logger)
	default:
		fmt.Fprintln(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func claim(cfg *config.Config, logger zerolog.Logger) error {
	client, err := transport.NewClient(cfg.Client.BaseURL, cfg.Client.Timeout, logger)
	if err != nil {
		return err
	}

	wf := workflow.NewClaim(client, workflow.ClaimConfig{
		SuccessWindow: cfg.Notices.ClaimSuccess,
		FailureWindow: cfg.Notices.ClaimFailure,
	}, logger)
	defer wf.Close()

	wf.Start(context.Background())
	await(func() bool {
		p := wf.Snapshot().Phase
		return p == workflow.PhaseSucceeded || p == workflow.PhaseFailed
	})

	snap := wf.Snapshot()
	printNotice(snap.Notice)
	if snap.Phase == workflow.PhaseFailed {
		return fmt.Errorf("claim failed: %s", snap.Err.Message)
	}
	return nil
}

func adminCommand(cmd string, args []string, cfg *config.Config, logger zerolog.Logger) error {
	flags := flag.NewFlagSet(cmd, flag.ExitOnError)
	username := flags.String("username", "admin", "admin username")
	password := flags.String("password", "", "admin password")
	if err := flags.Parse(args); err != nil {
		return err
	}

	client, err := transport.NewClient(cfg.Client.BaseURL, cfg.Client.Timeout, logger)
	if err != nil {
		return err
	}

	ctx := context.Background()

	session := workflow.NewSession(client, logger)
	session.Login(ctx, *username, *password)
	await(func() bool { return !session.IsPending() })

	if snap := session.Snapshot(); !snap.Authenticated {
		return fmt.Errorf("login failed: %s", snap.Err.Message)
	}

	if cmd == "login" {
		fmt.Println("Login succeeded.")
		return nil
	}

	roster := workflow.NewRoster(client, workflow.RosterConfig{NoticeWindow: cfg.Notices.Roster}, logger)
	defer roster.Close()

	switch cmd {
	case "list":
		return listCoupons(ctx, roster)

	case "add":
		if len(flags.Args()) < 1 {
			return fmt.Errorf("a coupon code is required")
		}
		return addCoupon(ctx, roster, flags.Args()[0])

	case "toggle":
		if len(flags.Args()) < 1 {
			return fmt.Errorf("a coupon id is required")
		}
		return toggleCoupon(ctx, roster, flags.Args()[0])
	}

	return nil
}

func listCoupons(ctx context.Context, roster *workflow.Roster) error {
	if err := refresh(ctx, roster); err != nil {
		return err
	}

	snap := roster.Snapshot()
	if len(snap.Coupons) == 0 {
		fmt.Println("No coupons available")
		return nil
	}

	fmt.Printf("%-38s %-16s %-10s %s\n", "ID", "CODE", "STATUS", "CLAIMS")
	for _, c := range snap.Coupons {
		status := "Inactive"
		if c.IsActive {
			status = "Active"
		}
		fmt.Printf("%-38s %-16s %-10s %d\n", c.ID, c.Code, status, len(c.ClaimedBy))
	}
	return nil
}

func addCoupon(ctx context.Context, roster *workflow.Roster, code string) error {
	if !roster.Add(ctx, code) {
		return fmt.Errorf("coupon code must not be empty")
	}
	await(func() bool {
		snap := roster.Snapshot()
		return !snap.Adding && !snap.Refreshing
	})

	snap := roster.Snapshot()
	if snap.Error != nil {
		printNotice(snap.Error)
		return fmt.Errorf("add failed: %s", snap.Error.Message)
	}
	printNotice(snap.Success)
	return nil
}

func toggleCoupon(ctx context.Context, roster *workflow.Roster, id string) error {
	if err := refresh(ctx, roster); err != nil {
		return err
	}

	var target *model.Coupon
	snap := roster.Snapshot()
	for i := range snap.Coupons {
		if snap.Coupons[i].ID == id {
			target = &snap.Coupons[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("no coupon with id %q", id)
	}

	roster.Toggle(ctx, target.ID, target.Code, target.IsActive)
	await(func() bool {
		s := roster.Snapshot()
		return !s.Toggling && !s.Refreshing
	})

	snap = roster.Snapshot()
	if snap.Error != nil {
		printNotice(snap.Error)
		return fmt.Errorf("toggle failed: %s", snap.Error.Message)
	}
	printNotice(snap.Success)
	return nil
}

func refresh(ctx context.Context, roster *workflow.Roster) error {
	roster.Refresh(ctx)
	await(func() bool {
		snap := roster.Snapshot()
		return !snap.Refreshing && (snap.Loaded || snap.LoadErr != nil)
	})

	if snap := roster.Snapshot(); snap.LoadErr != nil {
		return fmt.Errorf("%s", snap.LoadErr.Message)
	}
	return nil
}

func serve(cfg *config.Config, logger zerolog.Logger) error {
	srv := fakeserver.New(fakeserver.Config{
		AdminUsername: cfg.Server.AdminUsername,
		AdminPassword: cfg.Server.AdminPassword,
	}, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("address", cfg.Server.Address()).Msg("coupon server started")
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}
	}

	return nil
}

// await polls until the workflow settles. Operations have no client-side
// timeout, so neither does the wait.
func await(settled func() bool) {
	for !settled() {
		time.Sleep(25 * time.Millisecond)
	}
}

func printNotice(n *model.Notice) {
	if n == nil {
		return
	}
	fmt.Printf("%s: %s\n", n.Title, n.Message)
	if n.Detail != "" {
		fmt.Println(n.Detail)
	}
	if n.Hint != "" {
		fmt.Println(n.Hint)
	}
}
