// Command fakeplatform serves an in-memory registration platform for local
// generator runs.
//
// Usage:
//
//	fakeplatform [flags]
//
// Flags:
//
//	-port        Port to listen on (default: 8080)
//	-host        Host to bind to (default: localhost)
//	-token-ttl   Lifetime of issued tokens (default: 10m)
//	-verify      Require the verification code step at sign-in
//	-statistics  JSON file served at /statistics instead of the built-in table
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vitalgen/testserver"
)

func main() {
	port := flag.Int("port", 8080, "port to listen on")
	host := flag.String("host", "localhost", "host to bind to")
	ttl := flag.Duration("token-ttl", 10*time.Minute, "lifetime of issued tokens")
	verify := flag.Bool("verify", false, "require the verification code step at sign-in")
	cdr := flag.Float64("crude-death-rate", 7, "crude death rate served at /crude-death-rate")
	statistics := flag.String("statistics", "", "JSON file served at /statistics")
	flag.Parse()

	cfg := testserver.DefaultConfig()
	cfg.TokenTTL = *ttl
	cfg.RequireVerification = *verify
	cfg.CrudeDeathRate = *cdr
	if *statistics != "" {
		body, err := os.ReadFile(*statistics)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(2)
		}
		cfg.Statistics = body
	}

	server := testserver.NewServer(cfg)
	addr := fmt.Sprintf("%s:%d", *host, *port)
	base := "http://" + addr

	fmt.Println("vitalgen fake platform")
	fmt.Println("======================")
	fmt.Printf("Listening on %s\n\n", base)
	fmt.Println("Point a config at it with:")
	fmt.Printf("  platform:\n    gatewayURL: %s/graphql\n    authURL: %s\n    userMgntURL: %s\n    countryConfigURL: %s\n\n", base, base, base, base)
	fmt.Printf("Administrator: %s / %s\n\n", cfg.AdminUsername, cfg.AdminPassword)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{Addr: addr, Handler: server.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		_ = srv.Close()
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("fake platform stopped", "error", err)
		os.Exit(1)
	}
}
