package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/MrEthical07/goAuthClient/devserver"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func (a *app) devserverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run a development auth API",
		Long: "Serves the auth endpoints the session store talks to. State lives in " +
			"Redis, or in an in-process miniredis when no address is configured.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
				a.cfg.Listen = listen
			}
			if dev, _ := cmd.Flags().GetBool("enable-dev-login"); dev {
				a.cfg.Devserver.EnableDevLogin = true
			}
			return a.runDevserver(cmd.Context(), cmd)
		},
	}
	cmd.Flags().String("listen", "", "listen address")
	cmd.Flags().Bool("enable-dev-login", false, "serve POST /auth/dev-login")
	cmd.Flags().String("audit-log", "", `append audit events as JSON lines to this file ("-" for stdout); default logs them`)
	return cmd
}

func (a *app) redisClient() (redis.UniversalClient, error) {
	addr := a.cfg.Redis.Addr
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("failed to start miniredis: %w", err)
		}
		a.closers = append(a.closers, mr.Close)
		addr = mr.Addr()
		a.logger.WithField("addr", addr).Warnln("Using in-memory miniredis, state is lost on exit")
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{addr},
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	a.closers = append(a.closers, func() { _ = client.Close() })
	return client, nil
}

func (a *app) auditSink(cmd *cobra.Command) (devserver.AuditSink, error) {
	path, _ := cmd.Flags().GetString("audit-log")
	switch path {
	case "":
		return devserver.NewLogAuditSink(a.logger.WithField("component", "audit")), nil
	case "-":
		return devserver.NewJSONAuditSink(cmd.OutOrStdout()), nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	a.closers = append(a.closers, func() { _ = f.Close() })
	return devserver.NewJSONAuditSink(f), nil
}

func (a *app) runDevserver(ctx context.Context, cmd *cobra.Command) error {
	cfg := a.cfg.Devserver
	if cfg.JWTSecret == "" {
		var b [32]byte
		if _, err := rand.Read(b[:]); err != nil {
			return err
		}
		cfg.JWTSecret = hex.EncodeToString(b[:])
		a.logger.Warnln("No JWT secret configured, tokens will not survive a restart")
	}

	rdb, err := a.redisClient()
	if err != nil {
		return err
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	sink, err := a.auditSink(cmd)
	if err != nil {
		return err
	}
	srv, err := devserver.New(rdb, cfg,
		devserver.WithLogger(a.logger.WithField("component", "devserver")),
		devserver.WithAuditSink(sink),
	)
	if err != nil {
		return err
	}
	defer srv.Close()

	ln, err := net.Listen("tcp", a.cfg.Listen)
	if err != nil {
		return err
	}
	httpSrv := &http.Server{
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Auth API listening on http://%s\n", ln.Addr())

	errc := make(chan error, 1)
	go func() { errc <- httpSrv.Serve(ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}
