// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newHealthcheckCmd(opts *rootOptions) *cobra.Command {
	var (
		mode    string
		baseURL string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe a running gateway (for container health checks)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := "/healthz"
			switch mode {
			case "ready":
				path = "/readyz"
			case "live":
			default:
				return fmt.Errorf("unknown healthcheck mode %q (ready|live)", mode)
			}

			if baseURL == "" {
				_, cfg, err := loadConfig(opts)
				if err != nil {
					return err
				}
				baseURL = localURL(cfg.API.ListenAddr)
			}

			client := http.Client{Timeout: timeout}
			resp, err := client.Get(strings.TrimRight(baseURL, "/") + path)
			if err != nil {
				return fmt.Errorf("healthcheck failed (network): %w", err)
			}
			defer func() { _ = resp.Body.Close() }()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("healthcheck failed (status): %s", resp.Status)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Healthcheck successful (%s)\n", mode)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&mode, "mode", "ready", "healthcheck mode: ready or live")
	f.StringVar(&baseURL, "url", "", "gateway base URL (default: derived from the listen address)")
	f.DurationVar(&timeout, "timeout", 5*time.Second, "check timeout")
	return cmd
}

// localURL turns a listen address such as ":8000" into a loopback URL.
func localURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}
