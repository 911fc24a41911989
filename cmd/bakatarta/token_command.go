package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Clark-Hu/bakatarta/internal/auth"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Issue an admin session token for scripted API calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.serviceConfig()
			if err != nil {
				return err
			}
			sessions, err := auth.NewSessionManager(cfg.SessionSecret, time.Duration(cfg.SessionTTLMins)*time.Minute)
			if err != nil {
				return err
			}
			token, err := sessions.Issue(auth.AdminSubject)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token.Value)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", token.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
}

// newHashPasswordCommand reads a password from stdin and prints the bcrypt
// hash to use as ADMIN_PASSWORD_HASH.
func newHashPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Hash an admin password read from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return errors.New("no password on stdin")
			}
			password := strings.TrimRight(line, "\r\n")
			if password == "" {
				return errors.New("password is empty")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
