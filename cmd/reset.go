package cmd

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/estagio-app/ms-go-auth/app/mailer"
	"github.com/estagio-app/ms-go-auth/app/service"
	"github.com/estagio-app/ms-go-auth/app/types"
	"github.com/estagio-app/ms-go-auth/config"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Operate password resets from the command line",
}

var resetRequestCmd = &cobra.Command{
	Use:   "request <email>",
	Short: "Issue a password reset token and print the reset link",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		authService, db, err := newAuthServiceForResetCommands()
		if err != nil {
			return err
		}
		defer db.Close()

		req := &types.RequestPasswordResetRequest{Email: args[0]}
		if err = req.Validate(); err != nil {
			return err
		}

		if err = authService.RequestPasswordReset(context.Background(), req); err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return fmt.Errorf("no student or company registered with email %q", args[0])
			}
			return err
		}

		fmt.Printf("reset token issued for %s (see log output for the link)\n", req.Email)
		return nil
	},
}

var resetConfirmCmd = &cobra.Command{
	Use:   "confirm <email> <token>",
	Short: "Set a new password using a reset token",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		authService, db, err := newAuthServiceForResetCommands()
		if err != nil {
			return err
		}
		defer db.Close()

		newPassword, err := promptNewPassword(os.Stdin)
		if err != nil {
			return err
		}

		req := &types.ConfirmPasswordResetRequest{
			Email:       args[0],
			Token:       args[1],
			NewPassword: newPassword,
		}
		if err = req.Validate(); err != nil {
			return err
		}

		if err = authService.ConfirmPasswordReset(context.Background(), req); err != nil {
			if service.IsTokenError(err) {
				return errors.New("reset token is invalid, expired or already used")
			}
			return err
		}

		fmt.Printf("password updated for %s\n", req.Email)
		return nil
	},
}

func init() {
	resetCmd.AddCommand(resetRequestCmd)
	resetCmd.AddCommand(resetConfirmCmd)
	rootCmd.AddCommand(resetCmd)
}

// newAuthServiceForResetCommands always logs the reset link and runs
// delivery inline, so the link is printed before the process exits.
func newAuthServiceForResetCommands() (service.AuthService, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err = configureLogging(cfg); err != nil {
		return nil, nil, err
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}

	authService := newAuthService(cfg, db,
		service.WithResetMailer(mailer.NewLogMailer(cfg.Mail.ResetURL)),
		service.WithAsyncRunner(func(task func()) { task() }),
	)

	return authService, db, nil
}

func promptNewPassword(in io.Reader) (string, error) {
	reader := bufio.NewReader(in)
	fmt.Print("New password: ")
	input, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}

	input = strings.TrimRight(input, "\r\n")
	if input == "" {
		return "", errors.New("password must not be empty")
	}

	return input, nil
}
