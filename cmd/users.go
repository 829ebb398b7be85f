/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/notesapp/apiserver/internal/auth"
	"github.com/notesapp/apiserver/internal/db"
	"github.com/notesapp/apiserver/internal/events"
	"github.com/notesapp/apiserver/internal/mq"
	"github.com/notesapp/apiserver/internal/services"
	"github.com/notesapp/apiserver/internal/store"
)

var promoteEmail string

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user accounts",
}

// usersPromoteCmd grants the admin role. Registration never does, so the
// first admin is created here.
var usersPromoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Grant the admin role to an existing account",
	RunE: func(cmd *cobra.Command, args []string) error {
		email := strings.TrimSpace(promoteEmail)
		if email == "" {
			return errors.New("--email is required")
		}

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		pools, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer pools.Close()

		broker, err := mq.Open(cmd.Context(), cfg.Events)
		if err != nil {
			return err
		}
		if broker != nil {
			defer broker.Close()
		}

		tokens, err := auth.NewTokenIssuer(
			cfg.Auth.JWTSecret,
			cfg.Auth.JWTAlgorithm,
			time.Duration(cfg.Auth.AccessTokenExpireMinutes)*time.Minute,
		)
		if err != nil {
			return err
		}

		userRepo := store.NewUserRepository(pools.Writer, pools.Reader)
		noteRepo := store.NewNoteRepository(pools.Writer, pools.Reader)
		userService := services.NewUserService(userRepo, noteRepo, tokens,
			events.NewBrokerPublisher(broker, cfg.Events.Channel, logger))

		user, err := userService.Promote(cmd.Context(), email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no user with email %q", email)
			}
			return err
		}
		logger.Info().Int("user_id", user.ID).Str("email", user.Email).Msg("user promoted to admin")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersPromoteCmd)

	usersPromoteCmd.Flags().StringVar(&promoteEmail, "email", "", "email of the account to promote")
}
