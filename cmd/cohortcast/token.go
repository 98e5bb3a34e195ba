package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"cohortcast/internal/core/domain"
	"cohortcast/internal/core/services"
	"cohortcast/pkg/config"

	"github.com/spf13/cobra"
)

func newTokenService(cfg *config.Config) (*services.TokenService, error) {
	return services.NewTokenService(services.TokenConfig{
		Secret:    cfg.HMS.Secret.Value(),
		AccessKey: cfg.HMS.AccessKey,
		RoomID:    cfg.HMS.RoomID,
	})
}

func newTokenCommand(opts *rootOptions) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue or inspect participant credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var role, room string
	issueCmd := &cobra.Command{
		Use:   "issue <display-name>",
		Short: "Issue a participant credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			svc, err := newTokenService(cfg)
			if err != nil {
				return err
			}

			cred, err := svc.Issue(args[0], domain.Role(role), domain.RoomID(room))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"token":          cred.Token,
				"participant_id": cred.ParticipantID,
				"room_id":        cred.RoomID,
				"display_name":   cred.DisplayName,
				"role":           cred.Role,
				"expires_in":     int64(cred.ExpiresIn / time.Second),
				"expires_at":     cred.ExpiresAt.UTC(),
			})
		},
	}
	issueCmd.Flags().StringVar(&role, "role", string(domain.DefaultRole), "Participant role: "+domain.ValidRolesList())
	issueCmd.Flags().StringVar(&room, "room", "", "Room id. Defaults to hms.room_id.")

	validateCmd := &cobra.Command{
		Use:   "validate <token>",
		Short: "Check a participant credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			svc, err := newTokenService(cfg)
			if err != nil {
				return err
			}

			status := svc.Validate(args[0])
			if !status.Valid {
				if errors.Is(status.Failure, domain.ErrExpiredCredential) {
					return fmt.Errorf("token expired")
				}
				return fmt.Errorf("token invalid")
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"valid":          true,
				"participant_id": status.ParticipantID,
				"room_id":        status.RoomID,
				"role":           status.Role,
				"can_publish":    status.CanPublish,
				"can_control":    status.CanControl,
				"expires_at":     status.ExpiresAt.UTC(),
			})
		},
	}

	tokenCmd.AddCommand(issueCmd, validateCmd)
	return tokenCmd
}

func newRolesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "roles",
		Short: "List the participant roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd.OutOrStdout(), domain.Roles())
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
