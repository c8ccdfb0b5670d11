package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/collabd/internal/config"
	"github.com/fyrsmithlabs/collabd/pkg/auth"
)

var (
	tokenUser         string
	tokenTenant       string
	tokenRoles        []string
	tokenBackendRoles []string
	tokenTTL          time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a development bearer token",
	Long: `Token signs a bearer token with the configured JWT secret, for local
development and scripting against the API.

Examples:
  # Token for a regular analyst
  collabd token --user alice --tenant acme --role analysts

  # Superuser token (sees unredacted metadata across tenants)
  collabd token --user admin --tenant acme --role all_access`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user name (required)")
	tokenCmd.Flags().StringVar(&tokenTenant, "tenant", "", "tenant the token operates in (required)")
	tokenCmd.Flags().StringSliceVar(&tokenRoles, "role", nil, "role to grant, repeatable")
	tokenCmd.Flags().StringSliceVar(&tokenBackendRoles, "backend-role", nil, "backend role to grant, repeatable")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")
	_ = tokenCmd.MarkFlagRequired("tenant")
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.Auth.JWTSecret.IsSet() {
		return fmt.Errorf("auth.jwt_secret is not configured")
	}

	token, err := auth.NewToken([]byte(cfg.Auth.JWTSecret.Value()), &auth.Identity{
		User:         tokenUser,
		Tenant:       tokenTenant,
		Roles:        tokenRoles,
		BackendRoles: tokenBackendRoles,
	}, tokenTTL)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	fmt.Println(token)
	return nil
}
