package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dangerclosesec/campusops/internal/auth"
	"github.com/dangerclosesec/campusops/internal/model"
	"github.com/dangerclosesec/campusops/internal/repository"
	"github.com/dangerclosesec/campusops/internal/service"
	"github.com/dangerclosesec/campusops/internal/tenant"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var seedRolesCmd = &cobra.Command{
	Use:   "seed-roles",
	Short: "Create the default roles in an organization",
	Long: `Create the admin, staff and member roles in an organization. Roles that
already exist are left untouched.`,
	RunE: runSeedRoles,
}

var issueSetupLinkCmd = &cobra.Command{
	Use:   "issue-setup-link",
	Short: "Issue a password setup or reset link for a user",
	Long: `Issue a single-use password link for a user and print it. No email is
sent.`,
	RunE: runIssueSetupLink,
}

var purgeTokensCmd = &cobra.Command{
	Use:   "purge-tokens",
	Short: "Delete setup tokens that expired long ago",
	RunE:  runPurgeTokens,
}

func init() {
	rootCmd.AddCommand(seedRolesCmd, issueSetupLinkCmd, purgeTokensCmd)

	seedRolesCmd.Flags().String("org", "", "organization id (required)")
	_ = seedRolesCmd.MarkFlagRequired("org")

	issueSetupLinkCmd.Flags().String("org", "", "organization id (required)")
	issueSetupLinkCmd.Flags().String("user", "", "user id (required)")
	issueSetupLinkCmd.Flags().String("purpose", string(model.PurposePasswordSetup), "password_setup or password_reset")
	_ = issueSetupLinkCmd.MarkFlagRequired("org")
	_ = issueSetupLinkCmd.MarkFlagRequired("user")

	purgeTokensCmd.Flags().Duration("older-than", 30*24*time.Hour, "delete tokens expired before now minus this")
}

func uuidFlag(cmd *cobra.Command, name string) (uuid.UUID, error) {
	raw, _ := cmd.Flags().GetString(name)
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("invalid --%s %q", name, raw)
	}
	return id, nil
}

func runSeedRoles(cmd *cobra.Command, args []string) error {
	orgID, err := uuidFlag(cmd, "org")
	if err != nil {
		return err
	}

	db, closeDB, err := openGorm(cmd.Context())
	if err != nil {
		return err
	}
	defer closeDB()

	roles := service.NewRoleService(repository.NewRoleRepository(repository.NewScopedDB(db)), nil, nil)

	return tenant.Run(cmd.Context(), orgID, func(ctx context.Context) error {
		created, err := roles.SeedDefaults(ctx)
		if err != nil {
			return err
		}
		if len(created) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Default roles already present")
			return nil
		}
		for _, role := range created {
			fmt.Fprintf(cmd.OutOrStdout(), "Created role %s (%d grants)\n", role.Name, len(role.Grants))
		}
		return nil
	})
}

func runIssueSetupLink(cmd *cobra.Command, args []string) error {
	orgID, err := uuidFlag(cmd, "org")
	if err != nil {
		return err
	}
	userID, err := uuidFlag(cmd, "user")
	if err != nil {
		return err
	}
	purpose, _ := cmd.Flags().GetString("purpose")

	db, closeDB, err := openGorm(cmd.Context())
	if err != nil {
		return err
	}
	defer closeDB()

	scoped := repository.NewScopedDB(db)
	unscoped := repository.NewUnscopedDB(db)
	setup := service.NewSetupTokenService(
		repository.NewSetupTokenRepository(scoped, unscoped),
		repository.NewUserRepository(scoped, unscoped),
		repository.NewOrganizationRepository(unscoped),
		auth.NewPasswordHasher(),
		nil,
		nil,
		nil,
		cfg.SetupToken.TTL,
		cfg.BaseURL,
	)

	return tenant.Run(cmd.Context(), orgID, func(ctx context.Context) error {
		issued, err := setup.Issue(ctx, userID, model.SetupPurpose(purpose))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), issued.Link)
		fmt.Fprintf(cmd.ErrOrStderr(), "Expires %s\n", issued.ExpiresAt.Format(time.RFC3339))
		return nil
	})
}

func runPurgeTokens(cmd *cobra.Command, args []string) error {
	olderThan, _ := cmd.Flags().GetDuration("older-than")

	db, closeDB, err := openGorm(cmd.Context())
	if err != nil {
		return err
	}
	defer closeDB()

	repo := repository.NewSetupTokenRepository(repository.NewScopedDB(db), repository.NewUnscopedDB(db))
	n, err := repo.Purge(cmd.Context(), time.Now().Add(-olderThan))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d expired setup tokens\n", n)
	return nil
}
