package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dangerclosesec/campusops/internal/auth"
	"github.com/dangerclosesec/campusops/internal/repository"
	"github.com/dangerclosesec/campusops/internal/service"
	"github.com/spf13/cobra"
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create a platform admin",
	Long: `Create a platform admin account.

The password is read from SCHOOLCTL_ADMIN_PASSWORD, or from the first line of
standard input when the variable is unset.

Roles: super_admin, support, billing.`,
	RunE: runCreateAdmin,
}

func init() {
	rootCmd.AddCommand(createAdminCmd)

	createAdminCmd.Flags().String("email", "", "admin email (required)")
	createAdminCmd.Flags().String("name", "", "display name")
	createAdminCmd.Flags().String("role", auth.PlatformRoleSupport, "platform role")
	_ = createAdminCmd.MarkFlagRequired("email")
}

func readPassword(cmd *cobra.Command) (string, error) {
	if pw := os.Getenv("SCHOOLCTL_ADMIN_PASSWORD"); pw != "" {
		return pw, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.New("password is required")
	}
	return pw, nil
}

func runCreateAdmin(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	name, _ := cmd.Flags().GetString("name")
	role, _ := cmd.Flags().GetString("role")

	password, err := readPassword(cmd)
	if err != nil {
		return err
	}

	db, closeDB, err := openGorm(cmd.Context())
	if err != nil {
		return err
	}
	defer closeDB()

	unscoped := repository.NewUnscopedDB(db)
	accounts := service.NewAccountService(nil, nil, nil, repository.NewAdminRepository(unscoped), auth.NewPasswordHasher(), nil, nil)

	admin, err := accounts.CreateAdmin(cmd.Context(), service.CreateAdminInput{
		Email:    email,
		Name:     name,
		Role:     role,
		Password: password,
	})
	if err != nil {
		return err
	}

	log.Info("platform admin created", "adminID", admin.ID, "role", admin.Role)
	fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s (%s)\n", admin.Email, admin.ID)
	return nil
}
