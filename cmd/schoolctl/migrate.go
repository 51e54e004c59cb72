package main

import (
	"fmt"

	"github.com/dangerclosesec/campusops"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	db, err := openSQL(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	m := campusops.NewConfig(cmd.Context(), db)
	m.SetLogger(log)

	applied, err := m.Migrate()
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
		return nil
	}
	for _, v := range applied {
		fmt.Fprintf(cmd.OutOrStdout(), "Applied %s\n", v)
	}
	return nil
}
