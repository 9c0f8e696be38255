package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/erazemk/najdeno/internal/db"
	"github.com/erazemk/najdeno/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Create campuses and accounts listed in a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening seed file: %w", err)
		}
		defer f.Close()

		doc, err := seed.Parse(f)
		if err != nil {
			return err
		}

		database, err := db.Open(cfg.DB)
		if err != nil {
			return err
		}
		defer database.Close()

		if err := db.EnsureSchema(database); err != nil {
			return fmt.Errorf("ensuring schema: %w", err)
		}

		res, err := seed.Apply(cmd.Context(), database, doc)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Campuses created: %d\nUsers created: %d\nAlready present: %d\n",
			res.CampusesCreated, res.UsersCreated, res.Skipped)
		return nil
	},
}
