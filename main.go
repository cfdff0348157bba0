package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/linesmerrill/dharma-case-api/config"
)

// newRootCmd builds the dharma command tree. Flags override the environment
// loaded by config.New.
func newRootCmd() *cobra.Command {
	var (
		port       string
		driver     string
		sqlitePath string
	)

	rootCmd := &cobra.Command{
		Use:   "dharma",
		Short: "dharma-case-api serves the case lifecycle API",
		Long: `dharma-case-api tracks criminal cases from first filing to judgment.

Police file cases, lawyers and judges are assigned, briefs and notes are
recorded, and every change is kept in the case history.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "", "case store driver: mongo, sqlite or memory (default $STORE_DRIVER)")
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "sqlite-path", "", "sqlite database file (default $SQLITE_PATH)")

	loadConfig := func(cmd *cobra.Command) config.Config {
		conf := *config.New()
		if cmd.Flags().Changed("driver") {
			conf.StoreDriver = driver
		}
		if cmd.Flags().Changed("sqlite-path") {
			conf.SQLitePath = sqlitePath
		}
		if cmd.Flags().Changed("port") {
			conf.Port = port
		}
		return conf
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the hearing reminder scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), loadConfig(cmd))
		},
	}
	serveCmd.Flags().StringVarP(&port, "port", "p", "", "port to listen on (default $PORT)")

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the demo cases into the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			added, err := runSeed(cmd.Context(), loadConfig(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d demo cases\n", added)
			return nil
		},
	}

	rootCmd.AddCommand(serveCmd, seedCmd)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
