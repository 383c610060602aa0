package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"legalrag/config"
	"legalrag/internal/app"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
)

var rootCmd = &cobra.Command{
	Use:   "legalrag",
	Short: "Legal RAG - Question answering over case law with citation-safe context compression",
	Long: `legalrag ingests legal documents (PDF, DOCX, TXT, MD), splits them along their
section structure, and answers questions over them. Retrieved context is compressed
to fit the model's token budget without altering any legal citation.

Example usage:
  legalrag ingest ./cases                          # Ingest a directory of opinions
  legalrag query -q "What is the standard of review?"
  legalrag analyze "Brown v. Board of Education"   # Structured case analysis
  legalrag serve                                   # Start the HTTP API`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./legalrag.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

// openApp wires the application for one command. The caller must Close it.
func openApp(cmd *cobra.Command) (*app.App, error) {
	a, err := app.New(cmd.Context(), GetConfig(), app.Options{RootDir: GetRootDir()})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return a, nil
}
