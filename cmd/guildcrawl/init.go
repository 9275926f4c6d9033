package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/guildcrawl/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/guildcrawl.yaml
var configTemplate embed.FS

const templatePath = "templates/guildcrawl.yaml"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a guildcrawl configuration file",
		Long: `Init writes an annotated .guildcrawl configuration file.

The generated file documents:
- Request pacing (minimum and maximum delay between pages)
- Transport settings such as timeout, User-Agent and SOCKS5 proxy
- Per keyword limits, locales, cookies and headers

Examples:
  # Create .guildcrawl in the current directory
  guildcrawl init

  # Create the file at a specific path
  guildcrawl init -o ~/.config/guildcrawl/config.yaml

  # Overwrite an existing file
  guildcrawl init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to tune:")
	fmt.Fprintln(out, "  - Delay between result pages")
	fmt.Fprintln(out, "  - Per keyword limits and locales")
	fmt.Fprintln(out, "  - Cookies and headers sent to the directory")

	return nil
}
