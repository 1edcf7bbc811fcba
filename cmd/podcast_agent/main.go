// Package main provides the podcast_agent command line tool.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "podcast_agent",
	Short: "Generate podcast episodes: cover image, segmented script and video",
	Long: `podcast_agent turns a topic into a podcast episode. It generates a cover image,
a multi-part script (optionally grounded in web search) and a short video seeded
with the image, then saves everything into a timestamped session directory.

Each stage fails independently: a run always produces whatever it could.`,
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
