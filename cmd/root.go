/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "carebot",
	Short: "Conversational triage for mental wellbeing chats",
	Long: `Carebot routes wellbeing messages through a safety-first pipeline:
crisis phrases get an immediate supportive reply, known topics answer
from curated packs, and everything else falls back to knowledge search
with optional Swahili translation.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
