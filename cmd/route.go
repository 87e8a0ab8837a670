package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"carebot/pkg/care"
	"carebot/pkg/config"

	"github.com/spf13/cobra"
)

var (
	routeLang string
	routeJSON bool
)

// routeCmd routes one message through the care pipeline and prints the reply.
var routeCmd = &cobra.Command{
	Use:   "route <message>",
	Short: "Route one message and print the response",
	Long:  "Routes a single message through the safety, topic pack, retrieval and fallback pipeline and prints the structured response.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		message := strings.TrimSpace(strings.Join(args, " "))
		if message == "" {
			fmt.Println("message text is required")
			return
		}

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		ctx := context.Background()
		p, err := newPipeline(ctx, cfg, nil)
		if err != nil {
			fmt.Printf("failed to initialize care pipeline: %v\n", err)
			return
		}

		lang := care.ParseLang(routeLang)
		if routeLang == "" {
			lang = care.ParseLang(cfg.Care.DefaultLang)
		}

		response := p.orchestrator.Route(ctx, care.Message{Text: message, Lang: lang})

		if routeJSON {
			encoded, err := json.MarshalIndent(response, "", "  ")
			if err != nil {
				fmt.Printf("failed to encode response: %v\n", err)
				return
			}
			fmt.Println(string(encoded))
			return
		}

		fmt.Println(response.Content)
		for i, suggestion := range response.Suggestions {
			fmt.Printf("%d. %s\n", i+1, suggestion)
		}
	},
}

func init() {
	rootCmd.AddCommand(routeCmd)
	routeCmd.Flags().StringVarP(&routeLang, "lang", "l", "", "conversation language (en or sw)")
	routeCmd.Flags().BoolVar(&routeJSON, "json", false, "print the full response as JSON")
}
