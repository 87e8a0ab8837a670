/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"strings"

	"carebot/pkg/care"
	"carebot/pkg/config"
	"carebot/pkg/ui/chat"

	"github.com/spf13/cobra"
)

var (
	messageText string
	chatLang    string
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send one message or start an interactive care chat",
	Long:  "Loads Carebot configuration, builds the care pipeline, and routes one message or starts an interactive chat.",
	Run: func(cmd *cobra.Command, args []string) {
		message := resolveMessage(args)

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

		lang := care.ParseLang(chatLang)
		if chatLang == "" {
			lang = care.ParseLang(cfg.Care.DefaultLang)
		}

		routeFn := func(ctx context.Context, text string, lang care.Lang) care.Response {
			return p.orchestrator.Route(ctx, care.Message{Text: text, Lang: lang})
		}

		info := chat.Info{
			Lang:       lang,
			TopicCount: len(p.topics),
			Knowledge:  p.knowledge,
			Translate:  p.translate,
		}

		if message != "" {
			if err := chat.RunOneShot(ctx, routeFn, info, message); err != nil {
				fmt.Printf("chat failed: %v\n", err)
			}
			return
		}

		if err := chat.RunInteractive(ctx, routeFn, info); err != nil {
			fmt.Printf("chat failed: %v\n", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVarP(&messageText, "message", "m", "", "message text to send")
	chatCmd.Flags().StringVarP(&chatLang, "lang", "l", "", "conversation language (en or sw)")
}

func resolveMessage(args []string) string {
	if value := strings.TrimSpace(messageText); value != "" {
		return value
	}

	if len(args) == 0 {
		return ""
	}

	value := strings.TrimSpace(strings.Join(args, " "))
	if value == "" {
		return ""
	}

	return value
}
