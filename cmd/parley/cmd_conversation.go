package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/parleyhq/parley/internal/domain"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(conversationCmd)
	conversationCmd.AddCommand(conversationQueueCmd, conversationShowCmd)
}

var conversationCmd = &cobra.Command{
	Use:     "conversation",
	Aliases: []string{"conv"},
	Short:   "Inspect conversations",
}

var conversationQueueCmd = &cobra.Command{
	Use:   "queue",
	Short: "List conversations waiting for an engine pass",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()

		ctx := context.Background()
		list, err := a.store.Conversations.ListEligible(ctx)
		if err != nil {
			return fmt.Errorf("list eligible conversations: %w", err)
		}

		if len(list) == 0 {
			fmt.Println("No conversations waiting.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tCHANNEL\tTITLE\tUPDATED")
		for _, c := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				c.ID,
				c.Status,
				c.ChannelKey,
				c.Title,
				c.UpdatedAt.Format("2006-01-02 15:04:05"),
			)
		}
		return w.Flush()
	},
}

var conversationShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a conversation transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()

		ctx := context.Background()
		conv, err := a.store.Conversations.Get(ctx, domain.ConversationID(args[0]))
		if err != nil {
			return fmt.Errorf("get conversation: %w", err)
		}
		msgs, err := a.store.Messages.List(ctx, conv.ID)
		if err != nil {
			return fmt.Errorf("list messages: %w", err)
		}

		fmt.Printf("Conversation %s\n", conv.ID)
		fmt.Printf("  Status:  %s\n", conv.Status)
		fmt.Printf("  Channel: %s\n", conv.ChannelKey)
		if conv.Title != "" {
			fmt.Printf("  Title:   %s\n", conv.Title)
		}
		if conv.Resolution != nil {
			fmt.Printf("  Resolution: resolved=%t reason=%q\n", conv.Resolution.Resolved, conv.Resolution.Reason)
		}
		fmt.Println()

		for _, m := range msgs {
			fmt.Printf("[%s] %s: %s\n",
				m.CreatedAt.Format("15:04:05"),
				messageLabel(m.Type),
				m.Content,
			)
		}
		return nil
	},
}

func messageLabel(t domain.MessageType) string {
	switch t {
	case domain.MessageCustomer:
		return "Customer"
	case domain.MessageBotAgent:
		return "Agent"
	case domain.MessageHumanAgent:
		return "Human agent"
	case domain.MessageTool:
		return "Tool"
	default:
		return "System"
	}
}
