package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github/itish2003/ragchat/models"
	"github/itish2003/ragchat/services"
)

var quitWords = map[string]struct{}{
	"quit": {}, "exit": {}, "q": {}, "end": {}, "stop": {},
}

func newChatCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)
			return runChat(ctx, a.container.Chat, userID, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&userID, "user", "terminal", "user id recorded in chat memory")
	return cmd
}

// runChat reads "User: " lines until EOF or a quit word and prints each reply.
func runChat(ctx context.Context, chat services.ChatService, userID string, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	sessionID := ""
	for {
		fmt.Fprint(out, "User: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if _, quit := quitWords[strings.ToLower(line)]; quit {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}

		resp, err := chat.SubmitTurn(ctx, models.ChatRequest{Message: line, UserID: userID, SessionID: sessionID})
		if err != nil {
			fmt.Fprintln(out, "Assistant:", services.ApologyReply)
			continue
		}
		sessionID = resp.SessionID
		fmt.Fprintln(out, "Assistant:", resp.Reply)
	}
}
