package cli

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newRemoteCmd() *cobra.Command {
	var (
		asMessage bool
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "remote <url|message>",
		Short: "Score an input using a running Veritas server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := strings.Join(args, " ")
			in := analyzeRequest{URL: input}
			if asMessage {
				in = analyzeRequest{Message: input}
			}

			c := newClient(serverAddr(cmd), timeout)
			result, err := c.analyze(cmd.Context(), in)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(scanOutput{Input: input, Result: result})
		},
	}

	cmd.Flags().BoolVar(&asMessage, "message", false, "Send the input as a message instead of a URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "HTTP request timeout")
	return cmd
}
