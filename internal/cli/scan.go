package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opensource-finance/veritas/internal/analyzer"
	"github.com/opensource-finance/veritas/internal/domain"
	"github.com/opensource-finance/veritas/internal/features"
	"github.com/opensource-finance/veritas/internal/threatintel"
)

// scanOutput is one line of `scan` output.
type scanOutput struct {
	Input  string                 `json:"input"`
	Result *domain.AnalysisResult `json:"result"`
}

func newScanCmd() *cobra.Command {
	var (
		listsPath string
		pretty    bool
	)

	cmd := &cobra.Command{
		Use:   "scan <url|message>...",
		Short: "Score inputs offline using the threat tables only",
		Long: `Score one or more inputs without a server or database.

Known-threat lookups and signal rules are not applied. Each result is
printed as one JSON document.

Examples:
  veritas-cli scan https://paypa1-secure-login.xyz/confirm
  veritas-cli scan --lists ./threats.yaml "urgent: verify your account"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lists, err := threatintel.Load(listsPath)
			if err != nil {
				return err
			}

			a := analyzer.New(analyzer.Dependencies{
				Extractor: features.NewExtractor(lists),
			}, domain.AnalyzerConfig{})

			enc := json.NewEncoder(cmd.OutOrStdout())
			if pretty {
				enc.SetIndent("", "  ")
			}
			for _, input := range args {
				out := scanOutput{Input: input, Result: a.Analyze(cmd.Context(), input)}
				if err := enc.Encode(out); err != nil {
					return fmt.Errorf("failed to write result: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&listsPath, "lists", getenvDefault("VERITAS_THREAT_LISTS", ""), "YAML file merged onto the built-in threat tables")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent JSON output")
	return cmd
}
