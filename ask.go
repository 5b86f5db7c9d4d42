package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Skufu/Health-Info-Assistant/internal/analysis"
	"github.com/Skufu/Health-Info-Assistant/internal/chat"
	"github.com/Skufu/Health-Info-Assistant/internal/config"
	"github.com/Skufu/Health-Info-Assistant/internal/log"
)

func askCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one health question from the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			log.Init(log.Config{
				Level:  cfg.Log.Level,
				Pretty: true,
				Output: os.Stderr,
			})

			chain, err := buildChain(cfg)
			if err != nil {
				return err
			}

			reply, err := chat.NewService(chain, nil).Ask(cmd.Context(), chat.Request{
				Message: strings.Join(args, " "),
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(reply.Analysis)
			}
			printAnalysis(out, reply.Analysis)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "print the full analysis as JSON")
	return cmd
}

func printAnalysis(w io.Writer, r analysis.Response) {
	fmt.Fprintf(w, "Urgency: %s (score %d)   Source: %s\n", r.Urgency, r.UrgencyScore, r.Source)
	for _, a := range r.Advisories {
		fmt.Fprintf(w, "! %s\n", a)
	}
	for _, s := range r.Sections {
		fmt.Fprintf(w, "\n== %s ==\n%s\n", s.Title, s.Content)
	}
	fmt.Fprintf(w, "\n%s\n", r.Disclaimer)
}
