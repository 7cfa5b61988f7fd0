package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sdejongh/diffnorris/pkg/decode"
	"github.com/sdejongh/diffnorris/pkg/graph"
	"github.com/sdejongh/diffnorris/pkg/rules"
)

// NewExpandCommand creates the expand command
func NewExpandCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "expand PATTERN OLD NEW",
		Short: "List the concrete paths a rule pattern covers in a document pair",
		Long: `Expand a rule path pattern against one pair of documents and print
every concrete property path it denotes. Each [*] is replaced by the
indices present in either document.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			decoders, err := decode.NewAuto(format)
			if err != nil {
				return err
			}

			old, err := decodeFile(decoders, args[1])
			if err != nil {
				return err
			}
			new, err := decodeFile(decoders, args[2])
			if err != nil {
				return err
			}

			paths, err := rules.Expand(args[0], old, new)
			if err != nil {
				return fmt.Errorf("invalid pattern: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, p := range paths {
				fmt.Fprintln(out, p)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "auto", "document format (auto, json, xml, yaml)")

	return cmd
}

func decodeFile(decoders *decode.Auto, path string) (*graph.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d, err := decoders.Resolve(path)
	if err != nil {
		return nil, err
	}
	n, err := d.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}
