package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/logging"
	dto "github.com/turtacn/smartscanon/pkg/types/canon"
)

// canonFlags are the engine options shared by the canonicalizing commands.
// Unset flags fall back to the configured defaults.
type canonFlags struct {
	embedding string
	mapping   bool
	noRemap   bool
}

func (f *canonFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.embedding, "embedding", "e", "", "embedding preset or loaded table (default from config)")
	cmd.Flags().BoolVarP(&f.mapping, "mapping", "m", false, "keep atom-map numbers")
	cmd.Flags().BoolVar(&f.noRemap, "no-remap", false, "keep the input's reaction map numbers instead of renumbering")
}

func (f *canonFlags) options(cmd *cobra.Command) dto.Options {
	opts := dto.Options{Embedding: f.embedding}
	if cmd.Flags().Changed("mapping") {
		opts.Mapping = dto.Bool(f.mapping)
	}
	if f.noRemap {
		opts.Remap = dto.Bool(false)
	}
	return opts
}

// readInputs returns args, or one input per non-blank, non-comment line of
// in when args is empty or "-".
func readInputs(args []string, in io.Reader) ([]string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return args, nil
	}
	var out []string
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no input: pass patterns as arguments or on stdin")
	}
	return out, nil
}

// NewPatternCmd creates the pattern command.
func NewPatternCmd() *cobra.Command {
	flags := &canonFlags{}
	cmd := &cobra.Command{
		Use:   "pattern [SMARTS...]",
		Short: "Canonicalize SMARTS patterns",
		Long: "Canonicalize one or more SMARTS patterns. With no arguments, or with \"-\",\n" +
			"patterns are read from stdin, one per line.",
		Example: "  smartscanon pattern 'OC'\n  smartscanon pattern -e askcos -m '[C:4][O]'\n  smartscanon pattern < rules.txt",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			inputs, err := readInputs(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runCanon(cmd.Context(), cc, dto.KindPattern, inputs, flags.options(cmd))
		},
	}
	flags.register(cmd)
	return cmd
}

// NewReactionCmd creates the reaction command.
func NewReactionCmd() *cobra.Command {
	flags := &canonFlags{}
	cmd := &cobra.Command{
		Use:     "reaction [REACTION...]",
		Short:   "Canonicalize reaction SMARTS",
		Long:    "Canonicalize reaction SMARTS of the form R>A>P or R>>P. Output always uses R>A>>P.",
		Example: "  smartscanon reaction 'CN>>OC'\n  smartscanon reaction -m '[C:5][N:3]>>[N:3][C:5]'",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			inputs, err := readInputs(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runCanon(cmd.Context(), cc, dto.KindReaction, inputs, flags.options(cmd))
		},
	}
	flags.register(cmd)
	return cmd
}

func runCanon(ctx context.Context, cc *CLIContext, kind dto.Kind, inputs []string, opts dto.Options) error {
	if len(inputs) == 1 {
		return canonOne(ctx, cc, kind, inputs[0], opts)
	}

	items := make([]dto.BatchItem, len(inputs))
	for i, in := range inputs {
		items[i] = dto.BatchItem{ID: fmt.Sprint(i + 1), Kind: kind, Text: in}
	}
	limit := cc.Config.Canon.BatchLimit
	if limit <= 0 {
		limit = len(items)
	}
	all := &dto.BatchResponse{}
	for start := 0; start < len(items); start += limit {
		end := start + limit
		if end > len(items) {
			end = len(items)
		}
		resp, err := cc.Backend.Batch(ctx, &dto.BatchRequest{Items: items[start:end], Options: opts})
		if err != nil {
			return err
		}
		all.Results = append(all.Results, resp.Results...)
		all.Succeeded += resp.Succeeded
		all.Failed += resp.Failed
	}
	cc.Logger.Debug("batch finished",
		logging.Int("succeeded", all.Succeeded),
		logging.Int("failed", all.Failed))

	err := cc.Out.Emit(all, func(p *Printer) {
		for _, r := range all.Results {
			if r.Failed() {
				p.Line("%s %s: %s", p.Bad("error"), r.Input, r.Error)
				continue
			}
			p.Line("%s", r.Canonical)
		}
	})
	if err != nil {
		return err
	}
	if all.Failed > 0 {
		return fmt.Errorf("%d of %d inputs failed", all.Failed, len(all.Results))
	}
	return nil
}

func canonOne(ctx context.Context, cc *CLIContext, kind dto.Kind, input string, opts dto.Options) error {
	if kind == dto.KindReaction {
		resp, err := cc.Backend.CanonicalizeReaction(ctx, input, opts)
		if err != nil {
			return err
		}
		return cc.Out.Emit(resp, func(p *Printer) {
			p.Line("%s", resp.Canonical)
			if cc.Verbose {
				p.Line("%s %s", p.Dim("reactants:"), strings.Join(resp.Reactants, " "))
				p.Line("%s %s", p.Dim("agents:   "), strings.Join(resp.Agents, " "))
				p.Line("%s %s", p.Dim("products: "), strings.Join(resp.Products, " "))
			}
		})
	}

	resp, err := cc.Backend.CanonicalizePattern(ctx, input, opts)
	if err != nil {
		return err
	}
	return cc.Out.Emit(resp, func(p *Printer) {
		p.Line("%s", resp.Canonical)
		if cc.Verbose {
			p.Line("%s %s", p.Dim("embedding:"), resp.Embedding)
			for _, f := range resp.Fragments {
				p.Line("%s %s score=%s expanded=%d ties=%d", p.Dim("fragment:"), f.Text, f.Score, f.Expanded, f.Ties)
			}
		}
	})
}

//Personal.AI order the ending
