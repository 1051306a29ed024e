package cli

import (
	"strings"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
)

// compareResult is the compare command's structured output.
type compareResult struct {
	Equal      bool   `json:"equal" yaml:"equal"`
	A          string `json:"a" yaml:"a"`
	B          string `json:"b" yaml:"b"`
	CanonicalA string `json:"canonical_a" yaml:"canonical_a"`
	CanonicalB string `json:"canonical_b" yaml:"canonical_b"`
	Diff       string `json:"diff,omitempty" yaml:"diff,omitempty"`
}

// NewCompareCmd creates the compare command. It exits non-zero when the
// canonical forms differ.
func NewCompareCmd() *cobra.Command {
	flags := &canonFlags{}
	cmd := &cobra.Command{
		Use:     "compare A B",
		Short:   "Check whether two patterns share a canonical form",
		Example: "  smartscanon compare 'CN' 'NC'",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			resp, err := cc.Backend.Compare(cmd.Context(), args[0], args[1], flags.options(cmd))
			if err != nil {
				return err
			}
			res := compareResult{
				Equal:      resp.Equal,
				A:          args[0],
				B:          args[1],
				CanonicalA: resp.CanonicalA,
				CanonicalB: resp.CanonicalB,
			}
			if !res.Equal {
				res.Diff = inlineDiff(res.CanonicalA, res.CanonicalB, nil)
			}
			err = cc.Out.Emit(res, func(p *Printer) {
				if res.Equal {
					p.Line("%s %s", p.Good("equal"), res.CanonicalA)
					return
				}
				p.Line("%s", p.Bad("different"))
				p.Line("  a: %s", res.CanonicalA)
				p.Line("  b: %s", res.CanonicalB)
				p.Line("  %s", inlineDiff(res.CanonicalA, res.CanonicalB, p))
			})
			if err != nil {
				return err
			}
			if !res.Equal {
				return ErrSilent
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// inlineDiff renders a character diff from a to b, marking deletions as
// [-x-] and insertions as {+x+}. A non-nil p colors the markers.
func inlineDiff(a, b string, p *Printer) string {
	dmp := diffpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	var sb strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffpatch.DiffDelete:
			s := "[-" + d.Text + "-]"
			if p != nil {
				s = p.Bad(s)
			}
			sb.WriteString(s)
		case diffpatch.DiffInsert:
			s := "{+" + d.Text + "+}"
			if p != nil {
				s = p.Good(s)
			}
			sb.WriteString(s)
		default:
			sb.WriteString(d.Text)
		}
	}
	return sb.String()
}

//Personal.AI order the ending
