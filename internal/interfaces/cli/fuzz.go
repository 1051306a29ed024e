package cli

import (
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/logging"
	engine "github.com/turtacn/smartscanon/internal/intelligence/canon"
)

// fuzzReport is the fuzz command's structured output.
type fuzzReport struct {
	Seed       int64             `json:"seed" yaml:"seed"`
	Skeleton   string            `json:"skeleton,omitempty" yaml:"skeleton,omitempty"`
	Random     []string          `json:"random,omitempty" yaml:"random,omitempty"`
	Invariance []invarianceEntry `json:"invariance" yaml:"invariance"`
}

type invarianceEntry struct {
	Input     string            `json:"input" yaml:"input"`
	Canonical string            `json:"canonical" yaml:"canonical"`
	Rounds    int               `json:"rounds" yaml:"rounds"`
	Invariant bool              `json:"invariant" yaml:"invariant"`
	Witness   map[string]string `json:"witness,omitempty" yaml:"witness,omitempty"`
}

// NewFuzzCmd creates the fuzz command. It always runs the local engine.
func NewFuzzCmd() *cobra.Command {
	var (
		seed     int64
		rounds   int
		random   int
		skeleton string
		flags    canonFlags
	)
	cmd := &cobra.Command{
		Use:   "fuzz [SMARTS...]",
		Short: "Check the canonical form against random atom orders and embeddings",
		Long: "For every pattern, write it under --rounds random atom permutations and\n" +
			"check that all of them canonicalize to the same text. With --random N, also\n" +
			"canonicalize the skeleton under N random embeddings. Runs are reproducible\n" +
			"for a given --seed.",
		Example: "  smartscanon fuzz --seed 7 --rounds 50 'F[C@H](Cl)Br' 'c1ccccc1O'\n  smartscanon fuzz --random 5",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				args = []string{engine.DefaultSkeleton}
			}
			rng := rand.New(rand.NewSource(seed))

			emb := flags.embedding
			if emb == "" {
				emb = cc.Config.Canon.DefaultEmbedding
			}
			opts := []engine.Option{engine.WithEmbedding(emb), engine.WithMapping(flags.mapping)}

			report := fuzzReport{Seed: seed}
			failed := 0
			for _, text := range args {
				r, err := engine.CheckInvariance(text, rounds, rng, opts...)
				if err != nil {
					return err
				}
				entry := invarianceEntry{
					Input:     r.Input,
					Canonical: r.Canonical,
					Rounds:    r.Rounds,
					Invariant: r.Invariant(),
				}
				if !entry.Invariant {
					entry.Witness = r.Witness
					failed++
					cc.Logger.Warn("canonical form depends on atom order",
						logging.String("input", text),
						logging.Int("distinct", len(r.Distinct)))
				}
				report.Invariance = append(report.Invariance, entry)
			}

			if random > 0 {
				report.Skeleton = skeleton
				if report.Skeleton == "" {
					report.Skeleton = engine.DefaultSkeleton
				}
				for i := 0; i < random; i++ {
					out, err := engine.RandomPattern(report.Skeleton, flags.mapping, rng)
					if err != nil {
						return err
					}
					report.Random = append(report.Random, out)
				}
			}

			err = cc.Out.Emit(report, func(p *Printer) {
				for _, e := range report.Invariance {
					if e.Invariant {
						p.Line("%s %s -> %s (%d rounds)", p.Good("ok  "), e.Input, e.Canonical, e.Rounds)
						continue
					}
					p.Line("%s %s -> %s", p.Bad("FAIL"), e.Input, e.Canonical)
					for out, witness := range e.Witness {
						p.Line("  %s gives %s", witness, out)
					}
				}
				for i, out := range report.Random {
					p.Line("%s %s", p.Dim(fmt.Sprintf("random %d:", i+1)), out)
				}
			})
			if err != nil {
				return err
			}
			if failed > 0 {
				return ErrSilent
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	cmd.Flags().IntVar(&rounds, "rounds", 20, "relabelings per pattern")
	cmd.Flags().IntVar(&random, "random", 0, "canonicalize the skeleton under this many random embeddings")
	cmd.Flags().StringVar(&skeleton, "skeleton", "", "skeleton for --random (default "+engine.DefaultSkeleton+")")
	cmd.Flags().StringVarP(&flags.embedding, "embedding", "e", "", "embedding preset for the invariance check")
	cmd.Flags().BoolVarP(&flags.mapping, "mapping", "m", false, "keep atom-map numbers")
	return cmd
}

//Personal.AI order the ending
