package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/turtacn/smartscanon/internal/application/rulebook"
	dto "github.com/turtacn/smartscanon/pkg/types/canon"
)

// dedupeReport is the dedupe command's structured output.
type dedupeReport struct {
	Library    string               `json:"library,omitempty" yaml:"library,omitempty"`
	Embedding  string               `json:"embedding" yaml:"embedding"`
	Total      int                  `json:"total" yaml:"total"`
	Unique     int                  `json:"unique" yaml:"unique"`
	Duplicates []dto.DuplicateGroup `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
	Errors     []dto.RuleError      `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// NewDedupeCmd creates the dedupe command.
func NewDedupeCmd() *cobra.Command {
	var (
		embedding string
		uniqueOut string
	)
	cmd := &cobra.Command{
		Use:   "dedupe FILE",
		Short: "Find rules that canonicalize to the same pattern",
		Long: "Read a rule file and group the rules whose canonical forms coincide.\n\n" +
			"A YAML file holds {library, embedding, rules: [{name, pattern, tags}]}.\n" +
			"Any other file is plain text: one pattern per line, optionally followed\n" +
			"by whitespace and a name. \"-\" reads stdin.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			file, err := readRuleFile(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			if embedding != "" {
				file.Embedding = embedding
			}
			for i := range file.Rules {
				file.Rules[i].Pattern = rulebook.Normalize(file.Rules[i].Pattern)
			}

			a, err := cc.Rules.Duplicates(cmd.Context(), file.Rules, file.Embedding)
			if err != nil {
				return err
			}
			report := dedupeReport{
				Library:    file.Library,
				Embedding:  a.Embedding,
				Total:      len(file.Rules),
				Unique:     len(a.Unique),
				Duplicates: a.Duplicates,
				Errors:     a.Errors,
			}
			if uniqueOut != "" {
				if err := writeUnique(uniqueOut, file, a); err != nil {
					return err
				}
			}
			return cc.Out.Emit(report, func(p *Printer) {
				p.Line("%d rules, %d unique, %d duplicate groups, %d errors",
					report.Total, report.Unique, len(report.Duplicates), len(report.Errors))
				for _, g := range report.Duplicates {
					p.Line("%s %s", p.Warn("duplicate"), g.Canonical)
					for _, n := range g.Names {
						p.Line("  %s", n)
					}
				}
				for _, e := range report.Errors {
					name := e.Name
					if name == "" {
						name = e.Pattern
					}
					p.Line("%s %s: %s", p.Bad("error"), name, e.Error)
				}
			})
		},
	}
	cmd.Flags().StringVarP(&embedding, "embedding", "e", "", "embedding preset (overrides the file's)")
	cmd.Flags().StringVar(&uniqueOut, "write-unique", "", "write the first rule of every group to this YAML file")
	return cmd
}

// readRuleFile loads path ("-" for in) as a YAML rule file or a plain list.
func readRuleFile(path string, in io.Reader) (*dto.RuleFile, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" || looksLikeYAML(data) {
		var f dto.RuleFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse rule file %s: %w", path, err)
		}
		if len(f.Rules) == 0 {
			return nil, fmt.Errorf("rule file %s has no rules", path)
		}
		return &f, nil
	}
	return parsePlainRules(data)
}

func looksLikeYAML(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return bytes.HasPrefix(trimmed, []byte("rules:")) || bytes.HasPrefix(trimmed, []byte("library:"))
}

// parsePlainRules reads "pattern [name...]" lines; # starts a comment line.
func parsePlainRules(data []byte) (*dto.RuleFile, error) {
	f := &dto.RuleFile{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		r := dto.RuleInput{Pattern: fields[0]}
		if len(fields) > 1 {
			r.Name = strings.Join(fields[1:], " ")
		}
		f.Rules = append(f.Rules, r)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("rule file has no rules")
	}
	return f, nil
}

func writeUnique(path string, src *dto.RuleFile, a *rulebook.Analysis) error {
	out := dto.RuleFile{Library: src.Library, Embedding: a.Embedding}
	for _, u := range a.Unique {
		out.Rules = append(out.Rules, u.Input)
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

//Personal.AI order the ending
