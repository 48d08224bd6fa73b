package cli

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/statcraft/pkg/content"
	"github.com/mesh-intelligence/statcraft/pkg/ledger"
	"github.com/mesh-intelligence/statcraft/pkg/stacking"
	"github.com/mesh-intelligence/statcraft/pkg/types"
)

// sheet is a detached stat target: a map of stat values standing in for a
// live game object. It is its own binder.
type sheet struct {
	values map[string]float32
}

func (s *sheet) Lookup(guid string) (types.StatDescriptor, bool) {
	if _, ok := s.values[guid]; !ok {
		return types.StatDescriptor{}, false
	}
	return types.StatDescriptor{GUID: guid}, true
}

func (s *sheet) Get(d types.StatDescriptor, target any) float32 {
	return s.values[d.GUID]
}

func (s *sheet) Set(d types.StatDescriptor, target any, value float32) {
	s.values[d.GUID] = value
}

// simulation is the outcome for one stat.
type simulation struct {
	Stat      string           `json:"stat"`
	Breakdown ledger.Breakdown `json:"breakdown"`
}

func newSimulateCmd(a *app) *cobra.Command {
	var (
		bases []string
		items []string
		count uint32
		stat  string
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Compose content modifiers over base stat values",
		Long: `Simulate applies item and ability definitions from the content directory to
a detached stat sheet and prints each affected stat's composition, stage by
stage. Stats without a --base value start at zero.`,
		Example: `  statcraft simulate --item iron_ring --count 3
  statcraft simulate --base game.Hero.Health=100 --item iron_ring --item haste --stat game.Hero.Health`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(items) == 0 {
				return fmt.Errorf("%w: at least one --item is required", errUser)
			}
			lib, err := content.LoadDir(a.config.ContentDir)
			if err != nil {
				return err
			}

			s := &sheet{values: make(map[string]float32)}
			for _, b := range bases {
				guid, value, err := parseBase(b)
				if err != nil {
					return err
				}
				s.values[guid] = value
			}

			defs := make([]content.Definition, 0, len(items))
			for _, id := range items {
				d, err := lib.Get(id)
				if err != nil {
					return err
				}
				for _, guid := range d.Stats() {
					if _, ok := s.values[guid]; !ok {
						s.values[guid] = 0
					}
				}
				defs = append(defs, d)
			}

			l := ledger.New(s, s, ledger.WithLogger(a.logger))
			rec := stacking.New(l, stacking.WithLogger(a.logger))
			for _, d := range defs {
				if err := d.ApplyToTarget(rec, count); err != nil {
					return err
				}
			}

			stats := l.Stats()
			if stat != "" {
				if _, ok := s.values[stat]; !ok {
					return fmt.Errorf("%w: %s", types.ErrStatNotFound, stat)
				}
				stats = []string{stat}
			}
			results := make([]simulation, 0, len(stats))
			for _, guid := range stats {
				b, err := l.Explain(guid)
				if err != nil {
					return err
				}
				results = append(results, simulation{Stat: guid, Breakdown: b})
			}
			return writeSimulation(cmd, a.flags.jsonMode, results, s)
		},
	}
	cmd.Flags().StringArrayVar(&bases, "base", nil, "base value as guid=value (repeatable)")
	cmd.Flags().StringArrayVar(&items, "item", nil, "definition ID to apply (repeatable)")
	cmd.Flags().Uint32Var(&count, "count", 1, "stack count applied to each item")
	cmd.Flags().StringVar(&stat, "stat", "", "only report this stat GUID")
	return cmd
}

func parseBase(arg string) (string, float32, error) {
	guid, raw, ok := strings.Cut(arg, "=")
	if !ok || strings.TrimSpace(guid) == "" {
		return "", 0, fmt.Errorf("%w: invalid --base %q (expected guid=value)", errUser, arg)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 32)
	if err != nil {
		return "", 0, fmt.Errorf("%w: invalid --base value %q: %w", errUser, raw, err)
	}
	return strings.TrimSpace(guid), float32(v), nil
}

func writeSimulation(cmd *cobra.Command, jsonMode bool, results []simulation, s *sheet) error {
	out := cmd.OutOrStdout()
	if jsonMode {
		return writeJSON(out, map[string]any{
			"results": results,
			"values":  s.values,
		})
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, r := range results {
		fmt.Fprintf(tw, "%s\tbase %g\t-> %g\n", r.Stat, r.Breakdown.Base, r.Breakdown.Value)
		for _, st := range r.Breakdown.Steps {
			fmt.Fprintf(tw, "  %d %s\t%d records, combined %g\t-> %g\n",
				st.Stage, st.Kind, st.Records, st.Combined, st.Value)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(results) > 1 {
		fmt.Fprintln(out)
		for _, guid := range slices.Sorted(maps.Keys(s.values)) {
			fmt.Fprintf(out, "%s = %g\n", guid, s.values[guid])
		}
	}
	return nil
}
