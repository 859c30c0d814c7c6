package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/Pragadeesh-19/replica-db/internal/config"
	"github.com/Pragadeesh-19/replica-db/internal/genome"
)

var inspectGenome string

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Render a readable report of a genome file",
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectGenome, "genome", "genome.json", "Genome file to inspect")

	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	path := resolveString(cmd, "genome", inspectGenome, "REPLICA_GENOME", cfg.Options.Genome, "genome.json")

	g, err := genome.Load(path)
	if err != nil {
		return err
	}

	md := genomeMarkdown(path, g)

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(110),
	)
	if err != nil {
		fmt.Print(md)
		return nil
	}
	out, err := renderer.Render(md)
	if err != nil {
		fmt.Print(md)
		return nil
	}
	fmt.Print(out)
	return nil
}

// genomeMarkdown summarizes the genome as a markdown document.
func genomeMarkdown(path string, g *genome.Genome) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Genome %s\n\n", path)
	fmt.Fprintf(&sb, "Format version %d, %d tables.\n\n", g.Version, len(g.Tables))

	for _, name := range g.TableNames() {
		t := g.Tables[name]
		fmt.Fprintf(&sb, "## %s\n\n", name)
		fmt.Fprintf(&sb, "%d rows profiled", t.RowCount)
		if len(t.PrimaryKey) > 0 {
			fmt.Fprintf(&sb, ", primary key (%s)", strings.Join(t.PrimaryKey, ", "))
		}
		sb.WriteString(".\n\n")

		sb.WriteString("| column | type | kind | nulls | summary |\n")
		sb.WriteString("|---|---|---|---|---|\n")
		for i := range t.Columns {
			m := &t.Columns[i]
			fmt.Fprintf(&sb, "| %s | %s | %s | %.1f%% | %s |\n",
				m.Name, m.Type, m.Kind, m.NullRate()*100, marginalSummary(m))
		}
		sb.WriteString("\n")

		if t.Covariance != nil && len(t.Covariance.Columns) > 1 {
			fmt.Fprintf(&sb, "Correlated numeric columns: %s.\n\n",
				strings.Join(t.Covariance.Columns, ", "))
		}
		for _, fk := range t.ForeignKeys {
			fmt.Fprintf(&sb, "FK (%s) → %s (%s).\n\n",
				strings.Join(fk.Columns, ", "), fk.RefTable, strings.Join(fk.RefColumns, ", "))
		}
	}
	return sb.String()
}

func marginalSummary(m *genome.Marginal) string {
	switch m.Kind {
	case genome.KindNumeric:
		if m.Count == 0 {
			return "no non-null values"
		}
		return fmt.Sprintf("min %.4g, max %.4g, mean %.4g, %d bins", m.Min, m.Max, m.Mean, len(m.Bins))
	case genome.KindCategorical:
		top := make([]string, 0, 3)
		for i, vc := range m.Values {
			if i == 3 {
				break
			}
			top = append(top, vc.Value)
		}
		s := fmt.Sprintf("%d values", len(m.Values))
		if m.Other > 0 {
			s += fmt.Sprintf(" + other (%d)", m.Other)
		}
		if len(top) > 0 {
			s += ": " + strings.Join(top, ", ")
		}
		return s
	default:
		return "opaque"
	}
}
