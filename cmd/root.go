// Package cmd wires the CLI: profile a database into a genome, generate
// synthetic data from a genome, and inspect or preview either.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "replica-db",
	Short: "Profile a relational database and generate statistically faithful synthetic data",
	Long: `replica-db scans a live database into a compact statistical summary (the
genome: per-column histograms and frequency tables, per-table correlation
structure, and the foreign-key graph) without retaining any source rows,
then generates arbitrarily many synthetic rows from that genome — with
inter-column correlations and referential integrity preserved.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML file (default: auto-detect replica-db.yaml)")
}

func Execute() error {
	return rootCmd.Execute()
}

// extractSchema extracts the database name from a MySQL DSN of the form
// user:pass@tcp(host:port)/dbname?params.
func extractSchema(dsn string) string {
	idx := strings.LastIndex(dsn, "/")
	if idx == -1 || idx == len(dsn)-1 {
		return ""
	}
	schema := dsn[idx+1:]
	if qIdx := strings.Index(schema, "?"); qIdx != -1 {
		schema = schema[:qIdx]
	}
	return schema
}

// ensureDSNParam appends a query parameter to the DSN if not already present.
func ensureDSNParam(dsn, param string) string {
	if strings.Contains(dsn, param) {
		return dsn
	}
	key := param
	if eq := strings.Index(param, "="); eq != -1 {
		key = param[:eq]
	}
	if strings.Contains(dsn, key+"=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + param
	}
	return dsn + "?" + param
}
