package cmd

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"

	"github.com/Pragadeesh-19/replica-db/internal/config"
	"github.com/Pragadeesh-19/replica-db/internal/depgraph"
	"github.com/Pragadeesh-19/replica-db/internal/ephemeral"
	"github.com/Pragadeesh-19/replica-db/internal/genome"
	"github.com/Pragadeesh-19/replica-db/internal/keystore"
	"github.com/Pragadeesh-19/replica-db/internal/planner"
	"github.com/Pragadeesh-19/replica-db/internal/sampler"
	"github.com/Pragadeesh-19/replica-db/internal/sink"
)

var (
	genGenome       string
	genOut          string
	genDSN          string
	genEphemeral    bool
	genRows         int64
	genSeed         uint64
	genBatchSize    int
	genWorkers      int
	genKeyStore     int
	genEpsMax       float64
	genFillOther    bool
	genDeferIndexes bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate synthetic rows from a genome",
	Long: `The generate command loads a genome, orders its tables so foreign-key
parents come first, and emits synthetic rows that reproduce the profiled
marginals and correlations. Output goes to tab-separated bulk-load files by
default, or straight into MySQL via LOAD DATA LOCAL INFILE with --dsn or
--ephemeral.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&genGenome, "genome", "genome.json", "Genome file to generate from")
	generateCmd.Flags().StringVar(&genOut, "out", "synthetic", "Output directory for .tsv files")
	generateCmd.Flags().StringVar(&genDSN, "dsn", "", "Load rows directly into this MySQL database instead of writing files")
	generateCmd.Flags().BoolVar(&genEphemeral, "ephemeral", false, "Start a throwaway MySQL container, create the schema, and load into it")
	generateCmd.Flags().Int64Var(&genRows, "rows", 0, "Rows per table (default: each table's profiled row count)")
	generateCmd.Flags().Uint64Var(&genSeed, "seed", 0, "Deterministic RNG seed — same seed and genome reproduce output exactly")
	generateCmd.Flags().IntVar(&genBatchSize, "batch-size", planner.DefaultBatchSize, "Rows per generation batch")
	generateCmd.Flags().IntVar(&genWorkers, "workers", 4, "Concurrent load workers (MySQL sinks)")
	generateCmd.Flags().IntVar(&genKeyStore, "keystore", keystore.DefaultCapacity, "Primary keys cached per parent table for FK draws")
	generateCmd.Flags().Float64Var(&genEpsMax, "eps-max", sampler.DefaultCholeskyEpsilonMax, "Covariance regularization ceiling")
	generateCmd.Flags().BoolVar(&genFillOther, "fill-other", false, "Synthesize filler text for truncated categorical values instead of null")
	generateCmd.Flags().BoolVar(&genDeferIndexes, "defer-indexes", false, "Drop secondary indexes during MySQL loads and restore them after")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	start := time.Now()

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	genomePath := resolveString(cmd, "genome", genGenome, "REPLICA_GENOME", cfg.Options.Genome, "genome.json")
	g, err := genome.Load(genomePath)
	if err != nil {
		return err
	}

	seed := genSeed
	if !cmd.Flags().Changed("seed") && cfg.Generate.Seed != 0 {
		seed = cfg.Generate.Seed
	}
	fillOther := genFillOther
	if !cmd.Flags().Changed("fill-other") && cfg.Generate.FillOther {
		fillOther = true
	}
	deferIndexes := genDeferIndexes
	if !cmd.Flags().Changed("defer-indexes") && cfg.Options.DeferIndexes {
		deferIndexes = true
	}

	pcfg := planner.Config{
		Genome:             g,
		Seed:               seed,
		DefaultRows:        resolveInt64(cmd, "rows", genRows, cfg.Generate.Rows, 0),
		Rows:               cfg.RowsPerTable(),
		BatchSize:          resolveInt(cmd, "batch-size", genBatchSize, cfg.Options.BatchSize, planner.DefaultBatchSize),
		KeyStoreCapacity:   resolveInt(cmd, "keystore", genKeyStore, cfg.Generate.KeyStoreCapacity, keystore.DefaultCapacity),
		CholeskyEpsilonMax: resolveFloat(cmd, "eps-max", genEpsMax, cfg.Generate.CholeskyEpsilonMax, sampler.DefaultCholeskyEpsilonMax),
		FillOther:          fillOther,
		Progress:           printProgress,
	}
	workers := resolveInt(cmd, "workers", genWorkers, cfg.Options.Workers, 4)

	dsn := resolveString(cmd, "dsn", genDSN, "REPLICA_DSN", "", "")
	out := resolveString(cmd, "out", genOut, "", cfg.Options.Out, "synthetic")

	var (
		rowSink sink.Sink
		db      *sql.DB
		edb     *ephemeral.DB
		schema  string
	)
	switch {
	case genEphemeral:
		edb, err = ephemeral.Start(cmd.Context())
		if err != nil {
			return err
		}
		dsn, schema = edb.DSN, edb.Schema
		db, err = openLoadTarget(dsn, workers)
		if err != nil {
			edb.Stop()
			return err
		}
		defer db.Close()
		if err := bootstrapSchema(edb, db, g); err != nil {
			edb.Stop()
			return err
		}
		rowSink, err = sink.NewMySQLSink(db, schema, workers, pcfg.BatchSize, deferIndexes)
		if err != nil {
			edb.Stop()
			return err
		}

	case dsn != "":
		schema = extractSchema(dsn)
		if schema == "" {
			return fmt.Errorf("could not extract database name from DSN — ensure it ends with /dbname")
		}
		db, err = openLoadTarget(dsn, workers)
		if err != nil {
			return err
		}
		defer db.Close()
		rowSink, err = sink.NewMySQLSink(db, schema, workers, pcfg.BatchSize, deferIndexes)
		if err != nil {
			return err
		}

	default:
		rowSink, err = sink.NewDirSink(out)
		if err != nil {
			return err
		}
		fmt.Printf("Writing bulk-load files to %s/\n", out)
	}

	reports, err := planner.Run(cmd.Context(), pcfg, rowSink)
	for _, r := range reports {
		switch {
		case r.Skipped:
			fmt.Printf("[%s] skipped: %s\n", r.Table, r.Reason)
		default:
			printProgressDone(r.Table, r.Generated, "rows generated")
			if r.Dropped > 0 {
				fmt.Printf("[%s] dropped %d rows (no parent key available)\n", r.Table, r.Dropped)
			}
		}
	}
	if err != nil {
		if edb != nil {
			edb.Stop()
		}
		return err
	}

	if db != nil {
		reportOrphans(db, g)
	}

	var total int64
	for _, r := range reports {
		total += r.Generated
	}
	fmt.Printf("\nDone! Generated %d rows across %d tables in %s (seed %d)\n",
		total, len(reports), time.Since(start).Round(time.Millisecond), seed)
	if edb != nil {
		fmt.Printf("Ephemeral MySQL left running — connect with: %s\n", edb.DSN)
	}
	return nil
}

func openLoadTarget(dsn string, workers int) (*sql.DB, error) {
	dsn = ensureDSNParam(dsn, "allowAllFiles=true")
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to MySQL: %w", err)
	}
	db.SetMaxOpenConns(workers + 2)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging MySQL: %w", err)
	}
	return db, nil
}

func bootstrapSchema(edb *ephemeral.DB, db *sql.DB, g *genome.Genome) error {
	cat, err := g.Catalog()
	if err != nil {
		return err
	}
	order, _, err := depgraph.Resolve(cat.Tables)
	if err != nil {
		return err
	}
	return edb.Bootstrap(db, cat, order)
}

// reportOrphans counts child rows whose FK points at no generated parent,
// as a post-load sanity check on referential integrity.
func reportOrphans(db *sql.DB, g *genome.Genome) {
	cat, err := g.Catalog()
	if err != nil {
		return
	}
	for _, t := range cat.Tables {
		for _, fk := range t.ForeignKeys {
			var conds, notNull []string
			for i, col := range fk.Columns {
				conds = append(conds, fmt.Sprintf("c.`%s` = p.`%s`", col, fk.RefColumns[i]))
				notNull = append(notNull, fmt.Sprintf("c.`%s` IS NOT NULL", col))
			}
			query := fmt.Sprintf(
				"SELECT COUNT(*) FROM `%s` c LEFT JOIN `%s` p ON %s WHERE %s AND p.`%s` IS NULL",
				t.Name, fk.RefTable, strings.Join(conds, " AND "),
				strings.Join(notNull, " AND "), fk.RefColumns[0],
			)
			var orphans int64
			if err := db.QueryRow(query).Scan(&orphans); err != nil {
				continue
			}
			if orphans > 0 {
				fmt.Printf("[%s] WARNING: %d rows reference missing %s keys\n", t.Name, orphans, fk.RefTable)
			}
		}
	}
}
