package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/Pragadeesh-19/replica-db/internal/catalog"
	"github.com/Pragadeesh-19/replica-db/internal/config"
	"github.com/Pragadeesh-19/replica-db/internal/genome"
	"github.com/Pragadeesh-19/replica-db/internal/introspect"
	"github.com/Pragadeesh-19/replica-db/internal/profile"
	"github.com/Pragadeesh-19/replica-db/internal/randsrc"
	"github.com/Pragadeesh-19/replica-db/internal/source"
)

var (
	profileDSN       string
	profileSQLite    string
	profileOut       string
	profileTables    []string
	profileBins      int
	profileTopK      int
	profileReservoir int
	profileMinRows   int
	profileWorkers   int
	profileSeed      uint64
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Scan a database and write its statistical genome",
	Long: `The profile command streams every table of the source database through
bounded-memory column profilers and a covariance builder, then writes the
resulting genome file. No source row is retained: the genome holds only
histograms, frequency tables, moments, correlation structure, and the
foreign-key graph.`,
	RunE: runProfile,
}

func init() {
	profileCmd.Flags().StringVar(&profileDSN, "dsn", "", "MySQL DSN, e.g. user:pass@tcp(localhost:3306)/mydb")
	profileCmd.Flags().StringVar(&profileSQLite, "sqlite", "", "Path to a SQLite database file (alternative to --dsn)")
	profileCmd.Flags().StringVar(&profileOut, "out", "genome.json", "Output genome file")
	profileCmd.Flags().StringSliceVar(&profileTables, "table", nil, "Table(s) to profile (repeatable). If omitted, profiles all tables")
	profileCmd.Flags().IntVar(&profileBins, "bins", profile.DefaultHistogramBins, "Histogram bins per numeric column")
	profileCmd.Flags().IntVar(&profileTopK, "top-k", profile.DefaultCategoricalTopK, "Distinct values kept per categorical column")
	profileCmd.Flags().IntVar(&profileReservoir, "reservoir", profile.DefaultReservoirSize, "Reservoir sample size per numeric column")
	profileCmd.Flags().IntVar(&profileMinRows, "min-rows", profile.DefaultCovarianceMinRows, "Minimum complete-case rows before correlations are trusted")
	profileCmd.Flags().IntVar(&profileWorkers, "workers", 4, "Tables profiled concurrently")
	profileCmd.Flags().Uint64Var(&profileSeed, "seed", 0, "Seed for reservoir sampling")

	rootCmd.AddCommand(profileCmd)
}

func runProfile(cmd *cobra.Command, args []string) error {
	start := time.Now()

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	dsn := resolveString(cmd, "dsn", profileDSN, "REPLICA_DSN", cfg.Options.DSN, "")
	sqlitePath := resolveString(cmd, "sqlite", profileSQLite, "REPLICA_SQLITE", cfg.Options.SQLite, "")
	out := resolveString(cmd, "out", profileOut, "", cfg.Options.Genome, "genome.json")
	opts := profile.Options{
		HistogramBins:     resolveInt(cmd, "bins", profileBins, cfg.Profile.HistogramBins, profile.DefaultHistogramBins),
		CategoricalTopK:   resolveInt(cmd, "top-k", profileTopK, cfg.Profile.CategoricalTopK, profile.DefaultCategoricalTopK),
		ReservoirSize:     resolveInt(cmd, "reservoir", profileReservoir, cfg.Profile.ReservoirSize, profile.DefaultReservoirSize),
		CovarianceMinRows: resolveInt(cmd, "min-rows", profileMinRows, cfg.Profile.CovarianceMinRows, profile.DefaultCovarianceMinRows),
	}
	workers := resolveInt(cmd, "workers", profileWorkers, cfg.Options.Workers, 4)
	tables := profileTables
	if len(tables) == 0 {
		tables = cfg.Options.Tables
	}

	db, cat, label, err := openSource(dsn, sqlitePath, workers)
	if err != nil {
		return err
	}
	defer db.Close()
	fmt.Printf("Connected to %s\n", label)

	if len(tables) > 0 {
		cat, err = subsetCatalog(cat, tables)
		if err != nil {
			return err
		}
	}
	fmt.Printf("Profiling %d tables (%d workers):\n", len(cat.Tables), workers)

	g, err := profileAll(cmd.Context(), db, cat, opts, profileSeed, workers)
	if err != nil {
		return err
	}

	if err := g.Save(out); err != nil {
		return err
	}

	var total int64
	for _, t := range g.Tables {
		total += t.RowCount
	}
	fmt.Printf("\nDone! Profiled %d rows across %d tables in %s — genome written to %s\n",
		total, len(g.Tables), time.Since(start).Round(time.Millisecond), out)
	return nil
}

// openSource connects to whichever backend was configured and introspects
// its schema.
func openSource(dsn, sqlitePath string, workers int) (*sql.DB, *catalog.Catalog, string, error) {
	switch {
	case sqlitePath != "":
		db, err := sql.Open("sqlite", sqlitePath)
		if err != nil {
			return nil, nil, "", fmt.Errorf("opening SQLite database: %w", err)
		}
		cat, err := introspect.SQLite(db)
		if err != nil {
			db.Close()
			return nil, nil, "", err
		}
		return db, cat, sqlitePath, nil

	case dsn != "":
		schema := extractSchema(dsn)
		if schema == "" {
			return nil, nil, "", fmt.Errorf("could not extract database name from DSN — ensure it ends with /dbname")
		}
		db, err := sql.Open("mysql", ensureDSNParam(dsn, "parseTime=true"))
		if err != nil {
			return nil, nil, "", fmt.Errorf("connecting to MySQL: %w", err)
		}
		db.SetMaxOpenConns(workers + 2)
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, nil, "", fmt.Errorf("pinging MySQL: %w", err)
		}
		cat, err := introspect.MySQL(db, schema)
		if err != nil {
			db.Close()
			return nil, nil, "", err
		}
		return db, cat, schema, nil

	default:
		return nil, nil, "", fmt.Errorf("a source is required — set --dsn (or REPLICA_DSN) for MySQL, or --sqlite for SQLite")
	}
}

// subsetCatalog keeps the requested tables, auto-including any FK parents so
// the edge set stays closed.
func subsetCatalog(cat *catalog.Catalog, names []string) (*catalog.Catalog, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if cat.Table(n) == nil {
			return nil, fmt.Errorf("table %q not found", n)
		}
		want[n] = true
	}

	var autoIncluded []string
	changed := true
	for changed {
		changed = false
		for name := range want {
			for _, fk := range cat.Table(name).ForeignKeys {
				if !want[fk.RefTable] {
					want[fk.RefTable] = true
					autoIncluded = append(autoIncluded, fk.RefTable)
					changed = true
				}
			}
		}
	}
	if len(autoIncluded) > 0 {
		fmt.Printf("Auto-included parent tables: %v\n", autoIncluded)
	}

	sub := &catalog.Catalog{}
	for _, t := range cat.Tables {
		if want[t.Name] {
			sub.Tables = append(sub.Tables, t)
		}
	}
	return sub, nil
}

// profileAll profiles tables concurrently; each worker owns one table's
// accumulators outright.
func profileAll(ctx context.Context, db *sql.DB, cat *catalog.Catalog, opts profile.Options, seed uint64, workers int) (*genome.Genome, error) {
	src := source.NewDBSource(db)
	root := randsrc.New(seed)

	g := genome.New()
	var mu sync.Mutex

	work := make(chan *catalog.Table)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 1)
	var errOnce sync.Once

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range work {
				gt, err := profileTable(ctx, src, t, opts, root)
				if err != nil {
					errOnce.Do(func() {
						errCh <- err
						cancel()
					})
					return
				}
				mu.Lock()
				g.Tables[t.Name] = gt
				mu.Unlock()
				fmt.Printf("  %-30s %10d rows\n", t.Name, gt.RowCount)
			}
		}()
	}

	for _, t := range cat.Tables {
		select {
		case work <- t:
		case <-ctx.Done():
		}
	}
	close(work)
	wg.Wait()

	select {
	case err := <-errCh:
		return nil, err
	default:
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g, nil
}

func profileTable(ctx context.Context, src source.Source, t *catalog.Table, opts profile.Options, root randsrc.Root) (*genome.Table, error) {
	reader, err := src.Table(t)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	tp := profile.NewTableProfiler(t, opts, root.Stream("profile", t.Name))
	var n int64
	for {
		if n%1024 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := tp.Observe(row); err != nil {
			return nil, err
		}
		n++
	}
	return tp.Finalize(), nil
}
