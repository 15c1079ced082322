// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/spf13/cobra"

	"github.com/chiangyiyang/line-chat-llm-tutorial/gazetteer"
	"github.com/chiangyiyang/line-chat-llm-tutorial/spatial"
	"github.com/chiangyiyang/line-chat-llm-tutorial/utils/textutils"
)

var cacheOptions = struct {
	Database   string
	JSONPath   string
	DuckDBPath string
	Threshold  float64
	Addr       string
}{}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspecciona y mantiene la base de datos de lugares",
}

// openCache loads the store named by -D or the configuration.
func openCache(cmd *cobra.Command) (*gazetteer.Store, error) {
	path := cacheOptions.Database

	if !cmd.Flags().Changed("database") {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return nil, err
		}

		path = cfg.Cache.Path
	}

	if path == "" {
		return nil, errors.New("a database path is required (-D)")
	}

	store, err := gazetteer.OpenStore(path)
	if err != nil {
		return nil, fmt.Errorf("loading database: %w", err)
	}

	return store, nil
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Muestra cuántos lugares hay en la base de datos",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openCache(cmd)
		if err != nil {
			return err
		}

		printStats(cmd.OutOrStdout(), gazetteer.ComputeStats(store))

		return nil
	},
}

func printStats(w io.Writer, st gazetteer.Stats) {
	fmt.Fprintf(w, "records:         %s\n", textutils.FormatInt(int64(st.Records)))
	fmt.Fprintf(w, "with point:      %s\n", textutils.FormatInt(int64(st.WithPoint)))
	fmt.Fprintf(w, "without point:   %s\n", textutils.FormatInt(int64(st.WithoutPoint)))
	fmt.Fprintf(w, "suggested names: %s\n", textutils.FormatInt(int64(st.DistinctNames)))
}

var cacheExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Exporta la base de datos a JSON o DuckDB",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cacheOptions.JSONPath == "" && cacheOptions.DuckDBPath == "" {
			return errors.New("at least one of --json or --duckdb is required")
		}

		store, err := openCache(cmd)
		if err != nil {
			return err
		}

		if cacheOptions.JSONPath != "" {
			if err := gazetteer.ExportToJSON(store, cacheOptions.JSONPath); err != nil {
				return fmt.Errorf("exporting to JSON: %w", err)
			}

			log.Printf("✅ Exported %d places to %s", store.Len(), cacheOptions.JSONPath)
		}

		if cacheOptions.DuckDBPath != "" {
			if err := exportDuckDB(store, cacheOptions.DuckDBPath); err != nil {
				return fmt.Errorf("exporting to DuckDB: %w", err)
			}
		}

		return nil
	},
}

func exportDuckDB(store *gazetteer.Store, path string) error {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	repo := gazetteer.NewPlaceRepository(db)
	if err := repo.CreateSchema(); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	if err := repo.ReplaceAll(store.Records()); err != nil {
		return err
	}

	n, err := repo.Count()
	if err != nil {
		return err
	}

	cells, err := repo.CountByCell(spatial.MaxH3Resolution)
	if err != nil {
		return err
	}

	log.Printf("✅ Exported %d places to %s (%d H3 cells at resolution %d)", n, path, len(cells), spatial.MaxH3Resolution)

	return nil
}

var cacheImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Agrega a la base de datos los lugares de un archivo JSON",
	Long: `Agrega los lugares de un archivo exportado con 'cache export --json'. Los
nombres que ya están en la base de datos no se modifican.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cacheOptions.JSONPath == "" {
			return errors.New("--json is required")
		}

		store, err := openCache(cmd)
		if err != nil {
			return err
		}

		n, err := gazetteer.ImportFromJSON(store, cacheOptions.JSONPath)
		if err != nil {
			return fmt.Errorf("importing %s: %w", cacheOptions.JSONPath, err)
		}

		if store.Dirty() {
			if err := store.Persist(); err != nil {
				return err
			}
		}

		log.Printf("✅ Imported %d new places into %s", n, store.Path())

		return nil
	},
}

var cacheClustersCmd = &cobra.Command{
	Use:   "clusters",
	Short: "Lista grupos de lugares con coordenadas cercanas",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cacheOptions.Threshold <= 0 {
			return errors.New("--threshold must be positive")
		}

		store, err := openCache(cmd)
		if err != nil {
			return err
		}

		clusters := gazetteer.ClusterRecords(store.Records(), cacheOptions.Threshold, false)
		printClusters(cmd.OutOrStdout(), clusters)

		return nil
	},
}

func printClusters(w io.Writer, clusters [][]*gazetteer.Record) {
	for i, cluster := range clusters {
		names := make([]string, 0, len(cluster))
		for _, r := range cluster {
			names = append(names, r.RawName)
		}

		fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, cluster[0].Point, strings.Join(names, "; "))
	}
}

var cacheServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expone la base de datos como API JSON de solo lectura (local only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openCache(cmd)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "🗺️  Serving %d places on http://%s/api/places\n", store.Len(), cacheOptions.Addr)

		return gazetteer.NewServer(store).Run(cacheOptions.Addr)
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheExportCmd)
	cacheCmd.AddCommand(cacheImportCmd)
	cacheCmd.AddCommand(cacheClustersCmd)
	cacheCmd.AddCommand(cacheServeCmd)

	cacheCmd.PersistentFlags().StringVarP(
		&cacheOptions.Database,
		"database",
		"D",
		"",
		"Archivo de la base de datos de lugares",
	)
	cacheExportCmd.Flags().StringVar(&cacheOptions.JSONPath, "json", "", "Archivo JSON de destino")
	cacheExportCmd.Flags().StringVar(&cacheOptions.DuckDBPath, "duckdb", "", "Base de datos DuckDB de destino")
	cacheImportCmd.Flags().StringVar(&cacheOptions.JSONPath, "json", "", "Archivo JSON de origen")
	cacheClustersCmd.Flags().Float64Var(&cacheOptions.Threshold, "threshold", 100, "Distancia máxima en metros")
	cacheServeCmd.Flags().StringVar(&cacheOptions.Addr, "addr", "localhost:8080", "Dirección de escucha")
}
