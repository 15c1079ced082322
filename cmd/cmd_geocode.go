// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"unicode/utf8"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/chiangyiyang/line-chat-llm-tutorial/config"
	"github.com/chiangyiyang/line-chat-llm-tutorial/dataset"
	"github.com/chiangyiyang/line-chat-llm-tutorial/gazetteer"
	"github.com/chiangyiyang/line-chat-llm-tutorial/metrics"
	"github.com/chiangyiyang/line-chat-llm-tutorial/utils/textutils"
)

type geocodeOptions struct {
	providerOptions

	Database       string
	Input          string
	Output         string
	InputDelimiter string
	Column         string
	PersistEach    bool
	MetricsFile    string
}

var geocodeOpts = &geocodeOptions{}

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Agrega nombre sugerido y coordenadas a una lista de lugares",
	Long: `Lee la columna de nombres de lugares del archivo de entrada y, para cada
nombre, reutiliza la resolución guardada en la base de datos o consulta al
proveedor. Las nuevas resoluciones se agregan a la base de datos; el archivo
de salida contiene las filas resueltas con el formato de la base de datos.

$ placecache geocode -P 台南市 -D places_db.csv -I places.csv -O places_geo.csv
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if err := geocodeOpts.apply(cmd, &cfg); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		resolver, err := newResolver(ctx, &cfg, &geocodeOpts.providerOptions)
		if err != nil {
			return err
		}

		_, err = runGeocode(ctx, cfg, geocodeOpts, resolver)

		return err
	},
}

// apply layers the geocode flags over cfg.
func (o *geocodeOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("database") {
		cfg.Cache.Path = o.Database
	}

	if flags.Changed("persist-each") {
		cfg.Cache.PersistEach = o.PersistEach
	}

	return o.providerOptions.apply(cmd, cfg)
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return ',', nil
	case `\t`, "tab":
		return '\t', nil
	}

	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || size != len(s) {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}

	return r, nil
}

// runGeocode executes one pipeline run: load the cache, resolve every input
// row, persist the cache and write the enriched output. The cache is
// persisted even when the run is interrupted so paid lookups are kept.
func runGeocode(ctx context.Context, cfg config.Config, o *geocodeOptions, resolver gazetteer.Resolver) (*gazetteer.Metrics, error) {
	switch {
	case cfg.Cache.Path == "":
		return nil, errors.New("a database path is required (-D)")
	case o.Input == "":
		return nil, errors.New("an input file is required (-I)")
	case o.Output == "":
		return nil, errors.New("an output file is required (-O)")
	}

	comma, err := parseDelimiter(o.InputDelimiter)
	if err != nil {
		return nil, err
	}

	store, err := gazetteer.OpenStore(cfg.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("loading database: %w", err)
	}

	log.Printf("📍 Loaded %s cached places from %s", textutils.FormatInt(int64(store.Len())), cfg.Cache.Path)

	names, err := dataset.ReadPlacesFile(o.Input, dataset.ReadOptions{Comma: comma, Column: o.Column})
	if err != nil {
		return nil, err
	}

	recorder := metrics.NewRecorder(nil)

	var bar *progressbar.ProgressBar
	if isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.NewOptions(len(names),
			progressbar.OptionSetDescription("Geocoding "+o.Input),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	onRow := func(out gazetteer.Outcome) {
		recorder.ObserveRow(out)

		if bar != nil {
			_ = bar.Add(1)

			return
		}

		if out.State != gazetteer.StateCacheHit && out.State != gazetteer.StateSkipped {
			log.Printf("[%d/%d] %s - %s", out.Index+1, len(names), out.RawName, out.State)
		}
	}

	pipeline := gazetteer.NewPipeline(store, metrics.InstrumentResolver(resolver, recorder), gazetteer.PipelineOptions{
		QueryPrefix: cfg.Provider.Prefix,
		PersistEach: cfg.Cache.PersistEach,
		RateLimit:   cfg.Provider.RateLimit,
		OnRow:       onRow,
	})

	records, runErr := pipeline.Run(ctx, names)

	if bar != nil {
		_ = bar.Finish()
	}

	m := &pipeline.Metrics

	// the database file is always left on disk, at least with its header
	if _, statErr := os.Stat(cfg.Cache.Path); store.Dirty() || errors.Is(statErr, os.ErrNotExist) {
		if err := store.Persist(); err != nil {
			return m, errors.Join(runErr, fmt.Errorf("saving database: %w", err))
		}
	}

	if runErr != nil {
		log.Printf("⚠️  Run interrupted after %d of %d rows, %d new places saved", m.Rows, len(names), m.Appended)
		logExternalCalls(m)

		return m, runErr
	}

	if err := dataset.WriteEnrichedFile(o.Output, records); err != nil {
		return m, fmt.Errorf("writing output: %w", err)
	}

	log.Printf(
		"✅ %d rows: %d cache hits, %d resolved, %d unresolved, %d failed, %d skipped",
		m.Rows,
		m.CacheHits,
		m.Resolved,
		m.Unresolved,
		m.Failures,
		m.Skipped,
	)
	logExternalCalls(m)

	if o.MetricsFile != "" {
		recorder.SetCacheRecords(store.Len())

		if err := recorder.WriteTextfile(o.MetricsFile); err != nil {
			return m, fmt.Errorf("writing metrics: %w", err)
		}
	}

	return m, nil
}

func logExternalCalls(m *gazetteer.Metrics) {
	log.Printf("external calls: %s", textutils.FormatInt(int64(m.ExternalCalls())))
}

func init() {
	rootCmd.AddCommand(geocodeCmd)
	addProviderFlags(geocodeCmd, &geocodeOpts.providerOptions)

	flags := geocodeCmd.Flags()
	flags.StringVarP(&geocodeOpts.Database, "database", "D", "", "Archivo de la base de datos de lugares")
	flags.StringVarP(&geocodeOpts.Input, "input", "I", "", "Archivo de entrada")
	flags.StringVarP(&geocodeOpts.Output, "output", "O", "", "Archivo de salida")
	flags.StringVar(&geocodeOpts.InputDelimiter, "input-delimiter", ",", "Separador de campos del archivo de entrada")
	flags.StringVar(&geocodeOpts.Column, "column", dataset.DefaultColumn, "Columna con los nombres de lugares")
	flags.BoolVar(&geocodeOpts.PersistEach, "persist-each", false, "Guarda la base de datos después de cada nuevo lugar")
	flags.StringVar(&geocodeOpts.MetricsFile, "metrics-file", "", "Escribe las métricas de la corrida en formato Prometheus")
}
