// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chiangyiyang/line-chat-llm-tutorial/dataset"
	"github.com/chiangyiyang/line-chat-llm-tutorial/gazetteer"
)

type placesOptions struct {
	Input          string
	Output         string
	InputDelimiter string
	Column         string
	Separator      string
}

var placesOpts = &placesOptions{}

var placesCmd = &cobra.Command{
	Use:   "places",
	Short: "Extrae la lista de lugares únicos de un archivo de eventos",
	Long: `Lee una columna que contiene lugares separados por ';' y escribe un archivo
con una columna 地名, sin repetidos y ordenado, listo para 'placecache geocode'.
Sin -O escribe en stdout.
`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runPlaces(placesOpts, os.Stdout)
	},
}

func runPlaces(o *placesOptions, stdout io.Writer) error {
	if o.Input == "" {
		return errors.New("an input file is required (-I)")
	}

	comma, err := parseDelimiter(o.InputDelimiter)
	if err != nil {
		return err
	}

	f, err := os.Open(filepath.Clean(o.Input))
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()

	places, err := dataset.ExtractPlaces(f, dataset.ExtractOptions{
		ReadOptions: dataset.ReadOptions{Comma: comma, Column: o.Column},
		Separator:   o.Separator,
	})
	if err != nil {
		return fmt.Errorf("reading %s: %w", o.Input, err)
	}

	if o.Output == "" {
		return dataset.WritePlaces(stdout, places)
	}

	err = gazetteer.WriteFileAtomic(o.Output, func(w io.Writer) error {
		return dataset.WritePlaces(w, places)
	})
	if err != nil {
		return err
	}

	log.Printf("✅ %d distinct places written to %s", len(places), o.Output)

	return nil
}

func init() {
	rootCmd.AddCommand(placesCmd)

	flags := placesCmd.Flags()
	flags.StringVarP(&placesOpts.Input, "input", "I", "", "Archivo de eventos")
	flags.StringVarP(&placesOpts.Output, "output", "O", "", "Archivo de salida")
	flags.StringVar(&placesOpts.InputDelimiter, "input-delimiter", ",", "Separador de campos del archivo de entrada")
	flags.StringVar(&placesOpts.Column, "column", dataset.DefaultPlacesColumn, "Columna con la lista de lugares")
	flags.StringVar(&placesOpts.Separator, "separator", ";", "Separador de lugares dentro de la columna")
}
