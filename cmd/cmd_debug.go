// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/chiangyiyang/line-chat-llm-tutorial/gazetteer"
)

var debugOpts = &providerOptions{}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

var debugResolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Consulta al proveedor sin usar la base de datos",
	Long: `Lee un nombre por línea, e imprime en stdout el nombre seguido de la
sugerencia del proveedor y sus coordenadas. No lee ni modifica la base de datos.

$ echo 北門 | placecache debug resolve -P 台南市
北門	台灣台南市北區北門路	POINT(120.2046 23.0006)
	`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if err := debugOpts.apply(cmd, &cfg); err != nil {
			return err
		}

		resolver, err := newResolver(cmd.Context(), &cfg, debugOpts)
		if err != nil {
			return err
		}

		input := os.Stdin
		if isatty.IsTerminal(input.Fd()) {
			fmt.Fprintln(os.Stderr, "Ingrese nombres de lugares a resolver, uno por línea…")
		}

		return debugResolve(cmd.Context(), resolver, cfg.Provider.Prefix, input, cmd.OutOrStdout())
	},
}

func debugResolve(ctx context.Context, resolver gazetteer.Resolver, prefix string, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}

		suggested, ok, err := resolver.Suggest(ctx, gazetteer.QueryKey(prefix, name))
		if err != nil {
			fmt.Fprintf(out, "%s\t%q\n", name, err)

			continue
		}

		if !ok {
			fmt.Fprintf(out, "%s\t-\n", name)

			continue
		}

		point, ok, err := resolver.Geocode(ctx, suggested)

		switch {
		case err != nil:
			fmt.Fprintf(out, "%s\t%s\t%q\n", name, suggested, err)
		case !ok:
			fmt.Fprintf(out, "%s\t%s\t-\n", name, suggested)
		default:
			fmt.Fprintf(out, "%s\t%s\t%s\n", name, suggested, point)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	return nil
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugResolveCmd)
	addProviderFlags(debugResolveCmd, debugOpts)
}
