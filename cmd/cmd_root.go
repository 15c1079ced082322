// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chiangyiyang/line-chat-llm-tutorial/config"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})
}

var rootCmd = &cobra.Command{
	Use:   "placecache",
	Short: "Geocodificación de nombres de lugares con caché",
	Long: `
placecache resuelve nombres de lugares a un nombre canónico y coordenadas,
recordando cada resolución en un archivo de caché para no volver a consultar
al proveedor por el mismo nombre.
`,
	SilenceUsage: true,
}

var (
	Version    = "dev"
	configFile string
)

func Execute(version string) {
	Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig reads defaults, the --config file and PLACECACHE_ variables.
// Command flags are applied on top by each command.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	return config.NewLoader(config.EnvPrefix, configFile).Load(cmd.Context())
}

func userAgent(cfg *config.Config) string {
	if cfg.Provider.UserAgent != "" {
		return cfg.Provider.UserAgent
	}

	return fmt.Sprintf("placecache/%s (+https://github.com/chiangyiyang/line-chat-llm-tutorial)", Version)
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&configFile,
		"config",
		"",
		"Archivo YAML de configuración",
	)
}
