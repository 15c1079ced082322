// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/chiangyiyang/line-chat-llm-tutorial/config"
	"github.com/chiangyiyang/line-chat-llm-tutorial/gazetteer"
)

// providerOptions are the flags shared by the commands that talk to a
// provider. They override the loaded configuration only when set.
type providerOptions struct {
	Provider      string
	Key           string
	Prefix        string
	Language      string
	Region        string
	BaseURL       string
	RateLimit     float64
	Timeout       time.Duration
	TraceHTTP     bool
	TraceHTTPBody bool
}

func addProviderFlags(cmd *cobra.Command, o *providerOptions) {
	flags := cmd.Flags()
	flags.StringVar(&o.Provider, "provider", gazetteer.ProviderGoogle, "Proveedor de geocodificación (google, nominatim)")
	flags.StringVarP(&o.Key, "key", "K", "", "Clave de la API de Google Maps")
	flags.StringVarP(&o.Prefix, "prefix", "P", "", "Prefijo agregado a cada nombre antes de consultar")
	flags.StringVar(&o.Language, "language", "zh-TW", "Idioma de los nombres sugeridos")
	flags.StringVar(&o.Region, "region", "tw", "Código de país que sesga los resultados")
	flags.StringVar(&o.BaseURL, "base-url", "", "URL base alternativa del proveedor")
	flags.Float64Var(&o.RateLimit, "rate-limit", 0, "Máximo de llamadas por segundo al proveedor, 0 sin límite")
	flags.DurationVar(&o.Timeout, "timeout", 10*time.Second, "Tiempo máximo de cada llamada HTTP")
	flags.BoolVar(&o.TraceHTTP, "trace-http", false, "Display HTTP requests-responses")
	flags.BoolVar(&o.TraceHTTPBody, "trace-http-body", false, "Display HTTP requests-responses bodies")
}

// apply copies the flags the user set into cfg and validates the result.
func (o *providerOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("provider") {
		cfg.Provider.Name = strings.ToLower(strings.TrimSpace(o.Provider))
	}

	if flags.Changed("key") {
		cfg.Provider.APIKey = o.Key
	}

	if flags.Changed("prefix") {
		cfg.Provider.Prefix = o.Prefix
	}

	if flags.Changed("language") {
		cfg.Provider.Language = o.Language
	}

	if flags.Changed("region") {
		cfg.Provider.Region = o.Region
	}

	if flags.Changed("base-url") {
		cfg.Provider.BaseURL = o.BaseURL
	}

	if flags.Changed("rate-limit") {
		cfg.Provider.RateLimit = o.RateLimit
	}

	if flags.Changed("timeout") {
		cfg.Provider.Timeout = o.Timeout
	}

	return cfg.Validate()
}

// newResolver builds the configured resolver. Google keys are taken from
// the configuration, then GOOGLE_MAPS_API_KEY, then looked up with
// Application Default Credentials.
func newResolver(ctx context.Context, cfg *config.Config, o *providerOptions) (gazetteer.Resolver, error) {
	opts := cfg.ResolverOptions()
	opts.UserAgent = userAgent(cfg)

	if o.TraceHTTP || o.TraceHTTPBody {
		opts.TraceWriter = os.Stderr
		opts.TraceBody = o.TraceHTTPBody
	}

	if cfg.Provider.Name == gazetteer.ProviderGoogle && opts.APIKey == "" {
		opts.APIKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	}

	if cfg.Provider.Name == gazetteer.ProviderGoogle && opts.APIKey == "" {
		key, err := gazetteer.APIKeyFromADC(ctx, cfg.Provider.KeyDisplayName, cfg.Provider.Project)
		if err != nil {
			log.Printf("Failed to retrieve API key via ADC: %v", err)
		} else {
			log.Println("✅ Successfully retrieved Google Maps API Key via ADC")

			opts.APIKey = key
		}
	}

	return gazetteer.NewResolver(cfg.Provider.Name, opts)
}
