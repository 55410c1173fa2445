package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"csuassist/cmd/csu-cli/cmd/bus"
	"csuassist/cmd/csu-cli/cmd/ecard"
	"csuassist/cmd/csu-cli/cmd/jwc"
	"csuassist/cmd/csu-cli/cmd/library"
	"csuassist/cmd/csu-cli/globals"
	"csuassist/internal/campus"
	"csuassist/internal/components/configutil"
	"csuassist/internal/components/serviceutil"
	"csuassist/internal/components/telemetry"
	portallib "csuassist/internal/portals/library"
	"csuassist/internal/sso"

	"github.com/spf13/cobra"
)

type Config struct {
	StudentId        string `json:"student_id" env:"STUDENT_ID"`
	Password         string `json:"password" env:"PASSWORD"`
	LogLevel         string `json:"log_level" env:"LOG_LEVEL"`
	DumpDir          string `json:"dump_dir" env:"DUMP_DIR"`
	CasLoginUrl      string `json:"cas_login_url" env:"CAS_LOGIN_URL"`
	UserAgent        string `json:"user_agent" env:"USER_AGENT"`
	TimeoutSeconds   int    `json:"timeout_seconds" env:"TIMEOUT_SECONDS"`
	CloudflareBypass bool   `json:"cloudflare_bypass" env:"CLOUDFLARE_BYPASS"`

	JwcUrl   string               `json:"jwc_url" env:"JWC_URL"`
	EcardUrl string               `json:"ecard_url" env:"ECARD_URL"`
	BusUrl   string               `json:"bus_url" env:"BUS_URL"`
	Library  libraryUrls          `json:"library" envPrefix:"LIBRARY_"`
	Otlp     telemetry.OtlpConfig `json:"otlp" envPrefix:"OTLP_"`
}

type libraryUrls struct {
	Database string `json:"database" env:"DATABASE_URL"`
	Opac     string `json:"opac" env:"OPAC_URL"`
	Seats    string `json:"seats" env:"SEATS_URL"`
}

var (
	jsonOutput bool
	verbose    bool
	configName string
	tracing    telemetry.Tracing
)

var rootCmd = &cobra.Command{
	Use:   "csu-cli",
	Short: "csu-cli logs into the CSU portals with your credentials and prints what they know about you.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config, err := configutil.Load[Config](configName, "CSU_")
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		telemetry.InitSlog(verbose || strings.EqualFold(config.LogLevel, "debug"))

		opts := sso.Options{
			CasLoginUrl:      config.CasLoginUrl,
			UserAgent:        config.UserAgent,
			Timeout:          time.Duration(config.TimeoutSeconds) * time.Second,
			CloudflareBypass: config.CloudflareBypass,
		}
		if config.DumpDir != "" {
			output, err := telemetry.NewFilesystemOutput(config.DumpDir)
			if err != nil {
				serviceutil.Fatal("failed to create dump directory", err)
			}
			opts.Output = output
		}

		tracing, err = telemetry.SetupTracing(cmd.Context(), "csu-cli", config.Otlp)
		if err != nil {
			serviceutil.Fatal("failed to setup tracing", err)
		}

		service := campus.NewService(campus.Options{
			Sso:      opts,
			JwcUrl:   config.JwcUrl,
			EcardUrl: config.EcardUrl,
			BusUrl:   config.BusUrl,
			Library:  portallib.Endpoints(config.Library),
		}, telemetry.SlogAPI{})

		cmd.SetContext(globals.Set(cmd.Context(), &globals.Value{
			Service:   service,
			StudentId: config.StudentId,
			Password:  config.Password,
			Json:      jsonOutput,
		}))
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := tracing.Shutdown(ctx)
		if err != nil {
			slog.Warn("failed to flush traces", "err", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as json instead of tables.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output.")
	rootCmd.PersistentFlags().StringVar(&configName, "config", "csu.json5", "Name of the config file, it is searched for from the working directory upwards.")

	rootCmd.AddCommand(jwc.RootCmd)
	rootCmd.AddCommand(ecard.RootCmd)
	rootCmd.AddCommand(library.RootCmd)
	rootCmd.AddCommand(bus.RootCmd)
}

func Execute() {
	ctx := serviceutil.SignalContext(context.Background())
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
