package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nedomru/URMconfig/pkg/catalog"
	"github.com/nedomru/URMconfig/pkg/execx"
	"github.com/nedomru/URMconfig/pkg/iperf"
	"github.com/nedomru/URMconfig/pkg/probe"
	"github.com/nedomru/URMconfig/pkg/provision"
	"github.com/nedomru/URMconfig/pkg/speedtest"
)

var (
	debugFlag bool
	logger    *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "urmconfig",
	Short: "Network quality diagnostics",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Set up logging based on the debug flag
		var logLevel slog.Level
		if debugFlag {
			logLevel = slog.LevelDebug
		} else {
			logLevel = slog.LevelInfo
		}

		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
		slog.SetDefault(logger)
	},
}

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "Rank measurement servers by latency",
	Run: func(cmd *cobra.Command, args []string) {
		ranked := newProber().Rank(cmd.Context(), catalog.All())
		if len(ranked) == 0 {
			color.Red("✗ no measurement server answered the latency probe")
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		for i, r := range ranked {
			fmt.Printf("%s %2d. %s (%s): %.0f ms\n", green("✓"), i+1, r.Endpoint.Name, r.Endpoint.Host, r.LatencyMS)
		}
	},
}

var speedtestCmd = &cobra.Command{
	Use:   "speedtest",
	Short: "Measure download and upload throughput against the nearest server",
	Run: func(cmd *cobra.Command, args []string) {
		duration, _ := cmd.Flags().GetInt("duration")
		if duration <= 0 {
			duration = viper.GetInt("speedtest.duration")
		}

		root := viper.GetString("tool.dir")
		if root == "" {
			var err error
			root, err = provision.DefaultRoot()
			if err != nil {
				logger.Error("Error resolving tool directory", "error", err)
				os.Exit(1)
			}
		}

		runner := execx.ExecRunner{}
		manager := provision.NewManager(viper.GetString("tool.url"), root, runner, logger)
		service := speedtest.New(
			catalog.All(),
			newProber(),
			manager,
			func(exePath string) speedtest.Benchmarker {
				return iperf.NewClient(exePath, manager.ToolDir(), runner, logger)
			},
			logger,
			speedtest.Options{MaxCandidates: viper.GetInt("speedtest.max_candidates")},
		)

		outcome, err := service.Run(cmd.Context(), time.Duration(duration)*time.Second)
		if err != nil {
			color.Red("✗ %v", err)
			os.Exit(1)
		}

		color.Green("✓ %s", outcome.ServerName)
		fmt.Printf("  Download: %.2f Mbps\n", outcome.DownloadMbps)
		fmt.Printf("  Upload:   %.2f Mbps\n", outcome.UploadMbps)
		fmt.Printf("  Latency:  %.0f ms\n", outcome.LatencyMS)
		if outcome.Note != "" {
			color.Yellow("  Note: %s", outcome.Note)
		}
	},
}

func newProber() *probe.Prober {
	return probe.New(execx.ExecRunner{}, logger, probe.Options{
		Count:       viper.GetInt("probe.count"),
		Timeout:     viper.GetDuration("probe.timeout"),
		Concurrency: viper.GetInt("probe.concurrency"),
	})
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false, "Enable debug logging")
	speedtestCmd.Flags().Int("duration", 0, "Benchmark pass duration in seconds (default from config)")

	rootCmd.AddCommand(serversCmd)
	rootCmd.AddCommand(speedtestCmd)
}

func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.urmconfig")

	viper.SetDefault("speedtest.duration", 20)
	viper.SetDefault("speedtest.max_candidates", 5)
	viper.SetDefault("probe.count", 3)
	viper.SetDefault("probe.timeout", "5s")
	viper.SetDefault("probe.concurrency", 15)
	viper.SetDefault("tool.url", provision.DefaultBundleURL)
	viper.SetDefault("tool.dir", "")

	// The tool must run with zero setup; a config file only overrides.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Printf("Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
