package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wishr/metaext/internal/config"
	"github.com/wishr/metaext/internal/server"
	"github.com/wishr/metaext/pkg/extractor"
)

// Exit codes for granular error handling
const (
	ExitSuccess      = 0
	ExitInvalidInput = 1
	ExitConfigError  = 2
	ExitServerError  = 3
)

const version = "1.0.0"

var (
	cfgFile     string
	userAgent   string
	concurrency int
	timeout     int
	verbose     bool
	quiet       bool
	file        string
)

var rootCmd = &cobra.Command{
	Use:   "metaext [urls...]",
	Short: "Extract product metadata from merchant URLs",
	Long: `metaext resolves title, description, and image for product URLs,
using per-merchant extraction profiles with a generic Open Graph
cascade as fallback. Results are printed as JSON, one object per URL.`,
	Version:       version,
	RunE:          run,
	SilenceErrors: true,
	SilenceUsage:  true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the extraction HTTP service",
	RunE:  runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if ee, ok := err.(*exitErr); ok {
			fmt.Fprintln(os.Stderr, ee.msg)
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitInvalidInput)
	}
}

type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

func exitError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./metaext.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all non-result output")

	rootCmd.Flags().StringVarP(&file, "file", "f", "", "read URLs from file (one per line)")
	rootCmd.Flags().StringVar(&userAgent, "user-agent", "", "forward a fixed client user agent")
	rootCmd.Flags().IntVarP(&concurrency, "concurrency", "c", 3, "max URLs extracted concurrently")
	rootCmd.Flags().IntVar(&timeout, "timeout", 0, "per-URL timeout in seconds (0 = config default)")

	serveCmd.Flags().String("addr", "", "listen address (overrides config)")

	rootCmd.AddCommand(serveCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/metaext")
		viper.SetConfigType("toml")
		viper.SetConfigName("metaext")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("METAEXT")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && verbose && !quiet {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
		}
	} else if verbose && !quiet {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	if verbose {
		level = logrus.DebugLevel
	}
	if quiet {
		level = logrus.ErrorLevel
	}
	log.SetLevel(level)
	return log
}

func loadConfig() (*config.Config, error) {
	if viper.ConfigFileUsed() != "" {
		return config.Load(viper.ConfigFileUsed())
	}
	return config.Default(), nil
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return exitError(ExitConfigError, "failed to load config: %v", err)
	}
	if timeout > 0 {
		cfg.Network.Timeout = timeout
	}
	log := newLogger(cfg)

	urls, err := collectURLs(args)
	if err != nil {
		return exitError(ExitInvalidInput, "failed to collect URLs: %v", err)
	}
	if len(urls) == 0 {
		return exitError(ExitInvalidInput, "no URLs provided")
	}

	ext := extractor.New(cfg, log)
	opts := extractor.Options{ClientUserAgent: userAgent}
	perURL := time.Duration(cfg.Network.Timeout) * time.Second * 3

	if concurrency < 1 {
		concurrency = 1
	}
	type outcome struct {
		idx    int
		result extractor.Result
	}
	results := make([]extractor.Result, len(urls))
	jobs := make(chan int)
	done := make(chan outcome)

	for w := 0; w < concurrency; w++ {
		go func() {
			for idx := range jobs {
				ctx, cancel := context.WithTimeout(context.Background(), perURL)
				res := ext.Extract(ctx, urls[idx], opts)
				cancel()
				done <- outcome{idx: idx, result: res}
			}
		}()
	}
	go func() {
		for i := range urls {
			jobs <- i
		}
		close(jobs)
	}()
	for range urls {
		o := <-done
		results[o.idx] = o.result
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, res := range results {
		if err := enc.Encode(res); err != nil {
			return exitError(ExitInvalidInput, "failed to encode result: %v", err)
		}
	}
	return nil
}

// collectURLs gathers URLs from args, --file, and piped stdin, in that
// order, dropping duplicates.
func collectURLs(args []string) ([]string, error) {
	var urls []string
	seen := make(map[string]bool)
	add := func(raw string) {
		if raw != "" && !seen[raw] {
			seen[raw] = true
			urls = append(urls, raw)
		}
	}

	for _, arg := range args {
		add(arg)
	}

	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			add(trimmedLine(scanner.Text()))
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if stat, err := os.Stdin.Stat(); err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			add(trimmedLine(scanner.Text()))
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}
	return urls, nil
}

func trimmedLine(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		return ""
	}
	return s
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return exitError(ExitConfigError, "failed to load config: %v", err)
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	log := newLogger(cfg)

	ext := extractor.New(cfg, log)
	router := server.NewRouter(cfg, server.NewHandler(ext, log))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("metaext service listening")
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return exitError(ExitServerError, "server failed: %v", err)
		}
	case sig := <-stop:
		log.WithField("signal", sig.String()).Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return exitError(ExitServerError, "shutdown failed: %v", err)
		}
	}
	return nil
}
