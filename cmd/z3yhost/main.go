// Command z3yhost is a minimal demo host process: it scans a directory for
// dynamic libraries, loads whichever ones it recognises, and lets an
// operator inspect the resulting component graph from the command line or
// (optionally) a read-only HTTP endpoint.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/z3y-go/z3y/lib/z3y"
	"github.com/z3y-go/z3y/lib/z3y/httpapi"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var configPath string
	var logLevel string

	root := &cobra.Command{
		Use:           "z3yhost",
		Short:         "Load and inspect z3y components from a plugin directory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a z3yhost.toml config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug|info|warn|error")

	loadConfig := func() (z3y.Config, error) {
		if configPath == "" {
			return z3y.DefaultConfig(), nil
		}
		return z3y.LoadConfig(configPath)
	}

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan configured plugin directories and report what loaded",
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := zerolog.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			z3y.InitLogger(level)

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			m := z3y.NewManagerWithPoll(cfg.WorkerPoll)
			defer m.Shutdown()

			for _, dir := range cfg.PluginDirs {
				if err := m.Loader().Scan(dir, cfg.ScanRecursively); err != nil {
					return fmt.Errorf("scan %s: %w", dir, err)
				}
			}
			for _, d := range m.Registry().GetAllComponents() {
				fmt.Printf("%#x  alias=%-20s singleton=%-5t source=%s\n", uint64(d.ClassID), d.Alias, d.IsSingleton, d.SourceLibraryPath)
			}
			return nil
		},
	}

	loadCmd := &cobra.Command{
		Use:   "load <path>",
		Short: "Load a single dynamic library and report what it registered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := zerolog.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			z3y.InitLogger(level)

			m := z3y.NewManager()
			defer m.Shutdown()

			path := args[0]
			if err := m.Loader().Load(path); err != nil {
				return fmt.Errorf("load %s: %w", path, err)
			}
			for _, d := range m.Registry().GetComponentsFromLibrary(path) {
				fmt.Printf("%#x  alias=%-20s singleton=%-5t\n", uint64(d.ClassID), d.Alias, d.IsSingleton)
			}
			return nil
		},
	}

	var componentsJSON bool
	var componentsLibrary string
	componentsCmd := &cobra.Command{
		Use:   "components",
		Short: "Scan configured plugin directories and list every registered component",
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := zerolog.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			z3y.InitLogger(level)

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			m := z3y.NewManagerWithPoll(cfg.WorkerPoll)
			defer m.Shutdown()

			for _, dir := range cfg.PluginDirs {
				if err := m.Loader().Scan(dir, cfg.ScanRecursively); err != nil {
					return fmt.Errorf("scan %s: %w", dir, err)
				}
			}

			var details []z3y.ComponentDetails
			if componentsLibrary != "" {
				details = m.Registry().GetComponentsFromLibrary(componentsLibrary)
			} else {
				details = m.Registry().GetAllComponents()
			}

			if componentsJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(details)
			}
			for _, d := range details {
				fmt.Printf("%#x  alias=%-20s singleton=%-5t source=%s\n", uint64(d.ClassID), d.Alias, d.IsSingleton, d.SourceLibraryPath)
			}
			return nil
		},
	}
	componentsCmd.Flags().BoolVar(&componentsJSON, "json", false, "print component details as JSON instead of a table")
	componentsCmd.Flags().StringVar(&componentsLibrary, "library", "", "only show components sourced from this library path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Scan configured plugin directories, then serve the introspection HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := zerolog.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			z3y.InitLogger(level)

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			shutdownTracing, err := z3y.SetupTracing(context.Background(), "z3yhost")
			if err != nil {
				return err
			}
			defer shutdownTracing(context.Background())

			m := z3y.NewManagerWithPoll(cfg.WorkerPoll)
			defer m.Shutdown()

			for _, dir := range cfg.PluginDirs {
				if err := m.Loader().Scan(dir, cfg.ScanRecursively); err != nil {
					return fmt.Errorf("scan %s: %w", dir, err)
				}
			}

			if !cfg.HTTPEnabled {
				fmt.Println("http_enabled is false in config; nothing to serve")
				return nil
			}

			srv := &http.Server{
				Addr:              cfg.HTTPAddr,
				Handler:           httpapi.NewRouter(m, nil),
				ReadHeaderTimeout: 5 * time.Second,
			}
			fmt.Println("listening on", cfg.HTTPAddr)
			return srv.ListenAndServe()
		},
	}

	root.AddCommand(scanCmd, loadCmd, componentsCmd, serveCmd)
	return root
}
