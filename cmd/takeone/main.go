package main

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ivlev/takeone/internal/config"
	"github.com/ivlev/takeone/internal/engine"
	"github.com/ivlev/takeone/internal/logging"
	"github.com/ivlev/takeone/internal/styles"
	"github.com/ivlev/takeone/internal/system"
)

var (
	cfgFile string
	verbose bool
	cfg     config.Config
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "takeone",
	Short:         "takeone - branded presentation segments from uploads",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		logging.Init(verbose || cfg.Verbose, cfg.Production())
		if err != nil {
			log.Error().Err(err).Msg("config")
			return err
		}
		system.InitResourceLimits(log.Logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(serveCmd, renderCmd, concatCmd, trimCmd)
}

func newEngine() (*engine.Engine, error) {
	tbl := styles.Default()
	if cfg.Styles != "" {
		var err error
		if tbl, err = styles.LoadOverrides(cfg.Styles, tbl); err != nil {
			return nil, err
		}
	}
	return engine.New(cfg, tbl, log.Logger)
}

// deliver copies a result out of its scratch directory and releases it.
// An empty dst keeps the result's own file name in the working directory.
func deliver(res *engine.Result, dst string) (string, error) {
	defer res.Release()
	if dst == "" {
		dst = res.Filename
	}
	if dir := filepath.Dir(dst); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", errors.WithStack(err)
		}
	}

	in, err := os.Open(res.Path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return "", errors.WithStack(err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", errors.Wrapf(err, "copy to %s", dst)
	}
	return dst, errors.WithStack(out.Close())
}

func fail(err error) error {
	log.Error().Err(err).Msg("failed")
	return err
}
