package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"sigs.k8s.io/yaml"

	"kv-shepherd.io/vmwizard/internal/pkg/logger"
)

const (
	outputFlag, outputFlagShort = "output", "o"
	logLevelFlag                = "log-level"
)

const (
	outputTable = "table"
	outputYAML  = "yaml"
	outputJSON  = "json"
)

type rootOptions struct {
	Output   string
	LogLevel string
	out      io.Writer
}

func (o *rootOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.Output, outputFlag, outputFlagShort, outputTable, "output format: table, yaml or json")
	fs.StringVar(&o.LogLevel, logLevelFlag, "error", "log level written to stderr")
}

func (o *rootOptions) Validate() error {
	switch o.Output {
	case outputTable, outputYAML, outputJSON:
		return nil
	}
	return fmt.Errorf("unsupported output: %s", o.Output)
}

// print writes v as YAML or JSON, or hands the table to render.
func (o *rootOptions) print(v any, render func(*uitable.Table)) error {
	switch o.Output {
	case outputYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = o.out.Write(data)
		return err
	case outputJSON:
		enc := json.NewEncoder(o.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	table := uitable.New()
	table.MaxColWidth = 60
	table.Wrap = true
	render(table)
	_, err := fmt.Fprintln(o.out, table)
	return err
}

func newRootCommand(out io.Writer) *cobra.Command {
	opts := &rootOptions{out: out}

	cmd := &cobra.Command{
		Use:           "diskctl",
		Short:         "Classify and reconcile KubeVirt VM storage offline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if err := opts.Validate(); err != nil {
				return err
			}
			return logger.Init(opts.LogLevel, "console")
		},
	}
	cmd.SetOut(out)
	opts.AddFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newClassifyCommand(opts),
		newDisksCommand(opts),
	)
	return cmd
}
