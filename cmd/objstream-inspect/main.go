// Command objstream-inspect decodes an object-stream file and prints each
// record, the way marmos91/dittofs's and progressdb-ProgressDB's cmd/
// binaries wire a thin cobra command over their respective libraries.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/retracesoftware/objectstream"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	pid     uint32
	follow  bool
)

func main() {
	root := &cobra.Command{
		Use:   "objstream-inspect [file]",
		Short: "Decode and print records from an objectstream file",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	root.Flags().Uint32Var(&pid, "pid", 0, "only show records from this writer pid (0 = first pid seen)")
	root.Flags().BoolVar(&follow, "follow", false, "keep reading as the file grows")
	viper.BindPFlag("pid", root.Flags().Lookup("pid"))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runInspect(cmd *cobra.Command, args []string) error {
	_, err := objectstream.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	r := objectstream.NewReader(f, objectstream.WithMakeDropped(func(n uint64) objectstream.Value {
		return objectstream.Dropped{Count: n}
	}))

	for {
		v, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		fmt.Printf("%#v\n", v)
	}
}
