package main

import (
	"os"
	"path/filepath"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/seqsense/pcgol/pc"
	"github.com/spf13/cobra"

	"sensorview/pkg/pcd"
)

var cfg struct {
	in         string
	out        string
	compressed bool
}

var logger = golog.NewLogger("updatepcd")

var cmd = &cobra.Command{
	Use:   "updatepcd",
	Short: "rewrite the .pcd files of a directory as packed v0.7 binary",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		if cfg.out == "" {
			cfg.out = cfg.in
		}
		return UpdateDir(cfg.in, cfg.out)
	},
}

func init() {
	cmd.PersistentFlags().StringVarP(&cfg.in, "in", "i", "", "input dir")
	cmd.PersistentFlags().StringVarP(&cfg.out, "out", "o", "", "output dir, defaults to in")
	cmd.PersistentFlags().BoolVar(&cfg.compressed, "compressed", false, "write binary_compressed pcd")

	cmd.MarkPersistentFlagRequired("in")
}

func main() {
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}

func UpdateDir(sourceDir, outDir string) error {
	ds, err := os.ReadDir(sourceDir)
	if err != nil {
		return err
	}
	for _, d := range ds {
		fn := d.Name()
		if filepath.Ext(fn) != ".pcd" {
			continue
		}
		src := filepath.Join(sourceDir, fn)
		out := filepath.Join(outDir, fn)
		if err := updateFile(src, out); err != nil {
			return errors.Wrap(err, src)
		}
		logger.Infow("updated", "src", src, "out", out)
	}
	return nil
}

// load parses src with pcgol into the PointCloud2 model.
func load(src string) (*pcd.PointCloud2, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pp, err := pc.Unmarshal(f)
	if err != nil {
		return nil, err
	}
	return pcd.FromPC(pp)
}

// updateFile reads src fully before creating out so both may be the same
// path.
func updateFile(src, out string) error {
	msg, err := load(src)
	if err != nil {
		return err
	}

	outf, err := os.Create(out)
	if err != nil {
		return err
	}
	defer outf.Close()
	if cfg.compressed {
		return msg.EncodePcdCompressed(outf)
	}
	return msg.EncodePcd(outf)
}
