package main

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"sensorview/pkg/pcd"
)

var cfg struct {
	in         string
	out        string
	compressed bool
}

var logger = golog.NewLogger("bin-to-pcd")

var cmd = &cobra.Command{
	Use:   "bin-to-pcd",
	Short: "convert KITTI .bin scans to .pcd, in a directory or a zip archive",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		if strings.HasSuffix(cfg.in, ".zip") {
			return tranZipFile()
		}
		return tranBinFiles()
	},
}

func init() {
	cmd.PersistentFlags().StringVarP(&cfg.in, "in", "i", "", "input zipFile or dir")
	cmd.PersistentFlags().StringVarP(&cfg.out, "out", "o", "", "output zipFile or dir")
	cmd.PersistentFlags().BoolVar(&cfg.compressed, "compressed", false, "write binary_compressed pcd")

	cmd.MarkPersistentFlagRequired("in")
}

func main() {
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}

func encode(msg *pcd.PointCloud2, w io.Writer) error {
	if cfg.compressed {
		return msg.EncodePcdCompressed(w)
	}
	return msg.EncodePcd(w)
}

// binToPcd converts one .bin stream.
func binToPcd(r io.Reader, w io.Writer) error {
	msg, err := pcd.DecodeBin(r)
	if err != nil {
		return err
	}
	return encode(msg, w)
}

func tranBinFiles() (err error) {
	if cfg.out == "" {
		cfg.out = cfg.in
	}
	return TransDirBinToPcd(cfg.in, cfg.out)
}

func tranZipFile() (err error) {
	if cfg.out == "" {
		base := filepath.Base(cfg.in)
		ext := filepath.Ext(base)
		cfg.out = strings.TrimSuffix(base, ext) + "-pcd" + ext
	}
	if cfg.out == cfg.in {
		return errors.New("input file can not be the output file")
	}
	outFile, err := os.Create(cfg.out)
	if err != nil {
		return err
	}
	defer outFile.Close()
	return TransZipBinToPcd(cfg.in, outFile)
}

// TransZipBinToPcd copies the zip at src into w, converting every .bin entry
// to .pcd and copying the rest untouched.
func TransZipBinToPcd(src string, w io.Writer) (err error) {
	outZip := zip.NewWriter(w)
	defer func() {
		if cerr := outZip.Close(); err == nil {
			err = cerr
		}
	}()
	inZip, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer inZip.Close()

	for _, f := range inZip.File {
		if filepath.Ext(f.Name) == ".bin" {
			err = func() error {
				binr, err := f.Open()
				if err != nil {
					return err
				}
				defer binr.Close()
				newName := strings.TrimSuffix(f.Name, ".bin") + ".pcd"
				w, err := outZip.Create(newName)
				if err != nil {
					return err
				}
				return errors.Wrap(binToPcd(binr, w), f.Name)
			}()
			if err != nil {
				return err
			}
			continue
		}
		w, err := outZip.CreateRaw(&f.FileHeader)
		if err != nil {
			return err
		}
		r, err := f.OpenRaw()
		if err != nil {
			return err
		}
		if _, err = io.Copy(w, r); err != nil {
			return err
		}
	}
	return nil
}

func TransDirBinToPcd(sourceDir, outDir string) (err error) {
	ds, err := os.ReadDir(sourceDir)
	if err != nil {
		return err
	}
	for _, d := range ds {
		fn := d.Name()
		if filepath.Ext(fn) != ".bin" {
			continue
		}
		src := filepath.Join(sourceDir, fn)
		out := filepath.Join(outDir, strings.TrimSuffix(fn, ".bin")+".pcd")
		if err := transFile(src, out); err != nil {
			return err
		}
		logger.Infow("converted", "src", src, "out", out)
	}
	return nil
}

func transFile(src, out string) error {
	binf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer binf.Close()
	pcdf, err := os.Create(out)
	if err != nil {
		return err
	}
	defer pcdf.Close()
	return errors.Wrap(binToPcd(binf, pcdf), src)
}
