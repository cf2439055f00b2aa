package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"sensorview/pkg/pcd"
)

// PCD is one request line: a point cloud file and the label boxes to count
// points in, each cx cy cz length width height yaw.
type PCD struct {
	PCDFile string
	Labels  [][]float64
}

type Result struct {
	Error      string `json:",omitempty"`
	Area       float64
	LabelCount []int
}

var cfg struct {
	cell float64
}

var cmd = &cobra.Command{
	Use:   "pcdmeta",
	Short: "answer json area and label point count requests on stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.cell <= 0 {
			return errors.Errorf("invalid cell size %v", cfg.cell)
		}
		return Cal(os.Stdin, os.Stdout, cfg.cell)
	},
}

func init() {
	cmd.PersistentFlags().Float64Var(&cfg.cell, "cell", 0.08, "grid cell size in metres for the xy area")
}

func main() {
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}

func measure(req PCD, cell float64) (res Result, err error) {
	msg, err := pcd.LoadFile(req.PCDFile)
	if err != nil {
		return
	}
	points, err := pcd.DecodePoints(msg)
	if err != nil {
		return
	}
	res.Area = pcd.XYArea(points, 1/cell)
	res.LabelCount = []int{}
	for i, l := range req.Labels {
		if len(l) != 7 {
			return Result{}, errors.Errorf("invalid label %d: want 7 values, got %d", i, len(l))
		}
		var v [7]float64
		copy(v[:], l)
		res.LabelCount = append(res.LabelCount, pcd.XYAreaPointCount(points, pcd.NewBox(v)))
	}
	return res, nil
}

// Cal answers one Result per request until r is exhausted. A malformed
// request line ends the loop, since the decoder cannot resync.
func Cal(r io.Reader, w io.Writer, cell float64) error {
	decoder := json.NewDecoder(r)
	encoder := json.NewEncoder(w)
	for {
		var req PCD
		if err := decoder.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			_ = encoder.Encode(Result{Error: err.Error()})
			return err
		}
		res, err := measure(req, cell)
		if err != nil {
			res = Result{Error: err.Error()}
		}
		if err := encoder.Encode(res); err != nil {
			return err
		}
	}
}
