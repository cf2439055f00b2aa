package pcd

import (
	"io"

	"github.com/pkg/errors"
)

const (
	BinPointDataLen = 4 * 4
)

var (
	ErrInvalidDataFormat = errors.New("invalid data")
)

// BinFields is the layout of KITTI style .bin scans.
var BinFields = []PointField{
	{Name: "x", Offset: 0, Datatype: FLOAT32, Count: 1},
	{Name: "y", Offset: 4, Datatype: FLOAT32, Count: 1},
	{Name: "z", Offset: 8, Datatype: FLOAT32, Count: 1},
	{Name: "intensity", Offset: 12, Datatype: FLOAT32, Count: 1},
}

// DecodeBin reads little endian x, y, z, intensity float32 records.
func DecodeBin(r io.Reader) (*PointCloud2, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data)%BinPointDataLen != 0 {
		return nil, errors.Wrapf(ErrInvalidDataFormat, "%d bytes is not a multiple of %d", len(data), BinPointDataLen)
	}
	n := uint32(len(data) / BinPointDataLen)
	return &PointCloud2{
		Height:    1,
		Width:     n,
		Fields:    append([]PointField(nil), BinFields...),
		PointStep: BinPointDataLen,
		RowStep:   BinPointDataLen * n,
		Data:      data,
		IsDense:   true,
	}, nil
}
