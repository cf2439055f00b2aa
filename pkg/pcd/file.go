package pcd

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrUnsupportPointCloudFileType = errors.New("unsupport pointCloud fileType")
)

func decodeCDRFile(r io.Reader) (*PointCloud2, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return UnmarshalCDR(raw)
}

// LoadFile reads a .pcd, .bin or .cdr file into a PointCloud2.
func LoadFile(path string) (*PointCloud2, error) {
	var decode func(io.Reader) (*PointCloud2, error)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pcd":
		decode = DecodePcd
	case ".bin":
		decode = DecodeBin
	case ".cdr":
		decode = decodeCDRFile
	default:
		return nil, errors.Wrap(ErrUnsupportPointCloudFileType, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	msg, err := decode(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return msg, nil
}

func TransFileToPcd(sourceFile string, w io.Writer) error {
	msg, err := LoadFile(sourceFile)
	if err != nil {
		return err
	}
	return msg.EncodePcd(w)
}
