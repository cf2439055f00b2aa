package pcd

import (
	"github.com/pkg/errors"
	"github.com/seqsense/pcgol/pc"
)

// FromPC converts a pcgol point cloud (packed little endian records) to a
// PointCloud2.
func FromPC(pp *pc.PointCloud) (*PointCloud2, error) {
	h := pp.PointCloudHeader
	if len(h.Fields) != len(h.Size) || len(h.Fields) != len(h.Type) || len(h.Fields) != len(h.Count) {
		return nil, ErrInvalidPcdFormat
	}
	width, height := h.Width, h.Height
	if width*height != pp.Points {
		width, height = pp.Points, 1
	}
	msg := &PointCloud2{
		Width:   uint32(width),
		Height:  uint32(height),
		Data:    pp.Data,
		IsDense: true,
	}
	var step uint32
	for i, name := range h.Fields {
		dt, err := datatypeFor(h.Size[i], h.Type[i])
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", name)
		}
		msg.Fields = append(msg.Fields, PointField{
			Name:     name,
			Offset:   step,
			Datatype: dt,
			Count:    uint32(h.Count[i]),
		})
		step += uint32(h.Size[i] * h.Count[i])
	}
	msg.PointStep = step
	msg.RowStep = step * msg.Width
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}

// ToPC converts m to a pcgol point cloud, dropping padding and swapping big
// endian data.
func ToPC(m *PointCloud2) (*pc.PointCloud, error) {
	fields, data, err := m.packed()
	if err != nil {
		return nil, err
	}
	pp := &pc.PointCloud{
		PointCloudHeader: pc.PointCloudHeader{
			Version:   0.7,
			Width:     int(m.Width),
			Height:    int(m.Height),
			Viewpoint: []float32{0, 0, 0, 1, 0, 0, 0},
		},
		Points: m.PointCount(),
		Data:   data,
	}
	for _, f := range fields {
		pp.Fields = append(pp.Fields, f.Name)
		pp.Size = append(pp.Size, f.Datatype.Size())
		pp.Type = append(pp.Type, pcdType(f.Datatype))
		pp.Count = append(pp.Count, f.count())
	}
	return pp, nil
}
