package pcd

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"sensorview/pkg/cdr"
)

// PointCloud2Schema is the type name published alongside CDR payloads.
const PointCloud2Schema = "sensor_msgs/msg/PointCloud2"

// minimum encoded PointField: empty name, offset, datatype, count
const minPointFieldLen = 4 + 1 + 4 + 1 + 4

// UnmarshalCDR decodes a CDR encoded sensor_msgs/PointCloud2. Data aliases
// payload.
func UnmarshalCDR(payload []byte) (*PointCloud2, error) {
	r, err := cdr.NewReader(payload)
	if err != nil {
		return nil, err
	}
	msg := &PointCloud2{}
	msg.Header.Stamp.Sec = r.Int32()
	msg.Header.Stamp.Nanosec = r.Uint32()
	msg.Header.FrameID = r.Text()
	msg.Height = r.Uint32()
	msg.Width = r.Uint32()
	n := r.Length(minPointFieldLen)
	if n > 0 {
		msg.Fields = make([]PointField, n)
	}
	for i := 0; i < n; i++ {
		f := &msg.Fields[i]
		f.Name = r.Text()
		f.Offset = r.Uint32()
		f.Datatype = Datatype(r.Uint8())
		f.Count = r.Uint32()
	}
	msg.IsBigEndian = r.Bool()
	msg.PointStep = r.Uint32()
	msg.RowStep = r.Uint32()
	msg.Data = r.Bytes()
	msg.IsDense = r.Bool()
	if err := r.Err(); err != nil {
		return nil, errors.Wrap(err, "decode PointCloud2")
	}
	return msg, nil
}

// MarshalCDR encodes m as a little endian CDR sensor_msgs/PointCloud2.
func MarshalCDR(m *PointCloud2) []byte {
	w := cdr.NewWriter(binary.LittleEndian)
	w.Int32(m.Header.Stamp.Sec)
	w.Uint32(m.Header.Stamp.Nanosec)
	w.Text(m.Header.FrameID)
	w.Uint32(m.Height)
	w.Uint32(m.Width)
	w.Uint32(uint32(len(m.Fields)))
	for _, f := range m.Fields {
		w.Text(f.Name)
		w.Uint32(f.Offset)
		w.Uint8(uint8(f.Datatype))
		w.Uint32(f.Count)
	}
	w.Bool(m.IsBigEndian)
	w.Uint32(m.PointStep)
	w.Uint32(m.RowStep)
	w.Bytes(m.Data)
	w.Bool(m.IsDense)
	return w.Payload()
}
