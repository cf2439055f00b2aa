package pcd

import (
	"encoding/binary"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

var (
	ErrOutOfRange      = errors.New("point field out of range")
	ErrUnknownDatatype = errors.New("unknown point field datatype")
)

// Datatype is the sensor_msgs/PointField element type code.
type Datatype uint8

const (
	INT8    Datatype = 1
	UINT8   Datatype = 2
	INT16   Datatype = 3
	UINT16  Datatype = 4
	INT32   Datatype = 5
	UINT32  Datatype = 6
	FLOAT32 Datatype = 7
	FLOAT64 Datatype = 8
)

var datatypeSizes = [...]int{0, 1, 1, 2, 2, 4, 4, 4, 8}

var datatypeNames = [...]string{"", "INT8", "UINT8", "INT16", "UINT16", "INT32", "UINT32", "FLOAT32", "FLOAT64"}

func (t Datatype) Valid() bool {
	return t >= INT8 && t <= FLOAT64
}

// Size is the byte width of one element, 0 for invalid codes.
func (t Datatype) Size() int {
	if !t.Valid() {
		return 0
	}
	return datatypeSizes[t]
}

func (t Datatype) String() string {
	if !t.Valid() {
		return "INVALID"
	}
	return datatypeNames[t]
}

func (t Datatype) decode(order binary.ByteOrder, b []byte) float64 {
	switch t {
	case INT8:
		return float64(int8(b[0]))
	case UINT8:
		return float64(b[0])
	case INT16:
		return float64(int16(order.Uint16(b)))
	case UINT16:
		return float64(order.Uint16(b))
	case INT32:
		return float64(int32(order.Uint32(b)))
	case UINT32:
		return float64(order.Uint32(b))
	case FLOAT32:
		return float64(math.Float32frombits(order.Uint32(b)))
	case FLOAT64:
		return math.Float64frombits(order.Uint64(b))
	}
	return 0
}

func (t Datatype) encode(order binary.ByteOrder, b []byte, v float64) {
	switch t {
	case INT8:
		b[0] = byte(int8(v))
	case UINT8:
		b[0] = uint8(v)
	case INT16:
		order.PutUint16(b, uint16(int16(v)))
	case UINT16:
		order.PutUint16(b, uint16(v))
	case INT32:
		order.PutUint32(b, uint32(int32(v)))
	case UINT32:
		order.PutUint32(b, uint32(v))
	case FLOAT32:
		order.PutUint32(b, math.Float32bits(float32(v)))
	case FLOAT64:
		order.PutUint64(b, math.Float64bits(v))
	}
}

type PointField struct {
	Name     string
	Offset   uint32
	Datatype Datatype
	Count    uint32
}

func (f PointField) count() int {
	if f.Count == 0 {
		return 1
	}
	return int(f.Count)
}

// span is the number of bytes the field occupies inside one point.
func (f PointField) span() int {
	return f.Datatype.Size() * f.count()
}

type Time struct {
	Sec     int32
	Nanosec uint32
}

type Header struct {
	Stamp   Time
	FrameID string
}

// PointCloud2 mirrors sensor_msgs/PointCloud2.
type PointCloud2 struct {
	Header      Header
	Height      uint32
	Width       uint32
	Fields      []PointField
	IsBigEndian bool
	PointStep   uint32
	RowStep     uint32
	Data        []byte
	IsDense     bool
}

func (m *PointCloud2) PointCount() int {
	return int(m.Width) * int(m.Height)
}

func (m *PointCloud2) ByteOrder() binary.ByteOrder {
	if m.IsBigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Field returns the descriptor named name.
func (m *PointCloud2) Field(name string) (PointField, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return PointField{}, false
}

func (m *PointCloud2) rowStep() int {
	if m.RowStep == 0 {
		return int(m.Width) * int(m.PointStep)
	}
	return int(m.RowStep)
}

// Validate checks every field descriptor and the buffer length against the
// declared dimensions.
func (m *PointCloud2) Validate() error {
	step := int(m.PointStep)
	for _, f := range m.Fields {
		if !f.Datatype.Valid() {
			return errors.Wrapf(ErrUnknownDatatype, "field %q: code %d", f.Name, f.Datatype)
		}
		if int(f.Offset)+f.span() > step {
			return errors.Wrapf(ErrOutOfRange, "field %q: offset %d + %d bytes exceeds point step %d",
				f.Name, f.Offset, f.span(), step)
		}
	}
	if m.Width == 0 || m.Height == 0 {
		return nil
	}
	rowStep := m.rowStep()
	if rowStep < int(m.Width)*step {
		return errors.Wrapf(ErrOutOfRange, "row step %d shorter than %d points of %d bytes",
			rowStep, m.Width, step)
	}
	need := (int(m.Height)-1)*rowStep + int(m.Width)*step
	if need > len(m.Data) {
		return errors.Wrapf(ErrOutOfRange, "%dx%d points need %d bytes, have %d",
			m.Width, m.Height, need, len(m.Data))
	}
	return nil
}

// DecodedPoint is one point of a decoded cloud. ID is only meaningful when
// HasID is set.
type DecodedPoint struct {
	X, Y, Z float64
	ID      int64
	HasID   bool
	Fields  map[string]float64
}

func (p DecodedPoint) Position() r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: p.Z}
}

// Value looks up a coordinate or an extra field by name.
func (p DecodedPoint) Value(name string) (float64, bool) {
	switch name {
	case "x":
		return p.X, true
	case "y":
		return p.Y, true
	case "z":
		return p.Z, true
	}
	v, ok := p.Fields[name]
	return v, ok
}

var DefaultIDFields = []string{"cluster_id", "id"}

// Decoder turns PointCloud2 messages into DecodedPoints. IDFields lists the
// id field names in priority order; the zero value uses DefaultIDFields.
// Only the first declared match fills DecodedPoint.ID, other matches are
// kept in Fields. A NaN or infinite id leaves HasID unset and is kept in
// Fields.
type Decoder struct {
	IDFields []string
}

// idField returns the index in fields of the highest priority id field, or -1.
func (d Decoder) idField(fields []PointField) int {
	ids := d.IDFields
	if ids == nil {
		ids = DefaultIDFields
	}
	for _, id := range ids {
		for i, f := range fields {
			if f.Name == id {
				return i
			}
		}
	}
	return -1
}

// Decode decodes every point of msg in row-major order. Nothing is returned
// unless the whole message is well formed.
func (d Decoder) Decode(msg *PointCloud2) ([]DecodedPoint, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	const (
		routeX = iota
		routeY
		routeZ
		routeID
		routeExtra
	)
	routes := make([]int, len(msg.Fields))
	extras := 0
	id := d.idField(msg.Fields)
	for i, f := range msg.Fields {
		switch {
		case f.Name == "x":
			routes[i] = routeX
		case f.Name == "y":
			routes[i] = routeY
		case f.Name == "z":
			routes[i] = routeZ
		case i == id:
			routes[i] = routeID
		default:
			routes[i] = routeExtra
			extras++
		}
	}

	order := msg.ByteOrder()
	step := int(msg.PointStep)
	rowStep := msg.rowStep()
	points := make([]DecodedPoint, 0, msg.PointCount())
	for row := 0; row < int(msg.Height); row++ {
		for col := 0; col < int(msg.Width); col++ {
			start := row*rowStep + col*step
			rec := msg.Data[start : start+step]
			p := DecodedPoint{}
			if extras > 0 {
				p.Fields = make(map[string]float64, extras+1)
			}
			for i, f := range msg.Fields {
				v := f.Datatype.decode(order, rec[f.Offset:])
				switch routes[i] {
				case routeX:
					p.X = v
				case routeY:
					p.Y = v
				case routeZ:
					p.Z = v
				case routeID:
					if math.IsNaN(v) || math.IsInf(v, 0) {
						if p.Fields == nil {
							p.Fields = make(map[string]float64, 1)
						}
						p.Fields[f.Name] = v
						continue
					}
					p.ID = int64(v)
					p.HasID = true
				default:
					p.Fields[f.Name] = v
				}
			}
			points = append(points, p)
		}
	}
	return points, nil
}

// DecodePoints decodes msg with the default Decoder.
func DecodePoints(msg *PointCloud2) ([]DecodedPoint, error) {
	return Decoder{}.Decode(msg)
}

// EncodePoints packs points into a tightly laid out, single row PointCloud2
// using fields. idField names the field that carries DecodedPoint.ID.
func EncodePoints(fields []PointField, bigEndian bool, points []DecodedPoint, idField string) (*PointCloud2, error) {
	var step int
	for _, f := range fields {
		if !f.Datatype.Valid() {
			return nil, errors.Wrapf(ErrUnknownDatatype, "field %q: code %d", f.Name, f.Datatype)
		}
		if end := int(f.Offset) + f.span(); end > step {
			step = end
		}
	}
	msg := &PointCloud2{
		Height:      1,
		Width:       uint32(len(points)),
		Fields:      append([]PointField(nil), fields...),
		IsBigEndian: bigEndian,
		PointStep:   uint32(step),
		RowStep:     uint32(step * len(points)),
		Data:        make([]byte, step*len(points)),
		IsDense:     true,
	}
	order := msg.ByteOrder()
	for i, p := range points {
		rec := msg.Data[i*step : (i+1)*step]
		for _, f := range fields {
			var v float64
			switch f.Name {
			case "x":
				v = p.X
			case "y":
				v = p.Y
			case "z":
				v = p.Z
			case idField:
				v = float64(p.ID)
			default:
				v = p.Fields[f.Name]
			}
			f.Datatype.encode(order, rec[f.Offset:], v)
		}
	}
	return msg, nil
}
