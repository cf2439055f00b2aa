package pcd

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	lzf "github.com/zhuyie/golzf"
)

var (
	ErrUnsupportPcdVersion   = errors.New("unsupport pcd version")
	ErrUnsupportPcdFieldSize = errors.New("unsupport pcd field size")
	ErrUnsupportPcdFieldType = errors.New("unsupport pcd field type")
	ErrUnsupportPcdDataType  = errors.New("unsupport pcd data type")
	ErrInvalidPcdFormat      = errors.New("invalid pcd format")
)

const (
	BinaryCompressedSize = 8
)

// DecodePcd reads a PCD v0.7 file (ascii, binary or binary_compressed) into a
// little endian PointCloud2 whose fields follow the FIELDS order.
func DecodePcd(r io.Reader) (msg *PointCloud2, err error) {
	bio := bufio.NewReader(r)
	var version string
	for {
		version, err = bio.ReadString('\n')
		if err != nil {
			return
		}
		if !strings.HasPrefix(version, "#") {
			break
		}
	}

	if !strings.HasPrefix(version, "VERSION 0.7") && !strings.HasPrefix(version, "VERSION .7") {
		return nil, ErrUnsupportPcdVersion
	}

	var headers = map[string][]string{}
	for {
		header, err := bio.ReadString('\n')
		if err != nil {
			return nil, errors.Wrap(ErrInvalidPcdFormat, "header ended before DATA")
		}
		h := strings.Fields(header)
		if len(h) < 1 {
			continue
		}
		headers[h[0]] = h[1:]
		if h[0] == "DATA" {
			break
		}
	}

	names := headers["FIELDS"]
	if len(names) == 0 {
		return nil, errors.Wrap(ErrInvalidPcdFormat, "no FIELDS")
	}
	sizes, err := getIntHeaders(headers, "SIZE")
	if err != nil {
		return
	}
	if len(names) != len(sizes) {
		return nil, ErrInvalidPcdFormat
	}

	types := headers["TYPE"]
	if len(names) != len(types) {
		return nil, ErrInvalidPcdFormat
	}

	counts, err := getIntHeaders(headers, "COUNT")
	if err != nil {
		return
	}
	if len(counts) == 0 {
		for range names {
			counts = append(counts, 1)
		}
	}
	if len(names) != len(counts) {
		return nil, ErrInvalidPcdFormat
	}

	if len(headers["DATA"]) != 1 {
		return nil, ErrInvalidPcdFormat
	}
	dataType := strings.ToLower(headers["DATA"][0])

	if len(headers["WIDTH"]) != 1 || len(headers["HEIGHT"]) != 1 {
		return nil, ErrInvalidPcdFormat
	}
	width, err := strconv.ParseUint(headers["WIDTH"][0], 10, 32)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidPcdFormat, "WIDTH")
	}
	height, err := strconv.ParseUint(headers["HEIGHT"][0], 10, 32)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidPcdFormat, "HEIGHT")
	}

	msg = &PointCloud2{
		Width:   uint32(width),
		Height:  uint32(height),
		IsDense: true,
	}
	var step uint32
	for i, name := range names {
		if counts[i] == 0 {
			return nil, errors.Wrapf(ErrInvalidPcdFormat, "field %s has COUNT 0", name)
		}
		dt, err := datatypeFor(sizes[i], types[i])
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", name)
		}
		msg.Fields = append(msg.Fields, PointField{
			Name:     name,
			Offset:   step,
			Datatype: dt,
			Count:    uint32(counts[i]),
		})
		step += uint32(sizes[i] * counts[i])
	}
	msg.PointStep = step
	msg.RowStep = step * msg.Width

	switch dataType {
	case "binary":
		err = msg.loadBinPoints(bio)
	case "ascii":
		err = msg.loadAsciiPoints(bio)
	case "binary_compressed":
		err = msg.loadBinCompressedPoints(bio)
	default:
		return nil, ErrUnsupportPcdDataType
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (m *PointCloud2) loadBinPoints(r io.Reader) error {
	m.Data = make([]byte, m.PointCount()*int(m.PointStep))
	if _, err := io.ReadFull(r, m.Data); err != nil {
		return errors.Wrap(ErrInvalidPcdFormat, err.Error())
	}
	return nil
}

// binary_compressed stores every field as its own column.
func (m *PointCloud2) loadBinCompressedPoints(r io.Reader) (err error) {
	compressedSizesRaw := make([]byte, BinaryCompressedSize)
	if _, err = io.ReadFull(r, compressedSizesRaw); err != nil {
		return errors.Wrap(ErrInvalidPcdFormat, err.Error())
	}
	compressedSize := binary.LittleEndian.Uint32(compressedSizesRaw[:4])
	uncompressedSize := binary.LittleEndian.Uint32(compressedSizesRaw[4:])
	n := m.PointCount()
	if int(uncompressedSize) != n*int(m.PointStep) {
		return errors.Wrapf(ErrInvalidPcdFormat, "uncompressed size %d, want %d", uncompressedSize, n*int(m.PointStep))
	}

	raw := make([]byte, compressedSize)
	if _, err = io.ReadFull(r, raw); err != nil {
		return errors.Wrap(ErrInvalidPcdFormat, err.Error())
	}
	columns := make([]byte, uncompressedSize)
	got, err := lzf.Decompress(raw, columns)
	if err != nil {
		return errors.Wrap(err, "lzf")
	}
	if got != int(uncompressedSize) {
		return ErrInvalidPcdFormat
	}

	m.Data = make([]byte, len(columns))
	step := int(m.PointStep)
	var col int
	for _, f := range m.Fields {
		span := f.span()
		for i := 0; i < n; i++ {
			copy(m.Data[i*step+int(f.Offset):], columns[col+i*span:col+(i+1)*span])
		}
		col += span * n
	}
	return nil
}

func (m *PointCloud2) loadAsciiPoints(r *bufio.Reader) error {
	var values int
	for _, f := range m.Fields {
		values += f.count()
	}
	n := m.PointCount()
	step := int(m.PointStep)
	m.Data = make([]byte, n*step)
	fs := make([]float64, 0, values)
	for i := 0; i < n; i++ {
		fs = fs[:0]
		if err := AsciiGetFloats(r, &fs); err != nil {
			return errors.Wrapf(ErrInvalidPcdFormat, "point %d: %v", i, err)
		}
		if len(fs) != values {
			return errors.Wrapf(ErrInvalidPcdFormat, "point %d: %d values, want %d", i, len(fs), values)
		}
		rec := m.Data[i*step : (i+1)*step]
		var v int
		for _, f := range m.Fields {
			size := f.Datatype.Size()
			for c := 0; c < f.count(); c++ {
				f.Datatype.encode(binary.LittleEndian, rec[int(f.Offset)+c*size:], fs[v])
				v++
			}
		}
	}
	return nil
}

// packed returns the fields laid out back to back in offset order and the
// matching little endian point records.
func (m *PointCloud2) packed() ([]PointField, []byte, error) {
	if err := m.Validate(); err != nil {
		return nil, nil, err
	}
	src := append([]PointField(nil), m.Fields...)
	sort.SliceStable(src, func(i, j int) bool { return src[i].Offset < src[j].Offset })

	fields := make([]PointField, len(src))
	var step int
	for i, f := range src {
		fields[i] = f
		fields[i].Offset = uint32(step)
		fields[i].Count = uint32(f.count())
		step += f.span()
	}

	n := m.PointCount()
	data := make([]byte, 0, n*step)
	rowStep := m.rowStep()
	inStep := int(m.PointStep)
	for row := 0; row < int(m.Height); row++ {
		for col := 0; col < int(m.Width); col++ {
			rec := m.Data[row*rowStep+col*inStep:]
			for _, f := range src {
				elem := rec[f.Offset : int(f.Offset)+f.span()]
				if !m.IsBigEndian {
					data = append(data, elem...)
					continue
				}
				size := f.Datatype.Size()
				for e := 0; e < len(elem); e += size {
					for b := size - 1; b >= 0; b-- {
						data = append(data, elem[e+b])
					}
				}
			}
		}
	}
	return fields, data, nil
}

func (m *PointCloud2) writePcdHeader(w io.Writer, fields []PointField, dataType string) error {
	byf := bytes.NewBuffer(make([]byte, 0, 256))
	var names, sizes, types, counts []string
	for _, f := range fields {
		names = append(names, f.Name)
		sizes = append(sizes, strconv.Itoa(f.Datatype.Size()))
		types = append(types, pcdType(f.Datatype))
		counts = append(counts, strconv.Itoa(f.count()))
	}
	byf.WriteString("# .PCD v0.7 - Point Cloud Data file format\n")
	byf.WriteString("VERSION 0.7\n")
	byf.WriteString("FIELDS " + strings.Join(names, " ") + "\n")
	byf.WriteString("SIZE " + strings.Join(sizes, " ") + "\n")
	byf.WriteString("TYPE " + strings.Join(types, " ") + "\n")
	byf.WriteString("COUNT " + strings.Join(counts, " ") + "\n")
	byf.WriteString(fmt.Sprintf("WIDTH %d\n", m.Width))
	byf.WriteString(fmt.Sprintf("HEIGHT %d\n", m.Height))
	byf.WriteString("VIEWPOINT 0 0 0 1 0 0 0\n")
	byf.WriteString(fmt.Sprintf("POINTS %d\n", m.PointCount()))
	byf.WriteString("DATA " + dataType + "\n")
	_, err := w.Write(byf.Bytes())
	return err
}

// EncodePcd writes m as a binary PCD file. Padding between fields is dropped
// and big endian data is swapped to little endian.
func (m *PointCloud2) EncodePcd(w io.Writer) error {
	fields, data, err := m.packed()
	if err != nil {
		return err
	}
	if err = m.writePcdHeader(w, fields, "binary"); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// EncodePcdCompressed writes m as a binary_compressed PCD file.
func (m *PointCloud2) EncodePcdCompressed(w io.Writer) error {
	fields, data, err := m.packed()
	if err != nil {
		return err
	}
	n := m.PointCount()
	var step int
	for _, f := range fields {
		step += f.span()
	}
	columns := make([]byte, 0, len(data))
	for _, f := range fields {
		span := f.span()
		for i := 0; i < n; i++ {
			columns = append(columns, data[i*step+int(f.Offset):i*step+int(f.Offset)+span]...)
		}
	}

	compressed := make([]byte, len(columns)+len(columns)/16+64)
	size, err := lzf.Compress(columns, compressed)
	if err != nil {
		return errors.Wrap(err, "lzf")
	}
	if err = m.writePcdHeader(w, fields, "binary_compressed"); err != nil {
		return err
	}
	sizes := make([]byte, BinaryCompressedSize)
	binary.LittleEndian.PutUint32(sizes[:4], uint32(size))
	binary.LittleEndian.PutUint32(sizes[4:], uint32(len(columns)))
	if _, err = w.Write(sizes); err != nil {
		return err
	}
	_, err = w.Write(compressed[:size])
	return err
}

func datatypeFor(size int, typ string) (Datatype, error) {
	switch strings.ToUpper(typ) {
	case "F":
		switch size {
		case 4:
			return FLOAT32, nil
		case 8:
			return FLOAT64, nil
		}
	case "U":
		switch size {
		case 1:
			return UINT8, nil
		case 2:
			return UINT16, nil
		case 4:
			return UINT32, nil
		}
	case "I":
		switch size {
		case 1:
			return INT8, nil
		case 2:
			return INT16, nil
		case 4:
			return INT32, nil
		}
	default:
		return 0, ErrUnsupportPcdFieldType
	}
	return 0, ErrUnsupportPcdFieldSize
}

func pcdType(t Datatype) string {
	switch t {
	case FLOAT32, FLOAT64:
		return "F"
	case UINT8, UINT16, UINT32:
		return "U"
	}
	return "I"
}

func getIntHeaders(headers map[string][]string, field string) ([]int, error) {
	vals := []int{}
	for _, v := range headers[field] {
		vi, err := strconv.Atoi(v)
		if err != nil || vi < 0 {
			return nil, errors.Wrapf(ErrInvalidPcdFormat, "invalid int field %s", field)
		}
		vals = append(vals, vi)
	}
	return vals, nil
}

func AsciiGetFloats(r *bufio.Reader, fs *[]float64) (err error) {
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || len(line) == 0) {
		return
	}
	var v float64
	for _, s := range strings.Fields(line) {
		v, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return
		}
		*fs = append(*fs, v)
	}
	return nil
}
