package filter

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
)

// Binary layout, all integers big endian:
//
//	settings list: u32 count, settings...
//	settings:      string name, i32 action, u32 count, i32 stop..., list
//	list:          u32 count, filter...
//	filter:        u32 count, constraint...
//	constraint:    i32 type, i32 variant, u8 value kind, value
//
// Strings are u32 length + UTF-8 bytes. Times of day are i32 minutes after midnight,
// dates are i32 year, u8 month, u8 day.

const maxSerializedLength = 1 << 20

type binaryWriter struct {
	w       *bufio.Writer
	written int64
	err     error
}

func (b *binaryWriter) write(value any) {
	if b.err != nil {
		return
	}
	b.err = binary.Write(b.w, binary.BigEndian, value)
	if b.err == nil {
		b.written += int64(binary.Size(value))
	}
}

func (b *binaryWriter) writeString(value string) {
	b.write(uint32(len(value)))
	if b.err != nil {
		return
	}
	n, err := b.w.WriteString(value)
	b.written += int64(n)
	b.err = err
}

func (b *binaryWriter) writeConstraint(c Constraint) {
	b.write(int32(c.Type))
	b.write(int32(c.Variant))

	kind := c.Type.ValueKind()
	b.write(uint8(kind))

	value, ok := normaliseValue(kind, c.Value)
	if !ok {
		b.err = &InvalidValueError{Type: c.Type, Value: c.Value}
		return
	}

	switch kind {
	case ValueString:
		b.writeString(value.(string))
	case ValueInt:
		b.write(int32(value.(int)))
	case ValueIntList:
		list := value.([]int)
		b.write(uint32(len(list)))
		for _, item := range list {
			b.write(int32(item))
		}
	case ValueTimeOfDay:
		clock := value.(time.Time)
		b.write(int32(clock.Hour()*60 + clock.Minute()))
	case ValueDate:
		date := value.(time.Time)
		b.write(int32(date.Year()))
		b.write(uint8(date.Month()))
		b.write(uint8(date.Day()))
	}
}

func (b *binaryWriter) writeList(l List) {
	b.write(uint32(len(l)))
	for _, filter := range l {
		b.write(uint32(len(filter)))
		for _, constraint := range filter {
			b.writeConstraint(constraint)
		}
	}
}

func (b *binaryWriter) writeSettings(s *Settings) {
	b.writeString(s.Name)
	b.write(int32(s.Action))
	b.write(uint32(len(s.AffectedStops)))
	for _, stop := range s.AffectedStops {
		b.write(int32(stop))
	}
	b.writeList(s.Filters)
}

func (b *binaryWriter) flush() (int64, error) {
	if b.err == nil {
		b.err = b.w.Flush()
	}
	return b.written, b.err
}

// WriteTo implements io.WriterTo
func (c Constraint) WriteTo(w io.Writer) (int64, error) {
	b := &binaryWriter{w: bufio.NewWriter(w)}
	b.writeConstraint(c)
	return b.flush()
}

func (l List) WriteTo(w io.Writer) (int64, error) {
	b := &binaryWriter{w: bufio.NewWriter(w)}
	b.writeList(l)
	return b.flush()
}

func (l SettingsList) WriteTo(w io.Writer) (int64, error) {
	b := &binaryWriter{w: bufio.NewWriter(w)}
	b.write(uint32(len(l)))
	for _, settings := range l {
		b.writeSettings(settings)
	}
	return b.flush()
}

type binaryReader struct {
	r    io.Reader
	read int64
	err  error
}

func (b *binaryReader) readValue(value any) {
	if b.err != nil {
		return
	}
	b.err = binary.Read(b.r, binary.BigEndian, value)
	if b.err == nil {
		b.read += int64(binary.Size(value))
	}
}

func (b *binaryReader) readInt32() int32 {
	var value int32
	b.readValue(&value)
	return value
}

func (b *binaryReader) readUint8() uint8 {
	var value uint8
	b.readValue(&value)
	return value
}

func (b *binaryReader) readLength() int {
	var value uint32
	b.readValue(&value)
	if b.err == nil && value > maxSerializedLength {
		b.err = fmt.Errorf("serialized length %d too large", value)
		return 0
	}
	return int(value)
}

func (b *binaryReader) readString() string {
	length := b.readLength()
	if b.err != nil {
		return ""
	}
	buffer := make([]byte, length)
	n, err := io.ReadFull(b.r, buffer)
	b.read += int64(n)
	b.err = err
	return string(buffer)
}

func (b *binaryReader) readConstraint() Constraint {
	filterType := Type(b.readInt32())
	variant := Variant(b.readInt32())
	kind := ValueKind(b.readUint8())

	var value any
	switch kind {
	case ValueString:
		value = b.readString()
	case ValueInt:
		value = int(b.readInt32())
	case ValueIntList:
		list := make([]int, b.readLength())
		for i := range list {
			list[i] = int(b.readInt32())
		}
		value = list
	case ValueTimeOfDay:
		minutes := int(b.readInt32())
		value = time.Date(0, 1, 1, minutes/60, minutes%60, 0, 0, time.Local)
	case ValueDate:
		year := int(b.readInt32())
		month := time.Month(b.readUint8())
		day := int(b.readUint8())
		value = time.Date(year, month, day, 0, 0, 0, 0, time.Local)
	default:
		if b.err == nil {
			b.err = fmt.Errorf("unknown constraint value kind %d", kind)
		}
	}

	if b.err != nil {
		return DefaultConstraint()
	}

	constraint, err := NewConstraint(filterType, variant, value)
	if err != nil {
		log.Warn().Err(err).Int("type", int(filterType)).Int("variant", int(variant)).Msg("Replacing unreadable filter constraint with default")
		return DefaultConstraint()
	}

	return constraint
}

func (b *binaryReader) readList() List {
	list := make(List, b.readLength())
	for i := range list {
		filter := make(Filter, b.readLength())
		for j := range filter {
			filter[j] = b.readConstraint()
		}
		list[i] = filter
	}
	return list
}

func (b *binaryReader) readSettings() *Settings {
	settings := &Settings{}
	settings.Name = b.readString()
	settings.Action = Action(b.readInt32())
	stops := make([]int, b.readLength())
	for i := range stops {
		stops[i] = int(b.readInt32())
	}
	settings.AffectedStops = stops
	settings.Filters = b.readList()
	return settings
}

// ReadFrom implements io.ReaderFrom
func (c *Constraint) ReadFrom(r io.Reader) (int64, error) {
	b := &binaryReader{r: r}
	*c = b.readConstraint()
	return b.read, b.err
}

func (l *List) ReadFrom(r io.Reader) (int64, error) {
	b := &binaryReader{r: r}
	list := b.readList()
	if b.err == nil {
		*l = list
	}
	return b.read, b.err
}

func (l *SettingsList) ReadFrom(r io.Reader) (int64, error) {
	b := &binaryReader{r: r}
	list := make(SettingsList, b.readLength())
	for i := range list {
		list[i] = b.readSettings()
	}
	if b.err == nil {
		*l = list
	}
	return b.read, b.err
}
