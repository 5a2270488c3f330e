package schema

import "fmt"

// TagType is the semantic type of a tag's value.
type TagType int

const (
	TagTypeBool TagType = iota
	TagTypeBit
	TagTypeInt8
	TagTypeInt16
	TagTypeInt32
	TagTypeInt64
	TagTypeUint8
	TagTypeUint16
	TagTypeUint32
	TagTypeUint64
	TagTypeFloat
	TagTypeDouble
	TagTypeString
	TagTypeBytes
	TagTypeArrayBool
	TagTypeArrayInt8
	TagTypeArrayInt16
	TagTypeArrayInt32
	TagTypeArrayInt64
	TagTypeArrayUint8
	TagTypeArrayUint16
	TagTypeArrayUint32
	TagTypeArrayUint64
	TagTypeArrayFloat
	TagTypeArrayDouble
	TagTypeCustomJSON
	TagTypeError
	TagTypePtrString
	TagTypeTime
)

// TagAttr is a bit in the tag attribute bitset.
type TagAttr uint8

const (
	AttrRead TagAttr = 1 << iota
	AttrWrite
	AttrSubscribe
	AttrStatic
)

func (a TagAttr) Has(bit TagAttr) bool { return a&bit != 0 }

// Readable mirrors the data model's readable filter: has(READ) || has(SUBSCRIBE).
func (a TagAttr) Readable() bool { return a.Has(AttrRead) || a.Has(AttrSubscribe) }

// Endianness for 16/32/64-bit numeric decoding.
type Endianness string

const (
	EndianBigLittle  Endianness = "BL" // 32-bit: big word, little byte
	EndianLittleLittle Endianness = "LL"
	EndianBigBig     Endianness = "BB"
	EndianLittleBig  Endianness = "LB"
	EndianBig        Endianness = "B"
	EndianLittle     Endianness = "L"
)

// StringEncoding for STRING/BYTES address decoding.
type StringEncoding string

const (
	EncodingH StringEncoding = "H" // hex
	EncodingL StringEncoding = "L" // raw little-endian bytes
	EncodingD StringEncoding = "D" // decimal digits
	EncodingE StringEncoding = "E" // escaped/ascii
)

// AddressOptions is the lazily-parsed suffix of a tag's address string:
// a `.` introduces {length, encoding} for STRING/BYTES or a bit index for
// BIT, and a `#` introduces endianness for 16/32/64-bit numeric types.
type AddressOptions struct {
	BitOffset  int
	ByteLength int
	Encoding   StringEncoding
	Endian     Endianness
}

// DefaultEndian returns the default endianness for a numeric tag type,
// per the address-option parsing rules: LE for 16/64-bit, LL for 32-bit.
func DefaultEndian(t TagType) Endianness {
	switch t {
	case TagTypeInt32, TagTypeUint32, TagTypeFloat:
		return EndianLittleLittle
	default:
		return EndianLittle
	}
}

// Tag is a single readable/writable datum exposed by a driver.
type Tag struct {
	Driver      string
	Group       string
	Name        string
	Address     string
	Type        TagType
	Attrs       TagAttr
	Precision   int // 0-17
	Decimal     int // scale
	Bias        float64
	Description string
	Meta        map[string]string // driver-opaque metadata, <=20 bytes per value x 32 entries
	Format      []byte            // format descriptor, <=16 bytes

	opts     *AddressOptions
	optsErr  error
	optsDone bool
}

// Validate checks the tag's static name/metadata constraints.
func (t *Tag) Validate() error {
	if len(t.Name) == 0 || len(t.Name) > MaxTagNameLen {
		return fmt.Errorf("TAG_NAME_TOO_LONG")
	}
	if len(t.Meta) > MaxTagMetaEntries {
		return fmt.Errorf("TAG_META_TOO_MANY_ENTRIES")
	}
	for k, v := range t.Meta {
		if len(v) > MaxTagMetaLen {
			return fmt.Errorf("TAG_META_ENTRY_TOO_LONG: %s", k)
		}
	}
	if len(t.Format) > MaxFormatDescLen {
		return fmt.Errorf("TAG_FORMAT_TOO_LONG")
	}
	if t.Precision < 0 || t.Precision > 17 {
		return fmt.Errorf("TAG_PRECISION_OUT_OF_RANGE")
	}
	return nil
}

// AddressOpts parses (and caches) the address-option suffix lazily.
func (t *Tag) AddressOpts() (AddressOptions, error) {
	if t.optsDone {
		return *t.opts, t.optsErr
	}
	opts, err := ParseAddressOptions(t.Address, t.Type)
	t.opts = &opts
	t.optsErr = err
	t.optsDone = true
	return opts, err
}

// TagValue pairs a decoded value with its metadata for envelope transport.
type TagValue struct {
	Tag       string
	Type      TagType
	IsArray   bool
	Value     any
	Error     string
	Timestamp int64 // microseconds since epoch
}
