package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseAddressOptions parses the driver-specific address suffix: the last
// '.' introduces {length, encoding} for STRING/BYTES or a bit index for
// BIT, and the last '#' introduces endianness for 16/32/64-bit numeric
// types. Defaults are applied when a suffix is absent.
func ParseAddressOptions(address string, t TagType) (AddressOptions, error) {
	opts := AddressOptions{Endian: DefaultEndian(t)}

	base := address
	if idx := strings.LastIndex(address, "#"); idx >= 0 {
		suffix := address[idx+1:]
		base = address[:idx]
		switch t {
		case TagTypeInt16, TagTypeUint16, TagTypeInt64, TagTypeUint64, TagTypeDouble:
			switch Endianness(suffix) {
			case EndianBig, EndianLittle:
				opts.Endian = Endianness(suffix)
			default:
				return opts, fmt.Errorf("invalid endianness suffix %q for 16/64-bit tag", suffix)
			}
		case TagTypeInt32, TagTypeUint32, TagTypeFloat:
			switch Endianness(suffix) {
			case EndianBigBig, EndianBigLittle, EndianLittleLittle, EndianLittleBig:
				opts.Endian = Endianness(suffix)
			default:
				return opts, fmt.Errorf("invalid endianness suffix %q for 32-bit tag", suffix)
			}
		default:
			return opts, fmt.Errorf("endianness suffix not applicable to tag type")
		}
	}

	if idx := strings.LastIndex(base, "."); idx >= 0 {
		suffix := base[idx+1:]
		switch t {
		case TagTypeBit:
			bit, err := strconv.Atoi(suffix)
			if err != nil {
				return opts, fmt.Errorf("invalid bit offset %q: %w", suffix, err)
			}
			opts.BitOffset = bit
		case TagTypeString, TagTypeBytes:
			parts := strings.SplitN(suffix, ",", 2)
			length, err := strconv.Atoi(parts[0])
			if err != nil {
				return opts, fmt.Errorf("invalid length %q: %w", parts[0], err)
			}
			opts.ByteLength = length
			if len(parts) == 2 {
				switch StringEncoding(parts[1]) {
				case EncodingH, EncodingL, EncodingD, EncodingE:
					opts.Encoding = StringEncoding(parts[1])
				default:
					return opts, fmt.Errorf("invalid string encoding %q", parts[1])
				}
			} else {
				opts.Encoding = EncodingE
			}
		default:
			return opts, fmt.Errorf("dot suffix not applicable to tag type")
		}
	}

	return opts, nil
}
