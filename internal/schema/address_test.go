package schema

import "testing"

func TestParseAddressOptionsDefaults(t *testing.T) {
	opts, err := ParseAddressOptions("40001", TagTypeInt16)
	if err != nil {
		t.Fatalf("ParseAddressOptions: %v", err)
	}
	if opts.Endian != EndianLittle {
		t.Fatalf("expected default LE endianness for 16-bit, got %s", opts.Endian)
	}

	opts, err = ParseAddressOptions("40001", TagTypeInt32)
	if err != nil {
		t.Fatalf("ParseAddressOptions: %v", err)
	}
	if opts.Endian != EndianLittleLittle {
		t.Fatalf("expected default LL endianness for 32-bit, got %s", opts.Endian)
	}
}

func TestParseAddressOptionsEndianSuffix(t *testing.T) {
	opts, err := ParseAddressOptions("40001#B", TagTypeInt16)
	if err != nil {
		t.Fatalf("ParseAddressOptions: %v", err)
	}
	if opts.Endian != EndianBig {
		t.Fatalf("expected B endianness, got %s", opts.Endian)
	}

	opts, err = ParseAddressOptions("40001#BL", TagTypeInt32)
	if err != nil {
		t.Fatalf("ParseAddressOptions: %v", err)
	}
	if opts.Endian != EndianBigLittle {
		t.Fatalf("expected BL endianness, got %s", opts.Endian)
	}

	if _, err := ParseAddressOptions("40001#XX", TagTypeInt16); err == nil {
		t.Fatalf("expected error for invalid 16-bit endianness suffix")
	}
	if _, err := ParseAddressOptions("40001#B", TagTypeInt32); err == nil {
		t.Fatalf("expected error for invalid 32-bit endianness suffix")
	}

	opts, err = ParseAddressOptions("40001#L", TagTypeDouble)
	if err != nil {
		t.Fatalf("ParseAddressOptions on DOUBLE: %v", err)
	}
	if opts.Endian != EndianLittle {
		t.Fatalf("expected L endianness for a 64-bit DOUBLE tag, got %s", opts.Endian)
	}
}

func TestParseAddressOptionsBitOffset(t *testing.T) {
	opts, err := ParseAddressOptions("40001.3", TagTypeBit)
	if err != nil {
		t.Fatalf("ParseAddressOptions: %v", err)
	}
	if opts.BitOffset != 3 {
		t.Fatalf("expected bit offset 3, got %d", opts.BitOffset)
	}
}

func TestParseAddressOptionsStringEncoding(t *testing.T) {
	opts, err := ParseAddressOptions("40001.10,H", TagTypeString)
	if err != nil {
		t.Fatalf("ParseAddressOptions: %v", err)
	}
	if opts.ByteLength != 10 || opts.Encoding != EncodingH {
		t.Fatalf("expected length=10 encoding=H, got length=%d encoding=%s", opts.ByteLength, opts.Encoding)
	}

	opts, err = ParseAddressOptions("40001.5", TagTypeString)
	if err != nil {
		t.Fatalf("ParseAddressOptions: %v", err)
	}
	if opts.Encoding != EncodingE {
		t.Fatalf("expected default encoding E when unspecified, got %s", opts.Encoding)
	}
}

func TestParseAddressOptionsSuffixNotApplicable(t *testing.T) {
	if _, err := ParseAddressOptions("40001.3", TagTypeInt16); err == nil {
		t.Fatalf("expected error: dot suffix not applicable to INT16")
	}
}
