package binary

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/Juicywoowowow/basm-dev/vm"
)

func readU8(br *bytes.Reader) (uint8, error) {
	b, err := br.ReadByte()
	if err != nil {
		return 0, errors.Wrap(vm.ErrDecoder, "unexpected end of data reading u8")
	}
	return b, nil
}

func readU16(br *bytes.Reader) (uint16, error) {
	var v uint16
	if err := binary.Read(br, binary.LittleEndian, &v); err != nil {
		return 0, errors.Wrap(vm.ErrDecoder, "unexpected end of data reading u16")
	}
	return v, nil
}

func readU32(br *bytes.Reader) (uint32, error) {
	var v uint32
	if err := binary.Read(br, binary.LittleEndian, &v); err != nil {
		return 0, errors.Wrap(vm.ErrDecoder, "unexpected end of data reading u32")
	}
	return v, nil
}

func readI32(br *bytes.Reader) (int32, error) {
	var v int32
	if err := binary.Read(br, binary.LittleEndian, &v); err != nil {
		return 0, errors.Wrap(vm.ErrDecoder, "unexpected end of data reading i32")
	}
	return v, nil
}

func readBytes(br *bytes.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(br, buf); err != nil {
		return nil, errors.Wrap(vm.ErrDecoder, "unexpected end of data reading bytes")
	}
	return buf, nil
}

// readString reads a {u16 len, bytes} length-prefixed string, the default
// encoding for strings in the binary format (spec.md §6).
func readString(br *bytes.Reader) (string, error) {
	n, err := readU16(br)
	if err != nil {
		return "", err
	}
	b, err := readBytes(br, int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
