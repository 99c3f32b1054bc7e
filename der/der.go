package der

import "errors"

// ErrMalformedLength is returned when a DER length encoding cannot be read
// without running past the end of the buffer.
var ErrMalformedLength = errors.New("malformed length")

// ReadLength reads the DER length of the element whose tag byte sits at off.
// It returns the declared content length and the number of header bytes
// (tag plus length bytes) that precede the content.
//
// Both short-form lengths (single byte < 0x80) and long-form lengths (first
// byte 0x80|n followed by n big-endian length bytes, 1 <= n <= 4) are
// supported.
func ReadLength(buf []byte, off int) (length, header int, err error) {
	if off < 0 || off+1 >= len(buf) {
		return 0, 0, ErrMalformedLength
	}

	first := buf[off+1]
	if first < 0x80 {
		// Short form: the byte is the length itself
		return int(first), 2, nil
	}

	n := int(first & 0x7f)
	if n == 0 || n > 4 {
		return 0, 0, ErrMalformedLength
	}
	if off+2+n > len(buf) {
		return 0, 0, ErrMalformedLength
	}

	for i := 0; i < n; i++ {
		length = length<<8 | int(buf[off+2+i])
	}
	return length, 2 + n, nil
}

// Skip returns the offset of the element following the one at off.
func Skip(buf []byte, off int) (int, error) {
	length, header, err := ReadLength(buf, off)
	if err != nil {
		return 0, err
	}
	next := off + header + length
	if next > len(buf) {
		return 0, ErrMalformedLength
	}
	return next, nil
}

// Enter returns the offset of the first content byte of the element at off.
// For a constructed element this is the offset of its first child.
func Enter(buf []byte, off int) (int, error) {
	_, header, err := ReadLength(buf, off)
	if err != nil {
		return 0, err
	}
	if off+header > len(buf) {
		return 0, ErrMalformedLength
	}
	return off + header, nil
}

// Content returns the content bytes of the element at off.
func Content(buf []byte, off int) ([]byte, error) {
	length, header, err := ReadLength(buf, off)
	if err != nil {
		return nil, err
	}
	if off+header+length > len(buf) {
		return nil, ErrMalformedLength
	}
	return buf[off+header : off+header+length], nil
}
