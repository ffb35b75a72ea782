package core

// itoa converts an integer to a string without using fmt package
// This is a lightweight alternative for embedded systems
func itoa(n int) string {
	if n == 0 {
		return "0"
	}

	negative := n < 0
	u := uint32(n)
	if negative {
		u = uint32(-n)
	}
	s := utoa(u)
	if negative {
		return "-" + s
	}
	return s
}

// Itoa is itoa for driver packages.
func Itoa(n int) string {
	return itoa(n)
}

// utoa converts an unsigned integer to a string
func utoa(n uint32) string {
	if n == 0 {
		return "0"
	}

	var buf [10]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[pos:])
}

const hexDigits = "0123456789abcdef"

// Hex8 formats a byte as two lowercase hex digits.
func Hex8(b byte) string {
	return string([]byte{hexDigits[b>>4], hexDigits[b&0x0f]})
}
