package utils

const hexDigits = "0123456789ABCDEF"

// BlobLiteral renders b the way sqlite writes a blob literal, e.g. X'01D0'.
func BlobLiteral(b []byte) string {
	out := make([]byte, 0, len(b)*2+3)
	out = append(out, 'X', '\'')
	for _, x := range b {
		out = append(out, hexDigits[x>>4], hexDigits[x&0x0F])
	}
	return string(append(out, '\''))
}
