package tray

import "encoding/binary"

const iconSize = 16

// icon returns a 16x16 32-bit ICO showing a mouse outline
func icon() []byte {
	const (
		pixelBytes = iconSize * iconSize * 4
		maskBytes  = iconSize * 4 // 1 bpp rows padded to 32 bits
		dibSize    = 40
		imageSize  = dibSize + pixelBytes + maskBytes
		offset     = 6 + 16
	)

	buf := make([]byte, offset+imageSize)

	// ICONDIR
	binary.LittleEndian.PutUint16(buf[2:], 1) // type: icon
	binary.LittleEndian.PutUint16(buf[4:], 1) // count

	// ICONDIRENTRY
	buf[6] = iconSize
	buf[7] = iconSize
	binary.LittleEndian.PutUint16(buf[10:], 1)  // planes
	binary.LittleEndian.PutUint16(buf[12:], 32) // bpp
	binary.LittleEndian.PutUint32(buf[14:], imageSize)
	binary.LittleEndian.PutUint32(buf[18:], offset)

	// BITMAPINFOHEADER, height doubled for the AND mask
	dib := buf[offset:]
	binary.LittleEndian.PutUint32(dib[0:], dibSize)
	binary.LittleEndian.PutUint32(dib[4:], iconSize)
	binary.LittleEndian.PutUint32(dib[8:], iconSize*2)
	binary.LittleEndian.PutUint16(dib[12:], 1)
	binary.LittleEndian.PutUint16(dib[14:], 32)
	binary.LittleEndian.PutUint32(dib[20:], pixelBytes)

	// Pixels are stored bottom-up as BGRA
	pixels := dib[dibSize:]
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			if !mouseShape(x, y) {
				continue
			}
			row := iconSize - 1 - y
			p := pixels[(row*iconSize+x)*4:]
			p[0], p[1], p[2], p[3] = 0xE0, 0xE0, 0xE0, 0xFF
		}
	}
	return buf
}

// mouseShape is a rounded body split by a button seam, in top-down coordinates
func mouseShape(x, y int) bool {
	if x < 4 || x > 11 || y < 1 || y > 14 {
		return false
	}
	// round the corners
	if (y == 1 || y == 14) && (x == 4 || x == 11) {
		return false
	}
	edge := x == 4 || x == 11 || y == 1 || y == 14
	seam := y == 6 || (x == 7 && y < 6)
	return edge || seam
}
