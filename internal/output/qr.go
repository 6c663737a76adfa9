package output

import (
	"io"

	"github.com/mdp/qrterminal/v3"
	"rsc.io/qr"
)

// RenderQR draws data as a QR code when w is a terminal. Otherwise it writes nothing.
func RenderQR(w io.Writer, data string) {
	if !IsTerminal(w) {
		return
	}

	qrterminal.GenerateWithConfig(data, qrterminal.Config{
		Level:          qr.L,
		Writer:         w,
		QuietZone:      1,
		HalfBlocks:     true,
		BlackChar:      qrterminal.BLACK_BLACK,
		WhiteChar:      qrterminal.WHITE_WHITE,
		WhiteBlackChar: qrterminal.WHITE_BLACK,
		BlackWhiteChar: qrterminal.BLACK_WHITE,
	})
}
