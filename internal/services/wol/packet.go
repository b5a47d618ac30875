// Package wol builds and broadcasts Wake-on-LAN magic packets.
package wol

import (
	"fmt"

	"github.com/fgeck/gowol-homelab/internal/models"
	"github.com/mdlayher/wol"
)

// PacketSize is the length of a magic packet without password.
const PacketSize = 6 + 16*6

// Build returns the magic packet for mac: six 0xFF bytes followed by mac
// repeated sixteen times.
func Build(mac models.MAC) []byte {
	p := &wol.MagicPacket{Target: mac.HardwareAddr()}
	b, err := p.MarshalBinary()
	if err != nil {
		// Only reachable with a malformed target or password.
		panic(fmt.Sprintf("wol: marshal magic packet for %s: %v", mac, err))
	}
	return b
}
