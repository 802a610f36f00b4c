// Package canpcap reads SocketCAN frames from pcap capture files, so logs
// recorded with tcpdump on a can interface can feed the same analysis as
// candump text logs.
package canpcap

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"CANSpectra/internal/model"
)

// canFrameSize is the on-wire size of a classic SocketCAN frame record.
const canFrameSize = 16

// canEffMask strips the EFF/RTR/ERR flag bits from the 32-bit raw identifier.
const canEffMask = 0x1FFFFFFF

// canErrFlag marks error frames, which carry no bus traffic.
const canErrFlag = 0x20000000

// ReadFile decodes every CAN frame of a SocketCAN pcap capture in file order.
// Error frames and truncated records are skipped with a warning.
func ReadFile(path string) ([]model.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pcap file: %w", err)
	}
	defer f.Close()

	r, err := pcapgo.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read pcap header: %w", err)
	}
	if lt := r.LinkType(); lt != layers.LinkTypeLinuxSLL && lt != layers.LinkType(227) {
		// 227 is LINKTYPE_CAN_SOCKETCAN; cooked captures on a can
		// interface also carry the same 16-byte frame records.
		return nil, fmt.Errorf("unsupported pcap link type %d", lt)
	}

	var frames []model.Frame
	skipped := 0
	for {
		data, ci, err := r.ReadPacketData()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read pcap packet: %w", err)
		}

		frame, ok := decodeFrame(data, ci)
		if !ok {
			skipped++
			continue
		}
		frames = append(frames, frame)
	}
	if skipped > 0 {
		log.Printf("WARN: skipped %d non-data packets in %s", skipped, path)
	}
	return frames, nil
}

// decodeFrame unpacks one SocketCAN record. The identifier is big-endian in
// pcap captures regardless of host byte order.
func decodeFrame(data []byte, ci gopacket.CaptureInfo) (model.Frame, bool) {
	if len(data) < canFrameSize {
		return model.Frame{}, false
	}

	rawID := binary.BigEndian.Uint32(data[0:4])
	if rawID&canErrFlag != 0 {
		return model.Frame{}, false
	}

	dlc := int(data[4])
	if dlc > 8 || 8+dlc > len(data) {
		return model.Frame{}, false
	}

	return model.Frame{
		Timestamp: float64(ci.Timestamp.UnixNano()) / 1e9,
		ID:        fmt.Sprintf("%03X", rawID&canEffMask),
		Payload:   append([]byte(nil), data[8:8+dlc]...),
	}, true
}
