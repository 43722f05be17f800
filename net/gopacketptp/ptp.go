package gopacketptp

import (
	"encoding/binary"
	"errors"

	"github.com/google/gopacket"

	"example.com/fpga-time/net/ptp"
)

var LayerTypePTP = gopacket.RegisterLayerType(
	1588,
	gopacket.LayerTypeMetadata{
		Name:    "PTP",
		Decoder: gopacket.DecodeFunc(decodePTP),
	},
)

// BaseLayer is a convenience struct which implements the LayerData and
// LayerPayload functions of the Layer interface.
// Copy-pasted from gopacket/layers (we avoid importing this due its massive size)
type BaseLayer struct {
	Contents []byte
	Payload  []byte
}

func (b *BaseLayer) LayerContents() []byte { return b.Contents }

func (b *BaseLayer) LayerPayload() []byte { return b.Payload }

// Packet is the common header of a PTPv2 message, plus the origin timestamp
// that event messages carry.
type Packet struct {
	BaseLayer
	SdoIDMessageType   uint8
	Version            uint8
	MessageLength      uint16
	DomainNumber       uint8
	MinorSdoID         uint8
	FlagField          uint16
	CorrectionField    int64
	SourceClockID      uint64
	SourcePort         uint16
	SequenceID         uint16
	ControlField       uint8
	LogMessageInterval int8
	OriginTimestamp    ptp.Timestamp
}

var errUnexpectedPacketSize = errors.New("unexpected packet size")

func (p *Packet) LayerType() gopacket.LayerType {
	return LayerTypePTP
}

func (p *Packet) MessageType() uint8 {
	return p.SdoIDMessageType & 0x0f
}

func decodePTP(data []byte, pb gopacket.PacketBuilder) error {
	p := &Packet{}
	err := p.DecodeFromBytes(data, pb)
	if err != nil {
		return err
	}

	pb.AddLayer(p)
	pb.SetApplicationLayer(p)

	return nil
}

func (p *Packet) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < ptp.HeaderLen+10 {
		df.SetTruncated()
		return errUnexpectedPacketSize
	}

	p.BaseLayer = BaseLayer{Contents: data}

	p.SdoIDMessageType = data[0]
	p.Version = data[1]
	p.MessageLength = binary.BigEndian.Uint16(data[2:])
	p.DomainNumber = data[4]
	p.MinorSdoID = data[5]
	p.FlagField = binary.BigEndian.Uint16(data[6:])
	p.CorrectionField = int64(binary.BigEndian.Uint64(data[8:]))
	p.SourceClockID = binary.BigEndian.Uint64(data[20:])
	p.SourcePort = binary.BigEndian.Uint16(data[28:])
	p.SequenceID = binary.BigEndian.Uint16(data[30:])
	p.ControlField = data[32]
	p.LogMessageInterval = int8(data[33])

	p.OriginTimestamp.Seconds = [6]uint8(data[34:40])
	p.OriginTimestamp.Nanoseconds = binary.BigEndian.Uint32(data[40:])

	return nil
}

func (p *Packet) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	data, err := b.PrependBytes(ptp.HeaderLen + 10)
	if err != nil {
		return err
	}

	data[0] = p.SdoIDMessageType
	data[1] = p.Version
	binary.BigEndian.PutUint16(data[2:], p.MessageLength)
	data[4] = p.DomainNumber
	data[5] = p.MinorSdoID
	binary.BigEndian.PutUint16(data[6:], p.FlagField)
	binary.BigEndian.PutUint64(data[8:], uint64(p.CorrectionField))
	binary.BigEndian.PutUint32(data[16:], 0)
	binary.BigEndian.PutUint64(data[20:], p.SourceClockID)
	binary.BigEndian.PutUint16(data[28:], p.SourcePort)
	binary.BigEndian.PutUint16(data[30:], p.SequenceID)
	data[32] = p.ControlField
	data[33] = byte(p.LogMessageInterval)
	copy(data[34:40], p.OriginTimestamp.Seconds[:])
	binary.BigEndian.PutUint32(data[40:], p.OriginTimestamp.Nanoseconds)

	return nil
}

func (p *Packet) CanDecode() gopacket.LayerClass {
	return LayerTypePTP
}

func (p *Packet) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypeZero
}

func (p *Packet) Payload() []byte {
	return nil
}
