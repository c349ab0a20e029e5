package opentherm

// MsgType is the 3-bit OpenTherm message type carried in the top bits of the
// payload word.
type MsgType byte

// Recognised message types. The core treats these as opaque passthrough
// values; it neither validates nor interprets them beyond masking to 3 bits.
const (
	ReadData      MsgType = 0b000
	WriteData     MsgType = 0b001
	InvalidData   MsgType = 0b010
	ReadAck       MsgType = 0b100
	WriteAck      MsgType = 0b101
	DataInvalid   MsgType = 0b110
	UnknownDataID MsgType = 0b111
)

func (t MsgType) String() string {
	switch t {
	case ReadData:
		return "ReadData"
	case ReadAck:
		return "ReadAck"
	case WriteData:
		return "WriteData"
	case WriteAck:
		return "WriteAck"
	case InvalidData:
		return "InvalidData"
	case DataInvalid:
		return "DataInvalid"
	case UnknownDataID:
		return "UnknownId"
	default:
		return "Unknown"
	}
}

// Message IDs, carried verbatim from original_source/opentherm.h. IDs are
// passthrough data: the core neither validates nor interprets them.
const (
	MsgIDStatus             = 0
	MsgIDChSetpoint         = 1
	MsgIDMasterConfig       = 2
	MsgIDSlaveConfig        = 3
	MsgIDCommandCode        = 4
	MsgIDFaultFlags         = 5
	MsgIDRemote             = 6
	MsgIDCoolingControl     = 7
	MsgIDControlSetpointCH2 = 8
	MsgIDChSetpointOverride = 9
	MsgIDRoomSetpoint       = 16
	MsgIDModulationLevel    = 17
	MsgIDChWaterPressure    = 18
	MsgIDDHWFlowRate        = 19
	MsgIDDayTime            = 20
	MsgIDDate               = 21
	MsgIDYear               = 22
	MsgIDRoomSetpointCH2    = 23
	MsgIDRoomTemp           = 24
	MsgIDFeedTemp           = 25
	MsgIDDHWTemp            = 26
	MsgIDOutsideTemp        = 27
	MsgIDReturnWaterTemp    = 28
	MsgIDSolarStoreTemp     = 29
	MsgIDSolarCollectTemp   = 30
	MsgIDFeedTempCH2        = 31
	MsgIDDHW2Temp           = 32
	MsgIDExhaustTemp        = 33
	MsgIDDHWBounds          = 48
	MsgIDChBounds           = 49
	MsgIDDHWSetpoint        = 56
	MsgIDMaxChSetpoint      = 57
	MsgIDOverrideFunc       = 100
	MsgIDBurnerStarts       = 116
	MsgIDChPumpStarts       = 117
	MsgIDDHWPumpStarts      = 118
	MsgIDDHWBurnerStarts    = 119
	MsgIDBurnerHours        = 120
	MsgIDChPumpHours        = 121
	MsgIDDHWPumpHours       = 122
	MsgIDDHWBurnerHours     = 123
	MsgIDOTVersionMaster    = 124
	MsgIDOTVersionSlave     = 125
	MsgIDVersionSlave       = 127
	MsgIDVersionMaster      = 128
)
