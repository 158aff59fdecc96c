// Package arducam provides constants for register addresses and bitfields used
// by the capture-controller bridge found on SPI camera modules (3MP and 5MP).
package arducam

const (
	// Write transactions set bit 7 of the address byte.
	writeBit = 0x80
	addrMask = 0x7F

	// --- Sensor control ---
	regSensorReset  = 0x07
	sensorResetOn   = 0x40
	regSensorID     = 0x40
	regSensorState  = 0x44 // R, bits 1:0 state
	sensorStateMask = 0x03
	sensorStateIdle = 0x01
	regDebugAddress = 0x0A
	debugDeviceAddr = 0x78

	// --- Image pipeline ---
	regFormat       = 0x20
	regResolution   = 0x21
	regBrightness   = 0x22
	regContrast     = 0x23
	regSaturation   = 0x24
	regExposure     = 0x25
	regWhiteBalance = 0x26
	regEffect       = 0x27
	regSharpness    = 0x28 // 3MP only
	regAutoFocus    = 0x29 // 5MP only
	regImageQuality = 0x2A

	// --- AE / AGC / AWB ---
	regAutoControl = 0x30 // bit7 = enable, bits 1:0 select
	regGainHigh    = 0x31 // manual gain bits 9:8
	regGainLow     = 0x32 // manual gain bits 7:0
	autoEnable     = 0x80
	autoSelGain    = 0x00
	autoSelExpose  = 0x01
	autoSelWB      = 0x02

	// --- Capture buffer (FIFO) ---
	regFifoControl = 0x04
	fifoClearFlag  = 0x01
	fifoStart      = 0x02
	regTrigger     = 0x44 // shares the address with regSensorState
	capDoneMask    = 0x04
	regFifoSize1   = 0x45
	regFifoSize2   = 0x46
	regFifoSize3   = 0x47
	cmdSingleRead  = 0x3D
	cmdBurstRead   = 0x3C

	// Sensor identification codes.
	sensorID5MP1 = 0x81
	sensorID3MP1 = 0x82
	sensorID5MP2 = 0x83
	sensorID3MP2 = 0x84
)

// ChunkSize is the number of bytes pulled from the FIFO per burst read.
const ChunkSize = 255

// MaxFifoLength is the largest FIFO length considered plausible. Longer values
// usually mean the module did not take a picture and returned garbage.
const MaxFifoLength = 5_000_000

// End-of-image marker bytes.
const (
	markerPrefix = 0xFF
	markerEnd    = 0xD9
)
