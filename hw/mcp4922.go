package hw

// MCP4922 control nibble: DAC A, buffered Vref, 2x gain, output active.
const mcp4922Config = 0x50

// MCP4922 writes 12-bit values to channel A of an MCP4922 DAC.
type MCP4922 struct {
	bus Bus
}

// NewMCP4922 creates a DAC driver on the given bus
func NewMCP4922(bus Bus) *MCP4922 {
	return &MCP4922{bus: bus}
}

// Command returns the two command bytes for a value. Bits above 12 are dropped.
func (d *MCP4922) Command(value uint16) (hi, lo byte) {
	value &= 0x0FFF
	return mcp4922Config + byte(value>>8), byte(value & 0xFF)
}

// Write implements DAC.
func (d *MCP4922) Write(value uint16) {
	hi, lo := d.Command(value)
	d.bus.Select(true)
	d.bus.Transfer(hi)
	d.bus.Transfer(lo)
	d.bus.Select(false)
}
