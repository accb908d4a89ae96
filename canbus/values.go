package canbus

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// ValueID identifies a configurable or readable quantity in the supervisor
// request/reply protocol. IDs are stable across the protocol; ids without a
// registered wire format are reserved for future use.
type ValueID uint16

const (
	ValueNop             ValueID = 0
	ValueMaxSpeedLevel   ValueID = 10
	ValueFlipJoystick    ValueID = 11
	ValueMaxTurnRate     ValueID = 20
	ValueMinTurnRate     ValueID = 21
	ValueMaxLinearAccel  ValueID = 22
	ValueMaxAngularAccel ValueID = 23
	ValueMotor10On       ValueID = 30
	ValueMotor11On       ValueID = 31
	ValueMotor12On       ValueID = 32
	ValueMotor13On       ValueID = 33
	ValueMotor14On       ValueID = 34
	ValueMotor15On       ValueID = 35
	ValueBatteryLow      ValueID = 40
	ValueBatteryHigh     ValueID = 41
	ValueWheelTrack      ValueID = 50
	ValueWheelBaseline   ValueID = 51
	ValueWheelGearRatio  ValueID = 52
	ValueWheelRadius     ValueID = 53
	ValuePTOCurrentDev   ValueID = 80
	ValuePTOCurrentRPM   ValueID = 81
	ValuePTOMinRPM       ValueID = 82
	ValuePTOMaxRPM       ValueID = 83
	ValuePTODefaultRPM   ValueID = 84
	// ValuePTOGearRatio shares id 84 with ValuePTODefaultRPM. The collision
	// comes from the authoritative node registry and is kept visible here
	// rather than silently merged, pending clarification upstream.
	ValuePTOGearRatio  ValueID = 84
	ValueSteeringGamma ValueID = 90
)

// WireFormat describes how a 4-byte value payload is laid out on the wire.
// All formats are little-endian.
type WireFormat int

const (
	// FormatSignedShort is an i16 followed by 2 pad bytes.
	FormatSignedShort WireFormat = iota
	// FormatUnsignedShort is a u16 followed by 2 pad bytes.
	FormatUnsignedShort
	// FormatFloat is an f32 with no padding.
	FormatFloat
	// FormatBool is a single byte followed by 3 pad bytes.
	FormatBool
)

// ValuePayloadLength is the fixed size of an encoded value payload.
const ValuePayloadLength = 4

func (f WireFormat) String() string {
	switch f {
	case FormatSignedShort:
		return "signed-short"
	case FormatUnsignedShort:
		return "unsigned-short"
	case FormatFloat:
		return "float"
	case FormatBool:
		return "bool"
	default:
		return "unknown"
	}
}

// valueFormats maps each registered value id to its wire format. The table is
// immutable after process start; ids absent from it are reserved
// (MaxLinearAccel, Motor14On, Motor15On, WheelBaseline among them).
var valueFormats = map[ValueID]WireFormat{
	ValueMaxSpeedLevel:   FormatUnsignedShort,
	ValueFlipJoystick:    FormatBool,
	ValueMaxTurnRate:     FormatFloat,
	ValueMinTurnRate:     FormatFloat,
	ValueMaxAngularAccel: FormatFloat,
	ValueMotor10On:       FormatBool,
	ValueMotor11On:       FormatBool,
	ValueMotor12On:       FormatBool,
	ValueMotor13On:       FormatBool,
	ValueBatteryLow:      FormatFloat,
	ValueBatteryHigh:     FormatFloat,
	ValueWheelTrack:      FormatFloat,
	ValueWheelGearRatio:  FormatFloat,
	ValueWheelRadius:     FormatFloat,
	ValuePTOCurrentDev:   FormatUnsignedShort,
	ValuePTOCurrentRPM:   FormatFloat,
	ValuePTOMinRPM:       FormatFloat,
	ValuePTOMaxRPM:       FormatFloat,
	// Covers both ValuePTODefaultRPM and ValuePTOGearRatio (shared id 84).
	ValuePTODefaultRPM: FormatFloat,
	ValueSteeringGamma: FormatFloat,
}

// valueNames gives the IPC-facing name for each registered value id.
var valueNames = map[ValueID]string{
	ValueMaxSpeedLevel:   "max-speed-level",
	ValueFlipJoystick:    "flip-joystick",
	ValueMaxTurnRate:     "max-turn-rate",
	ValueMinTurnRate:     "min-turn-rate",
	ValueMaxAngularAccel: "max-angular-accel",
	ValueMotor10On:       "motor10-on",
	ValueMotor11On:       "motor11-on",
	ValueMotor12On:       "motor12-on",
	ValueMotor13On:       "motor13-on",
	ValueBatteryLow:      "battery-low",
	ValueBatteryHigh:     "battery-high",
	ValueWheelTrack:      "wheel-track",
	ValueWheelGearRatio:  "wheel-gear-ratio",
	ValueWheelRadius:     "wheel-radius",
	ValuePTOCurrentDev:   "pto-current-dev",
	ValuePTOCurrentRPM:   "pto-current-rpm",
	ValuePTOMinRPM:       "pto-min-rpm",
	ValuePTOMaxRPM:       "pto-max-rpm",
	ValuePTODefaultRPM:   "pto-default-rpm",
	ValueSteeringGamma:   "steering-gamma",
}

var valueIDsByName = func() map[string]ValueID {
	m := make(map[string]ValueID, len(valueNames)+1)
	for id, name := range valueNames {
		m[name] = id
	}
	// Alias for the shared id 84, see ValuePTOGearRatio.
	m["pto-gear-ratio"] = ValuePTOGearRatio
	return m
}()

func (id ValueID) String() string {
	if name, ok := valueNames[id]; ok {
		return name
	}
	return fmt.Sprintf("value-%d", uint16(id))
}

// ValueIDByName resolves an IPC-facing value name to its id.
func ValueIDByName(name string) (ValueID, bool) {
	id, ok := valueIDsByName[name]
	return id, ok
}

// FormatFor returns the wire format registered for the given value id.
func FormatFor(id ValueID) (WireFormat, error) {
	format, ok := valueFormats[id]
	if !ok {
		return 0, fmt.Errorf("value id %d: %w", uint16(id), ErrUnregisteredValueID)
	}
	return format, nil
}

// RegisteredValueIDs returns all value ids with a wire format entry, sorted.
func RegisteredValueIDs() []ValueID {
	ids := make([]ValueID, 0, len(valueFormats))
	for id := range valueFormats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Value is a decoded supervisor value tagged with its wire format.
type Value struct {
	format WireFormat
	short  int16
	ushort uint16
	float  float32
	flag   bool
}

// ShortValue builds a signed-short value.
func ShortValue(v int16) Value {
	return Value{format: FormatSignedShort, short: v}
}

// UnsignedValue builds an unsigned-short value.
func UnsignedValue(v uint16) Value {
	return Value{format: FormatUnsignedShort, ushort: v}
}

// FloatValue builds a float value.
func FloatValue(v float32) Value {
	return Value{format: FormatFloat, float: v}
}

// BoolValue builds a boolean value.
func BoolValue(v bool) Value {
	return Value{format: FormatBool, flag: v}
}

func (v Value) Format() WireFormat { return v.format }
func (v Value) Short() int16       { return v.short }
func (v Value) Unsigned() uint16   { return v.ushort }
func (v Value) Float() float32     { return v.float }
func (v Value) Bool() bool         { return v.flag }

func (v Value) String() string {
	switch v.format {
	case FormatSignedShort:
		return strconv.FormatInt(int64(v.short), 10)
	case FormatUnsignedShort:
		return strconv.FormatUint(uint64(v.ushort), 10)
	case FormatFloat:
		return strconv.FormatFloat(float64(v.float), 'g', -1, 32)
	case FormatBool:
		return strconv.FormatBool(v.flag)
	default:
		return "?"
	}
}

// Encode returns the 4-byte wire representation of the value.
func (v Value) Encode() []byte {
	buf := make([]byte, ValuePayloadLength)
	switch v.format {
	case FormatSignedShort:
		binary.LittleEndian.PutUint16(buf[0:2], uint16(v.short))
	case FormatUnsignedShort:
		binary.LittleEndian.PutUint16(buf[0:2], v.ushort)
	case FormatFloat:
		binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(v.float))
	case FormatBool:
		buf[0] = boolToByte(v.flag)
	}
	return buf
}

// DecodeValue interprets a 4-byte payload according to the wire format
// registered for the given value id.
func DecodeValue(id ValueID, payload []byte) (Value, error) {
	format, err := FormatFor(id)
	if err != nil {
		return Value{}, err
	}
	if len(payload) != ValuePayloadLength {
		return Value{}, fmt.Errorf("value payload is %d bytes, want %d: %w",
			len(payload), ValuePayloadLength, ErrInvalidPayloadLength)
	}

	switch format {
	case FormatSignedShort:
		return ShortValue(int16(binary.LittleEndian.Uint16(payload[0:2]))), nil
	case FormatUnsignedShort:
		return UnsignedValue(binary.LittleEndian.Uint16(payload[0:2])), nil
	case FormatFloat:
		return FloatValue(math.Float32frombits(binary.LittleEndian.Uint32(payload[0:4]))), nil
	case FormatBool:
		return BoolValue(payload[0] != 0), nil
	default:
		return Value{}, fmt.Errorf("value id %d: %w", uint16(id), ErrUnregisteredValueID)
	}
}
