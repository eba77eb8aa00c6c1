package track

import (
	"fmt"
	"math"
)

// TrackPoint is one GPS fix. Lat/Lon are always set; every other field is
// optional and nil when the record did not carry it.
type TrackPoint struct {
	Lat float64
	Lon float64

	Elevation        *float64 // metres
	Timestamp        *float64 // Unix seconds
	Accuracy         *int32   // metres
	VerticalAccuracy *float64 // metres
	Pressure         *float64 // hPa
	Battery          *uint8   // percent

	SatGPS     *uint8
	SatGLONASS *uint8
	SatBeidou  *uint8
	SatGalileo *uint8

	Network *Network

	// Reserved by the format; never populated by current files.
	Inclination    *float64
	MagneticField  *float64
	ElevationWGS84 *float64
	ElevationDEM   *float64
}

// HasExtensions reports whether any field beyond position, elevation and
// time is present.
func (p TrackPoint) HasExtensions() bool {
	return p.Accuracy != nil || p.VerticalAccuracy != nil || p.Pressure != nil ||
		p.Battery != nil || p.SatGPS != nil || p.SatGLONASS != nil ||
		p.SatBeidou != nil || p.SatGalileo != nil || p.Network.present() ||
		p.Inclination != nil || p.MagneticField != nil ||
		p.ElevationWGS84 != nil || p.ElevationDEM != nil
}

// Network is the decoded cellular descriptor of an era-4 location.
type Network struct {
	Code          *uint8
	SignalRaw     *uint8
	Type          *string
	SignalPercent *int
	SignalDBm     *int
}

func (n *Network) present() bool {
	return n != nil && (n.Type != nil || n.SignalPercent != nil || n.SignalDBm != nil)
}

var (
	generationLabels = map[int]string{0: "NONE", 1: "2G", 2: "3G", 3: "4G", 4: "5G"}
	protocolLabels   = map[int]string{1: "GSM", 2: "CDMA", 3: "UMTS", 4: "LTE", 5: "NR"}
)

// DecodeNetwork maps a network code byte (generation in tens, protocol in
// units) and a signal byte (1 bad .. 127 good) to a type label, a percent and
// an estimated dBm. Outputs derived from a nil input are nil.
func DecodeNetwork(code, signal *uint8) Network {
	n := Network{Code: code, SignalRaw: signal}
	if code != nil {
		gen := int(*code) / 10
		proto := int(*code) % 10
		genLabel, ok := generationLabels[gen]
		if !ok {
			genLabel = fmt.Sprintf("%dG", gen)
		}
		label := genLabel
		if gen == 0 {
			label = "NONE"
		} else if p := protocolLabels[proto]; p != "" {
			label = genLabel + "/" + p
		}
		n.Type = &label
	}
	if signal != nil {
		pct := int(math.Round(float64(int(*signal)-1) / 126 * 100))
		pct = max(0, min(100, pct))
		// ASU to dBm heuristic.
		dbm := -113 + 2*int(*signal)
		n.SignalPercent = &pct
		n.SignalDBm = &dbm
	}
	return n
}

// ParseSatellites returns the GPS, GLONASS, BEIDOU and GALILEO counts from
// the per-constellation array. Slots 1, 3, 5 and 6 carry them; the others
// (unknown, SBAS, QZSS, IRNSS) are ignored.
func ParseSatellites(raw []byte) (gps, glo, bds, gal *uint8) {
	at := func(i int) *uint8 {
		if i >= len(raw) {
			return nil
		}
		v := raw[i]
		return &v
	}
	return at(1), at(3), at(5), at(6)
}
