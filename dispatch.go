package broadctl

// Family is the coarse capability grouping that selects a device's
// command-payload dialect. It is assigned from the device type at
// discovery/hello time and immutable afterwards.
type Family int

const (
	FamilyUnsupported Family = iota
	FamilyRM
	FamilyRM4
	FamilySP1
	FamilySP2
	FamilySP2S
	FamilySP3
	FamilySP3S
	FamilySP4
	FamilyMP1
	FamilyBG1
	FamilyA1
	FamilyLB
	FamilyHub
	FamilyHysen
	FamilyDooya
	FamilyS1C
)

var familyNames = map[Family]string{
	FamilyUnsupported: "Unsupported",
	FamilyRM:          "RM",
	FamilyRM4:         "RM4",
	FamilySP1:         "SP1",
	FamilySP2:         "SP2",
	FamilySP2S:        "SP2S",
	FamilySP3:         "SP3",
	FamilySP3S:        "SP3S",
	FamilySP4:         "SP4",
	FamilyMP1:         "MP1",
	FamilyBG1:         "BG1",
	FamilyA1:          "A1",
	FamilyLB:          "LB",
	FamilyHub:         "Hub",
	FamilyHysen:       "Hysen",
	FamilyDooya:       "Dooya",
	FamilyS1C:         "S1C",
}

func (f Family) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}
	return "Unsupported"
}

// deviceModel ties a device-type code to its family and marketing name.
type deviceModel struct {
	family       Family
	model        string
	manufacturer string
}

// supportedTypes maps 16-bit device-type codes to their dialect. Unknown
// codes resolve to an Unsupported handle that still authenticates but
// rejects every family operation.
var supportedTypes = map[uint16]deviceModel{
	0x0000: {FamilySP1, "SP1", "Broadlink"},

	0x2717: {FamilySP2, "NEO", "Ankuoo"},
	0x2719: {FamilySP2, "SP2-compatible", "Honeywell"},
	0x271A: {FamilySP2, "SP2-compatible", "Honeywell"},
	0x2720: {FamilySP2, "SP mini", "Broadlink"},
	0x2728: {FamilySP2, "SP2-compatible", "URANT"},
	0x273E: {FamilySP2, "SP mini", "Broadlink"},
	0x7530: {FamilySP2, "SP2", "Broadlink (OEM)"},
	0x7539: {FamilySP2, "SP2-IL", "Broadlink (OEM)"},
	0x753E: {FamilySP2, "SP mini 3", "Broadlink"},
	0x7540: {FamilySP2, "MP2", "Broadlink"},
	0x7544: {FamilySP2, "SP2-CL", "Broadlink"},
	0x7546: {FamilySP2, "SP2-UK/BR/IN", "Broadlink (OEM)"},
	0x7547: {FamilySP2, "SC1", "Broadlink"},
	0x7918: {FamilySP2, "SP2", "Broadlink (OEM)"},
	0x7919: {FamilySP2, "SP2-compatible", "Honeywell"},
	0x791A: {FamilySP2, "SP2-compatible", "Honeywell"},
	0x7D0D: {FamilySP2, "SP mini 3", "Broadlink (OEM)"},

	0x2711: {FamilySP2S, "SP2", "Broadlink"},
	0x2716: {FamilySP2S, "NEO PRO", "Ankuoo"},
	0x271D: {FamilySP2S, "Ego", "Efergy"},
	0x2736: {FamilySP2S, "SP mini+", "Broadlink"},

	0x2733: {FamilySP3, "SP3", "Broadlink"},
	0x7D00: {FamilySP3, "SP3-EU", "Broadlink (OEM)"},

	0x9479: {FamilySP3S, "SP3S-US", "Broadlink"},
	0x947A: {FamilySP3S, "SP3S-EU", "Broadlink"},

	0x756C: {FamilySP4, "SP4M", "Broadlink"},
	0x756F: {FamilySP4, "MCB1", "Broadlink"},
	0x7579: {FamilySP4, "SP4L-EU", "Broadlink"},
	0x7583: {FamilySP4, "SP mini 3", "Broadlink"},
	0x7D11: {FamilySP4, "SP mini 3", "Broadlink"},
	0xA56A: {FamilySP4, "MCB1", "Broadlink"},
	0xA589: {FamilySP4, "SP4L-UK", "Broadlink"},
	0x5115: {FamilySP4, "SCB1E", "Broadlink"},
	0x51E2: {FamilySP4, "AHC/U-01", "BG Electrical"},
	0x6111: {FamilySP4, "MCB1", "Broadlink"},
	0x6113: {FamilySP4, "SCB1E", "Broadlink"},
	0x618B: {FamilySP4, "SP4L-EU", "Broadlink"},
	0x6489: {FamilySP4, "SP4L-AU", "Broadlink"},
	0x648B: {FamilySP4, "SP4M-US", "Broadlink"},

	0x2737: {FamilyRM, "RM mini 3", "Broadlink"},
	0x278F: {FamilyRM, "RM mini", "Broadlink"},
	0x27C2: {FamilyRM, "RM mini 3", "Broadlink"},
	0x27C7: {FamilyRM, "RM mini 3", "Broadlink"},
	0x27CC: {FamilyRM, "RM mini 3", "Broadlink"},
	0x27CD: {FamilyRM, "RM mini 3", "Broadlink"},
	0x27D0: {FamilyRM, "RM mini 3", "Broadlink"},
	0x27D1: {FamilyRM, "RM mini 3", "Broadlink"},
	0x27D3: {FamilyRM, "RM mini 3", "Broadlink"},
	0x27DE: {FamilyRM, "RM mini 3", "Broadlink"},
	0x5F36: {FamilyRM, "RM mini 3", "Broadlink"},
	0x6508: {FamilyRM, "RM mini 3", "Broadlink"},
	0x2712: {FamilyRM, "RM pro/pro+", "Broadlink"},
	0x272A: {FamilyRM, "RM pro", "Broadlink"},
	0x273D: {FamilyRM, "RM pro", "Broadlink"},
	0x277C: {FamilyRM, "RM home", "Broadlink"},
	0x2783: {FamilyRM, "RM home", "Broadlink"},
	0x2787: {FamilyRM, "RM pro", "Broadlink"},
	0x278B: {FamilyRM, "RM plus", "Broadlink"},
	0x2797: {FamilyRM, "RM pro+", "Broadlink"},
	0x279D: {FamilyRM, "RM pro+", "Broadlink"},
	0x27A1: {FamilyRM, "RM plus", "Broadlink"},
	0x27A6: {FamilyRM, "RM plus", "Broadlink"},
	0x27A9: {FamilyRM, "RM pro+", "Broadlink"},
	0x27C3: {FamilyRM, "RM pro+", "Broadlink"},

	0x51DA: {FamilyRM4, "RM4 mini", "Broadlink"},
	0x6070: {FamilyRM4, "RM4C mini", "Broadlink"},
	0x610E: {FamilyRM4, "RM4 mini", "Broadlink"},
	0x610F: {FamilyRM4, "RM4C mini", "Broadlink"},
	0x62BC: {FamilyRM4, "RM4 mini", "Broadlink"},
	0x62BE: {FamilyRM4, "RM4C mini", "Broadlink"},
	0x6364: {FamilyRM4, "RM4S", "Broadlink"},
	0x648D: {FamilyRM4, "RM4 mini", "Broadlink"},
	0x6539: {FamilyRM4, "RM4C mini", "Broadlink"},
	0x653A: {FamilyRM4, "RM4 mini", "Broadlink"},
	0x6026: {FamilyRM4, "RM4 pro", "Broadlink"},
	0x61A2: {FamilyRM4, "RM4 pro", "Broadlink"},
	0x649B: {FamilyRM4, "RM4 pro", "Broadlink"},
	0x653C: {FamilyRM4, "RM4 pro", "Broadlink"},

	0x2714: {FamilyA1, "e-Sensor", "Broadlink"},

	0x4EB5: {FamilyMP1, "MP1-1K4S", "Broadlink"},
	0x4EF7: {FamilyMP1, "MP1-1K4S", "Broadlink (OEM)"},
	0x4F1B: {FamilyMP1, "MP1-1K3S2U", "Broadlink (OEM)"},
	0x4F65: {FamilyMP1, "MP1-1K3S2U", "Broadlink"},

	0x51E3: {FamilyBG1, "BG800/BG900", "BG Electrical"},

	0x5043: {FamilyLB, "SB800TD", "Broadlink (OEM)"},
	0x504E: {FamilyLB, "LB1", "Broadlink"},
	0x60C7: {FamilyLB, "LB1", "Broadlink"},
	0x60C8: {FamilyLB, "LB1", "Broadlink"},
	0x6112: {FamilyLB, "LB1", "Broadlink"},
	0xA4F4: {FamilyLB, "LB27 R1", "Broadlink"},

	0xA59C: {FamilyHub, "S3", "Broadlink"},

	0x2722: {FamilyS1C, "S2KIT", "Broadlink"},
	0x4EAD: {FamilyHysen, "HY02B05H", "Hysen"},
	0x4E4D: {FamilyDooya, "DT360E-45/20", "Dooya"},
}

// lookupModel resolves a device-type code; unknown codes get the
// Unsupported family with model and manufacturer "Unknown".
func lookupModel(devType uint16) deviceModel {
	if m, ok := supportedTypes[devType]; ok {
		return m
	}
	return deviceModel{family: FamilyUnsupported, model: "Unknown", manufacturer: "Unknown"}
}

// SupportedTypes returns every known device-type code. Useful for
// tooling; the returned slice is a copy.
func SupportedTypes() []uint16 {
	codes := make([]uint16, 0, len(supportedTypes))
	for code := range supportedTypes {
		codes = append(codes, code)
	}
	return codes
}
