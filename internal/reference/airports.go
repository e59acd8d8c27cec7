// Package reference holds the static lookup data for the simulator world:
// airports, FIR boundaries, position frequencies and aircraft type codes.
package reference

import "strings"

// Airport describes a simulator airport
type Airport struct {
	ICAO string `json:"icao"`
	Name string `json:"name"`
	City string `json:"city"`
	FIR  string `json:"fir"`
}

// UnknownAirport is used when an origin or destination is missing
const UnknownAirport = "ZZZZ"

// UnknownFrequency is reported for positions without a published frequency
const UnknownFrequency = "ZZZ.ZZZ"

// Airports indexed by ICAO code
var Airports = map[string]Airport{
	"IRFD": {ICAO: "IRFD", Name: "Greater Rockford", City: "Rockford", FIR: "IRCC"},
	"ILAR": {ICAO: "ILAR", Name: "Larnaca Intl.", City: "Cyprus", FIR: "ICCC"},
	"IZOL": {ICAO: "IZOL", Name: "Izolirani Intl.", City: "Izolirani", FIR: "IZCC"},
	"ITKO": {ICAO: "ITKO", Name: "Tokyo Intl.", City: "Orenji", FIR: "IOCC"},
	"IPPH": {ICAO: "IPPH", Name: "Perth Intl.", City: "Perth", FIR: "IPCC"},
	"IGRV": {ICAO: "IGRV", Name: "Grindavik Airport", City: "Grindavik", FIR: "IGCC"},
	"IPAP": {ICAO: "IPAP", Name: "Paphos Intl.", City: "Cyprus", FIR: "ICCC"},
	"IMLR": {ICAO: "IMLR", Name: "Mellor Intl.", City: "Rockford", FIR: "IRCC"},
	"ISAU": {ICAO: "ISAU", Name: "Sauthemptona", City: "Sauthemptona", FIR: "ISCC"},
	"IBTH": {ICAO: "IBTH", Name: "Saint Barthélemy", City: "Saint Barthélemy", FIR: "IBCC"},
	"ILKL": {ICAO: "ILKL", Name: "Lukla Airport", City: "Perth", FIR: "IPCC"},
	"IDCS": {ICAO: "IDCS", Name: "Saba Airport", City: "Orenji", FIR: "IOCC"},
	"IBRD": {ICAO: "IBRD", Name: "Bird Island", City: "Orenji", FIR: "IOCC"},
	"IJAF": {ICAO: "IJAF", Name: "Al Najaf", City: "Izolirani", FIR: "IZCC"},
	"ITRC": {ICAO: "ITRC", Name: "Training Centre", City: "Rockford", FIR: "IRCC"},
	"IBAR": {ICAO: "IBAR", Name: "Barra Airport", City: "Cyprus", FIR: "ICCC"},
	"IBLT": {ICAO: "IBLT", Name: "Boltic Airfield", City: "Rockford", FIR: "IRCC"},
	"IIAB": {ICAO: "IIAB", Name: "McConnell AFB", City: "Cyprus", FIR: "ICCC"},
	"ISCM": {ICAO: "ISCM", Name: "RAF Scampton", City: "Izolirani", FIR: "IZCC"},
	"IHEN": {ICAO: "IHEN", Name: "Henstridge Airfield", City: "Cyprus", FIR: "ICCC"},
	"IGAR": {ICAO: "IGAR", Name: "Air Base Garry", City: "Rockford", FIR: "IRCC"},
	"ISKP": {ICAO: "ISKP", Name: "Skopelos Airfield", City: "Skopelos", FIR: "IBCC"},
}

// AirportNameToICAO maps the short names pilots type into plans to ICAO codes
var AirportNameToICAO = map[string]string{
	"Rockford":         "IRFD",
	"Larnaca":          "ILAR",
	"Izolirani":        "IZOL",
	"Tokyo":            "ITKO",
	"Perth":            "IPPH",
	"Grindavik":        "IGRV",
	"Paphos":           "IPAP",
	"Sauthemptona":     "ISAU",
	"Mellor":           "IMLR",
	"Saint Barthélemy": "IBTH",
	"Lukla":            "ILKL",
	"Saba":             "IDCS",
	"Al Najaf":         "IJAF",
	"Training Centre":  "ITRC",
	"Barra":            "IBAR",
	"Boltic":           "IBLT",
	"McConnell":        "IIAB",
	"Scampton":         "ISCM",
	"Henstridge":       "IHEN",
	"Garry":            "IGAR",
	"Skopelos":         "ISKP",
	"Bird Island":      "IBRD",
}

// FIRMainAirport maps a FIR code to the airport its centre controller reports under
var FIRMainAirport = map[string]string{
	"IRCC": "IRFD",
	"ICCC": "ILAR",
	"IZCC": "IZOL",
	"IOCC": "ITKO",
	"IPCC": "IPPH",
	"IBCC": "IBTH",
	"IGCC": "IGRV",
	"ISCC": "ISAU",
}

// MajorAirports have their own staffed positions and never inherit a centre controller
var MajorAirports = map[string]bool{
	"ISAU": true,
	"IGRV": true,
	"ITKO": true,
	"IPPH": true,
	"IZOL": true,
	"IBTH": true,
	"ILAR": true,
	"IRFD": true,
}

// Frequencies by position name (<ICAO>_<POS> or <FIR>_CTR)
var Frequencies = map[string]string{
	"IRCC_CTR": "124.850",
	"IRFD_TWR": "118.100",
	"IRFD_GND": "120.400",
	"IMLR_TWR": "133.850",
	"IGAR_TWR": "125.600",
	"IBLT_TWR": "120.250",
	"ITRC_TWR": "119.150",
	"ICCC_CTR": "126.300",
	"ILAR_TWR": "121.200",
	"ILAR_GND": "119.400",
	"IPAP_TWR": "119.900",
	"IIAB_TWR": "127.250",
	"IHEN_TWR": "130.250",
	"IBAR_TWR": "118.750",
	"IZCC_CTR": "125.650",
	"IZOL_TWR": "118.700",
	"IZOL_GND": "121.900",
	"IJAF_TWR": "119.100",
	"ISCM_TWR": "121.300",
	"IOCC_CTR": "132.300",
	"ITKO_TWR": "118.800",
	"ITKO_GND": "118.225",
	"IDCS_TWR": "118.250",
	"IBRD_TWR": "118.300",
	"IPCC_CTR": "135.250",
	"IPPH_TWR": "127.400",
	"IPPH_GND": "121.700",
	"ILKL_TWR": "120.150",
	"IBCC_CTR": "128.600",
	"IBTH_TWR": "118.700",
	"ISKP_TWR": "123.250",
	"IGCC_CTR": "126.750",
	"IGRV_TWR": "118.300",
	"ISCC_CTR": "127.825",
	"ISAU_TWR": "118.200",
}

// FIRForAirport returns the FIR an airport belongs to, or UnknownAirport
func FIRForAirport(icao string) string {
	if a, ok := Airports[icao]; ok {
		return a.FIR
	}
	return UnknownAirport
}

// ResolveAirport maps a controller-reported airport (which may be a FIR code) to an ICAO code
func ResolveAirport(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return UnknownAirport
	}
	if icao, ok := FIRMainAirport[code]; ok {
		return icao
	}
	return code
}

// Frequency returns the published frequency for a position name
func Frequency(positionName string) string {
	if f, ok := Frequencies[positionName]; ok {
		return f
	}
	return UnknownFrequency
}
