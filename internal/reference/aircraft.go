package reference

// GroundVehicle is the short code shared by every airside vehicle
const GroundVehicle = "GRND"

// AircraftShortNames maps in-game aircraft names to ICAO type designators
var AircraftShortNames = map[string]string{
	"A10 Warthog":                "A10",
	"An 225":                     "A225",
	"Airbus A320":                "A320",
	"A330 MRTT":                  "A332",
	"Airbus A330":                "A332",
	"Airbus A340":                "A345",
	"Airbus A350":                "A359",
	"Airbus A380":                "A388",
	"Airbus Beluga":              "A3ST",
	"An22":                       "AN22",
	"ATR72":                      "AT76",
	"ATR72F":                     "AT76",
	"B1 Lancer":                  "B1",
	"B2 Spirit Bomber":           "B2",
	"B29 SuperFortress":          "B29",
	"Bell 412":                   "B412",
	"Bell 412 Rescue":            "B412",
	"707AF1":                     "B703",
	"Boeing 707":                 "B703",
	"KC-707":                     "B703",
	"Boeing 727":                 "B722",
	"Boeing 727 Cargo":           "B722",
	"C40":                        "B737",
	"Boeing 737":                 "B738",
	"Boeing 737 Cargo":           "B738",
	"747AF1":                     "B742",
	"Boeing 747":                 "B744",
	"Boeing 747 Cargo":           "B744",
	"Boeing 757":                 "B752",
	"Boeing 757 Cargo":           "B752",
	"C-32":                       "B752",
	"KC767":                      "B762",
	"Boeing 767":                 "B763",
	"Boeing 767 Cargo":           "B763",
	"Boeing 777 Cargo":           "B77L",
	"Boeing 777":                 "B77W",
	"Boeing 787":                 "B789",
	"Balloon":                    "BALL",
	"Airbus A220":                "BCS1",
	"KingAir 260":                "BE20",
	"DreamLifter":                "BLCF",
	"C130 Hercules":              "C130",
	"EC-18B":                     "C135",
	"C17":                        "C17",
	"Cessna 172":                 "C172",
	"Cessna 172 Amphibian":       "C172",
	"Cessna 172 Student":         "C172",
	"Cessna 182":                 "C182",
	"Cessna 182 Amphibian":       "C182",
	"Cessna Caravan":             "C208",
	"Cessna Caravan Amphibian":   "C208",
	"Cessna Caravan Cargo":       "C208",
	"KC130J":                     "C30J",
	"Cessna 402":                 "C402",
	"Concorde":                   "CONC",
	"F4U Corsair":                "CORS",
	"Bombardier CRJ700":          "CRJ7",
	"Diamond DA50":               "DA50",
	"Bombardier Q400":            "DH8D",
	"DHC-6 Twin Otter":           "DHC6",
	"DHC-6 Twin Otter Amphibian": "DHC6",
	"Fokker Dr1":                 "DR1",
	"E190":                       "E190",
	"Extra 300s":                 "E300",
	"E-3 Sentry":                 "E3TF",
	"H135":                       "EC35",
	"Eurofighter Typhoon":        "EUFI",
	"F14":                        "F14",
	"F15":                        "F15",
	"F16":                        "F16",
	"F/A-18 Super Hornet":        "F18S",
	"F22":                        "F22",
	"F35":                        "F35",
	"F4 Phantom":                 "F4",
	"BaggageTruck":               GroundVehicle,
	"BaggageTruckSmall":          GroundVehicle,
	"Bus":                        GroundVehicle,
	"CateringTruck":              GroundVehicle,
	"FireTruck":                  GroundVehicle,
	"FollowMeTruck":              GroundVehicle,
	"FuelTruck":                  GroundVehicle,
	"FuelTruckSmall":             GroundVehicle,
	"PushBackBig":                GroundVehicle,
	"PushBackGreen":              GroundVehicle,
	"PushBackSmall":              GroundVehicle,
	"StairTruck":                 GroundVehicle,
	"StairTruck737":              GroundVehicle,
	"Chinook":                    "H47",
	"UH-60":                      "H60",
	"UH-60 Coast Guard":          "H60",
	"Harrier":                    "HAR",
	"Hawk T1":                    "HAWK",
	"Hurricane":                  "HURI",
	"Piper Cub":                  "J3",
	"Piper Cub Amphibian":        "J3",
	"KC-1":                       "L101",
	"Lockheed Tristar":           "L101",
	"Bombardier Learjet 45":      "LJ45",
	"English Electric Lightning": "LTNG",
	"Douglas MD11":               "MD11",
	"Douglas MD11 Cargo":         "MD11",
	"Douglas MD90":               "MD90",
	"Mig-15":                     "MG15",
	"Piper PA28181":              "P28A",
	"P38 Lightning":              "P38",
	"P51 Mustang":                "P51",
	"P8":                         "P8",
	"Paratrike":                  "PARA",
	"Sikorsky S92":               "S92",
	"Sikorsky S92 Coast Guard":   "S92",
	"Gripen":                     "SB39",
	"Cirrus Vision":              "SF50",
	"Blimp":                      "SHIP",
	"CaravanBlimp":               "SHIP",
	"Sled":                       "SLEI",
	"SR71 BlackBird":             "SR71",
	"SU27":                       "SU27",
	"SU57":                       "SU57",
	"Derek Plane":                "ULAC",
	"Avro Vulcan":                "VULC",
	"Wright Brothers Plane":      "WF",
	"A6M Zero":                   "ZERO",
	"Caproni Stipa":              "ZZZZ",
	"Might Walrus":               "ZZZZ",
	"Rescue Boat":                "ZZZZ",
	"UFO":                        "ZZZZ",
}

// ShortAircraftName returns the type designator for an in-game aircraft name.
// Unknown names are passed through unchanged.
func ShortAircraftName(name string) string {
	if short, ok := AircraftShortNames[name]; ok {
		return short
	}
	return name
}
