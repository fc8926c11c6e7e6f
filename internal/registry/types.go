package registry

// Association is the raw nested payload for one entity in the external
// registry. Read-only once fetched; consumed by the mapper and discarded.
type Association struct {
	VCode              string              `json:"vCode"`
	Naam               string              `json:"naam"`
	KorteBeschrijving  string              `json:"korteBeschrijving"`
	Startdatum         string              `json:"startdatum"`
	Verenigingstype    *Verenigingstype    `json:"verenigingstype"`
	Doelgroep          *Doelgroep          `json:"doelgroep"`
	Hoofdactiviteiten  []Hoofdactiviteit   `json:"hoofdactiviteitenVerenigingsloket"`
	Contactgegevens    []Contactgegeven    `json:"contactgegevens"`
	Vertegenwoordigers []Vertegenwoordiger `json:"vertegenwoordigers"`
	Sleutels           []Sleutel           `json:"sleutels"`
}

type Verenigingstype struct {
	Code string `json:"code"`
	Naam string `json:"naam"`
}

type Doelgroep struct {
	Minimumleeftijd *int `json:"minimumleeftijd"`
	Maximumleeftijd *int `json:"maximumleeftijd"`
}

type Hoofdactiviteit struct {
	Naam string `json:"naam"`
}

// Contactgegeven carries one contact entry; Type distinguishes websites
// from social media (and from phone/e-mail entries, which are ignored).
type Contactgegeven struct {
	Type   string `json:"contactgegeventype"`
	Waarde string `json:"waarde"`
}

// Vertegenwoordiger is one named representative. The registry spells the
// email field with a hyphen.
type Vertegenwoordiger struct {
	Voornaam   string `json:"voornaam"`
	Achternaam string `json:"achternaam"`
	Email      string `json:"e-mail"`
	Telefoon   string `json:"telefoon"`
	Rol        string `json:"rol"`
}

// Sleutel is a registry key entry; the KBO number hides behind several
// historical schemes.
type Sleutel struct {
	CodeerSysteem                string                        `json:"codeerSysteem"`
	Bron                         string                        `json:"bron"`
	Waarde                       string                        `json:"waarde"`
	GestructureerdeIdentificator *GestructureerdeIdentificator `json:"gestructureerdeIdentificator"`
}

type GestructureerdeIdentificator struct {
	Nummer string `json:"nummer"`
}

// envelope is the registry's response wrapper.
type envelope struct {
	Vereniging *Association `json:"vereniging"`
}
