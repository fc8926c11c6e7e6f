package export

import "encoding/json"

// Row is a flat mapping of export column names to scalar cell values
// (string, number or nil). Rows are value objects: two rows with identical
// column values are duplicates.
type Row map[string]any

// Column names shared by the three sheet shapes.
const (
	ColVCode             = "VCode"
	ColStatus            = "Status"
	ColNaam              = "Naam"
	ColType              = "Type"
	ColHoofdactiviteiten = "Hoofdactiviteiten"
	ColBeschrijving      = "Beschrijving"
	ColMinimumleeftijd   = "Minimumleeftijd"
	ColMaximumleeftijd   = "Maximumleeftijd"
	ColStartdatum        = "Startdatum"
	ColKboNummer         = "KboNummer"
	ColStraat            = "Straat"
	ColHuisnummer        = "Huisnummer"
	ColBusnummer         = "Busnummer"
	ColPostcode          = "Postcode"
	ColGemeente          = "Gemeente"
	ColLand              = "Land"
	ColVoornaam          = "Voornaam"
	ColAchternaam        = "Achternaam"
	ColEmail             = "Email"
	ColWebsites          = "Websites"
	ColSocials           = "Socials"
)

// GeneralColumns is the column order of the general sheet.
var GeneralColumns = []string{
	ColVCode, ColStatus, ColNaam, ColType, ColHoofdactiviteiten,
	ColBeschrijving, ColMinimumleeftijd, ColMaximumleeftijd, ColStartdatum,
	ColKboNummer, ColStraat, ColHuisnummer, ColBusnummer, ColPostcode,
	ColGemeente, ColLand,
}

// LocationColumns is the column order of the locations sheet.
var LocationColumns = []string{
	ColVCode, ColStatus, ColStraat, ColHuisnummer, ColBusnummer,
	ColPostcode, ColGemeente, ColLand, ColNaam, ColType,
	ColHoofdactiviteiten, ColBeschrijving, ColMinimumleeftijd,
	ColMaximumleeftijd, ColStartdatum, ColKboNummer,
}

// RepresentativeColumns is the column order of the representatives sheet.
var RepresentativeColumns = []string{
	ColVCode, ColVoornaam, ColAchternaam, ColEmail, ColWebsites, ColSocials,
	ColNaam, ColType, ColHoofdactiviteiten, ColBeschrijving,
	ColMinimumleeftijd, ColMaximumleeftijd, ColStartdatum, ColKboNummer,
}

// key returns a canonical representation used for structural equality.
// JSON object keys marshal in sorted order, so identical column values
// always produce identical keys.
func (r Row) key() string {
	data, err := json.Marshal(r)
	if err != nil {
		// Rows only ever hold scalars; marshal cannot realistically fail.
		return ""
	}
	return string(data)
}

// Deduplicate collapses structurally identical rows, preserving first-seen
// order. Idempotent: applying it twice yields the same list.
func Deduplicate(rows []Row) []Row {
	seen := make(map[string]struct{}, len(rows))
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		k := row.key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, row)
	}
	return out
}
