package registry

import (
	"strings"

	"verenigingsloket.org/internal/export"
)

// Contact entry types that feed the export; phone and e-mail entries are
// separate types and never end up in either column.
const (
	contactTypeWebsite = "Website"
	contactTypeSocial  = "SocialMedia"
)

// MapRepresentativeRows flattens registry payloads into representative
// rows. An association without named representatives contributes zero
// rows; one with N representatives contributes N rows sharing the
// organization-level columns. Missing nested data degrades to nil cells.
func MapRepresentativeRows(assocs []Association) []export.Row {
	var rows []export.Row
	for _, assoc := range assocs {
		rows = append(rows, mapAssociation(assoc)...)
	}
	return rows
}

func mapAssociation(assoc Association) []export.Row {
	if len(assoc.Vertegenwoordigers) == 0 {
		// By design absent from the representative sheet, not an error.
		return nil
	}

	websites, socials := contactColumns(assoc.Contactgegevens)

	var typeCode any
	if assoc.Verenigingstype != nil {
		typeCode = nullable(assoc.Verenigingstype.Code)
	}
	var minAge, maxAge any
	if assoc.Doelgroep != nil {
		minAge = nullableInt(assoc.Doelgroep.Minimumleeftijd)
		maxAge = nullableInt(assoc.Doelgroep.Maximumleeftijd)
	}

	shared := export.Row{
		export.ColVCode:             nullable(assoc.VCode),
		export.ColNaam:              nullable(assoc.Naam),
		export.ColType:              typeCode,
		export.ColHoofdactiviteiten: nullable(joinActivities(assoc.Hoofdactiviteiten)),
		export.ColBeschrijving:      nullable(assoc.KorteBeschrijving),
		export.ColMinimumleeftijd:   minAge,
		export.ColMaximumleeftijd:   maxAge,
		export.ColStartdatum:        nullable(assoc.Startdatum),
		export.ColKboNummer:         kboNummer(assoc.Sleutels),
		export.ColWebsites:          nullable(websites),
		export.ColSocials:           nullable(socials),
	}

	rows := make([]export.Row, 0, len(assoc.Vertegenwoordigers))
	for _, rep := range assoc.Vertegenwoordigers {
		row := make(export.Row, len(shared)+3)
		for k, v := range shared {
			row[k] = v
		}
		row[export.ColVoornaam] = nullable(rep.Voornaam)
		row[export.ColAchternaam] = nullable(rep.Achternaam)
		row[export.ColEmail] = nullable(rep.Email)
		rows = append(rows, row)
	}
	return rows
}

// kboNummer matches the KBO registry number across the key schemes the
// registry has used over time.
func kboNummer(sleutels []Sleutel) any {
	for _, s := range sleutels {
		if s.CodeerSysteem != "KBO" && s.CodeerSysteem != "KboNummer" && s.Bron != "KBO" {
			continue
		}
		if s.Waarde != "" {
			return s.Waarde
		}
		if s.GestructureerdeIdentificator != nil && s.GestructureerdeIdentificator.Nummer != "" {
			return s.GestructureerdeIdentificator.Nummer
		}
	}
	return nil
}

func contactColumns(entries []Contactgegeven) (websites, socials string) {
	var w, s []string
	for _, entry := range entries {
		if entry.Waarde == "" {
			continue
		}
		switch entry.Type {
		case contactTypeWebsite:
			w = append(w, entry.Waarde)
		case contactTypeSocial:
			s = append(s, entry.Waarde)
		}
	}
	return strings.Join(w, ", "), strings.Join(s, ", ")
}

func joinActivities(activities []Hoofdactiviteit) string {
	var names []string
	for _, a := range activities {
		if a.Naam != "" {
			names = append(names, a.Naam)
		}
	}
	return strings.Join(names, ", ")
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
