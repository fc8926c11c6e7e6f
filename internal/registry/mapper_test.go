package registry

import (
	"encoding/json"
	"testing"

	"verenigingsloket.org/internal/export"
)

func intp(v int) *int { return &v }

func sampleAssociation() Association {
	return Association{
		VCode:             "V0012345",
		Naam:              "Duivenbond Sint-Pieter",
		KorteBeschrijving: "Duivensport in de streek",
		Startdatum:        "2001-05-17",
		Verenigingstype:   &Verenigingstype{Code: "FV", Naam: "Feitelijke vereniging"},
		Doelgroep:         &Doelgroep{Minimumleeftijd: intp(16), Maximumleeftijd: intp(99)},
		Hoofdactiviteiten: []Hoofdactiviteit{{Naam: "Sport"}, {Naam: "Recreatie"}},
		Contactgegevens: []Contactgegeven{
			{Type: "Website", Waarde: "https://duivenbond.example"},
			{Type: "SocialMedia", Waarde: "https://facebook.example/duiven"},
			{Type: "E-mail", Waarde: "info@duivenbond.example"},
			{Type: "Telefoon", Waarde: "+32 9 555 55 55"},
		},
		Vertegenwoordigers: []Vertegenwoordiger{
			{Voornaam: "An", Achternaam: "Peeters", Email: "an@duivenbond.example"},
			{Voornaam: "Bert", Achternaam: "Claes", Email: "bert@duivenbond.example"},
		},
		Sleutels: []Sleutel{
			{CodeerSysteem: "Verenigingsloket", Waarde: "irrelevant"},
			{CodeerSysteem: "KBO", Waarde: "0123.456.789"},
		},
	}
}

func TestMapZeroRepresentativesZeroRows(t *testing.T) {
	assoc := sampleAssociation()
	assoc.Vertegenwoordigers = nil
	if rows := MapRepresentativeRows([]Association{assoc}); len(rows) != 0 {
		t.Fatalf("expected zero rows, got %d", len(rows))
	}
}

func TestMapOneRowPerRepresentative(t *testing.T) {
	rows := MapRepresentativeRows([]Association{sampleAssociation()})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	// Organization-level columns must be identical across siblings.
	for _, col := range []string{
		export.ColVCode, export.ColNaam, export.ColType,
		export.ColHoofdactiviteiten, export.ColBeschrijving,
		export.ColMinimumleeftijd, export.ColMaximumleeftijd,
		export.ColStartdatum, export.ColKboNummer,
		export.ColWebsites, export.ColSocials,
	} {
		if rows[0][col] != rows[1][col] {
			t.Fatalf("column %s differs between siblings: %v vs %v", col, rows[0][col], rows[1][col])
		}
	}

	if rows[0][export.ColEmail] != "an@duivenbond.example" {
		t.Fatalf("hyphenated e-mail field not mapped: %v", rows[0][export.ColEmail])
	}
	if rows[0][export.ColHoofdactiviteiten] != "Sport, Recreatie" {
		t.Fatalf("activities not comma-joined: %v", rows[0][export.ColHoofdactiviteiten])
	}
	if rows[0][export.ColKboNummer] != "0123.456.789" {
		t.Fatalf("KBO number not extracted: %v", rows[0][export.ColKboNummer])
	}
}

func TestMapKeepsWebsitesAndSocialsApart(t *testing.T) {
	rows := MapRepresentativeRows([]Association{sampleAssociation()})
	if rows[0][export.ColWebsites] != "https://duivenbond.example" {
		t.Fatalf("unexpected websites: %v", rows[0][export.ColWebsites])
	}
	if rows[0][export.ColSocials] != "https://facebook.example/duiven" {
		t.Fatalf("unexpected socials: %v", rows[0][export.ColSocials])
	}
}

func TestMapKboNummerKeySchemes(t *testing.T) {
	cases := []struct {
		name     string
		sleutels []Sleutel
		want     any
	}{
		{"codeerSysteem KBO", []Sleutel{{CodeerSysteem: "KBO", Waarde: "1"}}, "1"},
		{"codeerSysteem KboNummer", []Sleutel{{CodeerSysteem: "KboNummer", Waarde: "2"}}, "2"},
		{"bron KBO", []Sleutel{{Bron: "KBO", Waarde: "3"}}, "3"},
		{"nested identificator", []Sleutel{{CodeerSysteem: "KBO", GestructureerdeIdentificator: &GestructureerdeIdentificator{Nummer: "4"}}}, "4"},
		{"no match", []Sleutel{{CodeerSysteem: "Other", Waarde: "5"}}, nil},
	}
	for _, tc := range cases {
		assoc := sampleAssociation()
		assoc.Sleutels = tc.sleutels
		rows := MapRepresentativeRows([]Association{assoc})
		if got := rows[0][export.ColKboNummer]; got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestMapMalformedPayloadDegradesToNil(t *testing.T) {
	raw := `{"vereniging":{"vCode":"V1","vertegenwoordigers":[{}]}}`
	var payload envelope
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	rows := MapRepresentativeRows([]Association{*payload.Vereniging})
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	for _, col := range []string{export.ColNaam, export.ColType, export.ColMinimumleeftijd, export.ColEmail, export.ColKboNummer} {
		if rows[0][col] != nil {
			t.Fatalf("column %s should degrade to nil, got %v", col, rows[0][col])
		}
	}
}
