package sparql

import (
	"fmt"
	"strings"
)

const prefixes = `PREFIX mu: <http://mu.semte.ch/vocabularies/core/>
PREFIX ext: <http://mu.semte.ch/vocabularies/ext/>
PREFIX session: <http://mu.semte.ch/vocabularies/session/>
PREFIX skos: <http://www.w3.org/2004/02/skos/core#>
PREFIX dcterms: <http://purl.org/dc/terms/>
PREFIX org: <http://www.w3.org/ns/org#>
PREFIX reorg: <http://www.w3.org/ns/regorg#>
PREFIX foaf: <http://xmlns.com/foaf/0.1/>
PREFIX schema: <http://schema.org/>
PREFIX locn: <http://www.w3.org/ns/locn#>
PREFIX adms: <http://www.w3.org/ns/adms#>
PREFIX pav: <http://purl.org/pav/>
PREFIX person: <http://www.w3.org/ns/person#>
PREFIX adres: <https://data.vlaanderen.be/ns/adres#>
PREFIX generiek: <https://data.vlaanderen.be/ns/generiek#>
PREFIX organisatie: <https://data.vlaanderen.be/ns/organisatie#>
PREFIX verenigingen_ext: <http://data.lblod.info/vocabularies/FeitelijkeVerenigingen/>
`

const associationType = "<https://data.vlaanderen.be/ns/FeitelijkeVerenigingen#FeitelijkeVereniging>"

// escapeString renders s as a SPARQL string literal.
func escapeString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return `"` + r.Replace(s) + `"`
}

// escapeURI renders u as a SPARQL IRI reference.
func escapeURI(u string) string {
	r := strings.NewReplacer("<", "", ">", "", "\n", "", "\r", "", " ", "%20")
	return "<" + r.Replace(u) + ">"
}

func valuesBlock(ids []string) string {
	escaped := make([]string, 0, len(ids))
	for _, id := range ids {
		escaped = append(escaped, escapeString(id))
	}
	return strings.Join(escaped, " ")
}

// identifierBlocks matches the KBO and vCode identifiers registered on an
// association.
const identifierBlocks = `
    OPTIONAL {
      ?vereniging adms:identifier ?kboIdentifier .
      ?kboIdentifier skos:notation "KBO nummer" ;
                     generiek:gestructureerdeIdentificator ?kboStructuredID .
      ?kboStructuredID generiek:lokaleIdentificator ?kboNummer .
    }
    OPTIONAL {
      ?vereniging adms:identifier ?vIdentifier .
      ?vIdentifier skos:notation "vCode" ;
                   generiek:gestructureerdeIdentificator ?vStructuredID .
      ?vStructuredID generiek:lokaleIdentificator ?vCode .
    }`

func generalQuery(ids []string, graph string) string {
	return fmt.Sprintf(`%s
SELECT DISTINCT ?vCode ?naam ?type (GROUP_CONCAT(DISTINCT ?activityName; SEPARATOR = ", ") AS ?hoofdactiviteiten)
  ?beschrijving ?minimumleeftijd ?maximumleeftijd ?startdatum ?kboNummer ?straat ?huisnummer
  ?busnummer ?postcode ?gemeente ?land
WHERE { GRAPH %s {
    VALUES ?uuid { %s }
    ?vereniging a %s ;
                mu:uuid ?uuid .
    OPTIONAL { ?vereniging skos:prefLabel ?naam . }
    OPTIONAL { ?vereniging dcterms:description ?beschrijving . }
    OPTIONAL {
      ?vereniging org:hasPrimarySite ?primarySite .
      ?primarySite organisatie:bestaatUit ?address .
      ?address a locn:Address .
      OPTIONAL { ?address locn:postCode ?postcode . }
      OPTIONAL { ?address locn:thoroughfare ?straat . }
      OPTIONAL { ?address adres:land ?land . }
      OPTIONAL { ?address adres:gemeentenaam ?gemeente . }
      OPTIONAL { ?address adres:Adresvoorstelling.busnummer ?busnummer . }
      OPTIONAL { ?address adres:Adresvoorstelling.huisnummer ?huisnummer . }
    }
    OPTIONAL {
      ?vereniging reorg:orgActivity ?activity .
      ?activity skos:prefLabel ?activityName .
    }
    OPTIONAL { ?vereniging org:classification ?classification . }
    OPTIONAL {
      ?vereniging verenigingen_ext:doelgroep ?doelgroep .
      ?doelgroep verenigingen_ext:minimumleeftijd ?minimumleeftijd ;
                 verenigingen_ext:maximumleeftijd ?maximumleeftijd .
    }
    OPTIONAL { ?vereniging pav:createdOn ?startdatum . }%s
  }
  GRAPH <http://mu.semte.ch/graphs/public> {
    ?classification skos:notation ?type .
  }
}
ORDER BY ?vCode`, prefixes, escapeURI(graph), valuesBlock(ids), associationType, identifierBlocks)
}

func locationsQuery(ids []string, graph string) string {
	return fmt.Sprintf(`%s
SELECT DISTINCT ?vCode ?naam ?type (GROUP_CONCAT(DISTINCT ?activityName; SEPARATOR = ", ") AS ?hoofdactiviteiten)
  ?beschrijving ?minimumleeftijd ?maximumleeftijd ?startdatum ?kboNummer ?straat ?huisnummer
  ?busnummer ?postcode ?gemeente ?land
WHERE { GRAPH %s {
    VALUES ?uuid { %s }
    ?vereniging a %s ;
                skos:prefLabel ?naam ;
                mu:uuid ?uuid .
    OPTIONAL { ?vereniging dcterms:description ?beschrijving . }
    OPTIONAL {
      ?vereniging ?e ?site .
      ?site a org:Site ;
            organisatie:bestaatUit ?address .
      ?address locn:thoroughfare ?straat ;
               adres:Adresvoorstelling.huisnummer ?huisnummer ;
               locn:postCode ?postcode ;
               adres:gemeentenaam ?gemeente ;
               adres:land ?land .
      OPTIONAL { ?address adres:Adresvoorstelling.busnummer ?busnummer . }
    }
    OPTIONAL {
      ?vereniging reorg:orgActivity ?activity .
      ?activity skos:prefLabel ?activityName .
    }
    OPTIONAL { ?vereniging org:classification ?classification . }
    OPTIONAL {
      ?vereniging verenigingen_ext:doelgroep ?doelgroep .
      ?doelgroep verenigingen_ext:minimumleeftijd ?minimumleeftijd ;
                 verenigingen_ext:maximumleeftijd ?maximumleeftijd .
    }
    OPTIONAL { ?vereniging pav:createdOn ?startdatum . }%s
  }
  GRAPH <http://mu.semte.ch/graphs/public> {
    ?classification skos:notation ?type .
  }
}
ORDER BY ?vCode`, prefixes, escapeURI(graph), valuesBlock(ids), associationType, identifierBlocks)
}

func identifiersQuery(graph, scope string) string {
	scopeFilter := ""
	if scope != "" {
		scopeFilter = fmt.Sprintf(`
    ?vereniging ext:werkingsgebied %s .`, escapeURI(scope))
	}
	return fmt.Sprintf(`%s
SELECT DISTINCT ?uuid
WHERE { GRAPH %s {
    ?vereniging a %s ;
                mu:uuid ?uuid .%s
  }
}
ORDER BY ?uuid`, prefixes, escapeURI(graph), associationType, scopeFilter)
}

func vcodesQuery(ids []string, graph string) string {
	return fmt.Sprintf(`%s
SELECT DISTINCT ?uuid ?vCode
WHERE { GRAPH %s {
    VALUES ?uuid { %s }
    ?vereniging a %s ;
                mu:uuid ?uuid .%s
  }
}`, prefixes, escapeURI(graph), valuesBlock(ids), associationType, identifierBlocks)
}

func sessionQuery(sessionURI string) string {
	return fmt.Sprintf(`%s
SELECT ?account ?group ?person ?scope ?role
WHERE {
  %s session:account ?account .
  ?group foaf:member ?account .
  OPTIONAL { ?account foaf:isAccountOf ?person . }
  OPTIONAL { ?group ext:werkingsgebied ?scope . }
  OPTIONAL { %s ext:sessionRole ?role . }
}`, prefixes, escapeURI(sessionURI), escapeURI(sessionURI))
}

func reasonQuery(reasonID string) string {
	return fmt.Sprintf(`%s
SELECT ?reason
WHERE {
  ?reason a ext:ReasonCode ;
          mu:uuid %s .
}`, prefixes, escapeString(reasonID))
}
