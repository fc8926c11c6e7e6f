package sparql

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"verenigingsloket.org/internal/export"
)

const sourceGraph = "http://mu.semte.ch/graphs/verenigingen"

func newTestStore(t *testing.T, handler http.HandlerFunc) *Store {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewStore(NewClient(srv.URL), sourceGraph)
}

func sparqlResponse(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/sparql-results+json")
	w.Write([]byte(body))
}

func TestGeneralRowsCoercion(t *testing.T) {
	var gotQuery string
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("Accept"); got != "application/sparql-results+json" {
			t.Errorf("unexpected Accept header %q", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotQuery = r.PostForm.Get("query")
		sparqlResponse(w, `{
			"head": {"vars": ["vCode", "naam", "minimumleeftijd", "startdatum", "gemeente"]},
			"results": {"bindings": [
				{
					"vCode": {"type": "literal", "value": "V0001"},
					"naam": {"type": "literal", "value": "Chiro Gent"},
					"minimumleeftijd": {"type": "typed-literal", "datatype": "http://www.w3.org/2001/XMLSchema#integer", "value": "6"},
					"startdatum": {"type": "typed-literal", "datatype": "http://www.w3.org/2001/XMLSchema#dateTime", "value": "2019-03-05T00:00:00Z"},
					"gemeente": {"type": "literal", "value": "Gent"}
				}
			]}
		}`)
	})

	rows, err := store.GeneralRows(context.Background(), []string{"id-1"}, "")
	if err != nil {
		t.Fatalf("general rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if row[export.ColVCode] != "V0001" {
		t.Errorf("vCode = %v", row[export.ColVCode])
	}
	if row[export.ColMinimumleeftijd] != 6 {
		t.Errorf("integer literal not coerced: %v (%T)", row[export.ColMinimumleeftijd], row[export.ColMinimumleeftijd])
	}
	if row[export.ColStartdatum] != "2019-03-05" {
		t.Errorf("dateTime not reduced to date: %v", row[export.ColStartdatum])
	}
	if row[export.ColKboNummer] != nil {
		t.Errorf("unbound variable should map to nil, got %v", row[export.ColKboNummer])
	}
	if !strings.Contains(gotQuery, `"id-1"`) {
		t.Errorf("query does not carry the id values block:\n%s", gotQuery)
	}
	if !strings.Contains(gotQuery, "<"+sourceGraph+">") {
		t.Errorf("query does not target the source graph:\n%s", gotQuery)
	}
}

func TestGeneralRowsEmptyInput(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no query expected for empty input")
	})
	rows, err := store.GeneralRows(context.Background(), nil, "")
	if err != nil || rows != nil {
		t.Fatalf("expected nil, nil; got %v, %v", rows, err)
	}
}

func TestNoMatchIsNotAnError(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		sparqlResponse(w, `{"head": {"vars": ["uuid"]}, "results": {"bindings": []}}`)
	})
	ids, err := store.IdentifiersInScope(context.Background(), "http://example.org/gebied")
	if err != nil {
		t.Fatalf("identifiers: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no identifiers, got %v", ids)
	}
}

func TestEndpointFailurePropagates(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "virtuoso choked", http.StatusInternalServerError)
	})
	if _, err := store.GeneralRows(context.Background(), []string{"id-1"}, ""); err == nil {
		t.Fatal("expected error on endpoint failure")
	}
}

func TestResolveVCodes(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		sparqlResponse(w, `{
			"head": {"vars": ["uuid", "vCode"]},
			"results": {"bindings": [
				{"uuid": {"type": "literal", "value": "id-1"}, "vCode": {"type": "literal", "value": "V0001"}},
				{"uuid": {"type": "literal", "value": "id-2"}}
			]}
		}`)
	})
	mappings, err := store.ResolveVCodes(context.Background(), []string{"id-1", "id-2"}, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(mappings) != 2 {
		t.Fatalf("expected 2 mappings, got %d", len(mappings))
	}
	if mappings[0].VCode != "V0001" || mappings[1].VCode != "" {
		t.Fatalf("unexpected mappings: %v", mappings)
	}
}

func TestResolveSessionAggregatesRoles(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		sparqlResponse(w, `{
			"head": {"vars": ["account", "group", "person", "scope", "role"]},
			"results": {"bindings": [
				{
					"account": {"type": "uri", "value": "http://example.org/accounts/a1"},
					"group": {"type": "uri", "value": "http://example.org/units/u1"},
					"person": {"type": "uri", "value": "http://example.org/persons/p1"},
					"scope": {"type": "uri", "value": "http://example.org/gebieden/gent"},
					"role": {"type": "literal", "value": "verenigingen-lezer"}
				},
				{
					"account": {"type": "uri", "value": "http://example.org/accounts/a1"},
					"group": {"type": "uri", "value": "http://example.org/units/u1"},
					"role": {"type": "literal", "value": "verenigingen-beheerder"}
				}
			]}
		}`)
	})

	sess, err := store.ResolveSession(context.Background(), "http://mu.semte.ch/sessions/s1")
	if err != nil {
		t.Fatalf("resolve session: %v", err)
	}
	if sess == nil {
		t.Fatal("expected a session")
	}
	if sess.Account != "http://example.org/accounts/a1" || sess.Group != "http://example.org/units/u1" {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if sess.Scope != "http://example.org/gebieden/gent" {
		t.Fatalf("unexpected scope %q", sess.Scope)
	}
	if len(sess.Roles) != 2 {
		t.Fatalf("expected 2 roles, got %v", sess.Roles)
	}
}

func TestResolveSessionUnknown(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		sparqlResponse(w, `{"head": {"vars": ["account"]}, "results": {"bindings": []}}`)
	})
	sess, err := store.ResolveSession(context.Background(), "http://mu.semte.ch/sessions/unknown")
	if err != nil || sess != nil {
		t.Fatalf("expected nil, nil; got %v, %v", sess, err)
	}
}

func TestFindReason(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if !strings.Contains(r.PostForm.Get("query"), `"reason-1"`) {
			t.Errorf("query does not carry the reason id")
		}
		sparqlResponse(w, `{
			"head": {"vars": ["reason"]},
			"results": {"bindings": [
				{"reason": {"type": "uri", "value": "http://data.lblod.info/id/reason-codes/reason-1"}}
			]}
		}`)
	})
	ref, err := store.FindReason(context.Background(), "reason-1")
	if err != nil {
		t.Fatalf("find reason: %v", err)
	}
	if ref != "http://data.lblod.info/id/reason-codes/reason-1" {
		t.Fatalf("unexpected reference %q", ref)
	}
}
