package sparql

import (
	"context"
	"fmt"
	"time"

	"verenigingsloket.org/internal/auth"
	"verenigingsloket.org/internal/export"
)

// Store adapts the triplestore to the record-store contract consumed by
// the export assembler and the authorization gate. Queries that match
// nothing return empty results, not errors.
type Store struct {
	client *Client
	graph  string
}

func NewStore(client *Client, graph string) *Store {
	return &Store{client: client, graph: graph}
}

var (
	_ export.RecordStore = (*Store)(nil)
	_ auth.Directory     = (*Store)(nil)
)

// generalBindings maps SELECT variable names onto general-sheet columns.
var generalBindings = map[string]string{
	"vCode":             export.ColVCode,
	"naam":              export.ColNaam,
	"type":              export.ColType,
	"hoofdactiviteiten": export.ColHoofdactiviteiten,
	"beschrijving":      export.ColBeschrijving,
	"minimumleeftijd":   export.ColMinimumleeftijd,
	"maximumleeftijd":   export.ColMaximumleeftijd,
	"startdatum":        export.ColStartdatum,
	"kboNummer":         export.ColKboNummer,
	"straat":            export.ColStraat,
	"huisnummer":        export.ColHuisnummer,
	"busnummer":         export.ColBusnummer,
	"postcode":          export.ColPostcode,
	"gemeente":          export.ColGemeente,
	"land":              export.ColLand,
}

func (s *Store) GeneralRows(ctx context.Context, ids []string, scope string) ([]export.Row, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	solutions, err := s.client.Select(ctx, generalQuery(ids, s.graph))
	if err != nil {
		return nil, fmt.Errorf("store: general rows: %w", err)
	}
	return mapRows(solutions, generalBindings), nil
}

func (s *Store) LocationRows(ctx context.Context, ids []string, scope string) ([]export.Row, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	solutions, err := s.client.Select(ctx, locationsQuery(ids, s.graph))
	if err != nil {
		return nil, fmt.Errorf("store: location rows: %w", err)
	}
	return mapRows(solutions, generalBindings), nil
}

func (s *Store) IdentifiersInScope(ctx context.Context, scope string) ([]string, error) {
	solutions, err := s.client.Select(ctx, identifiersQuery(s.graph, scope))
	if err != nil {
		return nil, fmt.Errorf("store: identifiers in scope: %w", err)
	}
	ids := make([]string, 0, len(solutions))
	for _, sol := range solutions {
		if id, ok := sol["uuid"].(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *Store) ResolveVCodes(ctx context.Context, ids []string, scope string) ([]export.KeyMapping, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	solutions, err := s.client.Select(ctx, vcodesQuery(ids, s.graph))
	if err != nil {
		return nil, fmt.Errorf("store: resolve vcodes: %w", err)
	}
	out := make([]export.KeyMapping, 0, len(solutions))
	for _, sol := range solutions {
		id, _ := sol["uuid"].(string)
		vCode, _ := sol["vCode"].(string)
		if id == "" {
			continue
		}
		out = append(out, export.KeyMapping{ID: id, VCode: vCode})
	}
	return out, nil
}

// ResolveSession looks the session URI up in the triplestore. The roles
// come back one solution per role; the remaining variables repeat.
func (s *Store) ResolveSession(ctx context.Context, sessionID string) (*auth.Session, error) {
	if sessionID == "" {
		return nil, nil
	}
	solutions, err := s.client.Select(ctx, sessionQuery(sessionID))
	if err != nil {
		return nil, fmt.Errorf("store: resolve session: %w", err)
	}
	if len(solutions) == 0 {
		return nil, nil
	}

	sess := &auth.Session{ID: sessionID}
	seen := map[string]struct{}{}
	for _, sol := range solutions {
		if v, ok := sol["account"].(string); ok && sess.Account == "" {
			sess.Account = v
		}
		if v, ok := sol["group"].(string); ok && sess.Group == "" {
			sess.Group = v
		}
		if v, ok := sol["person"].(string); ok && sess.Person == "" {
			sess.Person = v
		}
		if v, ok := sol["scope"].(string); ok && sess.Scope == "" {
			sess.Scope = v
		}
		if v, ok := sol["role"].(string); ok && v != "" {
			if _, dup := seen[v]; !dup {
				seen[v] = struct{}{}
				sess.Roles = append(sess.Roles, v)
			}
		}
	}
	return sess, nil
}

func (s *Store) FindReason(ctx context.Context, reasonID string) (string, error) {
	if reasonID == "" {
		return "", nil
	}
	solutions, err := s.client.Select(ctx, reasonQuery(reasonID))
	if err != nil {
		return "", fmt.Errorf("store: find reason: %w", err)
	}
	if len(solutions) == 0 {
		return "", nil
	}
	ref, _ := solutions[0]["reason"].(string)
	return ref, nil
}

// mapRows renames the solution variables to sheet columns. Every mapped
// column is present on every row, so structurally equal records stay
// equal after mapping. Timestamps keep only their date part.
func mapRows(solutions []map[string]any, bindings map[string]string) []export.Row {
	if len(solutions) == 0 {
		return nil
	}
	rows := make([]export.Row, 0, len(solutions))
	for _, sol := range solutions {
		row := make(export.Row, len(bindings))
		for variable, column := range bindings {
			v := sol[variable]
			if ts, ok := v.(time.Time); ok {
				v = ts.Format("2006-01-02")
			}
			row[column] = v
		}
		rows = append(rows, row)
	}
	return rows
}
