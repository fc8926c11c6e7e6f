package export

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"verenigingsloket.org/internal/obs"
)

// ErrNoData indicates the assembler produced zero general rows; an empty
// artifact is never written.
var ErrNoData = errors.New("export: no data found")

// RecordStore is the consumed record-store contract. Implementations
// return empty results, never errors, on no-match.
type RecordStore interface {
	GeneralRows(ctx context.Context, ids []string, scope string) ([]Row, error)
	LocationRows(ctx context.Context, ids []string, scope string) ([]Row, error)
	IdentifiersInScope(ctx context.Context, scope string) ([]string, error)
	ResolveVCodes(ctx context.Context, ids []string, scope string) ([]KeyMapping, error)
}

// KeyMapping links an internal identifier to its external registry key.
type KeyMapping struct {
	ID    string
	VCode string
}

// RepresentativeSource yields representative rows for external registry
// keys. Individual fetch failures are absorbed by the implementation.
type RepresentativeSource interface {
	RepresentativeRows(ctx context.Context, keys []string) ([]Row, error)
}

// Sources selects which backends feed an export.
type Sources struct {
	Internal bool
	External bool
}

// Timings is per-phase observability metadata for one assembly.
type Timings struct {
	StoreQueries  time.Duration
	ExternalFetch time.Duration
	SheetWrite    time.Duration
	Chunks        int
}

// Artifact is the produced workbook plus row counts and timings.
type Artifact struct {
	Bytes               []byte
	GeneralCount        int
	LocationCount       int
	RepresentativeCount int
	Timings             Timings
}

// Assembler chunks an identifier set, merges rows from the record store
// and the external registry, deduplicates them and writes the workbook.
type Assembler struct {
	store     RecordStore
	source    RepresentativeSource
	writer    SheetWriter
	chunkSize int
}

func NewAssembler(store RecordStore, source RepresentativeSource, writer SheetWriter, chunkSize int) *Assembler {
	if chunkSize <= 0 {
		chunkSize = 100
	}
	return &Assembler{store: store, source: source, writer: writer, chunkSize: chunkSize}
}

// Assemble processes identifiers chunk by chunk: chunk i+1 does not start
// before chunk i's store and registry work both complete, bounding memory
// to one chunk of external records plus the accumulating rows. Within a
// chunk the store queries and the registry fetch run concurrently.
func (a *Assembler) Assemble(ctx context.Context, ids []string, scope string, sources Sources) (*Artifact, error) {
	var (
		general, locations, representatives []Row
		timings                             Timings
	)

	chunks := Chunks(ids, a.chunkSize)
	timings.Chunks = len(chunks)

	for _, chunk := range chunks {
		var (
			wg                 sync.WaitGroup
			chunkGeneral       []Row
			chunkLocations     []Row
			chunkReps          []Row
			storeErr, fetchErr error
		)

		if sources.Internal {
			wg.Add(1)
			go func(ids []string) {
				defer wg.Done()
				start := time.Now()
				defer func() { timings.StoreQueries += time.Since(start) }()
				chunkGeneral, storeErr = a.store.GeneralRows(ctx, ids, scope)
				if storeErr != nil {
					return
				}
				chunkLocations, storeErr = a.store.LocationRows(ctx, ids, scope)
			}(chunk)
		}

		if sources.External && a.source != nil {
			wg.Add(1)
			go func(ids []string) {
				defer wg.Done()
				start := time.Now()
				defer func() { timings.ExternalFetch += time.Since(start) }()
				mappings, err := a.store.ResolveVCodes(ctx, ids, scope)
				if err != nil {
					fetchErr = err
					return
				}
				keys := make([]string, 0, len(mappings))
				for _, m := range mappings {
					if m.VCode != "" {
						keys = append(keys, m.VCode)
					}
				}
				chunkReps, fetchErr = a.source.RepresentativeRows(ctx, keys)
			}(chunk)
		}

		wg.Wait()
		if storeErr != nil {
			return nil, fmt.Errorf("export: store query: %w", storeErr)
		}
		if fetchErr != nil {
			return nil, fmt.Errorf("export: registry fetch: %w", fetchErr)
		}

		general = append(general, chunkGeneral...)
		locations = append(locations, chunkLocations...)
		representatives = append(representatives, chunkReps...)
	}

	general = Deduplicate(general)
	locations = Deduplicate(locations)
	representatives = Deduplicate(representatives)

	if len(general) == 0 {
		return nil, ErrNoData
	}

	start := time.Now()
	data, err := a.writer.Write(general, locations, representatives)
	if err != nil {
		return nil, fmt.Errorf("export: write sheet: %w", err)
	}
	timings.SheetWrite = time.Since(start)

	obs.Log(map[string]any{
		"level": "info", "msg": "export assembled",
		"chunks":          timings.Chunks,
		"general":         len(general),
		"locations":       len(locations),
		"representatives": len(representatives),
		"store_ms":        timings.StoreQueries.Milliseconds(),
		"fetch_ms":        timings.ExternalFetch.Milliseconds(),
		"sheet_ms":        timings.SheetWrite.Milliseconds(),
	})

	return &Artifact{
		Bytes:               data,
		GeneralCount:        len(general),
		LocationCount:       len(locations),
		RepresentativeCount: len(representatives),
		Timings:             timings,
	}, nil
}

// Chunks splits ids into fixed-size sub-lists, preserving order.
func Chunks(ids []string, size int) [][]string {
	if size <= 0 || len(ids) == 0 {
		if len(ids) == 0 {
			return nil
		}
		return [][]string{ids}
	}
	var out [][]string
	for i := 0; i < len(ids); i += size {
		end := i + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[i:end])
	}
	return out
}
