// Package vector is the qdrant-backed embedding store: deduplicated bulk
// insert and threshold-filtered similarity retrieval scoped by namespace.
package vector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"ragserver/internal/domain"
)

const scrollPageSize = 256

// Store wraps one pooled grpc connection to qdrant. Safe for concurrent use;
// constructed once at startup and shared across requests.
type Store struct {
	conn        *grpc.ClientConn
	points      qdrant.PointsClient
	collections qdrant.CollectionsClient
	collection  string
	timeout     time.Duration // server-side retrieval budget
	logger      *slog.Logger
}

// Connect dials qdrant and makes sure the collection exists with the given
// dimensionality and cosine distance. A dimensionality change needs a new
// collection; an existing one is never altered here.
func Connect(ctx context.Context, addr, collection string, dim int, retrievalTimeout time.Duration, logger *slog.Logger) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant dial: %w", err)
	}

	s := &Store{
		conn:        conn,
		points:      qdrant.NewPointsClient(conn),
		collections: qdrant.NewCollectionsClient(conn),
		collection:  collection,
		timeout:     retrievalTimeout,
		logger:      logger,
	}
	if err := s.ensureCollection(ctx, uint64(dim)); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) ensureCollection(ctx context.Context, dim uint64) error {
	_, err := s.collections.Get(ctx, &qdrant.GetCollectionInfoRequest{CollectionName: s.collection})
	if err == nil {
		return nil
	}
	if status.Code(err) != codes.NotFound {
		return fmt.Errorf("qdrant collection info: %w", err)
	}

	s.logger.Info("collection not found, creating it",
		slog.String("collection", s.collection), slog.Uint64("dimensions", dim))
	_, err = s.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     dim,
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant create collection: %w", err)
	}
	return nil
}

// Insert writes the batch, skipping every record whose source id is already
// present. Re-running an ingestion therefore inserts nothing the second time.
// The existence check and the write are not isolated against concurrent
// ingestions of the same source; that race is accepted.
func (s *Store) Insert(ctx context.Context, records []domain.VectorRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	existing, err := s.existingSourceIDs(ctx, distinctSourceIDs(records))
	if err != nil {
		return 0, fmt.Errorf("%w: existence check: %v", domain.ErrInsert, err)
	}
	fresh := withoutSources(records, existing)
	if len(fresh) == 0 {
		s.logger.Info("insert skipped, all sources already present",
			slog.Int("records", len(records)))
		return 0, nil
	}

	points := make([]*qdrant.PointStruct, len(fresh))
	for i, rec := range fresh {
		points[i] = recordToPoint(rec)
	}
	upsert, err := s.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrInsert, err)
	}
	st := upsert.GetResult().GetStatus()
	if st != qdrant.UpdateStatus_Acknowledged && st != qdrant.UpdateStatus_Completed {
		return 0, fmt.Errorf("%w: upsert status %d", domain.ErrInsert, st)
	}

	s.logger.Info("records inserted",
		slog.Int("inserted", len(fresh)), slog.Int("skipped", len(records)-len(fresh)))
	return len(fresh), nil
}

// existingSourceIDs scrolls for points whose source id is in ids and returns
// the set that is already persisted.
func (s *Store) existingSourceIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	existing := make(map[string]bool)
	var offset *qdrant.PointId
	for {
		resp, err := s.points.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Filter:         sourceIDFilter(ids),
			Limit:          proto.Uint32(scrollPageSize),
			Offset:         offset,
			WithPayload:    payloadSelector(),
		})
		if err != nil {
			return nil, err
		}
		for _, point := range resp.GetResult() {
			if id := point.GetPayload()[fieldSourceID].GetStringValue(); id != "" {
				existing[id] = true
			}
		}
		offset = resp.GetNextPageOffset()
		if offset == nil {
			break
		}
	}
	return existing, nil
}

// Retrieve runs the ANN search: candidate pool of size pool examined before
// ranking, optional namespace restriction, score threshold applied by the
// server, at most k results in descending score order. Zero survivors is the
// recognised no-answer outcome, reported as domain.ErrNoDocumentFound so
// callers can tell it apart from an empty list.
func (s *Store) Retrieve(ctx context.Context, vec []float32, namespaces []string, k int, threshold float32, pool int) ([]domain.RetrievedDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: s.collection,
		Vector:         vec,
		Limit:          uint64(k),
		ScoreThreshold: proto.Float32(threshold),
		Filter:         namespaceFilter(namespaces),
		Params: &qdrant.SearchParams{
			HnswEf: proto.Uint64(uint64(pool)),
		},
		WithPayload: payloadSelector(),
	})
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded) || status.Code(err) == codes.DeadlineExceeded:
			return nil, fmt.Errorf("%w: %v", domain.ErrRetrievalTimeout, err)
		case status.Code(err) == codes.InvalidArgument:
			// Covers a query vector whose length does not match the
			// collection's configured dimensionality.
			return nil, fmt.Errorf("%w: %v", domain.ErrRetrieval, err)
		default:
			return nil, fmt.Errorf("%w: %v", domain.ErrRetrieval, err)
		}
	}

	docs := documentsFromPoints(resp.GetResult())
	if len(docs) == 0 {
		return nil, domain.ErrNoDocumentFound
	}
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Score > docs[j].Score })
	return docs, nil
}

// Sources lists the distinct ingested sources, scrolling the whole
// collection. Operator-facing; not on the query path.
func (s *Store) Sources(ctx context.Context) ([]domain.SourceMetadata, error) {
	seen := make(map[string]bool)
	var sources []domain.SourceMetadata
	var offset *qdrant.PointId
	for {
		resp, err := s.points.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Limit:          proto.Uint32(scrollPageSize),
			Offset:         offset,
			WithPayload:    payloadSelector(),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrRetrieval, err)
		}
		for _, point := range resp.GetResult() {
			src := sourceFromPayload(point.GetPayload())
			if src.ID == "" || seen[src.ID] {
				continue
			}
			seen[src.ID] = true
			sources = append(sources, src)
		}
		offset = resp.GetNextPageOffset()
		if offset == nil {
			break
		}
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Title < sources[j].Title })
	return sources, nil
}

// DeleteSource removes every point belonging to one source id.
func (s *Store) DeleteSource(ctx context.Context, sourceID string) error {
	_, err := s.points.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: sourceIDFilter([]string{sourceID}),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: delete source %s: %v", domain.ErrInsert, sourceID, err)
	}
	return nil
}

// Count returns the exact number of stored points.
func (s *Store) Count(ctx context.Context) (uint64, error) {
	resp, err := s.points.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          proto.Bool(true),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: count: %v", domain.ErrRetrieval, err)
	}
	return resp.GetResult().GetCount(), nil
}

// pointID derives a stable point id from the source and the chunk text, so
// re-upserting identical content cannot fan out into duplicate points.
func pointID(rec domain.VectorRecord) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(rec.Source.ID+"|"+rec.Chunk.Namespace+"|"+rec.Chunk.TimeStart+"|"+rec.Chunk.Text)).String()
}

func distinctSourceIDs(records []domain.VectorRecord) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, rec := range records {
		if rec.Source.ID == "" || seen[rec.Source.ID] {
			continue
		}
		seen[rec.Source.ID] = true
		ids = append(ids, rec.Source.ID)
	}
	return ids
}

func withoutSources(records []domain.VectorRecord, existing map[string]bool) []domain.VectorRecord {
	var fresh []domain.VectorRecord
	for _, rec := range records {
		if existing[rec.Source.ID] {
			continue
		}
		fresh = append(fresh, rec)
	}
	return fresh
}
