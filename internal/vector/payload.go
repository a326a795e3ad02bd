package vector

import (
	"github.com/qdrant/go-client/qdrant"

	"ragserver/internal/domain"
)

// Payload field names. Flat schema: chunk fields plus source provenance.
const (
	fieldText      = "text"
	fieldChunkSize = "chunk_size"
	fieldTimeStart = "time_start"
	fieldTimeEnd   = "time_end"
	fieldNamespace = "name_space"
	fieldSourceID  = "source_id"
	fieldTitle     = "title"
	fieldSlug      = "slug"
	fieldOriginURL = "origin_url"
	fieldUpdatedAt = "updated_at"
)

func recordToPoint(rec domain.VectorRecord) *qdrant.PointStruct {
	return &qdrant.PointStruct{
		Id:      qdrant.NewID(pointID(rec)),
		Vectors: qdrant.NewVectors(rec.Vector...),
		Payload: map[string]*qdrant.Value{
			fieldText:      stringValue(rec.Chunk.Text),
			fieldChunkSize: intValue(int64(rec.Chunk.Size)),
			fieldTimeStart: stringValue(rec.Chunk.TimeStart),
			fieldTimeEnd:   stringValue(rec.Chunk.TimeEnd),
			fieldNamespace: stringValue(rec.Chunk.Namespace),
			fieldSourceID:  stringValue(rec.Source.ID),
			fieldTitle:     stringValue(rec.Source.Title),
			fieldSlug:      stringValue(rec.Source.Slug),
			fieldOriginURL: stringValue(rec.Source.OriginURL),
			fieldUpdatedAt: stringValue(rec.Source.UpdatedAt),
		},
	}
}

// documentsFromPoints maps scored search hits into retrieved documents. The
// text stays separate; everything else becomes provenance metadata.
func documentsFromPoints(points []*qdrant.ScoredPoint) []domain.RetrievedDocument {
	docs := make([]domain.RetrievedDocument, 0, len(points))
	for _, point := range points {
		payload := point.GetPayload()
		if payload == nil {
			continue
		}
		docs = append(docs, domain.RetrievedDocument{
			Text:  payload[fieldText].GetStringValue(),
			Score: point.GetScore(),
			Metadata: map[string]any{
				fieldChunkSize: int(payload[fieldChunkSize].GetIntegerValue()),
				fieldTimeStart: payload[fieldTimeStart].GetStringValue(),
				fieldTimeEnd:   payload[fieldTimeEnd].GetStringValue(),
				fieldNamespace: payload[fieldNamespace].GetStringValue(),
				fieldSourceID:  payload[fieldSourceID].GetStringValue(),
				fieldTitle:     payload[fieldTitle].GetStringValue(),
				fieldSlug:      payload[fieldSlug].GetStringValue(),
			},
		})
	}
	return docs
}

func sourceFromPayload(payload map[string]*qdrant.Value) domain.SourceMetadata {
	if payload == nil {
		return domain.SourceMetadata{}
	}
	return domain.SourceMetadata{
		ID:        payload[fieldSourceID].GetStringValue(),
		Title:     payload[fieldTitle].GetStringValue(),
		Slug:      payload[fieldSlug].GetStringValue(),
		OriginURL: payload[fieldOriginURL].GetStringValue(),
		UpdatedAt: payload[fieldUpdatedAt].GetStringValue(),
	}
}

// namespaceFilter restricts hits to the given namespaces; nil means no
// restriction.
func namespaceFilter(namespaces []string) *qdrant.Filter {
	if len(namespaces) == 0 {
		return nil
	}
	return keywordsFilter(fieldNamespace, namespaces)
}

func sourceIDFilter(ids []string) *qdrant.Filter {
	return keywordsFilter(fieldSourceID, ids)
}

func keywordsFilter(field string, values []string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: field,
						Match: &qdrant.Match{
							MatchValue: &qdrant.Match_Keywords{
								Keywords: &qdrant.RepeatedStrings{Strings: values},
							},
						},
					},
				},
			},
		},
	}
}

func payloadSelector() *qdrant.WithPayloadSelector {
	return &qdrant.WithPayloadSelector{
		SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
	}
}

func stringValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

func intValue(n int64) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: n}}
}
