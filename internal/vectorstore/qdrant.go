package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Tracer for OpenTelemetry instrumentation.
var tracer = otel.Tracer("lexai.vectorstore.qdrant")

// payloadDocumentID and payloadChunkText are the payload keys stored on
// every point and returned on search hits.
const (
	payloadDocumentID = "document_id"
	payloadChunkText  = "chunk_text"
)

// defaultGRPCPort is Qdrant's gRPC port (NOT the 6333 HTTP REST port).
const defaultGRPCPort = 6334

// defaultMaxMessageSize bounds gRPC messages. Large enough for batched
// chunk upserts of sizable documents.
const defaultMaxMessageSize = 50 * 1024 * 1024

// QdrantConfig holds configuration for the Qdrant gRPC client.
type QdrantConfig struct {
	// Host is the Qdrant server hostname or IP address.
	Host string

	// Port is the Qdrant gRPC port. Default: 6334.
	Port int

	// Collection is the collection used for all operations.
	Collection string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// MaxMessageSize is the maximum gRPC message size in bytes.
	// Default: 50MB.
	MaxMessageSize int

	// location is the raw store location string, kept for reporting.
	location string
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = defaultGRPCPort
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = defaultMaxMessageSize
	}
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port: %d", ErrInvalidConfig, c.Port)
	}
	return ValidateCollectionName(c.Collection)
}

// ParseQdrantURL builds a QdrantConfig from an http(s) store location.
// The scheme selects TLS; a missing port means the gRPC default 6334.
func ParseQdrantURL(location, collection string) (QdrantConfig, error) {
	u, err := url.Parse(location)
	if err != nil {
		return QdrantConfig{}, fmt.Errorf("%w: parsing store location %q: %v", ErrInvalidConfig, location, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return QdrantConfig{}, fmt.Errorf("%w: unsupported scheme %q in store location", ErrInvalidConfig, u.Scheme)
	}

	cfg := QdrantConfig{
		Host:       u.Hostname(),
		Collection: collection,
		UseTLS:     u.Scheme == "https",
		location:   location,
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return QdrantConfig{}, fmt.Errorf("%w: invalid port in store location %q", ErrInvalidConfig, location)
		}
		cfg.Port = port
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// QdrantStore is a Store implementation using Qdrant's native gRPC
// client. The gRPC transport avoids the HTTP layer's payload limits and
// gives binary protobuf encoding for batched chunk upserts.
type QdrantStore struct {
	client *qdrant.Client
	config QdrantConfig

	// ensured records whether EnsureCollection has confirmed the
	// collection exists, so repeated uploads skip the round trip.
	ensured   bool
	ensuredMu sync.Mutex
}

// NewQdrantStore creates a QdrantStore from the given configuration.
// The connection is established lazily; no network traffic happens
// until the first operation.
func NewQdrantStore(config QdrantConfig) (*QdrantStore, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		UseTLS: config.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
				grpc.MaxCallSendMsgSize(config.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	return &QdrantStore{
		client: client,
		config: config,
	}, nil
}

// Collection returns the collection name in use.
func (s *QdrantStore) Collection() string { return s.config.Collection }

// Location returns the store location string.
func (s *QdrantStore) Location() string { return s.config.location }

// Close closes the Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// EnsureCollection creates the collection with cosine distance if it
// does not exist yet.
func (s *QdrantStore) EnsureCollection(ctx context.Context, dimension int) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.EnsureCollection")
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", s.config.Collection),
		attribute.Int("dimension", dimension),
	)

	s.ensuredMu.Lock()
	defer s.ensuredMu.Unlock()
	if s.ensured {
		return nil
	}

	_, err := s.client.GetCollectionInfo(ctx, s.config.Collection)
	if err == nil {
		s.ensured = true
		span.SetStatus(codes.Ok, "exists")
		return nil
	}
	if st, ok := status.FromError(err); !ok || st.Code() != grpccodes.NotFound {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("checking collection %s: %w", s.config.Collection, err)
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.config.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("creating collection %s: %w", s.config.Collection, err)
	}

	s.ensured = true
	span.SetStatus(codes.Ok, "created")
	return nil
}

// UpsertPoints writes points with document_id and chunk_text payloads.
// The call waits for the write to be applied before returning.
func (s *QdrantStore) UpsertPoints(ctx context.Context, points []Point) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.UpsertPoints")
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", s.config.Collection),
		attribute.Int("point_count", len(points)),
	)

	if len(points) == 0 {
		return ErrEmptyPoints
	}

	qdrantPoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		payload := map[string]*qdrant.Value{
			payloadDocumentID: {Kind: &qdrant.Value_StringValue{StringValue: p.DocumentID}},
			payloadChunkText:  {Kind: &qdrant.Value_StringValue{StringValue: p.ChunkText}},
		}
		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: payload,
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.config.Collection,
		Points:         qdrantPoints,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upserting points to collection %s: %w", s.config.Collection, err)
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

// SearchChunks returns the most similar chunks of documentID.
func (s *QdrantStore) SearchChunks(ctx context.Context, documentID string, vector []float32, limit int) ([]SearchResult, error) {
	ctx, span := tracer.Start(ctx, "QdrantStore.SearchChunks")
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", s.config.Collection),
		attribute.String("document_id", documentID),
		attribute.Int("limit", limit),
	)

	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: payloadDocumentID,
						Match: &qdrant.Match{
							MatchValue: &qdrant.Match_Keyword{Keyword: documentID},
						},
					},
				},
			},
		},
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.config.Collection,
		Query:          qdrant.NewQuery(vector...),
		Filter:         filter,
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("searching collection %s: %w", s.config.Collection, err)
	}

	results := make([]SearchResult, 0, len(points))
	for _, point := range points {
		r := SearchResult{Score: point.Score}
		if v, ok := point.Payload[payloadChunkText]; ok {
			if sv, ok := v.Kind.(*qdrant.Value_StringValue); ok {
				r.ChunkText = sv.StringValue
			}
		}
		results = append(results, r)
	}

	span.SetAttributes(attribute.Int("results_count", len(results)))
	span.SetStatus(codes.Ok, "success")
	return results, nil
}

var _ Store = (*QdrantStore)(nil)
