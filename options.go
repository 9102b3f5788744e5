package e57go

import (
	"log/slog"
	"os"

	"github.com/hupe1980/e57go/codec"
	"github.com/hupe1980/e57go/internal/colstore"
	"github.com/hupe1980/e57go/resource"
	"github.com/hupe1980/e57go/schema"
)

// DefaultLibraryVersion is recorded in the root header of created containers.
const DefaultLibraryVersion = "e57go"

type options struct {
	codec              codec.Codec
	compression        Compression
	pageRecords        int
	resources          *resource.Controller
	metricsCollector   MetricsCollector
	logger             *Logger
	coordinateMetadata string
	libraryVersion     string
}

// Option configures Open and Create.
type Option func(*options)

// WithCodec configures the codec used to serialize the manifest.
// Readers pick the codec recorded in the manifest; the option only
// affects writers.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression configures the compression of point and group pages.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithPageRecords configures the number of records per column page.
//
// Smaller pages lower the memory held by a reader session; larger pages
// compress better. Values <= 0 select the default of 65536.
func WithPageRecords(n int) Option {
	return func(o *options) {
		o.pageRecords = n
	}
}

// WithResourceController bounds the memory held by decoded pages, the number
// of decode workers and the write throughput.
//
// Example:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:   256 << 20,
//	    IOLimitBytesPerSec: 64 << 20,
//	})
//	r, _ := e57go.Open(ctx, store, e57go.WithResourceController(rc))
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithCoordinateMetadata sets the coordinate reference system string of a
// created container.
func WithCoordinateMetadata(crs string) Option {
	return func(o *options) {
		o.coordinateMetadata = crs
	}
}

// WithLibraryVersion overrides the library version recorded in the root header.
func WithLibraryVersion(v string) Option {
	return func(o *options) {
		o.libraryVersion = v
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &e57go.BasicMetricsCollector{}
//	r, _ := e57go.Open(ctx, store, e57go.WithMetricsCollector(metrics))
//	// ... transfer points ...
//	stats := metrics.Stats()
//	fmt.Printf("Records: %d, Avg latency: %dns\n", stats.PointReadRecords, stats.PointReadAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := e57go.NewJSONLogger(os.Stderr, slog.LevelInfo)
//	w, _ := e57go.Create(ctx, store, e57go.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel logs text records of at least level to stderr.
// Shorthand for WithLogger(NewTextLogger(os.Stderr, level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(os.Stderr, level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:            codec.Default,
		compression:      CompressionZstd,
		pageRecords:      colstore.DefaultPageRecords,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		libraryVersion:   DefaultLibraryVersion,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

type sessionOptions struct {
	extend func(*schema.Builder) error
}

// SessionOption configures a point writer session.
type SessionOption func(*sessionOptions)

// WithSchemaExtension registers a step that may add fields to the dataset's
// point schema. It runs exactly once, while the session is opened and before
// any record is written. Extension fields must use a prefix registered with
// AttributeWriter.RegisterExtension.
//
// Example:
//
//	w.Attributes().RegisterExtension("nor", "http://www.libe57.org/E57_NOR_surface_normals.txt")
//	pw, _ := w.OpenPointWriter(ctx, idx, fields, 1024,
//	    e57go.WithSchemaExtension(func(b *schema.Builder) error {
//	        return b.Add("nor:normalX", schema.Float32())
//	    }))
func WithSchemaExtension(fn func(*schema.Builder) error) SessionOption {
	return func(o *sessionOptions) {
		o.extend = fn
	}
}
