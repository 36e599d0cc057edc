// Package plugin provides the public SDK types for Boltin modules.
// All Boltin modules (built-in and third-party) implement these interfaces.
package plugin

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// API version constants for module compatibility checking.
// The registry rejects modules outside the supported range.
const (
	APIVersionMin     = 1 // Oldest Module API version this server supports
	APIVersionCurrent = 1 // Current Module API version
)

// Module defines the interface that all Boltin modules must implement.
type Module interface {
	// Info returns the module's metadata and dependency declarations.
	Info() ModuleInfo

	// Init initializes the module with its dependencies.
	Init(ctx context.Context, deps Dependencies) error

	// Start begins the module's background operations.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the module.
	Stop(ctx context.Context) error
}

// ModuleInfo contains module metadata and dependency declarations.
type ModuleInfo struct {
	Name         string   // Unique identifier: "devices", "reports", "transfers", etc.
	Version      string   // Semantic version string
	Description  string   // Human-readable summary
	Dependencies []string // Module names that must initialize first
	Required     bool     // If true, server refuses to start without this module
	APIVersion   int      // Module API version targeted (currently 1)
}

// Dependencies provides controlled access to shared services.
// Injected by the registry during Init.
type Dependencies struct {
	Config  Config      // Scoped to this module's config section
	Logger  *zap.Logger // Named logger for this module
	Store   Store       // Shared document store
	Bus     EventBus    // Event publish/subscribe for inter-module communication
	Modules ModuleResolver
}

// Route represents an HTTP route exposed by a module.
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// HTTPProvider is implemented by modules that expose HTTP routes.
// Routes are mounted under /api/v1/{module}/.
type HTTPProvider interface {
	Routes() []Route
}

// Validator is implemented by modules that validate their configuration
// after Init. The registry disables optional modules that fail validation.
type Validator interface {
	ValidateConfig() error
}

// Store is a document store keyed by collection name. Each collection holds
// JSON documents with a string "id" field and is replaced wholesale on write.
type Store interface {
	// Collection returns a handle for the named collection, creating the
	// backing file/table on first use.
	Collection(name string) Collection

	// Close releases any underlying resources.
	Close() error
}

// Collection provides access to a single document collection. Implementations
// must serialize the read-validate-write cycle: two concurrent Mutate calls on
// the same collection never interleave.
type Collection interface {
	// ReadAll returns every document in the collection as raw JSON.
	ReadAll(ctx context.Context) ([][]byte, error)

	// WriteAll replaces the collection's contents.
	WriteAll(ctx context.Context, docs [][]byte) error

	// Get returns the document with the given id, or nil if absent.
	Get(ctx context.Context, id string) ([]byte, error)

	// Insert adds a document under the given unique id.
	Insert(ctx context.Context, id string, doc []byte) error

	// Update replaces the document with the given id.
	Update(ctx context.Context, id string, doc []byte) error

	// Delete removes the document with the given id.
	Delete(ctx context.Context, id string) error

	// Mutate runs fn while holding the collection's write lock. fn receives
	// the full document set and returns the replacement set, or nil to leave
	// the collection untouched. Validation done inside fn is atomic with the
	// write that follows.
	Mutate(ctx context.Context, fn func(docs [][]byte) ([][]byte, error)) error
}

// Config abstracts configuration access. Wraps Viper today, replaceable later.
type Config interface {
	Unmarshal(target any) error
	Get(key string) any
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetDuration(key string) time.Duration
	IsSet(key string) bool
	Sub(key string) Config
}

// Publisher sends events to the bus. Use this thin interface in code
// that only needs to emit events (follows io.Writer pattern).
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Subscriber receives events from the bus. Use this thin interface in
// code that only needs to listen for events (follows io.Reader pattern).
type Subscriber interface {
	Subscribe(topic string, handler EventHandler) (unsubscribe func())
}

// EventBus provides typed publish/subscribe for inter-module communication.
// Composes Publisher and Subscriber with async and wildcard extensions.
type EventBus interface {
	Publisher
	Subscriber
	PublishAsync(ctx context.Context, event Event)
	SubscribeAll(handler EventHandler) (unsubscribe func())
}

// Event represents a typed message on the event bus.
type Event struct {
	Topic     string
	Source    string // Module name that emitted the event
	Timestamp time.Time
	Payload   any // Type depends on topic
}

// EventHandler processes events from the bus.
type EventHandler func(ctx context.Context, event Event)

// ModuleResolver allows modules to locate other modules by name.
type ModuleResolver interface {
	Resolve(name string) (Module, bool)
}
