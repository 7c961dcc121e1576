package deker

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/alitto/pond"

	"github.com/deker-engine/deker-go/storage"
)

// LogLevel is a coarse verbosity switch, feeding a stdlib
// *log.Logger rather than a structured logging framework the example pack
// never depends on (see DESIGN.md's ambient-stack entry for this choice).
type LogLevel int

const (
	LogSilent LogLevel = iota
	LogInfo
	LogDebug
)

// ClientOptions configures a Client.
type ClientOptions struct {
	// StorageURI names the root storage location, "<scheme>://<path>". The
	// scheme selects the storage.Adapter (e.g. "file" for LocalAdapter).
	StorageURI string

	Executor *pond.WorkerPool // supplied by caller; takes precedence over Workers
	Workers  int              // size of an owned pool, used when Executor is nil

	WriteLockTimeout       time.Duration
	WriteLockCheckInterval time.Duration

	LogLevel LogLevel
	Logger   *log.Logger // overrides the default os.Stderr logger when set

	MemoryLimitBytes                 int64 // 0 => no explicit cap beyond available RAM+swap
	SkipCollectionCreateMemoryCheck bool
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.WriteLockTimeout == 0 {
		o.WriteLockTimeout = DefaultLockTimeout
	}
	if o.WriteLockCheckInterval == 0 {
		o.WriteLockCheckInterval = DefaultLockCheckInterval
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU() + 4
	}
	return o
}

// Client is the engine's top-level handle: it owns the storage adapter
// binding, the process-wide lock registry reference, and the bounded worker
// pool virtual-array operations scatter/gather across.
type Client struct {
	opts ClientOptions

	scheme      string
	storageRoot string
	adapter     storage.Adapter

	registry *lockRegistry
	pool     *pond.WorkerPool
	ownsPool bool

	logger *log.Logger
}

// NewClient constructs a Client, resolving the storage adapter for the
// configured URI scheme and acquiring a reference on the process-wide lock
// registry.
func NewClient(opts ClientOptions) (*Client, error) {
	opts = opts.withDefaults()

	scheme, root, ok := strings.Cut(opts.StorageURI, "://")
	if !ok {
		return nil, errValidation(fmt.Sprintf("storage uri %q must be of the form <scheme>://<path>", opts.StorageURI), nil)
	}
	adapter, err := storage.Lookup(scheme)
	if err != nil {
		return nil, errValidation("no adapter for storage uri", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "deker: ", log.LstdFlags)
	}

	c := &Client{
		opts:        opts,
		scheme:      scheme,
		storageRoot: root,
		adapter:     adapter,
		registry:    acquireGlobalRegistry(),
		logger:      logger,
	}

	if opts.Executor != nil {
		c.pool = opts.Executor
	} else {
		c.pool = pond.New(opts.Workers, opts.Workers*4)
		c.ownsPool = true
	}

	c.logf(LogInfo, "client opened at %s (workers=%d)", opts.StorageURI, opts.Workers)
	return c, nil
}

// Close releases the Client's reference on the shared lock registry and
// stops an owned worker pool (a caller-supplied Executor is left running).
func (c *Client) Close() error {
	if c.ownsPool {
		c.pool.StopAndWait()
	}
	releaseGlobalRegistry()
	c.logf(LogInfo, "client closed")
	return nil
}

func (c *Client) logf(level LogLevel, format string, args ...any) {
	if level > c.opts.LogLevel {
		return
	}
	c.logger.Printf(format, args...)
}

func (c *Client) root() string {
	return c.storageRoot
}

// Root returns the filesystem root a file-scheme Client resolves paths
// against, for callers outside the package that need to join it with a
// canonical resource path (e.g. the CLI's locks stat subcommand).
func (c *Client) Root() string {
	return c.storageRoot
}
