package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Error codes carried on the wire by the tracker service.
const (
	codeNotFound      = "not_found"
	codeAlreadyExists = "already_exists"
)

// NATSConfig configures the remote tracker client.
type NATSConfig struct {
	// URL is the NATS server URL.
	// Default: nats.DefaultURL
	URL string

	// SubjectPrefix is prepended to every request subject, so multiple
	// deployments can share one broker.
	// Default: "artifacts"
	SubjectPrefix string

	// RequestTimeout bounds each request/reply round trip.
	// Default: 10 seconds
	RequestTimeout time.Duration
}

// ApplyDefaults sets default values for unset fields.
func (c *NATSConfig) ApplyDefaults() {
	if c.URL == "" {
		c.URL = nats.DefaultURL
	}
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = "artifacts"
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Second
	}
}

// NATSTracker talks to the artifact-tracking service over NATS
// request/reply with JSON payloads. One request per operation, no
// caching and no retries: transport failures surface immediately.
type NATSTracker struct {
	conn   *nats.Conn
	config *NATSConfig
	logger *zap.Logger
}

// NewNATSTracker connects to the broker and returns a remote tracker
// client.
func NewNATSTracker(cfg *NATSConfig, logger *zap.Logger) (*NATSTracker, error) {
	if cfg == nil {
		cfg = &NATSConfig{}
	}
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := nats.Connect(cfg.URL, nats.Name("collectiond-artifact-client"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to artifact tracker at %s: %w", cfg.URL, err)
	}

	logger.Info("artifact tracker connection established", zap.String("url", cfg.URL))

	return &NATSTracker{
		conn:   conn,
		config: cfg,
		logger: logger,
	}, nil
}

// request/reply envelopes.

type trackerRequest struct {
	Name      string    `json:"name,omitempty"`
	Workspace string    `json:"workspace,omitempty"`
	Recursive bool      `json:"recursive,omitempty"`
	Artifact  *Artifact `json:"artifact,omitempty"`
}

type trackerReply struct {
	OK        bool       `json:"ok"`
	Code      string     `json:"code,omitempty"`
	Error     string     `json:"error,omitempty"`
	Artifact  *Artifact  `json:"artifact,omitempty"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

// call performs one request/reply round trip on the given operation
// subject.
func (t *NATSTracker) call(ctx context.Context, op string, req trackerRequest) (*trackerReply, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tracker request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.config.RequestTimeout)
	defer cancel()

	subject := t.config.SubjectPrefix + "." + op
	msg, err := t.conn.RequestWithContext(ctx, subject, payload)
	if err != nil {
		return nil, fmt.Errorf("tracker request %s failed: %w", subject, err)
	}

	var reply trackerReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return nil, fmt.Errorf("failed to decode tracker reply on %s: %w", subject, err)
	}
	if !reply.OK {
		switch reply.Code {
		case codeNotFound:
			return nil, fmt.Errorf("%w: %s", ErrNotFound, reply.Error)
		case codeAlreadyExists:
			return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, reply.Error)
		default:
			return nil, fmt.Errorf("tracker %s failed: %s", op, reply.Error)
		}
	}
	return &reply, nil
}

// Create registers a new artifact.
func (t *NATSTracker) Create(ctx context.Context, art Artifact) error {
	if err := art.Validate(); err != nil {
		return err
	}
	_, err := t.call(ctx, "create", trackerRequest{Artifact: &art})
	return err
}

// Read fetches an artifact by name.
func (t *NATSTracker) Read(ctx context.Context, name string) (*Artifact, error) {
	reply, err := t.call(ctx, "read", trackerRequest{Name: name})
	if err != nil {
		return nil, err
	}
	if reply.Artifact == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return reply.Artifact, nil
}

// Delete removes an artifact. Absent artifacts are tolerated so that
// re-running a failed multi-step deletion converges.
func (t *NATSTracker) Delete(ctx context.Context, name string, recursive bool) error {
	_, err := t.call(ctx, "delete", trackerRequest{Name: name, Recursive: recursive})
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// List returns all artifacts belonging to a workspace.
func (t *NATSTracker) List(ctx context.Context, workspace string) ([]Artifact, error) {
	reply, err := t.call(ctx, "list", trackerRequest{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	return reply.Artifacts, nil
}

// Exists reports whether the named artifact exists.
func (t *NATSTracker) Exists(ctx context.Context, name string) (bool, error) {
	return ExistsByRead(ctx, t, name)
}

// Close drains and closes the broker connection.
func (t *NATSTracker) Close() error {
	if t.conn != nil && !t.conn.IsClosed() {
		return t.conn.Drain()
	}
	return nil
}

var _ Tracker = (*NATSTracker)(nil)
