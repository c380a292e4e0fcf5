// Package executor runs bridge commands against the live session. It is
// invoked only from the host UI thread by the dispatcher drain step, and it
// guarantees the uniform result shape: a failing command returns an error
// envelope, never a panic across the drain boundary.
package executor

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/modelship/cadbridge"
	"github.com/modelship/cadbridge/scene"
)

// handler runs one structured command and returns its result value, any
// captured stdout text, and an error.
type handler func(ex *Executor, params json.RawMessage) (any, string, error)

// Options tunes executor behavior.
type Options struct {
	// ScreenshotTTL is how long a rendered viewport stays cached for an
	// unchanged document revision. Zero disables caching.
	ScreenshotTTL time.Duration
}

// Executor validates and executes commands against a session.
type Executor struct {
	session  *scene.Session
	code     *CodeSession
	cache    *renderCache
	registry map[string]handler
}

// New creates an executor bound to a session.
func New(session *scene.Session, opts Options) *Executor {
	ex := &Executor{
		session: session,
		code:    NewCodeSession(session),
	}
	if opts.ScreenshotTTL > 0 {
		ex.cache = newRenderCache(opts.ScreenshotTTL)
	}
	ex.registry = catalog()
	return ex
}

// Close releases executor resources. Any code currently running in the
// session VM is interrupted.
func (ex *Executor) Close() {
	ex.code.Interrupt()
	if ex.cache != nil {
		ex.cache.stop()
	}
}

// Has reports whether method is in the command catalog. The transport uses
// it to reject unknown names before they are enqueued.
func (ex *Executor) Has(method string) bool {
	_, ok := ex.registry[method]
	return ok
}

// Methods returns the structured command catalog, for introspection.
func (ex *Executor) Methods() []string {
	names := make([]string, 0, len(ex.registry))
	for name := range ex.registry {
		names = append(names, name)
	}
	return names
}

// Execute runs one command and captures its outcome. Errors never propagate:
// every failure, including a panicking host operation, becomes a Result with
// a stable error kind.
func (ex *Executor) Execute(cmd cadbridge.Command) (res cadbridge.Result) {
	res.CommandID = cmd.ID

	defer func() {
		if r := recover(); r != nil {
			res.Value = nil
			res.Err = cadbridge.Errorf(cadbridge.KindExecutionError, "%s panicked: %v", cmd.Method, r)
		}
	}()

	h, ok := ex.registry[cmd.Method]
	if !ok {
		res.Err = cadbridge.Errorf(cadbridge.KindUnknownMethod, "unknown method %q", cmd.Method)
		return res
	}

	value, stdout, err := h(ex, cmd.Params)
	res.Stdout = stdout
	if err != nil {
		res.Err = classify(err)
		return res
	}

	if value != nil {
		data, mErr := json.Marshal(value)
		if mErr != nil {
			res.Err = cadbridge.Errorf(cadbridge.KindExecutionError, "result not serializable: %v", mErr)
			return res
		}
		res.Value = data
	}
	return res
}

// classify maps session and scene errors onto the wire taxonomy.
func classify(err error) *cadbridge.Error {
	var bridgeErr *cadbridge.Error
	if errors.As(err, &bridgeErr) {
		return bridgeErr
	}
	switch {
	case errors.Is(err, scene.ErrNoDocument):
		return cadbridge.Errorf(cadbridge.KindNoActiveContext, "%v", err)
	case errors.Is(err, scene.ErrNotFound), errors.Is(err, scene.ErrBadElement):
		return cadbridge.Errorf(cadbridge.KindInvalidArguments, "%v", err)
	default:
		return cadbridge.Errorf(cadbridge.KindExecutionError, "%v", err)
	}
}

// document resolves the active document under the session's auto-create
// policy.
func (ex *Executor) document() (*scene.Document, error) {
	return ex.session.Document()
}

// decode unmarshals params strictly: unknown fields are rejected so argument
// typos fail loudly instead of silently using defaults.
func decode(params json.RawMessage, out any) error {
	if len(params) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(params))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return cadbridge.Errorf(cadbridge.KindInvalidArguments, "bad arguments: %v", err)
	}
	return nil
}

// toVec3 converts an optional [x,y,z] argument.
func toVec3(v []float64) (scene.Vec3, error) {
	switch len(v) {
	case 0:
		return scene.Vec3{}, nil
	case 3:
		return scene.Vec3{v[0], v[1], v[2]}, nil
	default:
		return scene.Vec3{}, cadbridge.Errorf(cadbridge.KindInvalidArguments, "expected [x,y,z], got %d components", len(v))
	}
}
