package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/sensor-dashboard/internal/circuitbreaker"
	"github.com/kjstillabower/sensor-dashboard/internal/degraded"
	"github.com/kjstillabower/sensor-dashboard/internal/figure"
	"github.com/kjstillabower/sensor-dashboard/internal/observability"
	"github.com/kjstillabower/sensor-dashboard/internal/service"
)

var (
	// ErrUnknownInput is returned when an event names a property no binding knows.
	ErrUnknownInput = errors.New("unknown input property")
	// ErrUnknownOutput is returned when a render targets an output with no binding.
	ErrUnknownOutput = errors.New("unknown output")
	// ErrHandlerPanic wraps a recovered handler panic.
	ErrHandlerPanic = errors.New("chart handler panicked")
)

// InputError reports a control value the handler could not use. It is the
// caller's fault and does not count against the output's breaker.
type InputError struct {
	Prop string
	Err  error
}

func (e *InputError) Error() string { return fmt.Sprintf("input %s: %v", e.Prop, e.Err) }
func (e *InputError) Unwrap() error { return e.Err }

// HandlerFunc computes one output's figure from the current input values.
type HandlerFunc func(ctx context.Context, in Inputs) (figure.Figure, error)

// Binding subscribes one output to an ordered list of input properties.
type Binding struct {
	Output  string
	Inputs  []string
	Handler HandlerFunc
}

// Registry is the subscription table: input property -> bindings.
type Registry struct {
	bindings    []Binding
	byOutput    map[string]int
	subscribers map[string][]int
}

func NewRegistry() *Registry {
	return &Registry{
		byOutput:    make(map[string]int),
		subscribers: make(map[string][]int),
	}
}

// Register adds b. Outputs are unique; a binding needs a handler and at least one input.
func (r *Registry) Register(b Binding) error {
	switch {
	case b.Output == "":
		return errors.New("register binding: empty output id")
	case b.Handler == nil:
		return fmt.Errorf("register %s: nil handler", b.Output)
	case len(b.Inputs) == 0:
		return fmt.Errorf("register %s: no inputs", b.Output)
	}
	if _, dup := r.byOutput[b.Output]; dup {
		return fmt.Errorf("register %s: output already bound", b.Output)
	}
	idx := len(r.bindings)
	r.bindings = append(r.bindings, b)
	r.byOutput[b.Output] = idx
	for _, prop := range b.Inputs {
		r.subscribers[prop] = append(r.subscribers[prop], idx)
	}
	return nil
}

// Subscribers returns the bindings that listen to prop, in registration order.
func (r *Registry) Subscribers(prop string) []Binding {
	idx := r.subscribers[prop]
	out := make([]Binding, len(idx))
	for i, j := range idx {
		out[i] = r.bindings[j]
	}
	return out
}

// Binding returns the binding for output.
func (r *Registry) Binding(output string) (Binding, bool) {
	i, ok := r.byOutput[output]
	if !ok {
		return Binding{}, false
	}
	return r.bindings[i], true
}

// Outputs returns every bound output id in registration order.
func (r *Registry) Outputs() []string {
	out := make([]string, len(r.bindings))
	for i, b := range r.bindings {
		out[i] = b.Output
	}
	return out
}

// Known reports whether any binding subscribes to prop.
func (r *Registry) Known(prop string) bool {
	_, ok := r.subscribers[prop]
	return ok
}

// Event is one dispatch request: the properties that changed and the full
// current value of every property the page holds.
type Event struct {
	Changed []string `json:"changed"`
	Inputs  Inputs   `json:"inputs"`
}

// Result carries a figure for every fired output. Outputs that failed get a
// blank figure and an entry in Errors.
type Result struct {
	Outputs map[string]json.RawMessage `json:"outputs"`
	Errors  map[string]string          `json:"errors"`
}

func newResult() Result {
	return Result{Outputs: map[string]json.RawMessage{}, Errors: map[string]string{}}
}

// Resolver turns a binding's computation into a serialised figure, typically
// through the figure cache.
type Resolver interface {
	Resolve(ctx context.Context, output, key string, compute service.ComputeFunc) ([]byte, error)
}

// DispatcherOptions configures NewDispatcher.
type DispatcherOptions struct {
	// Defaults fill properties an event leaves out.
	Defaults Inputs
	// Breaker is the template for each output's circuit breaker; Name and
	// OnStateChange are set per output.
	Breaker circuitbreaker.Config
	Logger  *zap.Logger
}

// Dispatcher fires bindings for events. Each output runs behind its own
// breaker and panic recovery so one failing chart leaves the others intact.
type Dispatcher struct {
	registry *Registry
	resolver Resolver
	defaults Inputs
	breakers map[string]*circuitbreaker.CircuitBreaker
	blank    json.RawMessage
	logger   *zap.Logger
}

// NewDispatcher builds a dispatcher over a fully populated registry. A nil
// resolver computes every figure directly.
func NewDispatcher(reg *Registry, resolver Resolver, opts DispatcherOptions) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if resolver == nil {
		resolver = directResolver{}
	}
	d := &Dispatcher{
		registry: reg,
		resolver: resolver,
		defaults: opts.Defaults,
		breakers: make(map[string]*circuitbreaker.CircuitBreaker),
		logger:   logger,
	}
	d.blank, _ = json.Marshal(figure.Blank())
	for _, out := range reg.Outputs() {
		cfg := opts.Breaker
		cfg.Name = out
		cfg.OnStateChange = d.onBreakerChange
		d.breakers[out] = circuitbreaker.New(cfg)
		observability.SetBreakerState(out, int(circuitbreaker.StateClosed))
	}
	return d
}

func (d *Dispatcher) onBreakerChange(output string, from, to circuitbreaker.State) {
	observability.SetBreakerState(output, int(to))
	d.logger.Warn("chart breaker state change",
		zap.String("output", output),
		zap.String("from", from.String()),
		zap.String("to", to.String()))
}

// Outputs returns the reactive output ids.
func (d *Dispatcher) Outputs() []string { return d.registry.Outputs() }

// Dispatch fires, once each, every binding subscribed to a changed property.
// Unknown property ids reject the whole event before anything runs.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) (Result, error) {
	if err := d.checkProps(ev.Changed); err != nil {
		return Result{}, err
	}
	if err := d.checkInputs(ev.Inputs); err != nil {
		return Result{}, err
	}

	in := ev.Inputs.Merge(d.defaults)
	fired := make(map[string]bool)
	res := newResult()
	for _, prop := range ev.Changed {
		for _, b := range d.registry.Subscribers(prop) {
			if fired[b.Output] {
				continue
			}
			fired[b.Output] = true
			d.fire(ctx, b, in, &res)
		}
	}
	return res, nil
}

// Initial fires every binding once, as on first page load. in overrides the defaults.
func (d *Dispatcher) Initial(ctx context.Context, in Inputs) (Result, error) {
	if err := d.checkInputs(in); err != nil {
		return Result{}, err
	}
	merged := in.Merge(d.defaults)
	res := newResult()
	for _, out := range d.registry.Outputs() {
		b, _ := d.registry.Binding(out)
		d.fire(ctx, b, merged, &res)
	}
	return res, nil
}

// Render computes a single output. Unlike Dispatch, a failure is returned
// rather than replaced by a blank figure.
func (d *Dispatcher) Render(ctx context.Context, output string, in Inputs) (json.RawMessage, error) {
	b, ok := d.registry.Binding(output)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOutput, output)
	}
	if err := d.checkInputs(in); err != nil {
		return nil, err
	}
	return d.run(ctx, b, in.Merge(d.defaults))
}

// RenderDefault renders output with the default inputs. Used to warm the cache.
func (d *Dispatcher) RenderDefault(ctx context.Context, output string) error {
	_, err := d.Render(ctx, output, nil)
	return err
}

func (d *Dispatcher) checkProps(props []string) error {
	for _, p := range props {
		if !d.registry.Known(p) {
			return fmt.Errorf("%w: %s", ErrUnknownInput, p)
		}
	}
	return nil
}

func (d *Dispatcher) checkInputs(in Inputs) error {
	for p := range in {
		if !d.registry.Known(p) {
			return fmt.Errorf("%w: %s", ErrUnknownInput, p)
		}
	}
	return nil
}

func (d *Dispatcher) fire(ctx context.Context, b Binding, in Inputs, res *Result) {
	raw, err := d.run(ctx, b, in)
	if err != nil {
		res.Outputs[b.Output] = d.blank
		res.Errors[b.Output] = err.Error()
		return
	}
	res.Outputs[b.Output] = raw
}

// run resolves one binding through its breaker and records the outcome.
func (d *Dispatcher) run(ctx context.Context, b Binding, in Inputs) (json.RawMessage, error) {
	logger := observability.LoggerFrom(ctx, d.logger).With(zap.String("output", b.Output))
	start := time.Now()

	var raw []byte
	var inputErr error
	err := d.breakers[b.Output].Call(ctx, func() error {
		var err error
		raw, err = d.resolver.Resolve(ctx, b.Output, cacheKey(b, in), guard(b, in))
		var ie *InputError
		if errors.As(err, &ie) {
			inputErr = err
			return nil
		}
		return err
	})
	if err == nil {
		err = inputErr
	}

	status := callbackStatus(ctx, err, inputErr != nil)
	observability.RecordCallback(b.Output, status, time.Since(start))
	switch status {
	case "ok", "invalid":
		degraded.RecordSuccess()
	case "cancelled":
	default:
		degraded.RecordError()
	}

	switch status {
	case "ok":
		return raw, nil
	case "invalid":
		logger.Debug("chart input rejected", zap.Error(err))
	case "cancelled":
		logger.Debug("chart callback abandoned by caller", zap.Error(err))
	case "panic":
		logger.Error("chart handler panicked", zap.Error(err))
	default:
		logger.Warn("chart callback failed", zap.String("status", status), zap.Error(err))
	}
	return nil, err
}

// callbackStatus classifies a callback outcome. "cancelled" means the request
// context ended first; it says nothing about the chart's health.
func callbackStatus(ctx context.Context, err error, invalid bool) string {
	switch {
	case err == nil:
		return "ok"
	case invalid:
		return "invalid"
	case ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		return "cancelled"
	case errors.Is(err, ErrHandlerPanic):
		return "panic"
	case errors.Is(err, circuitbreaker.ErrOpen):
		return "open"
	default:
		return "error"
	}
}

// guard adapts a binding to a compute function that turns a panic into ErrHandlerPanic.
func guard(b Binding, in Inputs) service.ComputeFunc {
	return func(ctx context.Context) (fig figure.Figure, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
			}
		}()
		return b.Handler(ctx, in)
	}
}

// cacheKey is "output|v1|v2..." over the binding's inputs in declared order,
// with each value in compact JSON.
func cacheKey(b Binding, in Inputs) string {
	var sb strings.Builder
	sb.WriteString(b.Output)
	for _, prop := range b.Inputs {
		sb.WriteByte('|')
		raw := in[prop]
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err == nil {
			sb.Write(buf.Bytes())
		} else {
			sb.Write(raw)
		}
	}
	return sb.String()
}

type directResolver struct{}

func (directResolver) Resolve(ctx context.Context, output, key string, compute service.ComputeFunc) ([]byte, error) {
	fig, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	return json.Marshal(fig)
}
