// Package operation orchestrates one hide or extract request against the
// remote steganography service from start to terminal state.
//
// A Controller owns at most one in-flight operation. Start validates the
// request and the anonymous quota before any I/O, encodes the payloads,
// performs the network exchange under the handle's cancellation token, and
// maps every outcome into exactly one terminal transition: Succeeded,
// Failed, or Cancelled. Outputs are registered with the resource tracker
// before usage or stats are recorded, and every exit path releases what it
// created.
package operation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"stegoctl/internal/codec"
	"stegoctl/internal/resources"
	"stegoctl/internal/stego"
)

// Deps bundles the controller's collaborators.
type Deps struct {
	Service Service
	Gate    UsageGate
	Ledger  Ledger
	Tracker ResourceTracker
	Session Session
	Sink    ProgressSink
}

// Controller drives the operation lifecycle. One in-flight operation at a
// time; a new Start cancels the previous handle and waits for its cleanup
// before beginning a fresh cycle.
type Controller struct {
	service Service
	gate    UsageGate
	ledger  Ledger
	tracker ResourceTracker
	session Session
	sink    ProgressSink
	tracer  *Tracer
	config  *Config
	logger  *slog.Logger

	validate *validator.Validate

	mu      sync.Mutex
	current *Handle
}

// NewController creates a controller with the given collaborators. A nil
// config takes defaults, a nil sink discards events.
func NewController(deps Deps, config *Config, logger *slog.Logger) *Controller {
	if config == nil {
		config = NewConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	sink := deps.Sink
	if sink == nil {
		sink = NopSink{}
	}
	return &Controller{
		service:  deps.Service,
		gate:     deps.Gate,
		ledger:   deps.Ledger,
		tracker:  deps.Tracker,
		session:  deps.Session,
		sink:     sink,
		tracer:   NewTracer(),
		config:   config,
		logger:   logger,
		validate: validator.New(),
	}
}

// Start begins a new operation cycle and returns its handle. Quota denials
// and validation failures resolve synchronously with a Failed handle and a
// typed error, before any network I/O. Otherwise the exchange proceeds in
// the background; observe it through the handle or the progress sink.
func (c *Controller) Start(ctx context.Context, req Request) (*Handle, error) {
	// Single-flight: force the previous handle to a terminal state and let
	// its cleanup finish before a new handle exists. Re-check after
	// re-acquiring the lock; another Start may have installed a fresh
	// handle while this one was waiting.
	c.mu.Lock()
	for {
		prev := c.current
		if prev == nil || prev.IsTerminal() {
			break
		}
		c.mu.Unlock()
		c.logger.InfoContext(ctx, "operation_superseded", slog.String("operation_id", prev.ID()))
		prev.Cancel()
		prev.Wait()
		c.mu.Lock()
	}

	opCtx, cancel := context.WithCancel(ctx)
	h := newHandle(req.Kind, cancel)
	c.current = h
	c.mu.Unlock()

	h.markValidating()

	authenticated := c.session.Authenticated()
	if !c.gate.Permits(authenticated, req.Kind) {
		err := NewQuotaExceededError(req.Kind, c.gate.Limit(req.Kind))
		h.fail(err)
		c.logger.InfoContext(ctx, "operation_denied",
			slog.String("operation_id", h.ID()),
			slog.String("kind", string(req.Kind)),
		)
		return h, err
	}

	if err := c.validateRequest(req); err != nil {
		h.fail(err)
		c.logger.InfoContext(ctx, "operation_rejected",
			slog.String("operation_id", h.ID()),
			slog.String("error", err.Error()),
		)
		return h, err
	}

	go c.run(opCtx, h, req, authenticated)
	return h, nil
}

// Cancel aborts the in-flight operation, if any. Idempotent; a no-op once
// the current handle is terminal.
func (c *Controller) Cancel() {
	c.mu.Lock()
	h := c.current
	c.mu.Unlock()
	if h != nil && !h.IsTerminal() {
		h.Cancel()
	}
}

// Current returns the most recent handle, terminal or not.
func (c *Controller) Current() *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// validateRequest enforces the request invariants: hide needs both files
// and a concrete method, extract exactly one file; container inputs must be
// allow-listed, within the size cap, and non-empty.
func (c *Controller) validateRequest(req Request) *OperationError {
	if err := c.validate.Struct(req); err != nil {
		return NewInvalidRequestError(err.Error())
	}

	switch req.Kind {
	case stego.KindHide:
		if req.Method == "" || req.Method == stego.MethodAuto {
			return NewInvalidRequestError("hide requires an explicit embedding method")
		}
		if req.Secondary == nil {
			return NewInvalidRequestError("hide requires both a container and a secret file")
		}
	case stego.KindExtract:
		if req.Secondary != nil {
			return NewInvalidRequestError("extract takes exactly one file")
		}
	}

	if err := c.checkFile(req.Primary, true); err != nil {
		return err
	}
	if req.Secondary != nil {
		if err := c.checkFile(*req.Secondary, false); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) checkFile(f FileInput, container bool) *OperationError {
	if f.Path == "" {
		return NewInvalidRequestError("missing input file")
	}
	info, err := os.Stat(f.Path)
	if err != nil {
		return NewInvalidRequestError(fmt.Sprintf("input file %s is not accessible", f.DisplayName()))
	}
	if info.IsDir() {
		return NewInvalidRequestError(fmt.Sprintf("%s is a directory", f.DisplayName()))
	}
	if info.Size() == 0 {
		return NewInvalidRequestError(fmt.Sprintf("%s is empty", f.DisplayName()))
	}
	if info.Size() > c.config.MaxFileSize {
		return NewInvalidRequestError(fmt.Sprintf("%s exceeds the %d MiB limit",
			f.DisplayName(), c.config.MaxFileSize>>20))
	}
	if container {
		ext := strings.ToLower(filepath.Ext(f.DisplayName()))
		if !c.config.allowsContainer(ext) {
			return NewInvalidRequestError(fmt.Sprintf("unsupported container format %q", ext))
		}
	}
	return nil
}

// run carries the operation from InFlight to its terminal state.
func (c *Controller) run(ctx context.Context, h *Handle, req Request, authenticated bool) {
	// Sweep outputs of any superseded operation before producing new ones.
	c.tracker.RevokeAll()

	h.markInFlight()
	c.sink.OperationStarted(h.ID(), req.Kind)
	ctx, span := c.tracer.StartOperation(ctx, h.ID(), req)

	c.logger.InfoContext(ctx, "operation_started",
		slog.String("operation_id", h.ID()),
		slog.String("kind", string(req.Kind)),
		slog.String("method", string(req.Method)),
	)

	result, opErr := c.execute(ctx, req)

	switch {
	case opErr == nil:
		h.complete(result)
		// Usage and stats are recorded strictly after the resource is
		// registered, and never on failure or cancellation.
		if err := c.gate.RecordSuccess(ctx, authenticated); err != nil {
			c.logger.WarnContext(ctx, "usage_record_failed", slog.String("error", err.Error()))
		}
		if _, err := c.ledger.RecordOperation(ctx, req.Kind, result.Metrics.PayloadSize, authenticated); err != nil {
			c.logger.WarnContext(ctx, "stats_record_failed", slog.String("error", err.Error()))
		}
		c.logger.InfoContext(ctx, "operation_succeeded",
			slog.String("operation_id", h.ID()),
			slog.String("output", result.OutputName),
			slog.Int64("output_size", result.Metrics.OutputSize),
		)
	case IsCancelled(opErr):
		h.markCancelled()
		c.logger.InfoContext(ctx, "operation_cancelled", slog.String("operation_id", h.ID()))
	default:
		h.fail(opErr)
		c.logger.ErrorContext(ctx, "operation_failed",
			slog.String("operation_id", h.ID()),
			slog.String("error_type", string(opErr.Type)),
			slog.String("error", opErr.Message),
		)
	}

	status := h.Status()
	finalResult, err := h.Result()
	c.tracer.EndOperation(span, status, err)
	c.sink.OperationFinished(h.ID(), status, finalResult, err)
}

// execute performs encode, exchange, decode, and resource registration.
// Every error return is typed; cancellation surfaces as ErrorTypeCancelled.
func (c *Controller) execute(ctx context.Context, req Request) (*Result, *OperationError) {
	if req.Kind == stego.KindHide {
		return c.executeHide(ctx, req)
	}
	return c.executeExtract(ctx, req)
}

func (c *Controller) executeHide(ctx context.Context, req Request) (*Result, *OperationError) {
	container, containerSize, opErr := c.encodeFile(ctx, req.Primary)
	if opErr != nil {
		return nil, opErr
	}
	secret, secretSize, opErr := c.encodeFile(ctx, *req.Secondary)
	if opErr != nil {
		return nil, opErr
	}

	containerName := resources.SanitizeName(req.Primary.DisplayName())
	resp, err := c.service.Hide(ctx, stego.HideRequest{
		Container:        container,
		Secret:           secret,
		Method:           string(req.Method),
		Password:         req.Password,
		OriginalFilename: containerName,
		FileExtension:    strings.ToLower(filepath.Ext(containerName)),
	})
	if err != nil {
		return nil, c.classifyTransport(ctx, err)
	}
	if !resp.Success {
		return nil, NewRemoteError(resp.Error, nil)
	}

	ext := resp.FileExtension
	if ext == "" {
		ext = ".png"
	}
	outputName := stemOf(containerName) + "_stego" + ext

	id, obj, opErr := c.materialize(ctx, resp.StegoData, outputName, ext)
	if opErr != nil {
		return nil, opErr
	}

	metrics := SizeMetrics{
		InputSize:   resp.OriginalSize,
		PayloadSize: resp.HiddenSize,
		OutputSize:  resp.StegoSize,
	}
	if metrics.InputSize == 0 {
		metrics.InputSize = containerSize
	}
	if metrics.PayloadSize == 0 {
		metrics.PayloadSize = secretSize
	}
	if metrics.OutputSize == 0 {
		metrics.OutputSize = obj.Size()
	}

	return c.buildResult(req, resp.Method, id, outputName, ext, metrics)
}

func (c *Controller) executeExtract(ctx context.Context, req Request) (*Result, *OperationError) {
	stegoText, inputSize, opErr := c.encodeFile(ctx, req.Primary)
	if opErr != nil {
		return nil, opErr
	}

	resp, err := c.service.Extract(ctx, stego.ExtractRequest{
		Stego:    stegoText,
		Password: req.Password,
	})
	if err != nil {
		return nil, c.classifyTransport(ctx, err)
	}
	if !resp.Success {
		return nil, NewRemoteError(resp.Error, nil)
	}

	ext := resp.FileExtension
	outputName := resp.OriginalFilename
	if outputName == "" {
		if ext == "" {
			ext = ".bin"
		}
		outputName = "extracted" + ext
	}
	outputName = resources.SanitizeName(outputName)

	id, obj, opErr := c.materialize(ctx, resp.ExtractedData, outputName, ext)
	if opErr != nil {
		return nil, opErr
	}

	metrics := SizeMetrics{
		InputSize:  inputSize,
		OutputSize: resp.ExtractedSize,
	}
	if metrics.OutputSize == 0 {
		metrics.OutputSize = obj.Size()
	}

	return c.buildResult(req, resp.Method, id, outputName, ext, metrics)
}

// encodeFile reads and base64-encodes one input under the operation
// context.
func (c *Controller) encodeFile(ctx context.Context, f FileInput) (string, int64, *OperationError) {
	file, err := os.Open(f.Path)
	if err != nil {
		return "", 0, NewReadError(fmt.Sprintf("failed to open %s", f.DisplayName()), err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", 0, NewReadError(fmt.Sprintf("failed to stat %s", f.DisplayName()), err)
	}

	text, err := codec.Encode(ctx, file, info.Size())
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", 0, NewCancellationError()
		}
		return "", 0, NewReadError(fmt.Sprintf("failed to read %s", f.DisplayName()), err)
	}
	return text, info.Size(), nil
}

// materialize decodes the service payload and registers the output with
// the resource tracker. If cancellation lands between registration and the
// terminal transition, the partial resource is revoked.
func (c *Controller) materialize(ctx context.Context, text, name, ext string) (string, *codec.Object, *OperationError) {
	obj, err := codec.Decode(ctx, text, mimeForExtension(ext))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", nil, NewCancellationError()
		}
		return "", nil, NewDecodeError(err)
	}

	id, err := c.tracker.Create(obj.Bytes, name)
	if err != nil {
		return "", nil, NewReadError("failed to materialize output", err)
	}

	if ctx.Err() != nil {
		c.tracker.Revoke(id)
		return "", nil, NewCancellationError()
	}
	return id, obj, nil
}

func (c *Controller) buildResult(req Request, method, id, name, ext string, metrics SizeMetrics) (*Result, *OperationError) {
	h, ok := c.tracker.Get(id)
	if !ok {
		return nil, NewCancellationError()
	}
	resultMethod := stego.Method(method)
	if resultMethod == "" {
		resultMethod = req.Method
	}
	return &Result{
		Kind:            req.Kind,
		Method:          resultMethod,
		HandleID:        id,
		OutputPath:      h.Path,
		OutputName:      h.Name,
		OutputExtension: ext,
		Metrics:         metrics,
	}, nil
}

// classifyTransport distinguishes user cancellation from genuine transport
// failures.
func (c *Controller) classifyTransport(ctx context.Context, err error) *OperationError {
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return NewCancellationError()
	}
	var terr *stego.TransportError
	if errors.As(err, &terr) {
		return NewRemoteError(terr.Message, err)
	}
	return NewRemoteError(err.Error(), err)
}

func stemOf(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func mimeForExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "image/png"
	case ".bmp":
		return "image/bmp"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}
