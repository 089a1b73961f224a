package kernel

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/san-kum/plkernel/internal/dynamo"
	"github.com/san-kum/plkernel/internal/integrators"
	"github.com/san-kum/plkernel/internal/lasterr"
	"github.com/san-kum/plkernel/internal/registry"
	"go.uber.org/zap"
)

// MaxSteps is the largest step count a single StepWorld call accepts.
const MaxSteps uint32 = 10_000

const (
	msgNonFiniteInit = "y0 and vy0 must be finite"
	msgInvalidHandle = "invalid handle"
	msgUnknownHandle = "unknown handle"
	msgDtNotFinite   = "dt must be finite"
	msgDtNotPositive = "dt must be positive"
	msgZeroSteps     = "steps must be > 0"
	msgStepsExceeded = "steps exceeds limit"
	msgNilOutput     = "output pointers must be non-null"
	msgLockWorlds    = "failed to lock worlds"
	msgPanicPrefix   = "internal panic: "
)

type Kernel struct {
	worlds   *registry.Registry
	lastErr  *lasterr.Slot
	integ    integrators.SymplecticEuler
	maxSteps uint32
	log      *zap.Logger
}

type Option func(*Kernel)

// WithMaxSteps overrides the per-call step ceiling.
func WithMaxSteps(n uint32) Option {
	return func(k *Kernel) { k.maxSteps = n }
}

func WithGravity(g float64) Option {
	return func(k *Kernel) { k.integ.G = g }
}

func WithLogger(l *zap.Logger) Option {
	return func(k *Kernel) { k.log = l }
}

// New returns an isolated kernel with its own registry and last-error slot.
func New(opts ...Option) *Kernel {
	k := &Kernel{
		worlds:   registry.New(),
		lastErr:  lasterr.New(),
		integ:    integrators.NewSymplecticEuler(),
		maxSteps: MaxSteps,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

var (
	defaultKernel *Kernel
	defaultOnce   sync.Once
)

// Default returns the process-wide kernel behind the C entry points.
func Default() *Kernel {
	defaultOnce.Do(func() {
		defaultKernel = New()
	})
	return defaultKernel
}

func (k *Kernel) logger() *zap.Logger {
	if k.log != nil {
		return k.log
	}
	return Logger()
}

func (k *Kernel) MaxSteps() uint32 { return k.maxSteps }

func (k *Kernel) Gravity() float64 { return k.integ.G }

// Worlds reports the number of live worlds, or -1 if the registry is poisoned.
func (k *Kernel) Worlds() int { return k.worlds.Len() }

// ClearPoison restores service after a recovered panic poisoned the registry.
func (k *Kernel) ClearPoison() {
	k.worlds.ClearPoison()
	k.logger().Warn("registry poison cleared", zap.Int("worlds", k.worlds.Len()))
}

// CreateWorld returns dynamo.NoHandle on failure.
func (k *Kernel) CreateWorld(y0, vy0 float64) (h dynamo.Handle) {
	defer k.recoverHandle("create", &h)

	if !finite(y0) || !finite(vy0) {
		k.fail("create", dynamo.StatusInvalidArgument, msgNonFiniteInit)
		return dynamo.NoHandle
	}

	h, err := k.worlds.Insert(dynamo.NewWorld(y0, vy0))
	if err != nil {
		k.fail("create", dynamo.StatusInternalError, msgLockWorlds)
		return dynamo.NoHandle
	}

	k.lastErr.Clear()
	k.logger().Debug("world created",
		zap.Uint64("handle", uint64(h)),
		zap.Float64("y0", y0),
		zap.Float64("vy0", vy0))
	return h
}

// DestroyWorld reports failure only through the last-error slot.
func (k *Kernel) DestroyWorld(h dynamo.Handle) {
	defer k.recoverVoid("destroy")

	if h == dynamo.NoHandle {
		k.fail("destroy", dynamo.StatusInvalidHandle, msgInvalidHandle)
		return
	}
	if err := k.worlds.Remove(h); err != nil {
		k.registryFailure("destroy", err)
		return
	}

	k.lastErr.Clear()
	k.logger().Debug("world destroyed", zap.Uint64("handle", uint64(h)))
}

// StepWorld advances the world by steps fixed steps of dt while holding the
// registry lock.
func (k *Kernel) StepWorld(h dynamo.Handle, dt float64, steps uint32) (status dynamo.Status) {
	defer k.recoverStatus("step", &status)

	if h == dynamo.NoHandle {
		return k.fail("step", dynamo.StatusInvalidHandle, msgInvalidHandle)
	}
	if !finite(dt) {
		return k.fail("step", dynamo.StatusInvalidArgument, msgDtNotFinite)
	}
	if dt <= 0 {
		return k.fail("step", dynamo.StatusInvalidArgument, msgDtNotPositive)
	}
	if steps == 0 {
		return k.fail("step", dynamo.StatusInvalidArgument, msgZeroSteps)
	}
	if steps > k.maxSteps {
		return k.fail("step", dynamo.StatusPolicyDenied, msgStepsExceeded)
	}

	err := k.worlds.Update(h, func(w *dynamo.World) {
		*w = k.integ.Advance(*w, dt, steps)
	})
	if err != nil {
		return k.registryFailure("step", err)
	}

	k.lastErr.Clear()
	return dynamo.StatusOK
}

// GetState writes the world's time, height and velocity into the three
// output slots. Nothing is written unless the call succeeds.
func (k *Kernel) GetState(h dynamo.Handle, outT, outY, outVY *float64) (status dynamo.Status) {
	defer k.recoverStatus("get_state", &status)

	if h == dynamo.NoHandle {
		return k.fail("get_state", dynamo.StatusInvalidHandle, msgInvalidHandle)
	}
	if outT == nil || outY == nil || outVY == nil {
		return k.fail("get_state", dynamo.StatusInvalidArgument, msgNilOutput)
	}

	var snapshot dynamo.World
	if err := k.worlds.View(h, func(w dynamo.World) { snapshot = w }); err != nil {
		return k.registryFailure("get_state", err)
	}

	*outT, *outY, *outVY = snapshot.T, snapshot.Y, snapshot.VY
	k.lastErr.Clear()
	return dynamo.StatusOK
}

// State is GetState with a value result.
func (k *Kernel) State(h dynamo.Handle) (dynamo.World, dynamo.Status) {
	var w dynamo.World
	status := k.GetState(h, &w.T, &w.Y, &w.VY)
	return w, status
}

func (k *Kernel) LastErrorCode() dynamo.Status {
	return k.lastErr.Code()
}

// LastErrorMessage copies the last error message into dst (see
// lasterr.Slot.CopyMessage) and returns its full length.
func (k *Kernel) LastErrorMessage(dst []byte) uint32 {
	return k.lastErr.CopyMessage(dst)
}

func (k *Kernel) fail(op string, code dynamo.Status, msg string) dynamo.Status {
	k.logger().Debug("call rejected",
		zap.String("op", op),
		zap.Stringer("status", code),
		zap.String("message", msg))
	return k.lastErr.Set(code, msg)
}

func (k *Kernel) registryFailure(op string, err error) dynamo.Status {
	if errors.Is(err, registry.ErrNotFound) {
		return k.fail(op, dynamo.StatusInvalidHandle, msgUnknownHandle)
	}
	k.logger().Warn("registry unavailable", zap.String("op", op), zap.Error(err))
	return k.fail(op, dynamo.StatusInternalError, msgLockWorlds)
}

func (k *Kernel) panicked(op string, r any) dynamo.Status {
	k.logger().Error("panic in boundary call",
		zap.String("op", op),
		zap.Any("panic", r),
		zap.Stack("stack"))
	return k.lastErr.Set(dynamo.StatusInternalError, fmt.Sprintf("%s%v", msgPanicPrefix, r))
}

func (k *Kernel) recoverStatus(op string, status *dynamo.Status) {
	if r := recover(); r != nil {
		*status = k.panicked(op, r)
	}
}

func (k *Kernel) recoverHandle(op string, h *dynamo.Handle) {
	if r := recover(); r != nil {
		k.panicked(op, r)
		*h = dynamo.NoHandle
	}
}

func (k *Kernel) recoverVoid(op string) {
	if r := recover(); r != nil {
		k.panicked(op, r)
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
