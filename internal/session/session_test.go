package session

import (
	"errors"
	"math"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/plkernel/internal/dynamo"
	"github.com/san-kum/plkernel/internal/kernel"
)

// chattyBackend wraps a kernel and replaces every error message with a long one.
type chattyBackend struct {
	*kernel.Kernel
	message string
	reads   int
}

func (c *chattyBackend) LastErrorMessage(dst []byte) uint32 {
	c.reads++
	if len(dst) == 0 {
		return uint32(len(c.message))
	}
	n := copy(dst[:len(dst)-1], c.message)
	dst[n] = 0
	return uint32(len(c.message))
}

// noisyBackend records an unrelated failure right after every destroy, as a
// concurrent caller sharing the last-error slot would.
type noisyBackend struct {
	*kernel.Kernel
}

func (n *noisyBackend) DestroyWorld(h dynamo.Handle) {
	n.Kernel.DestroyWorld(h)
	n.Kernel.StepWorld(dynamo.NoHandle, 0.1, 1)
}

// stickyBackend ignores destroys while reporting success.
type stickyBackend struct {
	*kernel.Kernel
}

func (s *stickyBackend) DestroyWorld(dynamo.Handle) {}

var _ = Describe("Session", func() {
	var k *kernel.Kernel

	BeforeEach(func() {
		k = kernel.New()
	})

	It("creates, steps, reads and closes a world", func() {
		s, err := Open(k, 10, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Handle()).NotTo(Equal(dynamo.NoHandle))

		Expect(s.Step(0.1, 50)).To(Succeed())
		w, err := s.State()
		Expect(err).NotTo(HaveOccurred())
		Expect(w.T).To(BeNumerically("~", 5.0, 1e-9))
		Expect(w.VY).To(BeNumerically("~", -49.05, 1e-9))

		Expect(s.Close()).To(Succeed())
		Expect(s.Handle()).To(Equal(dynamo.NoHandle))
		Expect(k.Worlds()).To(BeZero())
		Expect(s.Close()).To(Succeed())
	})

	It("reports invalid initial conditions with the kernel message", func() {
		_, err := Open(k, math.NaN(), 0)
		Expect(err).To(MatchError(dynamo.ErrInvalidArgument))
		Expect(err.Error()).To(ContainSubstring("y0 and vy0 must be finite"))
	})

	It("maps step failures to sentinel errors", func() {
		s, err := Open(k, 0, 0)
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()

		err = s.Step(0, 1)
		Expect(err).To(MatchError(dynamo.ErrInvalidArgument))
		Expect(err.Error()).To(ContainSubstring("dt must be positive"))

		err = s.Step(0.1, kernel.MaxSteps+1)
		Expect(errors.Is(err, dynamo.ErrPolicyDenied)).To(BeTrue())
		Expect(dynamo.StatusOf(err)).To(Equal(dynamo.StatusPolicyDenied))
	})

	It("resets to a fresh world with a new handle", func() {
		s, err := Open(k, 5, 0)
		Expect(err).NotTo(HaveOccurred())
		first := s.Handle()
		Expect(s.Step(0.1, 10)).To(Succeed())

		Expect(s.Reset(3, 1)).To(Succeed())
		Expect(s.Handle()).To(BeNumerically(">", first))
		w, err := s.State()
		Expect(err).NotTo(HaveOccurred())
		Expect(w).To(Equal(dynamo.World{Y: 3, VY: 1}))
		Expect(k.Worlds()).To(Equal(1))
	})

	It("surfaces a world destroyed behind its back", func() {
		s, err := Open(k, 5, 0)
		Expect(err).NotTo(HaveOccurred())
		k.DestroyWorld(s.Handle())

		_, err = s.State()
		Expect(err).To(MatchError(dynamo.ErrInvalidHandle))
		Expect(err.Error()).To(ContainSubstring("unknown handle"))

		Expect(s.Close()).To(MatchError(dynamo.ErrInvalidHandle))
	})

	It("closes cleanly when another caller overwrites the error slot", func() {
		b := &noisyBackend{Kernel: k}
		s, err := Open(b, 5, 0)
		Expect(err).NotTo(HaveOccurred())

		Expect(s.Close()).To(Succeed())
		Expect(k.Worlds()).To(BeZero())
		Expect(k.LastErrorCode()).To(Equal(dynamo.StatusInvalidHandle))
	})

	It("reports a destroy that left the world alive", func() {
		b := &stickyBackend{Kernel: k}
		s, err := Open(b, 5, 0)
		Expect(err).NotTo(HaveOccurred())

		err = s.Close()
		Expect(err).To(MatchError(dynamo.ErrInternal))
		Expect(err.Error()).To(ContainSubstring("still live"))
		Expect(k.Worlds()).To(Equal(1))
	})

	Describe("FetchError", func() {
		It("grows the buffer for long messages", func() {
			long := strings.Repeat("x", 1000)
			b := &chattyBackend{Kernel: k, message: long}

			err := FetchError(b, dynamo.StatusInternalError)
			Expect(b.reads).To(Equal(2))

			var e *dynamo.Error
			Expect(errors.As(err, &e)).To(BeTrue())
			Expect(e.Message).To(Equal(long))
			Expect(e.Status).To(Equal(dynamo.StatusInternalError))
		})

		It("reads once when the message fits", func() {
			b := &chattyBackend{Kernel: k, message: "short"}
			err := FetchError(b, dynamo.StatusInvalidHandle)
			Expect(b.reads).To(Equal(1))
			Expect(err).To(MatchError("invalid handle: short"))
		})
	})
})
