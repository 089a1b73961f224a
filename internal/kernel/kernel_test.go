package kernel

import (
	"math"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/san-kum/plkernel/internal/dynamo"
)

func lastMessage(k *Kernel) string {
	buf := make([]byte, 256)
	n := k.LastErrorMessage(buf)
	return string(buf[:n])
}

func poison(k *Kernel, h dynamo.Handle) {
	defer func() { _ = recover() }()
	_ = k.worlds.Update(h, func(*dynamo.World) { panic("poisoned by test") })
}

var _ = Describe("Kernel", func() {
	var k *Kernel

	BeforeEach(func() {
		k = New()
	})

	Describe("CreateWorld", func() {
		It("allocates handles starting at 1 and clears the last error", func() {
			k.StepWorld(0, 0.1, 1)
			gomega.Expect(k.LastErrorCode()).To(gomega.Equal(dynamo.StatusInvalidHandle))

			h := k.CreateWorld(10, 0)
			gomega.Expect(h).To(gomega.Equal(dynamo.Handle(1)))
			gomega.Expect(k.LastErrorCode()).To(gomega.Equal(dynamo.StatusOK))
			gomega.Expect(lastMessage(k)).To(gomega.BeEmpty())

			w, st := k.State(h)
			gomega.Expect(st).To(gomega.Equal(dynamo.StatusOK))
			gomega.Expect(w).To(gomega.Equal(dynamo.World{T: 0, Y: 10, VY: 0}))
		})

		It("returns N distinct non-zero handles", func() {
			seen := map[dynamo.Handle]bool{}
			for i := 0; i < 100; i++ {
				h := k.CreateWorld(float64(i), 0)
				gomega.Expect(h).NotTo(gomega.Equal(dynamo.NoHandle))
				gomega.Expect(seen).NotTo(gomega.HaveKey(h))
				seen[h] = true
			}
			gomega.Expect(k.Worlds()).To(gomega.Equal(100))
		})

		DescribeTable("rejects non-finite initial conditions",
			func(y0, vy0 float64) {
				gomega.Expect(k.CreateWorld(y0, vy0)).To(gomega.Equal(dynamo.NoHandle))
				gomega.Expect(k.LastErrorCode()).To(gomega.Equal(dynamo.StatusInvalidArgument))
				gomega.Expect(lastMessage(k)).To(gomega.Equal("y0 and vy0 must be finite"))
				gomega.Expect(k.Worlds()).To(gomega.BeZero())
			},
			Entry("NaN height", math.NaN(), 0.0),
			Entry("NaN velocity", 0.0, math.NaN()),
			Entry("+Inf height", math.Inf(1), 0.0),
			Entry("-Inf velocity", 1.0, math.Inf(-1)),
		)
	})

	Describe("DestroyWorld", func() {
		It("removes the world and invalidates its handle everywhere", func() {
			h := k.CreateWorld(1, 1)
			k.DestroyWorld(h)
			gomega.Expect(k.LastErrorCode()).To(gomega.Equal(dynamo.StatusOK))

			k.DestroyWorld(h)
			gomega.Expect(k.LastErrorCode()).To(gomega.Equal(dynamo.StatusInvalidHandle))
			gomega.Expect(lastMessage(k)).To(gomega.Equal("unknown handle"))

			gomega.Expect(k.StepWorld(h, 0.1, 1)).To(gomega.Equal(dynamo.StatusInvalidHandle))
			_, st := k.State(h)
			gomega.Expect(st).To(gomega.Equal(dynamo.StatusInvalidHandle))
		})

		It("rejects the reserved handle", func() {
			k.DestroyWorld(dynamo.NoHandle)
			gomega.Expect(k.LastErrorCode()).To(gomega.Equal(dynamo.StatusInvalidHandle))
			gomega.Expect(lastMessage(k)).To(gomega.Equal("invalid handle"))
		})

		It("never reuses a destroyed handle", func() {
			h := k.CreateWorld(0, 0)
			k.DestroyWorld(h)
			gomega.Expect(k.CreateWorld(0, 0)).To(gomega.BeNumerically(">", h))
		})
	})

	Describe("StepWorld", func() {
		var h dynamo.Handle

		BeforeEach(func() {
			h = k.CreateWorld(10, 0)
		})

		It("integrates with semi-implicit Euler", func() {
			gomega.Expect(k.StepWorld(h, 0.1, 50)).To(gomega.Equal(dynamo.StatusOK))

			w, st := k.State(h)
			gomega.Expect(st).To(gomega.Equal(dynamo.StatusOK))
			gomega.Expect(w.T).To(gomega.BeNumerically("~", 5.0, 1e-9))
			gomega.Expect(w.VY).To(gomega.BeNumerically("~", -49.05, 1e-9))

			y, vy := 10.0, 0.0
			for i := 0; i < 50; i++ {
				vy -= 9.81 * 0.1
				y += vy * 0.1
			}
			gomega.Expect(w.Y).To(gomega.BeNumerically("~", y, 1e-9))
		})

		It("is bit-for-bit deterministic across worlds", func() {
			run := func() dynamo.World {
				h := k.CreateWorld(10, 0)
				gomega.Expect(k.StepWorld(h, 0.1, 50)).To(gomega.Equal(dynamo.StatusOK))
				w, _ := k.State(h)
				k.DestroyWorld(h)
				return w
			}
			a, b := run(), run()
			gomega.Expect(math.Float64bits(a.T)).To(gomega.Equal(math.Float64bits(b.T)))
			gomega.Expect(math.Float64bits(a.Y)).To(gomega.Equal(math.Float64bits(b.Y)))
			gomega.Expect(math.Float64bits(a.VY)).To(gomega.Equal(math.Float64bits(b.VY)))
		})

		DescribeTable("validates in order",
			func(handle func() dynamo.Handle, dt float64, steps uint32, status dynamo.Status, msg string) {
				gomega.Expect(k.StepWorld(handle(), dt, steps)).To(gomega.Equal(status))
				gomega.Expect(k.LastErrorCode()).To(gomega.Equal(status))
				gomega.Expect(lastMessage(k)).To(gomega.Equal(msg))

				w, _ := k.State(h)
				gomega.Expect(w).To(gomega.Equal(dynamo.World{Y: 10}))
			},
			Entry("reserved handle before dt", func() dynamo.Handle { return 0 }, math.NaN(), uint32(0),
				dynamo.StatusInvalidHandle, "invalid handle"),
			Entry("NaN dt", func() dynamo.Handle { return h }, math.NaN(), uint32(1),
				dynamo.StatusInvalidArgument, "dt must be finite"),
			Entry("-Inf dt is not finite before not positive", func() dynamo.Handle { return h }, math.Inf(-1), uint32(1),
				dynamo.StatusInvalidArgument, "dt must be finite"),
			Entry("zero dt", func() dynamo.Handle { return h }, 0.0, uint32(1),
				dynamo.StatusInvalidArgument, "dt must be positive"),
			Entry("negative dt", func() dynamo.Handle { return h }, -0.1, uint32(1),
				dynamo.StatusInvalidArgument, "dt must be positive"),
			Entry("zero steps", func() dynamo.Handle { return h }, 0.1, uint32(0),
				dynamo.StatusInvalidArgument, "steps must be > 0"),
			Entry("steps above ceiling", func() dynamo.Handle { return h }, 0.1, MaxSteps+1,
				dynamo.StatusPolicyDenied, "steps exceeds limit"),
			Entry("dt checked before steps", func() dynamo.Handle { return h }, 0.0, MaxSteps+1,
				dynamo.StatusInvalidArgument, "dt must be positive"),
			Entry("unknown handle after argument checks", func() dynamo.Handle { return h + 1000 }, 0.1, uint32(1),
				dynamo.StatusInvalidHandle, "unknown handle"),
		)

		It("accepts exactly MaxSteps", func() {
			gomega.Expect(k.StepWorld(h, 1e-4, MaxSteps)).To(gomega.Equal(dynamo.StatusOK))
			w, _ := k.State(h)
			gomega.Expect(w.T).To(gomega.BeNumerically("~", 1.0, 1e-9))
		})

		It("honors a custom ceiling", func() {
			k = New(WithMaxSteps(10))
			h := k.CreateWorld(0, 0)
			gomega.Expect(k.StepWorld(h, 0.1, 10)).To(gomega.Equal(dynamo.StatusOK))
			gomega.Expect(k.StepWorld(h, 0.1, 11)).To(gomega.Equal(dynamo.StatusPolicyDenied))
		})

		It("uses the configured gravity", func() {
			k = New(WithGravity(1.0))
			h := k.CreateWorld(0, 0)
			gomega.Expect(k.StepWorld(h, 1, 1)).To(gomega.Equal(dynamo.StatusOK))
			w, _ := k.State(h)
			gomega.Expect(w).To(gomega.Equal(dynamo.World{T: 1, Y: -1, VY: -1}))
		})
	})

	Describe("GetState", func() {
		It("leaves outputs untouched on failure", func() {
			t, y, vy := 7.0, 8.0, 9.0
			gomega.Expect(k.GetState(42, &t, &y, &vy)).To(gomega.Equal(dynamo.StatusInvalidHandle))
			gomega.Expect([]float64{t, y, vy}).To(gomega.Equal([]float64{7, 8, 9}))

			gomega.Expect(k.GetState(0, &t, &y, &vy)).To(gomega.Equal(dynamo.StatusInvalidHandle))
			gomega.Expect(lastMessage(k)).To(gomega.Equal("invalid handle"))
			gomega.Expect([]float64{t, y, vy}).To(gomega.Equal([]float64{7, 8, 9}))
		})

		It("requires every output slot", func() {
			h := k.CreateWorld(1, 2)
			t, y := 7.0, 8.0
			gomega.Expect(k.GetState(h, &t, &y, nil)).To(gomega.Equal(dynamo.StatusInvalidArgument))
			gomega.Expect(lastMessage(k)).To(gomega.Equal("output pointers must be non-null"))
			gomega.Expect(t).To(gomega.Equal(7.0))
			gomega.Expect(y).To(gomega.Equal(8.0))
		})

		It("does not mutate the world", func() {
			h := k.CreateWorld(1, 2)
			a, _ := k.State(h)
			b, _ := k.State(h)
			gomega.Expect(a).To(gomega.Equal(b))
		})
	})

	Describe("LastErrorMessage", func() {
		It("truncates and reports the full length", func() {
			k.StepWorld(0, 0.1, 1)
			msg := "invalid handle"

			gomega.Expect(k.LastErrorMessage(nil)).To(gomega.Equal(uint32(len(msg))))

			buf := make([]byte, 5)
			gomega.Expect(k.LastErrorMessage(buf)).To(gomega.Equal(uint32(len(msg))))
			gomega.Expect(buf).To(gomega.Equal(append([]byte("inva"), 0)))
		})
	})

	Describe("poisoned registry", func() {
		It("reports internal errors until the poison is cleared", func() {
			h := k.CreateWorld(5, 0)
			poison(k, h)

			gomega.Expect(k.StepWorld(h, 0.1, 1)).To(gomega.Equal(dynamo.StatusInternalError))
			gomega.Expect(lastMessage(k)).To(gomega.Equal("failed to lock worlds"))

			_, st := k.State(h)
			gomega.Expect(st).To(gomega.Equal(dynamo.StatusInternalError))

			gomega.Expect(k.CreateWorld(1, 1)).To(gomega.Equal(dynamo.NoHandle))
			gomega.Expect(k.LastErrorCode()).To(gomega.Equal(dynamo.StatusInternalError))

			k.DestroyWorld(h)
			gomega.Expect(k.LastErrorCode()).To(gomega.Equal(dynamo.StatusInternalError))

			k.ClearPoison()
			gomega.Expect(k.StepWorld(h, 0.1, 1)).To(gomega.Equal(dynamo.StatusOK))
		})

		It("still validates arguments before touching the lock", func() {
			h := k.CreateWorld(5, 0)
			poison(k, h)
			gomega.Expect(k.StepWorld(h, 0, 1)).To(gomega.Equal(dynamo.StatusInvalidArgument))
		})
	})

	Describe("panic containment", func() {
		It("converts a panic into an internal error status", func() {
			st := func() (status dynamo.Status) {
				defer k.recoverStatus("test", &status)
				panic("kaboom")
			}()
			gomega.Expect(st).To(gomega.Equal(dynamo.StatusInternalError))
			gomega.Expect(lastMessage(k)).To(gomega.Equal("internal panic: kaboom"))
		})

		It("returns the reserved handle", func() {
			h := func() (h dynamo.Handle) {
				h = 99
				defer k.recoverHandle("test", &h)
				panic("kaboom")
			}()
			gomega.Expect(h).To(gomega.Equal(dynamo.NoHandle))
		})
	})

	Describe("concurrent use", func() {
		It("serializes create, step, read and destroy", func() {
			const workers = 8
			var wg sync.WaitGroup
			results := make([]dynamo.World, workers)

			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(idx int) {
					defer GinkgoRecover()
					defer wg.Done()

					h := k.CreateWorld(10, 0)
					gomega.Expect(h).NotTo(gomega.Equal(dynamo.NoHandle))
					for j := 0; j < 10; j++ {
						gomega.Expect(k.StepWorld(h, 0.01, 100)).To(gomega.Equal(dynamo.StatusOK))
					}
					w, st := k.State(h)
					gomega.Expect(st).To(gomega.Equal(dynamo.StatusOK))
					results[idx] = w
					k.DestroyWorld(h)
				}(i)
			}
			wg.Wait()

			for _, w := range results[1:] {
				gomega.Expect(w).To(gomega.Equal(results[0]))
			}
			gomega.Expect(k.Worlds()).To(gomega.BeZero())
		})
	})
})

var _ = Describe("Default", func() {
	It("returns the same process-wide kernel", func() {
		gomega.Expect(Default()).To(gomega.BeIdenticalTo(Default()))
		gomega.Expect(Default().MaxSteps()).To(gomega.Equal(MaxSteps))
		gomega.Expect(Default().Gravity()).To(gomega.Equal(9.81))
	})
})
