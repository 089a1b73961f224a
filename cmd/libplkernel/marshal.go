package main

import (
	"unsafe"

	"github.com/san-kum/plkernel/internal/dynamo"
	"github.com/san-kum/plkernel/internal/kernel"
)

// getState forwards raw output pointers to k. A nil pointer stays nil so the
// kernel reports it.
func getState(k *kernel.Kernel, h dynamo.Handle, outT, outY, outVY unsafe.Pointer) dynamo.Status {
	return k.GetState(h, (*float64)(outT), (*float64)(outY), (*float64)(outVY))
}

// messageBuffer views n bytes at p. A nil p or zero n yields nil, which the
// kernel treats as a size query.
func messageBuffer(p unsafe.Pointer, n uint32) []byte {
	if p == nil || n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(p), int(n))
}

func lastErrorMessage(k *kernel.Kernel, buf unsafe.Pointer, n uint32) uint32 {
	return k.LastErrorMessage(messageBuffer(buf, n))
}
