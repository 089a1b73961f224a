// Command libplkernel exports the kernel as a C shared library:
//
//	go build -buildmode=c-shared -o libplkernel.so ./cmd/libplkernel
//
// The declarations match physicslab_kernel.h. Every entry point uses the
// process-wide kernel.
package main

/*
#include <stdint.h>
*/
import "C"

import (
	"unsafe"

	"github.com/san-kum/plkernel/internal/dynamo"
	"github.com/san-kum/plkernel/internal/kernel"
)

//export pl_world_create
func pl_world_create(y0, vy0 C.double) C.uint64_t {
	return C.uint64_t(kernel.Default().CreateWorld(float64(y0), float64(vy0)))
}

//export pl_world_destroy
func pl_world_destroy(handle C.uint64_t) {
	kernel.Default().DestroyWorld(dynamo.Handle(handle))
}

//export pl_world_step
func pl_world_step(handle C.uint64_t, dt C.double, steps C.uint32_t) C.int32_t {
	return C.int32_t(kernel.Default().StepWorld(dynamo.Handle(handle), float64(dt), uint32(steps)))
}

//export pl_world_get_state
func pl_world_get_state(handle C.uint64_t, outT, outY, outVY *C.double) C.int32_t {
	st := getState(kernel.Default(), dynamo.Handle(handle),
		unsafe.Pointer(outT), unsafe.Pointer(outY), unsafe.Pointer(outVY))
	return C.int32_t(st)
}

//export pl_last_error_code
func pl_last_error_code() C.int32_t {
	return C.int32_t(kernel.Default().LastErrorCode())
}

//export pl_last_error_message
func pl_last_error_message(outBuf *C.uint8_t, bufLen C.uint32_t) C.uint32_t {
	return C.uint32_t(lastErrorMessage(kernel.Default(), unsafe.Pointer(outBuf), uint32(bufLen)))
}

func main() {}
