package deker

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/mem"
)

// availableBytes reports free RAM plus free swap, the ceiling the memory
// admission gate clamps a configured limit against.
func availableBytes() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, errIO("failed to read virtual memory stats", err)
	}
	sm, err := mem.SwapMemory()
	if err != nil {
		return 0, errIO("failed to read swap memory stats", err)
	}
	return vm.Available + sm.Free, nil
}

// requestedBytes computes product(shape) * sizeof(dtype), the size of the
// buffer a read or write against this shape would have to materialize.
func requestedBytes(shape []int, dtype ElementType) int64 {
	n := int64(1)
	for _, s := range shape {
		n *= int64(s)
	}
	return n * int64(dtype.ByteWidth())
}

// checkMemoryAdmission enforces the gate: requested_bytes must not exceed
// min(configured_limit, free_ram+free_swap). limitBytes == 0 means no
// explicit configured cap; the gate then only enforces the machine's actual
// availability.
func checkMemoryAdmission(requested int64, limitBytes int64) error {
	avail, err := availableBytes()
	if err != nil {
		return err
	}
	ceiling := int64(avail)
	if limitBytes > 0 && limitBytes < ceiling {
		ceiling = limitBytes
	}
	if requested > ceiling {
		return errMemoryLimit(fmt.Sprintf("requested %d bytes exceeds admission ceiling %d bytes", requested, ceiling), nil)
	}
	return nil
}
