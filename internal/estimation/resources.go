package estimation

import (
	"runtime"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/mem"
)

// StateVectorBytes returns the memory footprint of one state vector over the
// given number of qubits (a complex128 per basis state).
func StateVectorBytes(qubits int) uint64 {
	return 16 << uint(qubits)
}

// WorkerBudget decides how many concurrent evaluations fit in memory. Each
// worker owns a full state vector, so the budget is the available memory over
// twice the vector size, capped by the requested count (or CPU count when the
// request is zero). When memory probing fails the request passes through
// unchanged.
func WorkerBudget(qubits, requested int, log zerolog.Logger) int {
	if requested < 1 {
		requested = runtime.NumCPU()
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		log.Warn().Err(err).Msg("memory probe failed, using requested workers")
		return requested
	}
	budget := vm.Available / (2 * StateVectorBytes(qubits))
	if budget < 1 {
		budget = 1
	}
	if uint64(requested) > budget {
		log.Info().Int("requested", requested).Uint64("budget", budget).
			Int("qubits", qubits).Msg("capping workers to memory budget")
		return int(budget)
	}
	return requested
}
