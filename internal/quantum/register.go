package quantum

// Register is an ordered sequence of qubit indices. Qubits[0] is the least
// significant bit of the register's decoded value. A register is owned by the
// circuit context that allocated it and is never shared across concurrent
// evaluations.
type Register struct {
	Name   string
	Qubits []int
}

// Width returns the number of qubits in the register.
func (r Register) Width() int {
	return len(r.Qubits)
}

// Concat joins registers into one wider register. The first register supplies
// the least significant bits. Used to form joint control registers for value
// predicates spanning multiple operands.
func Concat(name string, regs ...Register) Register {
	out := Register{Name: name}
	for _, r := range regs {
		out.Qubits = append(out.Qubits, r.Qubits...)
	}
	return out
}

// Allocator hands out qubit indices at circuit-build time. Released indices
// are recycled LIFO, so scratch registers from closed scopes are reused by
// later allocations and the state-vector footprint stays at the high-water
// mark of concurrently live qubits rather than the total ever allocated.
type Allocator struct {
	free []int
	next int
	high int
}

// NewAllocator creates an empty allocator.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// Alloc reserves width qubit indices and returns them as a named register.
func (a *Allocator) Alloc(name string, width int) Register {
	reg := Register{Name: name, Qubits: make([]int, 0, width)}
	for i := 0; i < width; i++ {
		var q int
		if n := len(a.free); n > 0 {
			q = a.free[n-1]
			a.free = a.free[:n-1]
		} else {
			q = a.next
			a.next++
		}
		reg.Qubits = append(reg.Qubits, q)
	}
	if a.next > a.high {
		a.high = a.next
	}
	return reg
}

// Release returns the register's indices to the free list. The caller must
// only release a register after the program has uncomputed it; the engine
// enforces that through the scope's trailing zero check.
func (a *Allocator) Release(reg Register) {
	// Push in reverse so a subsequent Alloc of the same width gets the same
	// indices back in the same order.
	for i := len(reg.Qubits) - 1; i >= 0; i-- {
		a.free = append(a.free, reg.Qubits[i])
	}
}

// HighWater returns the peak number of simultaneously live qubits, which is
// the state-vector size the engine must be created with.
func (a *Allocator) HighWater() int {
	return a.high
}
