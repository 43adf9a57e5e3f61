package dsss

// messageConnections generates the deterministic, fixed message-bit
// connection pattern for each of the r parity checks of a k-message-bit
// LDPC variant: up to four message-bit columns per check, chosen by
// affine strides i*s+o mod k. Every declared variant has r == k (rate
// 1/2), so each stride ranges over the full message-bit index space as i
// does; picking every stride odd keeps it a bijection mod k even though
// k is itself always a power of two (all four LDPCVariants sizes), which
// gives every message bit one candidate connection per stride and avoids
// the degenerate split an even stride (mod a power of two) produces by
// colliding pairs of checks onto the same column. Where two strides land
// on the same column for one check, dedup keeps a single connection, so
// a check carries 3 or 4 message columns (always 3 for k=8). This plays
// the role the spec leaves as "parity-check matrices are external
// inputs" — a concrete, reproducible set of matrices with message
// columns of weight 3-4, parity columns of weight 1-2 and check rows of
// weight 4-6.
func messageConnections(k, r int) [][]int {
	conn := make([][]int, r)
	for i := 0; i < r; i++ {
		a := i % k
		b := (3*i + 5) % k
		c := (5*i + 11) % k
		e := (7*i + 13) % k
		conn[i] = dedup([]int{a, b, c, e})
	}
	return conn
}

func dedup(idx []int) []int {
	seen := make(map[int]bool, len(idx))
	out := idx[:0:0]
	for _, v := range idx {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// ldpcCodes caches the four built Tanner graphs, one per LDPCVariants
// entry. Built once at package init since the check structure depends
// only on (n, k), never on configuration.
var ldpcCodes = func() [4]*ldpcCode {
	var codes [4]*ldpcCode
	for i, v := range LDPCVariants {
		codes[i] = buildLDPCCode(v.N, v.K)
	}
	return codes
}()

// codeForVariant returns the built LDPC code for an ldpc_n_type index
// (0-3).
func codeForVariant(ldpcNType int) *ldpcCode {
	return ldpcCodes[ldpcNType]
}
