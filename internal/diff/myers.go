package diff

// align returns an unpaired script of Equal, Delete and Insert operations
// transforming a into b with the minimum number of edits.
func align(a, b []string) []Op {
	al := &aligner{a: a, b: b, ops: make([]Op, 0, len(a)+len(b))}
	al.compare(0, len(a), 0, len(b))
	return al.ops
}

// aligner runs Myers' linear space variant: the middle snake of each
// subproblem splits it in two until one side is empty.
type aligner struct {
	a, b []string
	ops  []Op
}

// compare appends the script for a[a0:a1] against b[b0:b1].
func (al *aligner) compare(a0, a1, b0, b1 int) {
	pre := 0
	for a0+pre < a1 && b0+pre < b1 && al.a[a0+pre] == al.b[b0+pre] {
		pre++
	}
	suf := 0
	for a1-suf > a0+pre && b1-suf > b0+pre && al.a[a1-1-suf] == al.b[b1-1-suf] {
		suf++
	}

	for i := 0; i < pre; i++ {
		al.equal(a0+i, b0+i)
	}
	al.middle(a0+pre, a1-suf, b0+pre, b1-suf)
	for i := suf; i > 0; i-- {
		al.equal(a1-i, b1-i)
	}
}

// middle handles a range whose first and last lines differ on both sides.
func (al *aligner) middle(a0, a1, b0, b1 int) {
	if a0 == a1 {
		for j := b0; j < b1; j++ {
			al.ops = append(al.ops, Op{Kind: Insert, TargetLine: j + 1, Target: al.b[j]})
		}
		return
	}
	if b0 == b1 {
		for i := a0; i < a1; i++ {
			al.ops = append(al.ops, Op{Kind: Delete, BaseLine: i + 1, Base: al.a[i]})
		}
		return
	}

	x, y, ok := al.bisect(a0, a1, b0, b1)
	if !ok {
		// Nothing in common.
		al.middle(a0, a1, b0, b0)
		al.middle(a1, a1, b0, b1)
		return
	}
	al.compare(a0, a0+x, b0, b0+y)
	al.compare(a0+x, a1, b0+y, b1)
}

// bisect finds the middle snake of a[a0:a1] against b[b0:b1] by running the
// forward and reverse searches until their paths overlap. It returns the
// split point relative to (a0, b0), or false when the ranges share no line.
func (al *aligner) bisect(a0, a1, b0, b1 int) (int, int, bool) {
	n, m := a1-a0, b1-b0
	maxD := (n + m + 1) / 2
	off := maxD
	size := 2*maxD + 2

	fwd := make([]int, size)
	rev := make([]int, size)
	for i := range fwd {
		fwd[i] = -1
		rev[i] = -1
	}
	fwd[off+1] = 0
	rev[off+1] = 0

	delta := n - m
	// With an odd delta the paths meet during a forward step.
	front := delta%2 != 0
	var fStart, fEnd, rStart, rEnd int

	for d := 0; d <= maxD; d++ {
		for k := -d + fStart; k <= d-fEnd; k += 2 {
			i := off + k
			var x int
			// Deletion wins ties.
			if k == -d || (k != d && fwd[i-1] < fwd[i+1]) {
				x = fwd[i+1]
			} else {
				x = fwd[i-1] + 1
			}
			y := x - k
			for x < n && y < m && al.a[a0+x] == al.b[b0+y] {
				x++
				y++
			}
			fwd[i] = x
			switch {
			case x > n:
				fEnd += 2
			case y > m:
				fStart += 2
			case front:
				j := off + delta - k
				if j >= 0 && j < size && rev[j] != -1 && x >= n-rev[j] {
					return x, y, true
				}
			}
		}

		for k := -d + rStart; k <= d-rEnd; k += 2 {
			i := off + k
			var x int
			if k == -d || (k != d && rev[i-1] < rev[i+1]) {
				x = rev[i+1]
			} else {
				x = rev[i-1] + 1
			}
			y := x - k
			for x < n && y < m && al.a[a1-1-x] == al.b[b1-1-y] {
				x++
				y++
			}
			rev[i] = x
			switch {
			case x > n:
				rEnd += 2
			case y > m:
				rStart += 2
			case !front:
				j := off + delta - k
				if j >= 0 && j < size && fwd[j] != -1 {
					fx := fwd[j]
					fy := off + fx - j
					if fx >= n-x {
						return fx, fy, true
					}
				}
			}
		}
	}
	return 0, 0, false
}

func (al *aligner) equal(i, j int) {
	al.ops = append(al.ops, Op{Kind: Equal, BaseLine: i + 1, TargetLine: j + 1, Base: al.a[i], Target: al.b[j]})
}
