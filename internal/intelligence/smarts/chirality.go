package smarts

// implicitNeighbor stands for the unwritten fourth substituent of a
// three-coordinate stereocenter.
const implicitNeighbor = -1

// withImplicit returns order with the implicit neighbor inserted when the
// atom has exactly three neighbors: at position 1 if afterFirst is set,
// otherwise at the front.
func withImplicit(order []int, afterFirst bool) []int {
	if len(order) != 3 {
		return order
	}
	out := make([]int, 0, 4)
	if afterFirst {
		out = append(out, order[0], implicitNeighbor)
		return append(out, order[1:]...)
	}
	out = append(out, implicitNeighbor)
	return append(out, order...)
}

// sameParity reports whether b is an even permutation of a.  Lists that are
// not permutations of each other are treated as equal.
func sameParity(a, b []int) bool {
	if len(a) != len(b) || len(a) < 2 {
		return true
	}
	pos := make(map[int]int, len(b))
	for i, v := range b {
		pos[v] = i
	}
	perm := make([]int, len(a))
	for i, v := range a {
		j, ok := pos[v]
		if !ok {
			return true
		}
		perm[i] = j
	}
	swaps := 0
	for i := range perm {
		for perm[i] != i {
			perm[i], perm[perm[i]] = perm[perm[i]], perm[i]
			swaps++
		}
	}
	return swaps%2 == 0
}

//Personal.AI order the ending
