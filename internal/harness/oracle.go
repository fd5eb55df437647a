package harness

// Oracle counts occurrences of x in y by direct comparison at every offset,
// overlapping occurrences included.
func Oracle(x, y []byte) int {
	m, n := len(x), len(y)
	if m == 0 {
		return 0
	}
	count := 0
	for j := 0; j+m <= n; j++ {
		i := 0
		for i < m && x[i] == y[j+i] {
			i++
		}
		if i == m {
			count++
		}
	}
	return count
}
