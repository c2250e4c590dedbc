package utils

import (
	"runtime"
	"sync"

	"go.viam.com/utils"
)

// ParallelFactor controls the max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
}

// minRowsPerGroup keeps tiny images on a single goroutine.
const minRowsPerGroup = 32

// ParallelForEachRow calls f once for every row in [0, rows). Rows are split into contiguous
// groups, one goroutine per group, and the call returns once every row has been visited.
// f must only write to state owned by its row.
func ParallelForEachRow(rows int, f func(y int)) {
	if rows <= 0 {
		return
	}
	numGroups := ParallelFactor
	if maxGroups := rows / minRowsPerGroup; maxGroups < numGroups {
		numGroups = maxGroups
	}
	if numGroups <= 1 {
		for y := 0; y < rows; y++ {
			f(y)
		}
		return
	}

	groupSize := rows / numGroups
	var wait sync.WaitGroup
	wait.Add(numGroups)
	for groupNum := 0; groupNum < numGroups; groupNum++ {
		from := groupSize * groupNum
		to := from + groupSize
		if groupNum == numGroups-1 {
			to = rows
		}
		utils.PanicCapturingGo(func() {
			defer wait.Done()
			for y := from; y < to; y++ {
				f(y)
			}
		})
	}
	wait.Wait()
}
