package model

import (
	"math/rand"
	"sort"
)

// node is a binary split on x[feature] <= threshold, or a leaf carrying value.
type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	value     float64
	leaf      bool
}

func (n *node) predict(x []float64) float64 {
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// treeParams controls one regression tree fitted on squared error.
type treeParams struct {
	maxDepth    int
	minLeaf     int
	maxFeatures int // 0 = all features at every split
	rng         *rand.Rand
	leafValue   func(idx []int) float64
}

// growTree fits targets on the rows in idx. Splits minimize the summed squared
// error of both children; thresholds sit halfway between distinct values.
func growTree(x [][]float64, target []float64, idx []int, depth int, p treeParams) *node {
	if depth >= p.maxDepth || len(idx) < 2*p.minLeaf || constant(target, idx) {
		return &node{leaf: true, value: p.leafValue(idx)}
	}

	feature, threshold, ok := bestSplit(x, target, idx, p)
	if !ok {
		return &node{leaf: true, value: p.leafValue(idx)}
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &node{
		feature:   feature,
		threshold: threshold,
		left:      growTree(x, target, left, depth+1, p),
		right:     growTree(x, target, right, depth+1, p),
	}
}

func bestSplit(x [][]float64, target []float64, idx []int, p treeParams) (int, float64, bool) {
	nFeat := len(x[idx[0]])
	candidates := featureCandidates(nFeat, p)

	var totalSum, totalSq float64
	for _, i := range idx {
		totalSum += target[i]
		totalSq += target[i] * target[i]
	}
	n := float64(len(idx))
	parentSSE := totalSq - totalSum*totalSum/n

	bestGain := 1e-12
	bestFeature, bestThreshold, found := -1, 0.0, false

	sorted := make([]int, len(idx))
	for _, f := range candidates {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, b int) bool { return x[sorted[a]][f] < x[sorted[b]][f] })

		var leftSum, leftSq float64
		for k := 0; k < len(sorted)-1; k++ {
			t := target[sorted[k]]
			leftSum += t
			leftSq += t * t

			nl := float64(k + 1)
			nr := n - nl
			if k+1 < p.minLeaf || len(sorted)-(k+1) < p.minLeaf {
				continue
			}
			cur, next := x[sorted[k]][f], x[sorted[k+1]][f]
			if cur == next {
				continue
			}
			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
			if gain := parentSSE - sse; gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = cur + (next-cur)/2
				if bestThreshold >= next {
					bestThreshold = cur
				}
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}

func featureCandidates(nFeat int, p treeParams) []int {
	if p.maxFeatures <= 0 || p.maxFeatures >= nFeat || p.rng == nil {
		all := make([]int, nFeat)
		for i := range all {
			all[i] = i
		}
		return all
	}
	picked := p.rng.Perm(nFeat)[:p.maxFeatures]
	sort.Ints(picked)
	return picked
}

func constant(target []float64, idx []int) bool {
	for _, i := range idx[1:] {
		if target[i] != target[idx[0]] {
			return false
		}
	}
	return true
}

func meanOf(target []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	var s float64
	for _, i := range idx {
		s += target[i]
	}
	return s / float64(len(idx))
}
