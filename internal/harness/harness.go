package harness

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/skeinlog/skein/parse"
	"github.com/skeinlog/skein/record"
)

// maxExhaustive caps the record count for which every permutation is
// tried; beyond it the harness samples.
const maxExhaustive = 5

// sampleSeeds are the shuffle seeds used when a scenario is too large for
// exhaustive permutation. Fixed so runs are reproducible.
var sampleSeeds = []int64{1, 2, 3, 5, 8, 13, 21, 34}

// Result is the outcome of running a scenario: the rendered forest (empty
// for expected-error scenarios) and whether every task completed.
type Result struct {
	Rendered string
	Complete bool
	Tasks    int
}

// Run feeds the scenario's records through a fresh Parser once per
// permutation and checks that every permutation yields an identical
// rendered forest and completeness verdict, then checks the scenario's
// expectations. The first permutation's result is returned.
func Run(s *Scenario) (*Result, error) {
	orders := permutations(len(s.Records))
	var first *Result
	for _, order := range orders {
		res, err := runOrder(s, order)
		if err != nil {
			return nil, fmt.Errorf("scenario %s order %v: %w", s.Name, order, err)
		}
		if first == nil {
			first = res
			continue
		}
		if res.Rendered != first.Rendered || res.Complete != first.Complete {
			return nil, fmt.Errorf(
				"scenario %s is order dependent:\norder %v produced:\n%s\nearlier order produced:\n%s",
				s.Name, order, res.Rendered, first.Rendered)
		}
	}
	if err := checkExpect(s, first); err != nil {
		return nil, err
	}
	return first, nil
}

// runOrder feeds the records in the given order through one Parser.
func runOrder(s *Scenario, order []int) (*Result, error) {
	parser := parse.NewParser()
	var finished []*parse.Task
	for _, i := range order {
		done, err := parser.Add(record.Fields(s.Records[i]))
		if err != nil {
			var ve *parse.ValidationError
			if s.Expect.Error != "" && errors.As(err, &ve) && string(ve.Code) == s.Expect.Error {
				return &Result{}, nil
			}
			return nil, err
		}
		finished = append(finished, done...)
	}
	if s.Expect.Error != "" {
		return nil, fmt.Errorf("expected a %s error, got none", s.Expect.Error)
	}
	incomplete := parser.IncompleteTasks()
	all := append(finished, incomplete...)
	return &Result{
		Rendered: RenderTasks(all),
		Complete: len(incomplete) == 0 && len(finished) > 0,
		Tasks:    len(all),
	}, nil
}

func checkExpect(s *Scenario, res *Result) error {
	if s.Expect.Complete != nil && res.Complete != *s.Expect.Complete {
		return fmt.Errorf("scenario %s: complete=%t, expected %t\n%s",
			s.Name, res.Complete, *s.Expect.Complete, res.Rendered)
	}
	if s.Expect.Tasks != 0 && res.Tasks != s.Expect.Tasks {
		return fmt.Errorf("scenario %s: %d tasks, expected %d", s.Name, res.Tasks, s.Expect.Tasks)
	}
	return nil
}

// permutations returns the index orders to try: every permutation for
// small streams, otherwise emission order, reverse order and a fixed set
// of seeded shuffles.
func permutations(n int) [][]int {
	if n <= maxExhaustive {
		return allPermutations(n)
	}
	orders := [][]int{identity(n), reversed(n)}
	for _, seed := range sampleSeeds {
		rng := rand.New(rand.NewSource(seed))
		order := identity(n)
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
		orders = append(orders, order)
	}
	return orders
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func reversed(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = n - 1 - i
	}
	return out
}

// allPermutations generates every ordering of n indices via Heap's
// algorithm.
func allPermutations(n int) [][]int {
	var out [][]int
	cur := identity(n)
	var generate func(k int)
	generate = func(k int) {
		if k == 1 {
			perm := make([]int, n)
			copy(perm, cur)
			out = append(out, perm)
			return
		}
		for i := 0; i < k; i++ {
			generate(k - 1)
			if k%2 == 0 {
				cur[i], cur[k-1] = cur[k-1], cur[i]
			} else {
				cur[0], cur[k-1] = cur[k-1], cur[0]
			}
		}
	}
	generate(n)
	return out
}
