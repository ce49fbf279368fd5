package harness

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/skeinlog/skein/parse"
	"github.com/skeinlog/skein/record"
)

// RenderTasks renders a forest of reconstructed tasks as deterministic
// text, one task per block, ordered by task UUID. The output is stable
// across permutations of the input stream and across runs, which is what
// makes it suitable both for golden files and for order-independence
// comparison.
func RenderTasks(tasks []*parse.Task) string {
	sorted := make([]*parse.Task, len(tasks))
	copy(sorted, tasks)
	slices.SortFunc(sorted, func(a, b *parse.Task) int {
		return strings.Compare(a.UUID(), b.UUID())
	})
	var b strings.Builder
	for _, t := range sorted {
		renderTask(&b, t)
	}
	return b.String()
}

func renderTask(b *strings.Builder, t *parse.Task) {
	fmt.Fprintf(b, "task %s complete=%t\n", t.UUID(), t.IsComplete())
	root := t.Root()
	if root == nil {
		b.WriteString("  (no root)\n")
		return
	}
	renderNode(b, root, 1)
}

func renderNode(b *strings.Builder, n parse.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch node := n.(type) {
	case *record.WrittenMessage:
		fmt.Fprintf(b, "%smessage %s level=%s time=%s\n",
			indent, orDash(node.MessageType()), node.Level(), ts(node.Timestamp()))
	case *parse.WrittenAction:
		fmt.Fprintf(b, "%saction %s level=%s status=%s start=%s end=%s",
			indent, orDash(node.ActionType()), node.Level(), orDash(node.Status()),
			tsOpt(node.StartTime()), tsOpt(node.EndTime()))
		if exc := node.Exception(); exc != "" {
			fmt.Fprintf(b, " exception=%s", exc)
		}
		if reason := node.Reason(); reason != "" {
			fmt.Fprintf(b, " reason=%q", reason)
		}
		b.WriteByte('\n')
		for _, child := range node.Children() {
			renderNode(b, child, depth+1)
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func ts(t float64) string {
	return strconv.FormatFloat(t, 'f', 3, 64)
}

func tsOpt(t float64, ok bool) string {
	if !ok {
		return "-"
	}
	return ts(t)
}
