package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"reposcanner/internal/actions"
	"reposcanner/internal/github"
)

func TestFormatDescribeResult(t *testing.T) {
	tests := []struct {
		name     string
		res      *actions.DescribeResult
		contains []string
		absent   []string
	}{
		{
			name: "Committed",
			res: &actions.DescribeResult{
				Updated:  []string{"a.md", "b.md"},
				Skipped:  []string{"c.md"},
				Failures: []actions.FileFailure{{Path: "d.md", Error: "rigobot <503>"}},
				Commit:   &github.CommitResult{SHA: "abc123"},
				Descriptions: map[string]string{
					"a.md": "<p>A <strong>short</strong> guide.</p>",
					"b.md": "A generic List<T> container.",
				},
			},
			contains: []string{
				"Committed <b>2</b> files as <code>abc123</code>",
				"<b>Updated (2)</b>",
				"<b>Skipped (1)</b>",
				"<code>d.md</code>: rigobot &lt;503&gt;",
				"<i>A **short** guide.</i>",
				"<i>A generic List&lt;T&gt; container.</i>",
			},
			absent: []string{"Ignored", "Nothing to commit"},
		},
		{
			name:     "Nothing to commit",
			res:      &actions.DescribeResult{NothingToCommit: true, Ignored: []string{"img.png"}},
			contains: []string{"Nothing to commit", "<b>Ignored (1)</b>"},
			absent:   []string{"Committed", "Failed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := formatDescribeResult(tt.res)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, out, s)
			}
		})
	}
}
