package main

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"

	"reposcanner/internal/actions"
	"reposcanner/internal/github"
)

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	printResult(cmd, &actions.DescribeResult{
		Updated:  []string{"a.md"},
		Skipped:  []string{"b.md"},
		Failures: []actions.FileFailure{{Path: "c.md", Error: "boom"}},
		Commit:   &github.CommitResult{SHA: "abc"},
	})

	assert.Equal(t, "updated  a.md\nskipped  b.md\nfailed   c.md: boom\n\ncommitted 1 files as abc\n", buf.String())
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	assert.NoError(t, rootCmd.Execute())
	assert.Equal(t, "reposcanner dev\n", buf.String())
}
