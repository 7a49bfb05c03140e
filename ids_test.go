package flow

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIDs(t *testing.T) {
	tests := []struct {
		gen     func() string
		pattern string
	}{
		{NewNodeID, `^node_\d+_[0-9a-f]{7}$`},
		{NewEdgeID, `^edge_\d+_[0-9a-f]{7}$`},
		{NewWorkflowID, `^wf_\d+_[0-9a-f]{7}$`},
	}
	for _, tt := range tests {
		re := regexp.MustCompile(tt.pattern)
		seen := map[string]bool{}
		for range 100 {
			id := tt.gen()
			assert.Regexp(t, re, id)
			assert.False(t, seen[id], "duplicate id %s", id)
			seen[id] = true
		}
	}
}
