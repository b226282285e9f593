package web

import (
	"bytes"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/golden"

	"github.com/nikbrunner/stash/internal/reconcile"
)

func TestRenderSidebar(t *testing.T) {
	s := New(nil, Options{})
	defer s.Close()

	var buf bytes.Buffer
	err := s.renderSidebar(&buf, reconcile.Snapshot{
		Categories: []reconcile.Entry{
			{ID: "c1", Name: "Reading & Notes", Count: 2},
			{ID: "c2", Name: "Work", Count: 0},
		},
		Tags: []reconcile.Entry{},
	})
	assert.NilError(t, err)

	golden.Assert(t, buf.String(), "sidebar.golden")
}
