package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/veracity-dev/ess/internal/model"
)

func TestRootEntityUIDPrefersFirstEntity(t *testing.T) {
	entities := []model.CodeEntity{
		{UID: "first"}, {UID: "second"},
	}
	assert.Equal(t, "first", rootEntityUID("proj1", "a.go", entities))
}

func TestRootEntityUIDFallsBackToFileUID(t *testing.T) {
	got := rootEntityUID("proj1", "a.go", nil)
	assert.Equal(t, model.FileUID("proj1", "a.go"), got)
}
