package parse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veracity-dev/ess/internal/model"
)

const goSource = `package sample

import "fmt"

type Greeter struct{}

func (g *Greeter) Greet(name string) string {
	return fmt.Sprintf("hello %s", name)
}

func main() {
	g := &Greeter{}
	g.Greet("world")
}
`

func TestParseGoExtractsEntitiesAndEdges(t *testing.T) {
	p := New()
	defer p.Close()

	result, err := p.Parse(context.Background(), "proj1", "main.go", "go", []byte(goSource))
	require.NoError(t, err)
	require.NotEmpty(t, result.Entities)

	var names []string
	for _, e := range result.Entities {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "Greeter")
	assert.Contains(t, names, "Greet")
	assert.Contains(t, names, "main")

	var sawImport bool
	for _, ref := range result.External {
		if ref.Kind == "import" && ref.Name == "fmt" {
			sawImport = true
		}
	}
	assert.True(t, sawImport, "expected fmt import to surface as an external reference")
}

func TestParseIsDeterministicAcrossRuns(t *testing.T) {
	p := New()
	defer p.Close()

	r1, err := p.Parse(context.Background(), "proj1", "main.go", "go", []byte(goSource))
	require.NoError(t, err)
	r2, err := p.Parse(context.Background(), "proj1", "main.go", "go", []byte(goSource))
	require.NoError(t, err)

	require.Equal(t, len(r1.Entities), len(r2.Entities))
	for i := range r1.Entities {
		assert.Equal(t, r1.Entities[i].UID, r2.Entities[i].UID)
		assert.Equal(t, r1.Entities[i].QualifiedName, r2.Entities[i].QualifiedName)
	}
}

func TestParseUnsupportedLanguageReturnsEmptyResult(t *testing.T) {
	p := New()
	defer p.Close()

	result, err := p.Parse(context.Background(), "proj1", "data.rs", "rust", []byte("fn main() {}"))
	require.NoError(t, err)
	assert.Empty(t, result.Entities)
	assert.Empty(t, result.Edges)
}

func TestSymbolUIDMatchesModelDerivation(t *testing.T) {
	p := New()
	defer p.Close()

	result, err := p.Parse(context.Background(), "proj1", "main.go", "go", []byte(goSource))
	require.NoError(t, err)

	for _, e := range result.Entities {
		if e.Name == "main" {
			assert.Equal(t, model.SymbolUID("proj1", "main.go", "main"), e.UID)
		}
	}
}
