package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyCode(t *testing.T) {
	c := Classify("show me the implementation of the parser function")
	assert.Equal(t, IntentCode, c.Intent)
}

func TestClassifyExplanation(t *testing.T) {
	c := Classify("why does the retry loop back off exponentially")
	assert.Equal(t, IntentExplanation, c.Intent)
}

func TestClassifyLocation(t *testing.T) {
	c := Classify("where is the rate limiter defined")
	assert.Equal(t, IntentLocation, c.Intent)
}

func TestClassifyRelationship(t *testing.T) {
	c := Classify("list the dependencies of the ingest pipeline")
	assert.Equal(t, IntentRelationship, c.Intent)
}

func TestClassifyUnknownHasLowConfidence(t *testing.T) {
	c := Classify("hello there")
	assert.Equal(t, IntentUnknown, c.Intent)
	assert.Less(t, c.Confidence, 0.5)
	assert.True(t, c.Ambiguity)
}

func TestClassifyIsDeterministic(t *testing.T) {
	q := "where is the function that calls the embedder"
	c1 := Classify(q)
	c2 := Classify(q)
	assert.Equal(t, c1, c2)
}

func TestSizeLimitsFallBackToBothUnknownRow(t *testing.T) {
	assert.Equal(t, limitsFor(IntentUnknown), limitsFor(IntentLocation))
	assert.Equal(t, limitsFor(IntentUnknown), limitsFor(IntentRelationship))
}
