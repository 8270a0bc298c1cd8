package models_test

import (
	"testing"

	"github.com/cul-it/cular/models"
	"github.com/stretchr/testify/assert"
)

func TestWorkSummaryLifecycle(t *testing.T) {
	summary := models.NewWorkSummary()
	assert.False(t, summary.Started())
	assert.False(t, summary.Finished())
	assert.True(t, summary.Retry)

	summary.Start()
	assert.True(t, summary.Started())
	assert.True(t, summary.Attempted)

	summary.Finish()
	assert.True(t, summary.Finished())
	assert.True(t, summary.Succeeded())
	assert.True(t, summary.RunTime() >= 0)
}

func TestWorkSummaryErrors(t *testing.T) {
	summary := models.NewWorkSummary()
	summary.Start()
	summary.AddError("cannot reach %s", "somewhere")
	summary.AddError("second problem")
	summary.Finish()

	assert.False(t, summary.Succeeded())
	assert.True(t, summary.HasErrors())
	assert.Equal(t, "cannot reach somewhere", summary.FirstError())
	assert.Equal(t, "cannot reach somewhere\nsecond problem",
		summary.AllErrorsAsString())
	assert.True(t, summary.Retry)

	summary.AddFatalError("digest mismatch on %s", "a.txt")
	assert.True(t, summary.ErrorIsFatal)
	assert.False(t, summary.Retry)

	summary.ClearErrors()
	assert.False(t, summary.HasErrors())
	assert.False(t, summary.ErrorIsFatal)
	assert.True(t, summary.Retry)
}
