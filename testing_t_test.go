package goldsuite_test

import (
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/networkteam/goldsuite"
	"github.com/networkteam/goldsuite/report"
)

func TestT_Diagnostics(t *testing.T) {
	s := newTestSuite(t, true, nil)

	var diagnostics []string
	runIsolated("TestBuyGold_Diagnostics", func(t *testing.T) {
		s.Test(t, func(t *goldsuite.T, page playwright.Page) {
			assert.Empty(t, t.Diagnostics())
			t.Error("total payable", 3000)
			t.Errorf("grams = %s", "0.4")
			diagnostics = t.Diagnostics()
		})
	})

	assert.Equal(t, []string{"total payable 3000", "grams = 0.4"}, diagnostics)
}

func TestT_FatalStopsBody(t *testing.T) {
	s := newTestSuite(t, true, nil)

	reached := false
	runIsolated("TestBuyGold_Fatal", func(t *testing.T) {
		s.Test(t, func(t *goldsuite.T, page playwright.Page) {
			t.Fatalf("confirm button %s", "disabled")
			reached = true
		})
	})
	assert.False(t, reached)

	rec := onlyRecord(t, s)
	assert.Equal(t, report.OutcomeFailed, rec.Outcome)
	require.NotNil(t, rec.ErrorDetail)
	assert.Equal(t, "confirm button disabled", *rec.ErrorDetail)
}

func TestT_FatalArgs(t *testing.T) {
	s := newTestSuite(t, true, nil)

	runIsolated("TestBuyGold_FatalArgs", func(t *testing.T) {
		s.Test(t, func(t *goldsuite.T, page playwright.Page) {
			t.Fatal("order", "GLD-1", "not found")
		})
	})

	rec := onlyRecord(t, s)
	require.NotNil(t, rec.ErrorDetail)
	assert.Equal(t, "order GLD-1 not found", *rec.ErrorDetail)
}
