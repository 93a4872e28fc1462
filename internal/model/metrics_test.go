package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func f(v float64) *float64 { return &v }

func TestMetricsBagGet(t *testing.T) {
	bag := MetricsBag{
		MetricRevenue: f(10),
		MetricDebt:    nil,
	}

	v, ok := bag.Get(MetricRevenue)
	assert.True(t, ok)
	assert.Equal(t, 10.0, v)

	_, ok = bag.Get(MetricDebt)
	assert.False(t, ok, "nil value is absent")

	_, ok = bag.Get(MetricNetIncome)
	assert.False(t, ok)
}

func TestMetricsBagFirst(t *testing.T) {
	bag := MetricsBag{MetricDebt: f(2)}

	v, ok := bag.First(MetricTotalDebt, MetricDebt)
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)

	_, ok = bag.First(MetricRevenue, MetricNetIncome)
	assert.False(t, ok)
}

func TestMetricsBagSetDropsNonFinite(t *testing.T) {
	bag := MetricsBag{}
	bag.Set(MetricRevenue, 10)
	bag.Set(MetricNetIncome, math.NaN())
	bag.Set(MetricEBITDA, math.Inf(1))

	assert.Len(t, bag, 1)
	v, ok := bag.Get(MetricRevenue)
	assert.True(t, ok)
	assert.Equal(t, 10.0, v)
}

func TestMetricsBagClone(t *testing.T) {
	bag := MetricsBag{MetricRevenue: f(10), MetricDebt: nil}
	clone := bag.Clone()

	clone.Set(MetricRevenue, 99)
	v, _ := bag.Get(MetricRevenue)
	assert.Equal(t, 10.0, v, "clone must not alias the original")

	_, hasDebt := clone[MetricDebt]
	assert.True(t, hasDebt)
}
