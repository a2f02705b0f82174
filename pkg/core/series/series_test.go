package series

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	s, err := New([]int{2021, 2022, 2023}, []*float64{Float(1), nil, Float(3)})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []int{2022}, s.MissingYears())

	_, err = New([]int{2021, 2022}, []*float64{Float(1)})
	assert.Error(t, err)

	_, err = New([]int{2022, 2021}, []*float64{Float(1), Float(2)})
	assert.Error(t, err)
}

func TestNew_CopiesInputs(t *testing.T) {
	v := 5.0
	years := []int{2020}
	s, err := New(years, []*float64{&v})
	require.NoError(t, err)

	v = 9
	years[0] = 1999
	got, ok := s.Value(2020)
	assert.True(t, ok)
	assert.Equal(t, 5.0, got)
}

func TestAccessors(t *testing.T) {
	s := Series{Years: []int{2020, 2021, 2022}, Values: []*float64{Float(10), Float(0), nil}}

	v, ok := s.At(1)
	assert.True(t, ok)
	assert.Equal(t, 0.0, v, "zero is a present value")

	_, ok = s.At(2)
	assert.False(t, ok)
	_, ok = s.At(-1)
	assert.False(t, ok)

	_, ok = s.Value(2019)
	assert.False(t, ok)

	year, latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, 2021, year)
	assert.Equal(t, 0.0, latest)

	assert.True(t, s.HasData())
	assert.False(t, Series{}.HasData())
	assert.True(t, Series{}.IsEmpty())

	_, err := s.Floats()
	assert.Error(t, err, "gaps are never read as zero")

	dense, err := FromFloats(2020, 1, 2).Floats()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, dense)
}

func TestMapAndClone(t *testing.T) {
	s := Series{Years: []int{2020, 2021}, Values: []*float64{Float(2), nil}}

	doubled := s.Map(func(_ int, v float64) float64 { return v * 2 })
	v, _ := doubled.At(0)
	assert.Equal(t, 4.0, v)
	_, ok := doubled.At(1)
	assert.False(t, ok)

	c := s.Clone()
	*c.Values[0] = 99
	c.Years[0] = 1
	orig, _ := s.At(0)
	assert.Equal(t, 2.0, orig)
	assert.Equal(t, 2020, s.Years[0])
}

func TestCheckAligned(t *testing.T) {
	a := FromFloats(2021, 1, 2, 3)
	require.NoError(t, CheckAligned(a, a.Clone()))
	require.NoError(t, CheckAligned())

	cases := map[string]Series{
		"shorter": FromFloats(2021, 1, 2),
		"shifted": FromFloats(2022, 1, 2, 3),
		"gap":     {Years: []int{2021, 2022, 2023}, Values: []*float64{Float(1), nil, Float(3)}},
		"ragged":  {Years: []int{2021, 2022, 2023}, Values: []*float64{Float(1)}},
	}
	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			err := CheckAligned(a, b)
			var ae *AlignmentError
			require.True(t, errors.As(err, &ae))
			assert.Equal(t, 1, ae.Input)
		})
	}
}

func TestAlign(t *testing.T) {
	a := Series{Years: []int{2020, 2021, 2022, 2023}, Values: []*float64{Float(1), Float(2), nil, Float(4)}}
	b := FromFloats(2021, 20, 30, 40)

	out := Align(a, b)
	require.Len(t, out, 2)
	assert.Equal(t, []int{2021, 2023}, out[0].Years)
	assert.Equal(t, out[0].Years, out[1].Years)
	require.NoError(t, CheckAligned(out...))

	v, _ := out[1].At(1)
	assert.Equal(t, 40.0, v)

	empty := Align(a, Series{})
	assert.Equal(t, 0, empty[0].Len())
	assert.Equal(t, 0, empty[1].Len())
	assert.Empty(t, Align())
}
