package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterRegions(t *testing.T) {
	rs := stationSet(t)

	tests := []struct {
		name     string
		regions  []string
		expected []string
	}{
		{
			name:     "nil selection keeps everything",
			regions:  nil,
			expected: names(rs.Records()),
		},
		{
			name:     "empty selection keeps everything",
			regions:  []string{},
			expected: names(rs.Records()),
		},
		{
			name:     "single region",
			regions:  []string{regionIDF},
			expected: []string{stationParis, "Versailles Chantiers"},
		},
		{
			name:     "two regions keep row order",
			regions:  []string{regionPACA, regionARA},
			expected: []string{"Lyon Part-Dieu", "Marseille Saint-Charles", "Ambérieu-en-Bugey"},
		},
		{
			name:     "unknown region",
			regions:  []string{"Atlantis"},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := FilterRegions(rs, tt.regions)
			assert.Equal(t, tt.expected, names(view.Records()))
		})
	}
}

func TestFilterRegions_OnlySelectedRegion(t *testing.T) {
	view := FilterRegions(stationSet(t), []string{regionIDF})

	require.Equal(t, 2, view.Len())
	for _, r := range view.Strings(ColRegion) {
		assert.Equal(t, regionIDF, r)
	}
}

func TestFilterRegions_LeavesBaseUntouched(t *testing.T) {
	rs := stationSet(t)

	_ = FilterRegions(rs, []string{regionPACA})

	assert.Equal(t, 5, rs.Len())
}

func TestRegions(t *testing.T) {
	// Code-point order: "Île-de-France" sorts after every ASCII-initial name.
	assert.Equal(t,
		[]string{regionARA, regionPACA, regionIDF},
		Regions(stationSet(t)),
	)
}

func TestRegions_EmptySet(t *testing.T) {
	assert.Empty(t, Regions(RecordSet{}))
}
