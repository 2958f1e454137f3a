package recommend

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/vending-kiosk/internal/inventory"
	"github.com/wfunc/vending-kiosk/internal/sensor"
)

func names(entries []inventory.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Item.Name
	}
	return out
}

func TestFilter(t *testing.T) {
	items := inventory.DefaultDrinks()

	tests := []struct {
		name string
		q    Query
		want []string
	}{
		{"冷饮 清爽 不限口味 含咖啡因", Query{inventory.Cold, inventory.Energetic, AnyTaste, true}, []string{"可乐", "零度可乐"}},
		{"冷饮 平静 甜", Query{inventory.Cold, inventory.Calm, inventory.Sweet, false}, []string{"葡萄汁", "橙汁", "芒果汁", "西瓜汁"}},
		{"热饮 疲惫 苦 含咖啡因", Query{inventory.Hot, inventory.Tired, inventory.Bitter, true}, []string{"牛奶咖啡", "罐装咖啡"}},
		{"热饮 清爽 甜 含咖啡因", Query{inventory.Hot, inventory.Energetic, inventory.Sweet, true}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(items, tt.q)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, names(got))
		})
	}
}

// 售罄商品不出现在推荐中，顺序与目录一致
func TestFilterSkipsSoldOut(t *testing.T) {
	catalog := inventory.NewCatalog(inventory.DefaultDrinks(), 5)
	require.NoError(t, catalog.Decrement(6))

	e := NewEngine(&sensor.Static{}, &sensor.Static{}, 0, 100)
	got := e.Recommend(catalog, Query{inventory.Cold, inventory.Calm, inventory.Sweet, false})
	assert.Equal(t, []string{"葡萄汁", "芒果汁", "西瓜汁"}, names(got))
	assert.Equal(t, 5, got[0].Index)
}

func TestBandOf(t *testing.T) {
	cases := map[int]Band{
		35: BandHot, 25: BandHot, 24: BandMild, 10: BandMild,
		9: BandChilly, 0: BandChilly, -1: BandFreezing, -20: BandFreezing,
		36: BandNone, -21: BandNone,
	}
	for temp, want := range cases {
		assert.Equal(t, want, BandOf(temp), "temp=%d", temp)
	}
	assert.NotEmpty(t, BandHot.Greeting())
	assert.Empty(t, BandNone.Greeting())
}

func TestCaffeineFromLight(t *testing.T) {
	light := &sensor.Static{Light: 150}
	e := NewEngine(&sensor.Static{}, light, 0, 100)

	caffeine, v, err := e.Caffeine()
	require.NoError(t, err)
	assert.False(t, caffeine, "夜间不推荐咖啡因")
	assert.Equal(t, 150, v)

	light.Light = 100
	caffeine, _, err = e.Caffeine()
	require.NoError(t, err)
	assert.True(t, caffeine)
}

func TestEnvironmentDecodeError(t *testing.T) {
	e := NewEngine(&sensor.Static{Err: sensor.ErrDecode}, &sensor.Static{}, 0, 100)
	_, err := e.Environment()
	assert.True(t, errors.Is(err, sensor.ErrDecode))
}
