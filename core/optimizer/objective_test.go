package optimizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObjective(t *testing.T) {
	for _, o := range Objectives {
		got, err := ParseObjective(o.String())
		require.NoError(t, err)
		assert.Equal(t, o, got)
	}
	_, err := ParseObjective("overall")
	assert.Error(t, err)
	_, err = ParseObjective("")
	assert.Error(t, err)
}

func TestQueryFlagsAreExclusive(t *testing.T) {
	for _, ep := range []Endpoint{MethodsEndpoint(), MonthEndpoint(), SimulatedEndpoint()} {
		for _, o := range Objectives {
			q := ep.Query(o)
			heavy := strings.Contains(q, "heavy=1")
			prop := strings.Contains(q, "proportionality=1")
			if heavy == prop {
				t.Fatalf("%s/%s: flags not exclusive in %q", ep.Name, o, q)
			}
		}
	}
}

func TestMethodsEndpointQuery(t *testing.T) {
	ep := MethodsEndpoint()
	assert.Equal(t, "heavy=1&proportionality=0&overall=0.2", ep.Query(ObjectiveHeavy))
	assert.Equal(t, "heavy=0&proportionality=1&overall=0.2", ep.Query(ObjectiveProportional))
	assert.Equal(t,
		"http://127.0.0.1:7999/methods/all?heavy=1&proportionality=0&overall=0.2",
		ep.URL(DefaultBaseURL+"/", ObjectiveHeavy))
}

func TestMonthEndpointQuery(t *testing.T) {
	ep := MonthEndpoint()
	assert.Equal(t, "http://127.0.0.1:7999/month?heavy=0&proportionality=1&overall=5",
		ep.URL(DefaultBaseURL, ObjectiveProportional))
}

func TestLookupEndpoint(t *testing.T) {
	ep, ok := LookupEndpoint(VariantSimulated)
	require.True(t, ok)
	assert.True(t, ep.Simulated())
	assert.Equal(t, "heavy=1&proportionality=0", ep.Query(ObjectiveHeavy))

	ep, ok = LookupEndpoint(VariantMonth)
	require.True(t, ok)
	assert.False(t, ep.Simulated())

	_, ok = LookupEndpoint("weekly")
	assert.False(t, ok)
}
