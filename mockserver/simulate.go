// Package mockserver is a local stand-in for the pricing optimizer service.
// It fabricates a small cooperative's monthly car usage and prices it with a
// tariff derived from the requested weights. Nothing is optimized.
package mockserver

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	weekdaysPerMonth    = 22
	weekendDaysPerMonth = 8
)

// Profile describes the ride behaviour of one household cluster. Ride
// duration (hours) and distance (km) are log-normal; the daily ride rate is
// a scaled Beta draw made once per household and month.
type Profile struct {
	DurationMu    float64
	DurationSigma float64
	DistanceMu    float64
	DistanceSigma float64
	// Correlation couples the distance quantile to the duration quantile.
	Correlation float64
	WeekdayRate RateRange
	WeekendRate RateRange
}

// RateRange is a Beta(Alpha, Beta) draw rescaled to [Min, Max] rides per day.
type RateRange struct {
	Alpha, Beta float64
	Min, Max    float64
}

// DefaultProfiles are the three clusters of the reference cooperative:
// frequent drivers, weekend drivers and occasional short trips.
var DefaultProfiles = []Profile{
	{
		DurationMu: 1.1, DurationSigma: 0.5,
		DistanceMu: 3.4, DistanceSigma: 0.6,
		Correlation: 0.7,
		WeekdayRate: RateRange{Alpha: 3, Beta: 3, Min: 0.2, Max: 0.8},
		WeekendRate: RateRange{Alpha: 2, Beta: 3, Min: 0.1, Max: 0.6},
	},
	{
		DurationMu: 1.4, DurationSigma: 0.6,
		DistanceMu: 3.9, DistanceSigma: 0.7,
		Correlation: 0.6,
		WeekdayRate: RateRange{Alpha: 2, Beta: 6, Min: 0.0, Max: 0.3},
		WeekendRate: RateRange{Alpha: 4, Beta: 2, Min: 0.3, Max: 1.0},
	},
	{
		DurationMu: 0.5, DurationSigma: 0.5,
		DistanceMu: 2.5, DistanceSigma: 0.6,
		Correlation: 0.8,
		WeekdayRate: RateRange{Alpha: 2, Beta: 5, Min: 0.0, Max: 0.25},
		WeekendRate: RateRange{Alpha: 2, Beta: 5, Min: 0.0, Max: 0.3},
	},
}

// Usage is one household's total over one month.
type Usage struct {
	Hours float64
	Km    float64
}

// Cooperative holds simulated usage indexed by month then household id.
type Cooperative struct {
	Households int
	Months     [][]Usage
}

// Simulate draws months of usage for households grouped by cluster sizes.
// sizes[i] households follow profiles[i]. The same seed gives the same
// cooperative.
func Simulate(profiles []Profile, sizes []int, months int, seed uint64) Cooperative {
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	rng := rand.New(src)

	var members []Profile
	for i, n := range sizes {
		if i >= len(profiles) {
			break
		}
		for j := 0; j < n; j++ {
			members = append(members, profiles[i])
		}
	}

	coop := Cooperative{Households: len(members), Months: make([][]Usage, months)}
	for m := 0; m < months; m++ {
		usage := make([]Usage, len(members))
		for h, p := range members {
			usage[h] = simulateMonth(p, rng, src)
		}
		coop.Months[m] = usage
	}
	return coop
}

func simulateMonth(p Profile, rng *rand.Rand, src rand.Source) Usage {
	rides := rideCount(p.WeekdayRate, weekdaysPerMonth, src) + rideCount(p.WeekendRate, weekendDaysPerMonth, src)
	duration := distuv.LogNormal{Mu: p.DurationMu, Sigma: p.DurationSigma}
	distance := distuv.LogNormal{Mu: p.DistanceMu, Sigma: p.DistanceSigma}

	var u Usage
	for i := 0; i < rides; i++ {
		uDur := clampUnit(rng.Float64())
		uDist := clampUnit(uDur*p.Correlation + rng.Float64()*(1-p.Correlation))
		u.Hours += duration.Quantile(uDur)
		u.Km += distance.Quantile(uDist)
	}
	return u
}

func rideCount(r RateRange, days int, src rand.Source) int {
	rate := distuv.Beta{Alpha: r.Alpha, Beta: r.Beta, Src: src}.Rand()*(r.Max-r.Min) + r.Min
	return int(float64(days)*rate + 0.5)
}

func clampUnit(u float64) float64 {
	const eps = 1e-9
	if u < eps {
		return eps
	}
	if u > 1-eps {
		return 1 - eps
	}
	return u
}
