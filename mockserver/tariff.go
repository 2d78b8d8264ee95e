package mockserver

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/kilianp07/coopt/core/optimizer"
)

const (
	// LeasePerCarPerMonth is what the cooperative pays for each car.
	LeasePerCarPerMonth = 660.0
	fixedMonthlyFee     = 25.0
)

// Weights are the query parameters of the optimizer endpoints.
type Weights struct {
	Heavy           float64
	Proportionality float64
	Overall         float64
}

// Tariff prices a household month.
type Tariff struct {
	BaseFee        float64
	HourRate       float64
	KmRate         float64
	HeavyThreshold float64
	HeavyDiscount  float64
}

// TariffFor derives a tariff from the weights. Heavy weight lowers the
// marginal hour price for large users, proportionality pushes prices towards
// usage, and the overall weight raises the fixed fee. Each parameter stays
// within the bounds the real service searches.
func TariffFor(w Weights) Tariff {
	return Tariff{
		BaseFee:        clamp(fixedMonthlyFee+5*w.Overall, 10, 100),
		HourRate:       clamp(3.0-0.6*w.Heavy+0.4*w.Proportionality, 1.5, 6.0),
		KmRate:         clamp(0.30-0.05*w.Heavy+0.10*w.Proportionality, 0.10, 0.60),
		HeavyThreshold: clamp(10-5*w.Heavy+10*w.Proportionality, 0, 40),
		HeavyDiscount:  clamp(0.10+0.20*w.Heavy-0.10*w.Proportionality, 0, 0.40),
	}
}

// Cost is the monthly bill for u.
func (t Tariff) Cost(u Usage) float64 {
	above := math.Max(u.Hours-t.HeavyThreshold, 0)
	return t.BaseFee + t.HourRate*u.Hours + t.KmRate*u.Km - t.HeavyDiscount*t.HourRate*above
}

// Insight summarizes every household over all months: means and the
// half-width of a Student-t 95% confidence interval. Overshoots are each
// household's average contribution beyond its share of the lease.
func Insight(c Cooperative, t Tariff, cars int) optimizer.ModelInsight {
	n := c.Households
	share := float64(cars) * LeasePerCarPerMonth / float64(max(n, 1))
	fee := round2(t.BaseFee)
	out := optimizer.ModelInsight{
		IDs:         make(map[int]float64, n),
		CostsMean:   make(map[int]float64, n),
		HoursMean:   make(map[int]float64, n),
		KmsMean:     make(map[int]float64, n),
		CostsCIHalf: make(map[int]float64, n),
		HoursCIHalf: make(map[int]float64, n),
		KmsCIHalf:   make(map[int]float64, n),
		Overshoots:  make(map[int]float64, n),
		BaseFee:     &fee,
	}
	months := len(c.Months)
	costs := make([]float64, months)
	hours := make([]float64, months)
	kms := make([]float64, months)
	for h := 0; h < n; h++ {
		for m := 0; m < months; m++ {
			u := c.Months[m][h]
			costs[m], hours[m], kms[m] = t.Cost(u), u.Hours, u.Km
		}
		cm, ch := summarize(costs)
		hm, hh := summarize(hours)
		km, kh := summarize(kms)
		out.IDs[h] = float64(h)
		out.CostsMean[h], out.CostsCIHalf[h] = round2(cm), round2(ch)
		out.HoursMean[h], out.HoursCIHalf[h] = round2(hm), round2(hh)
		out.KmsMean[h], out.KmsCIHalf[h] = round2(km), round2(kh)
		out.Overshoots[h] = round2(cm - share)
	}
	return out
}

// Month reports the last simulated month. Overshoot is the revenue left
// after paying the lease.
func Month(c Cooperative, t Tariff, cars int) optimizer.MonthInsight {
	n := c.Households
	fee := round2(t.BaseFee)
	out := optimizer.MonthInsight{
		IDs:     make(map[int]float64, n),
		Costs:   make(map[int]float64, n),
		Hours:   make(map[int]float64, n),
		Kms:     make(map[int]float64, n),
		BaseFee: &fee,
	}
	if len(c.Months) == 0 {
		return out
	}
	last := c.Months[len(c.Months)-1]
	costs := make([]float64, len(last))
	for h, u := range last {
		costs[h] = t.Cost(u)
		out.IDs[h] = float64(h)
		out.Costs[h] = round2(costs[h])
		out.Hours[h] = round2(u.Hours)
		out.Kms[h] = round2(u.Km)
	}
	out.Overshoot = round2(floats.Sum(costs) - float64(cars)*LeasePerCarPerMonth)
	return out
}

func summarize(x []float64) (mean, ciHalf float64) {
	if len(x) < 2 {
		if len(x) == 1 {
			return x[0], 0
		}
		return 0, 0
	}
	mean, std := stat.MeanStdDev(x, nil)
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(len(x) - 1)}.Quantile(0.975)
	return mean, t * std / math.Sqrt(float64(len(x)))
}

func clamp(v, lo, hi float64) float64 { return math.Min(math.Max(v, lo), hi) }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
