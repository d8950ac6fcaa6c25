package domain

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/shopspring/decimal"
)

// VaRMethod VaR 计算方法
type VaRMethod string

const (
	VaRMethodHistorical VaRMethod = "historical"
	VaRMethodParametric VaRMethod = "parametric"
	VaRMethodMonteCarlo VaRMethod = "monte_carlo"
)

// MonteCarloMinIterations 蒙特卡洛模拟的最少抽样次数
const MonteCarloMinIterations = 10000

// VaRInput VaR 计算输入
// 三种方法共享同一输入形状，调用方可以无分支地替换方法
type VaRInput struct {
	Returns        []float64       `json:"returns"`         // 日收益率序列
	Confidence     float64         `json:"confidence"`      // 置信度，(0,1)
	Method         VaRMethod       `json:"method"`          // 计算方法
	HorizonDays    int             `json:"horizon_days"`    // 时间跨度（天）
	PortfolioValue decimal.Decimal `json:"portfolio_value"` // 组合市值
	Iterations     int             `json:"iterations"`      // 蒙特卡洛模拟次数
	Seed           uint64          `json:"seed"`            // 蒙特卡洛随机种子，0 表示由调用方决定
}

// VaRResult VaR 计算结果
type VaRResult struct {
	VaR               decimal.Decimal    `json:"var"`
	ExpectedShortfall decimal.Decimal    `json:"expected_shortfall"`
	Confidence        float64            `json:"confidence"`
	Method            VaRMethod          `json:"method"`
	TimeHorizon       int                `json:"time_horizon"`
	Breakdown         map[string]float64 `json:"breakdown"`
}

// ValueAtRisk 计算组合的在险价值与预期亏损
func ValueAtRisk(input VaRInput) (*VaRResult, error) {
	if len(input.Returns) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 return observations", ErrInsufficientData)
	}
	if input.Confidence <= 0 || input.Confidence >= 1 {
		return nil, fmt.Errorf("%w: confidence must be in (0,1)", ErrInvalidInput)
	}
	if input.HorizonDays < 1 {
		return nil, fmt.Errorf("%w: horizon must be at least 1 day", ErrInvalidInput)
	}
	if input.PortfolioValue.IsNegative() || input.PortfolioValue.IsZero() {
		return nil, fmt.Errorf("%w: portfolio value must be positive", ErrInvalidInput)
	}

	var varFrac, esFrac float64
	breakdown := make(map[string]float64)

	mean, stdDev := meanStdDev(input.Returns)
	breakdown["mean"] = mean
	breakdown["std_dev"] = stdDev
	breakdown["observations"] = float64(len(input.Returns))

	horizonScale := math.Sqrt(float64(input.HorizonDays))

	switch input.Method {
	case VaRMethodHistorical:
		varFrac, esFrac = empiricalTail(input.Returns, input.Confidence, breakdown)
		varFrac *= horizonScale
		esFrac *= horizonScale

	case VaRMethodParametric:
		alpha := 1 - input.Confidence
		z := normInv(alpha)
		muH := mean * float64(input.HorizonDays)
		sigmaH := stdDev * horizonScale
		varFrac = math.Abs(muH + z*sigmaH)
		esFrac = math.Abs(sigmaH*normPDF(z)/alpha - muH)
		breakdown["z_score"] = z

	case VaRMethodMonteCarlo:
		iterations := input.Iterations
		if iterations < MonteCarloMinIterations {
			iterations = MonteCarloMinIterations
		}
		rng := rand.New(rand.NewPCG(input.Seed, 0))
		muH := mean * float64(input.HorizonDays)
		sigmaH := stdDev * horizonScale
		simulated := make([]float64, iterations)
		for i := range simulated {
			simulated[i] = muH + sigmaH*rng.NormFloat64()
		}
		varFrac, esFrac = empiricalTail(simulated, input.Confidence, breakdown)
		breakdown["iterations"] = float64(iterations)

	default:
		return nil, fmt.Errorf("%w: unknown VaR method %q", ErrInvalidInput, input.Method)
	}

	// 尾部平均损失不会小于分位数损失
	if esFrac < varFrac {
		esFrac = varFrac
	}

	return &VaRResult{
		VaR:               input.PortfolioValue.Mul(decimal.NewFromFloat(varFrac)),
		ExpectedShortfall: input.PortfolioValue.Mul(decimal.NewFromFloat(esFrac)),
		Confidence:        input.Confidence,
		Method:            input.Method,
		TimeHorizon:       input.HorizonDays,
		Breakdown:         breakdown,
	}, nil
}

// empiricalTail 取经验分位数作为 VaR，分位数及以下收益的均值作为 ES
// 返回的是损失比例（非负）
func empiricalTail(returns []float64, confidence float64, breakdown map[string]float64) (float64, float64) {
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)) * (1 - confidence))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	quantile := sorted[idx]

	var tailSum float64
	for i := 0; i <= idx; i++ {
		tailSum += sorted[i]
	}
	tailMean := tailSum / float64(idx+1)

	breakdown["quantile_return"] = quantile
	breakdown["tail_observations"] = float64(idx + 1)

	return math.Max(-quantile, 0), math.Max(-tailMean, 0)
}

func meanStdDev(values []float64) (float64, float64) {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sqSum float64
	for _, v := range values {
		d := v - mean
		sqSum += d * d
	}
	// 样本标准差
	return mean, math.Sqrt(sqSum / float64(len(values)-1))
}

// normInv 标准正态分布分位数，p ∈ (0,1)
func normInv(p float64) float64 {
	return math.Sqrt2 * math.Erfinv(2*p-1)
}

// normPDF 标准正态分布密度函数
func normPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}
