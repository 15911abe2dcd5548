package analysis

// Kind identifies which analysis branch produced an Output
type Kind string

const (
	KindTechnical Kind = "technical"
	KindRisk      Kind = "risk"
	KindSentiment Kind = "sentiment"
)

func (k Kind) String() string { return string(k) }

// Output is the result of one analysis branch
type Output interface {
	Kind() Kind
}

// Signal is a trading recommendation
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

func (s Signal) String() string { return string(s) }

// TrendLabel is the half-window mean comparison of a close series
type TrendLabel string

const (
	TrendBullish  TrendLabel = "BULLISH"
	TrendBearish  TrendLabel = "BEARISH"
	TrendSideways TrendLabel = "SIDEWAYS"
	TrendNeutral  TrendLabel = "NEUTRAL"
)

// Directional reports whether the label carries a bullish or bearish view
func (t TrendLabel) Directional() bool {
	return t == TrendBullish || t == TrendBearish
}

type MACD struct {
	Line      float64 `json:"line"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// Valuation is the market-cap based fundamental bucket
type Valuation string

const (
	Undervalued Valuation = "UNDERVALUED"
	FairValue   Valuation = "FAIR"
	Overvalued  Valuation = "OVERVALUED"
)

type Fundamentals struct {
	PE        float64   `json:"pe_ratio"`
	PB        float64   `json:"pb_ratio"`
	Valuation Valuation `json:"valuation"`
}

// Direction, momentum and volatility tiers used by the multi-timeframe view
const (
	DirectionUp      = "UP"
	DirectionDown    = "DOWN"
	DirectionNeutral = "NEUTRAL"

	MomentumPositive = "POSITIVE"
	MomentumNegative = "NEGATIVE"
	MomentumNeutral  = "NEUTRAL"

	VolatilityHigh   = "HIGH"
	VolatilityMedium = "MEDIUM"
	VolatilityLow    = "LOW"
)

// TimeframeView summarizes one window of the multi-timeframe analysis
type TimeframeView struct {
	Days       int     `json:"days"`
	RSI        float64 `json:"rsi"`
	Direction  string  `json:"direction"`
	Momentum   string  `json:"momentum"`
	Volatility string  `json:"volatility"`
	Signal     Signal  `json:"signal"`
}

// Trend strength buckets derived from how many horizons are positive
const (
	StrengthStrongBullish   = "STRONG_BULLISH"
	StrengthModerateBullish = "MODERATE_BULLISH"
	StrengthModerateBearish = "MODERATE_BEARISH"
	StrengthStrongBearish   = "STRONG_BEARISH"
	StrengthNeutral         = "NEUTRAL"
)

type MultiTimeframe struct {
	Short         TimeframeView `json:"short"`
	Medium        TimeframeView `json:"medium"`
	Long          TimeframeView `json:"long"`
	OverallScore  float64       `json:"overall_score"`
	OverallTrend  TrendLabel    `json:"overall_trend"`
	TrendStrength string        `json:"trend_strength"`
}

// Technical is the AnalysisAgent result
type Technical struct {
	InsufficientData bool            `json:"insufficient_data"`
	DataPoints       int             `json:"data_points"`
	RSI              float64         `json:"rsi"`
	MACD             MACD            `json:"macd"`
	MovingAverages   map[int]float64 `json:"moving_averages"`
	Trend            TrendLabel      `json:"trend"`
	MultiTimeframe   MultiTimeframe  `json:"multi_timeframe"`
	Fundamentals     Fundamentals    `json:"fundamentals"`
	Signal           Signal          `json:"signal"`
	Confidence       float64         `json:"confidence"`
	Votes            map[Signal]int  `json:"votes,omitempty"`
}

func (*Technical) Kind() Kind { return KindTechnical }

// RiskLevel buckets risk_score
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskVeryHigh RiskLevel = "VERY_HIGH"
)

// Risk is the RiskAnalysisAgent result. Percent values are already ×100.
type Risk struct {
	InsufficientData     bool      `json:"insufficient_data"`
	DailyVolatility      float64   `json:"daily_volatility"`
	AnnualizedVolatility float64   `json:"annualized_volatility"`
	Beta                 float64   `json:"beta"`
	VaR95                float64   `json:"var_95"`
	MaxDrawdown          float64   `json:"max_drawdown"`
	SharpeRatio          float64   `json:"sharpe_ratio"`
	Score                float64   `json:"risk_score"`
	Level                RiskLevel `json:"risk_level"`
	Recommendations      []string  `json:"recommendations"`
}

func (*Risk) Kind() Kind { return KindRisk }

// Fear & greed categories
type FearGreedCategory string

const (
	ExtremeGreed FearGreedCategory = "EXTREME_GREED"
	Greed        FearGreedCategory = "GREED"
	NeutralMood  FearGreedCategory = "NEUTRAL"
	Fear         FearGreedCategory = "FEAR"
	ExtremeFear  FearGreedCategory = "EXTREME_FEAR"
)

// News sentiment labels and trends
const (
	NewsPositive = "POSITIVE"
	NewsNegative = "NEGATIVE"
	NewsNeutral  = "NEUTRAL"

	SentimentImproving     = "IMPROVING"
	SentimentDeteriorating = "DETERIORATING"
	SentimentStable        = "STABLE"
)

type NewsSentiment struct {
	Score        float64        `json:"score"`
	Label        string         `json:"label"`
	Confidence   float64        `json:"confidence"`
	ArticleCount int            `json:"article_count"`
	Counts       map[string]int `json:"counts"`
	Trend        string         `json:"trend"`
	KeyTopics    []string       `json:"key_topics"`
}

type FearGreed struct {
	Index       float64           `json:"index"`
	Category    FearGreedCategory `json:"category"`
	NewsScore   float64           `json:"news_component"`
	MarketScore float64           `json:"market_component"`
}

// Sentiment is the EmotionalAnalysisAgent result
type Sentiment struct {
	News      NewsSentiment `json:"news_sentiment"`
	FearGreed FearGreed     `json:"fear_greed"`
	Signal    Signal        `json:"emotional_signal"`
}

func (*Sentiment) Kind() Kind { return KindSentiment }
